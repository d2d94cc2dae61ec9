package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/models"
	redisstore "github.com/DevEdward666/StudyHubAPI-sub001/internal/redis"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/repository"
)

// SessionsService is the interactive lifecycle surface. All terminations
// delegate to the Terminator; this layer adds ownership checks and the
// read-back that makes a lost termination race look like success to the
// caller.
type SessionsService struct {
	store       SessionStore
	wallets     WalletStore
	tables      TableRegistry
	rates       RateResolver
	terminator  *Terminator
	activeStore *redisstore.Store
	clock       Clock
	logger      *zap.Logger
}

// NewSessionsService builds service. activeStore may be nil.
func NewSessionsService(
	store SessionStore,
	wallets WalletStore,
	tables TableRegistry,
	rates RateResolver,
	terminator *Terminator,
	activeStore *redisstore.Store,
	clock Clock,
	logger *zap.Logger,
) *SessionsService {
	return &SessionsService{
		store:       store,
		wallets:     wallets,
		tables:      tables,
		rates:       rates,
		terminator:  terminator,
		activeStore: activeStore,
		clock:       clock,
		logger:      logger,
	}
}

// StartSessionInput describes a table rental request.
type StartSessionInput struct {
	UserID       int64
	TableID      int64
	RateID       int64
	PlannedHours int
}

// Start opens an Active session, claiming the table atomically. The hourly
// price is snapshotted on the session so both termination paths bill the
// same rate even if the rate row changes later.
func (s *SessionsService) Start(ctx context.Context, input StartSessionInput) (*models.Session, error) {
	hours := input.PlannedHours
	if hours <= 0 {
		hours = 1
	}

	var (
		rate *models.Rate
		err  error
	)
	if input.RateID != 0 {
		rate, err = s.rates.GetRate(ctx, input.RateID)
	} else {
		rate, err = s.rates.ActiveRate(ctx)
	}
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	session := &models.Session{
		ID:               uuid.New(),
		UserID:           input.UserID,
		TableID:          input.TableID,
		RateID:           rate.ID,
		PricePerHour:     rate.PricePerHour,
		Status:           models.SessionStatusActive,
		StartTime:        now,
		ScheduledEndTime: now.Add(time.Duration(hours) * time.Hour),
	}

	session, err = s.store.StartSession(ctx, session)
	if err != nil {
		return nil, err
	}

	s.cacheActive(ctx, session)

	s.logger.Info("session started",
		zap.String("session_id", session.ID.String()),
		zap.Int64("table_id", session.TableID),
		zap.Int64("user_id", session.UserID),
		zap.Time("scheduled_end", session.ScheduledEndTime),
	)
	return session, nil
}

// EndSessionResult is the user-visible outcome of ending a session.
type EndSessionResult struct {
	Session       *models.Session
	Amount        int64
	Duration      time.Duration
	AlreadyClosed bool
}

// End terminates the caller's session. When the reconciliation sweep won
// the race, the already-Completed session is read back and reported as
// success with whatever the sweep charged, so the user sees the same
// outcome regardless of which path closed it.
func (s *SessionsService) End(ctx context.Context, userID int64, sessionID uuid.UUID) (*EndSessionResult, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionNotOwned
	}

	result, err := s.terminator.Terminate(ctx, sessionID, ReasonUser)
	if errors.Is(err, repository.ErrSessionNotActive) {
		return s.readBackClosed(ctx, sessionID)
	}
	if err != nil {
		return nil, err
	}

	return &EndSessionResult{
		Session:  result.Session,
		Amount:   result.Amount,
		Duration: result.Duration,
	}, nil
}

func (s *SessionsService) readBackClosed(ctx context.Context, sessionID uuid.UUID) (*EndSessionResult, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.IsActive() || !session.EndTime.Valid || !session.Amount.Valid {
		// Lost the race but the winner's write is not visible; treat as a
		// transient conflict for the caller to retry.
		return nil, repository.ErrConflict
	}
	return &EndSessionResult{
		Session:       session,
		Amount:        session.Amount.Int64,
		Duration:      session.EndTime.Time.Sub(session.StartTime),
		AlreadyClosed: true,
	}, nil
}

// TransferResult reports a table change.
type TransferResult struct {
	Closed     *TerminationResult
	NewSession *models.Session
}

// Transfer closes the current session (billing the elapsed interval) and
// starts a fresh one on the target table. If the second leg fails the
// termination stands: the elapsed usage was real and billable.
func (s *SessionsService) Transfer(ctx context.Context, userID int64, sessionID uuid.UUID, targetTableID int64) (*TransferResult, error) {
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionNotOwned
	}

	closed, err := s.terminator.Terminate(ctx, sessionID, ReasonTransfer)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	scheduledEnd := session.ScheduledEndTime
	if !scheduledEnd.After(now) {
		scheduledEnd = now.Add(time.Hour)
	}

	newSession := &models.Session{
		ID:               uuid.New(),
		UserID:           userID,
		TableID:          targetTableID,
		RateID:           session.RateID,
		PricePerHour:     session.PricePerHour,
		Status:           models.SessionStatusActive,
		StartTime:        now,
		ScheduledEndTime: scheduledEnd,
	}

	newSession, err = s.store.StartSession(ctx, newSession)
	if err != nil {
		s.logger.Warn("transfer second leg failed, termination stands",
			zap.String("closed_session_id", sessionID.String()),
			zap.Int64("target_table_id", targetTableID),
			zap.Error(err),
		)
		return &TransferResult{Closed: closed}, err
	}

	s.cacheActive(ctx, newSession)

	return &TransferResult{Closed: closed, NewSession: newSession}, nil
}

// Extend pushes the scheduled end of an active session forward.
func (s *SessionsService) Extend(ctx context.Context, userID int64, sessionID uuid.UUID, extraHours int) (*models.Session, error) {
	if extraHours <= 0 {
		extraHours = 1
	}
	session, err := s.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.UserID != userID {
		return nil, ErrSessionNotOwned
	}

	newEnd := session.ScheduledEndTime.Add(time.Duration(extraHours) * time.Hour)
	if err := s.store.ExtendScheduledEnd(ctx, sessionID, userID, newEnd); err != nil {
		return nil, err
	}

	session.ScheduledEndTime = newEnd
	s.cacheActive(ctx, session)
	return session, nil
}

// SessionsForUser returns the user's session history.
func (s *SessionsService) SessionsForUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// ActiveSessions returns currently running sessions.
func (s *SessionsService) ActiveSessions(ctx context.Context, limit int) ([]models.Session, error) {
	return s.store.ActiveSessions(ctx, limit)
}

// ActiveSessionForTable returns the cached occupancy for a table, if any.
func (s *SessionsService) ActiveSessionForTable(ctx context.Context, tableID int64) (*redisstore.ActiveSession, error) {
	if s.activeStore == nil {
		return nil, redis.Nil
	}
	return s.activeStore.Get(ctx, tableID)
}

// Wallet returns the user's wallet.
func (s *SessionsService) Wallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	return s.wallets.GetWallet(ctx, userID)
}

// Topup credits the user's wallet.
func (s *SessionsService) Topup(ctx context.Context, userID, amount int64) (*models.Wallet, error) {
	return s.wallets.Topup(ctx, userID, amount)
}

// WalletEntries returns the user's journal history.
func (s *SessionsService) WalletEntries(ctx context.Context, userID int64, limit int) ([]models.WalletEntry, error) {
	return s.wallets.ListEntries(ctx, userID, limit)
}

// Tables returns the table registry.
func (s *SessionsService) Tables(ctx context.Context) ([]models.StudyTable, error) {
	return s.tables.ListTables(ctx)
}

// Table returns one table by id.
func (s *SessionsService) Table(ctx context.Context, id int64) (*models.StudyTable, error) {
	return s.tables.GetTable(ctx, id)
}

func (s *SessionsService) cacheActive(ctx context.Context, session *models.Session) {
	if s.activeStore == nil {
		return
	}
	err := s.activeStore.Save(ctx, redisstore.ActiveSession{
		SessionID:        session.ID.String(),
		TableID:          session.TableID,
		UserID:           session.UserID,
		StartTime:        session.StartTime,
		ScheduledEndTime: session.ScheduledEndTime,
	})
	if err != nil && err != redis.Nil {
		s.logger.Warn("failed to cache active session", zap.Error(err))
	}
}
