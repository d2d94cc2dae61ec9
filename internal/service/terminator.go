package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/billing"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/models"
	redisstore "github.com/DevEdward666/StudyHubAPI-sub001/internal/redis"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/repository"
)

// Termination reasons recorded on the emitted event.
const (
	ReasonUser     = "user"
	ReasonSweep    = "sweep"
	ReasonTransfer = "transfer"
)

const (
	maxTerminateAttempts = 3
	conflictBackoff      = 50 * time.Millisecond
)

// TerminationResult reports a successful close.
type TerminationResult struct {
	Session    *models.Session
	Amount     int64
	Duration   time.Duration
	NewBalance int64
	Shortfall  int64
}

// Terminator is the single authoritative operation that closes a session.
// The interactive path, the reconciliation sweeper and table transfer all
// funnel through it, so a session is billed and its table freed at most
// once. The store's conditional status update decides the winner of any
// race; the loser gets repository.ErrSessionNotActive.
type Terminator struct {
	store       SessionStore
	rates       RateResolver
	events      EventSink
	activeStore *redisstore.Store
	clock       Clock
	logger      *zap.Logger
}

// NewTerminator builds the terminator. events and activeStore may be nil.
func NewTerminator(
	store SessionStore,
	rates RateResolver,
	events EventSink,
	activeStore *redisstore.Store,
	clock Clock,
	logger *zap.Logger,
) *Terminator {
	return &Terminator{
		store:       store,
		rates:       rates,
		events:      events,
		activeStore: activeStore,
		clock:       clock,
		logger:      logger,
	}
}

// Terminate closes the session, retrying the whole operation on store
// conflicts with a short bounded backoff. Returns
// repository.ErrSessionNotActive when another caller already closed it.
func (t *Terminator) Terminate(ctx context.Context, sessionID uuid.UUID, reason string) (*TerminationResult, error) {
	for attempt := 1; ; attempt++ {
		result, err := t.terminateOnce(ctx, sessionID, reason)
		if err == nil || !errors.Is(err, repository.ErrConflict) || attempt >= maxTerminateAttempts {
			return result, err
		}
		t.logger.Warn("termination conflict, retrying",
			zap.String("session_id", sessionID.String()),
			zap.Int("attempt", attempt),
		)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * conflictBackoff):
		}
	}
}

func (t *Terminator) terminateOnce(ctx context.Context, sessionID uuid.UUID, reason string) (*TerminationResult, error) {
	session, err := t.store.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !session.IsActive() {
		return nil, repository.ErrSessionNotActive
	}

	// The sweep bills exactly the scheduled interval so the user never pays
	// for the sweeper's own polling latency.
	endTime := t.clock.Now().UTC()
	if reason == ReasonSweep {
		endTime = session.ScheduledEndTime
	}

	price, err := t.resolvePrice(ctx, session)
	if err != nil {
		return nil, err
	}
	amount := billing.Amount(session.StartTime, endTime, price)

	applied, err := t.store.CompleteSession(ctx, repository.TerminationUpdate{
		SessionID: session.ID,
		UserID:    session.UserID,
		TableID:   session.TableID,
		EndTime:   endTime,
		Amount:    amount,
	})
	if err != nil {
		return nil, err
	}

	if !applied.TableFreed {
		t.logger.Warn("table not freed on termination, occupant changed",
			zap.Int64("table_id", session.TableID),
			zap.String("session_id", session.ID.String()),
		)
	}
	if applied.Shortfall > 0 {
		t.logger.Warn("wallet debit clamped at zero",
			zap.Int64("user_id", session.UserID),
			zap.String("session_id", session.ID.String()),
			zap.Int64("amount", amount),
			zap.Int64("shortfall", applied.Shortfall),
		)
	}

	session.Status = models.SessionStatusCompleted
	session.EndTime = sql.NullTime{Time: endTime, Valid: true}
	session.Amount = sql.NullInt64{Int64: amount, Valid: true}

	if t.activeStore != nil {
		if err := t.activeStore.Delete(ctx, session.TableID); err != nil && err != redis.Nil {
			t.logger.Warn("failed to drop active session cache", zap.Error(err))
		}
	}

	duration := endTime.Sub(session.StartTime)
	t.publish(ctx, models.TerminationEvent{
		SessionID:       session.ID,
		TableID:         session.TableID,
		UserID:          session.UserID,
		Reason:          reason,
		StartTime:       session.StartTime,
		EndTime:         endTime,
		DurationSeconds: int64(duration / time.Second),
		Amount:          amount,
		Shortfall:       applied.Shortfall,
	})

	t.logger.Info("session terminated",
		zap.String("session_id", session.ID.String()),
		zap.Int64("table_id", session.TableID),
		zap.Int64("user_id", session.UserID),
		zap.String("reason", reason),
		zap.Int64("amount", amount),
	)

	return &TerminationResult{
		Session:    session,
		Amount:     amount,
		Duration:   duration,
		NewBalance: applied.NewBalance,
		Shortfall:  applied.Shortfall,
	}, nil
}

// resolvePrice prefers the price snapshotted at start; older rows fall back
// to the rate table.
func (t *Terminator) resolvePrice(ctx context.Context, session *models.Session) (int64, error) {
	if session.PricePerHour > 0 {
		return session.PricePerHour, nil
	}
	if session.RateID != 0 {
		rate, err := t.rates.GetRate(ctx, session.RateID)
		if err != nil {
			return 0, err
		}
		return rate.PricePerHour, nil
	}
	rate, err := t.rates.ActiveRate(ctx)
	if err != nil {
		return 0, err
	}
	return rate.PricePerHour, nil
}

func (t *Terminator) publish(ctx context.Context, event models.TerminationEvent) {
	if t.events == nil {
		return
	}
	if err := t.events.PublishTermination(ctx, event); err != nil {
		t.logger.Warn("failed to publish termination event",
			zap.String("session_id", event.SessionID.String()),
			zap.Error(err),
		)
	}
}
