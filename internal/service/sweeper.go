package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/repository"
)

const defaultSweepBatch = 100

// Sweeper periodically closes sessions whose scheduled end has elapsed
// without a user action. It tolerates losing the race to an interactive
// termination and isolates per-session failures so one bad row never
// aborts the batch.
type Sweeper struct {
	store      SessionStore
	terminator *Terminator
	clock      Clock
	interval   time.Duration
	batchSize  int
	logger     *zap.Logger
}

// NewSweeper builds sweeper.
func NewSweeper(store SessionStore, terminator *Terminator, clock Clock, interval time.Duration, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		store:      store,
		terminator: terminator,
		clock:      clock,
		interval:   interval,
		batchSize:  defaultSweepBatch,
		logger:     logger,
	}
}

// Run sweeps once immediately and then on every tick until ctx is
// cancelled. Cancellation finishes the in-flight batch before returning.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		// Detached from cancellation so a shutdown never abandons a
		// termination mid-step; the batch is bounded.
		s.Sweep(context.WithoutCancel(ctx))

		select {
		case <-ctx.Done():
			s.logger.Info("sweeper stopping")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// Sweep performs one reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.clock.Now().UTC()
	sessions, err := s.store.ExpiredActive(ctx, now, s.batchSize)
	if err != nil {
		s.logger.Error("failed to query expired sessions", zap.Error(err))
		return
	}
	if len(sessions) == 0 {
		s.logger.Debug("no expired sessions")
		return
	}

	s.logger.Info("sweeping expired sessions", zap.Int("count", len(sessions)))
	for i := range sessions {
		session := &sessions[i]
		result, err := s.terminator.Terminate(ctx, session.ID, ReasonSweep)
		switch {
		case errors.Is(err, repository.ErrSessionNotActive):
			// Lost the race to an interactive end. Expected, not an error.
			s.logger.Info("session already terminated",
				zap.String("session_id", session.ID.String()),
			)
		case err != nil:
			s.logger.Error("failed to terminate expired session",
				zap.String("session_id", session.ID.String()),
				zap.Int64("table_id", session.TableID),
				zap.Int64("user_id", session.UserID),
				zap.Error(err),
			)
		default:
			s.logger.Info("closed overdue session",
				zap.String("session_id", session.ID.String()),
				zap.Int64("amount", result.Amount),
			)
		}
	}
}
