package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/models"
	"github.com/DevEdward666/StudyHubAPI-sub001/internal/repository"
)

// ErrSessionNotOwned indicates the session belongs to a different user.
var ErrSessionNotOwned = errors.New("session not owned by user")

// SessionStore is the transactional store behind the lifecycle engine.
// Implemented by repository.SessionRepository; faked in tests.
type SessionStore interface {
	StartSession(ctx context.Context, session *models.Session) (*models.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error)
	ExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Session, error)
	CompleteSession(ctx context.Context, upd repository.TerminationUpdate) (*repository.TerminationApplied, error)
	ExtendScheduledEnd(ctx context.Context, id uuid.UUID, userID int64, newEnd time.Time) error
	ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error)
	ActiveSessions(ctx context.Context, limit int) ([]models.Session, error)
}

// RateResolver maps a rate id (or the hub default) to an hourly price.
type RateResolver interface {
	GetRate(ctx context.Context, id int64) (*models.Rate, error)
	ActiveRate(ctx context.Context) (*models.Rate, error)
}

// WalletStore exposes the credit side of the ledger. Debits go through
// SessionStore.CompleteSession only.
type WalletStore interface {
	GetWallet(ctx context.Context, userID int64) (*models.Wallet, error)
	Topup(ctx context.Context, userID, amount int64) (*models.Wallet, error)
	ListEntries(ctx context.Context, userID int64, limit int) ([]models.WalletEntry, error)
}

// TableRegistry reads the table registry.
type TableRegistry interface {
	GetTable(ctx context.Context, id int64) (*models.StudyTable, error)
	ListTables(ctx context.Context) ([]models.StudyTable, error)
}

// EventSink receives termination events. Fire-and-forget: a failed publish
// must never block or reverse a termination.
type EventSink interface {
	PublishTermination(ctx context.Context, event models.TerminationEvent) error
}
