package models

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Session statuses.
const (
	SessionStatusActive    = "active"
	SessionStatusCompleted = "completed"
)

// Session represents a paid table occupancy. Completed sessions are terminal
// and never deleted; they are the financial record of the rental.
type Session struct {
	ID               uuid.UUID     `db:"id" json:"id"`
	UserID           int64         `db:"user_id" json:"user_id"`
	TableID          int64         `db:"table_id" json:"table_id"`
	RateID           int64         `db:"rate_id" json:"rate_id"`
	PricePerHour     int64         `db:"price_per_hour" json:"price_per_hour"`
	Status           string        `db:"status" json:"status"`
	StartTime        time.Time     `db:"start_time" json:"start_time"`
	ScheduledEndTime time.Time     `db:"scheduled_end_time" json:"scheduled_end_time"`
	EndTime          sql.NullTime  `db:"end_time" json:"end_time"`
	Amount           sql.NullInt64 `db:"amount" json:"amount"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}

// IsActive reports whether the session can still be terminated.
func (s *Session) IsActive() bool {
	return s.Status == SessionStatusActive
}
