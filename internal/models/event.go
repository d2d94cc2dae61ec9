package models

import (
	"time"

	"github.com/google/uuid"
)

// TerminationEvent is published once per closed session for downstream
// fan-out (receipts, dashboards). Delivery is fire-and-forget; billing
// never depends on it.
type TerminationEvent struct {
	SessionID       uuid.UUID `json:"session_id"`
	TableID         int64     `json:"table_id"`
	UserID          int64     `json:"user_id"`
	Reason          string    `json:"reason"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	Amount          int64     `json:"amount"`
	Shortfall       int64     `json:"shortfall,omitempty"`
}
