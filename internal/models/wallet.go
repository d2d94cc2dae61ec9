package models

import (
	"time"

	"github.com/google/uuid"
)

// Wallet entry kinds.
const (
	WalletEntryDebit  = "debit"
	WalletEntryCredit = "credit"
)

// Wallet holds a user's pre-paid credit in centavos. Balance never goes
// below zero; TotalSpent accumulates the full billed value even when a
// debit is clamped.
type Wallet struct {
	UserID     int64     `db:"user_id" json:"user_id"`
	Balance    int64     `db:"balance" json:"balance"`
	TotalSpent int64     `db:"total_spent" json:"total_spent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// WalletEntry is an append-only journal row for every balance mutation.
// SessionID is set on debits only.
type WalletEntry struct {
	ID        int64         `db:"id" json:"id"`
	UserID    int64         `db:"user_id" json:"user_id"`
	SessionID uuid.NullUUID `db:"session_id" json:"session_id,omitempty"`
	Amount    int64         `db:"amount" json:"amount"`
	Kind      string        `db:"kind" json:"kind"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}
