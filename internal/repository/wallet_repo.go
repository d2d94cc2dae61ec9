package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/models"
)

// WalletRepository reads wallets and applies credits. Debits happen only
// inside SessionRepository.CompleteSession.
type WalletRepository struct {
	db *sql.DB
}

// NewWalletRepository returns repository.
func NewWalletRepository(db *sql.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

// GetWallet returns the user's wallet.
func (r *WalletRepository) GetWallet(ctx context.Context, userID int64) (*models.Wallet, error) {
	const query = `
		SELECT user_id, balance, total_spent, created_at, updated_at
		FROM wallets
		WHERE user_id = $1
	`
	var w models.Wallet
	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&w.UserID,
		&w.Balance,
		&w.TotalSpent,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Topup credits the wallet, creating it on first use, and journals the
// credit in the same transaction.
func (r *WalletRepository) Topup(ctx context.Context, userID, amount int64) (*models.Wallet, error) {
	if amount <= 0 {
		return nil, errors.New("wallet: topup amount must be positive")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var w models.Wallet
	err = tx.QueryRowContext(ctx, `
		INSERT INTO wallets (user_id, balance, total_spent, created_at, updated_at)
		VALUES ($1, $2, 0, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			balance = wallets.balance + EXCLUDED.balance,
			updated_at = NOW()
		RETURNING user_id, balance, total_spent, created_at, updated_at
	`, userID, amount).Scan(
		&w.UserID,
		&w.Balance,
		&w.TotalSpent,
		&w.CreatedAt,
		&w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_entries (user_id, amount, kind, created_at)
		VALUES ($1, $2, $3, NOW())
	`, userID, amount, models.WalletEntryCredit); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &w, nil
}

// ListEntries returns the user's latest journal rows, newest first.
func (r *WalletRepository) ListEntries(ctx context.Context, userID int64, limit int) ([]models.WalletEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, user_id, session_id, amount, kind, created_at
		FROM wallet_entries
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []models.WalletEntry
	for rows.Next() {
		var e models.WalletEntry
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.SessionID,
			&e.Amount,
			&e.Kind,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
