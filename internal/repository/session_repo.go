package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/models"
)

const sessionColumns = `id, user_id, table_id, rate_id, price_per_hour, status, start_time, scheduled_end_time, end_time, amount, created_at, updated_at`

// SessionRepository handles persistence of table sessions and coordinates the
// cross-entity mutations of a termination inside one transaction.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository returns repository.
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// TerminationUpdate carries the single-writer mutation applied when a
// session is closed.
type TerminationUpdate struct {
	SessionID uuid.UUID
	UserID    int64
	TableID   int64
	EndTime   time.Time
	Amount    int64
}

// TerminationApplied reports what the termination transaction actually did.
type TerminationApplied struct {
	NewBalance int64
	Shortfall  int64
	TableFreed bool
}

// StartSession claims the table and inserts the Active session in one
// transaction. Returns ErrTableOccupied when the table already has an
// occupant and ErrInsufficientCredit when the wallet is empty.
func (r *SessionRepository) StartSession(ctx context.Context, session *models.Session) (*models.Session, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, session.UserID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}
	if balance <= 0 {
		return nil, ErrInsufficientCredit
	}

	claim, err := tx.ExecContext(ctx, `
		UPDATE study_tables
		SET occupied = true, current_user_id = $2, updated_at = NOW()
		WHERE id = $1 AND occupied = false
	`, session.TableID, session.UserID)
	if err != nil {
		return nil, err
	}
	claimed, err := claim.RowsAffected()
	if err != nil {
		return nil, err
	}
	if claimed == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM study_tables WHERE id = $1)`, session.TableID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrTableNotFound
		}
		return nil, ErrTableOccupied
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO study_sessions (id, user_id, table_id, rate_id, price_per_hour, status, start_time, scheduled_end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW(), NOW())
		RETURNING created_at, updated_at
	`,
		session.ID,
		session.UserID,
		session.TableID,
		session.RateID,
		session.PricePerHour,
		session.Status,
		session.StartTime,
		session.ScheduledEndTime,
	).Scan(&session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if retryable(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}
	return session, nil
}

// GetSession returns a session by id.
func (r *SessionRepository) GetSession(ctx context.Context, id uuid.UUID) (*models.Session, error) {
	query := fmt.Sprintf(`SELECT %s FROM study_sessions WHERE id = $1`, sessionColumns)
	session, err := scanSession(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// ExpiredActive returns active sessions whose scheduled end has elapsed.
func (r *SessionRepository) ExpiredActive(ctx context.Context, now time.Time, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM study_sessions
		WHERE status = $1 AND scheduled_end_time <= $2
		ORDER BY scheduled_end_time
		LIMIT $3
	`, sessionColumns)
	rows, err := r.db.QueryContext(ctx, query, models.SessionStatusActive, now, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// CompleteSession applies the full termination as one atomic unit: the
// compare-and-set on status, the clamped wallet debit with its journal
// entry, and the conditional table free. The status CAS is the sole
// serialization point; exactly one concurrent caller can win it.
func (r *SessionRepository) CompleteSession(ctx context.Context, upd TerminationUpdate) (*TerminationApplied, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE study_sessions
		SET status = $2, end_time = $3, amount = $4, updated_at = NOW()
		WHERE id = $1 AND status = $5
	`, upd.SessionID, models.SessionStatusCompleted, upd.EndTime, upd.Amount, models.SessionStatusActive)
	if err != nil {
		if retryable(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM study_sessions WHERE id = $1)`, upd.SessionID).Scan(&exists); err != nil {
			return nil, err
		}
		if !exists {
			return nil, ErrSessionNotFound
		}
		return nil, ErrSessionNotActive
	}

	var balance int64
	err = tx.QueryRowContext(ctx, `SELECT balance FROM wallets WHERE user_id = $1 FOR UPDATE`, upd.UserID).Scan(&balance)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrWalletNotFound
	}
	if err != nil {
		return nil, err
	}

	debited := upd.Amount
	if debited > balance {
		debited = balance
	}
	shortfall := upd.Amount - debited

	var newBalance int64
	err = tx.QueryRowContext(ctx, `
		UPDATE wallets
		SET balance = balance - $2, total_spent = total_spent + $3, updated_at = NOW()
		WHERE user_id = $1
		RETURNING balance
	`, upd.UserID, debited, upd.Amount).Scan(&newBalance)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO wallet_entries (user_id, session_id, amount, kind, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`, upd.UserID, upd.SessionID, -debited, models.WalletEntryDebit); err != nil {
		return nil, err
	}

	free, err := tx.ExecContext(ctx, `
		UPDATE study_tables
		SET occupied = false, current_user_id = NULL, updated_at = NOW()
		WHERE id = $1 AND current_user_id = $2
	`, upd.TableID, upd.UserID)
	if err != nil {
		return nil, err
	}
	freed, err := free.RowsAffected()
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		if retryable(err) {
			return nil, fmt.Errorf("%w: %v", ErrConflict, err)
		}
		return nil, err
	}

	return &TerminationApplied{
		NewBalance: newBalance,
		Shortfall:  shortfall,
		TableFreed: freed == 1,
	}, nil
}

// ExtendScheduledEnd moves the scheduled end of an active session owned by
// the user. Returns ErrSessionNotActive when the session already completed.
func (r *SessionRepository) ExtendScheduledEnd(ctx context.Context, id uuid.UUID, userID int64, newEnd time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE study_sessions
		SET scheduled_end_time = $3, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = $4
	`, id, userID, newEnd, models.SessionStatusActive)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := r.GetSession(ctx, id); err != nil {
			return err
		}
		return ErrSessionNotActive
	}
	return nil
}

// ListByUser returns last N sessions for user.
func (r *SessionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM study_sessions
		WHERE user_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, sessionColumns)
	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

// ActiveSessions returns currently running sessions.
func (r *SessionRepository) ActiveSessions(ctx context.Context, limit int) ([]models.Session, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM study_sessions
		WHERE status = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, sessionColumns)
	rows, err := r.db.QueryContext(ctx, query, models.SessionStatusActive, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*models.Session, error) {
	var s models.Session
	if err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.TableID,
		&s.RateID,
		&s.PricePerHour,
		&s.Status,
		&s.StartTime,
		&s.ScheduledEndTime,
		&s.EndTime,
		&s.Amount,
		&s.CreatedAt,
		&s.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSessions(rows *sql.Rows) ([]models.Session, error) {
	var sessions []models.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
