package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/models"
)

// RateRepository handles hourly rate lookups.
type RateRepository struct {
	db *sql.DB
}

// NewRateRepository returns repository.
func NewRateRepository(db *sql.DB) *RateRepository {
	return &RateRepository{db: db}
}

// GetRate returns a rate by id.
func (r *RateRepository) GetRate(ctx context.Context, id int64) (*models.Rate, error) {
	const query = `
		SELECT id, name, price_per_hour, is_active, created_at, updated_at
		FROM rates
		WHERE id = $1
	`
	rate, err := r.scanRate(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRateNotFound
	}
	return rate, err
}

// ActiveRate returns the current default rate (latest active row).
func (r *RateRepository) ActiveRate(ctx context.Context) (*models.Rate, error) {
	const query = `
		SELECT id, name, price_per_hour, is_active, created_at, updated_at
		FROM rates
		WHERE is_active = true
		ORDER BY updated_at DESC
		LIMIT 1
	`
	rate, err := r.scanRate(r.db.QueryRowContext(ctx, query))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRateNotFound
	}
	return rate, err
}

func (r *RateRepository) scanRate(row *sql.Row) (*models.Rate, error) {
	var rate models.Rate
	if err := row.Scan(
		&rate.ID,
		&rate.Name,
		&rate.PricePerHour,
		&rate.IsActive,
		&rate.CreatedAt,
		&rate.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &rate, nil
}
