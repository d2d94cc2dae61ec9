package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/DevEdward666/StudyHubAPI-sub001/internal/models"
)

// TableRepository reads the table registry. Occupancy writes happen only
// inside SessionRepository transactions.
type TableRepository struct {
	db *sql.DB
}

// NewTableRepository returns repository.
func NewTableRepository(db *sql.DB) *TableRepository {
	return &TableRepository{db: db}
}

// GetTable returns a table by id.
func (r *TableRepository) GetTable(ctx context.Context, id int64) (*models.StudyTable, error) {
	const query = `
		SELECT id, label, occupied, current_user_id, created_at, updated_at
		FROM study_tables
		WHERE id = $1
	`
	var t models.StudyTable
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&t.ID,
		&t.Label,
		&t.Occupied,
		&t.CurrentUserID,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTableNotFound
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListTables returns all tables ordered by label.
func (r *TableRepository) ListTables(ctx context.Context) ([]models.StudyTable, error) {
	const query = `
		SELECT id, label, occupied, current_user_id, created_at, updated_at
		FROM study_tables
		ORDER BY label
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []models.StudyTable
	for rows.Next() {
		var t models.StudyTable
		if err := rows.Scan(
			&t.ID,
			&t.Label,
			&t.Occupied,
			&t.CurrentUserID,
			&t.CreatedAt,
			&t.UpdatedAt,
		); err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return tables, nil
}
