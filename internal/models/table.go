package models

import (
	"database/sql"
	"time"
)

// StudyTable is a rentable physical table. Occupancy invariant:
// occupied is true exactly when current_user_id is set.
type StudyTable struct {
	ID            int64         `db:"id" json:"id"`
	Label         string        `db:"label" json:"label"`
	Occupied      bool          `db:"occupied" json:"occupied"`
	CurrentUserID sql.NullInt64 `db:"current_user_id" json:"current_user_id"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}
