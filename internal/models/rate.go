package models

import "time"

// Rate is an hourly price in centavos.
type Rate struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	PricePerHour int64     `db:"price_per_hour" json:"price_per_hour"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
