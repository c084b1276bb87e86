// Package bill derives monetary charges from completed trips. A bill
// is created once per trip, immutable, and keyed by trip id.
package bill

import (
	"time"

	"github.com/google/uuid"
)

type Bill struct {
	ID              uuid.UUID `db:"id"`
	TripID          uuid.UUID `db:"trip_id"`
	RiderID         uuid.UUID `db:"rider_id"`
	DurationMinutes int64     `db:"duration_minutes"`
	BaseCents       int64     `db:"base_cents"`
	RideCents       int64     `db:"ride_cents"`
	TaxCents        int64     `db:"tax_cents"`
	TotalCents      int64     `db:"total_cents"`
	Currency        string    `db:"currency"`
	CreatedAt       time.Time `db:"created_at"`
}
