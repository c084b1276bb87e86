package bill

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velocitymobility/fleetops-backend/trip"
)

var (
	ErrNotFound         = errors.New("bill not found")
	ErrTripNotCompleted = errors.New("trip not completed")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ComputeForTrip prices a finished trip and records the bill. The
// unique key on trip_id makes this idempotent: a second compute for the
// same trip re-reads the existing row and never writes a duplicate.
// The pricing inputs are the trip's own timestamps, so repeated calls
// yield identical amounts.
func (r *Repository) ComputeForTrip(ctx context.Context, t trip.Trip, p Pricing) (Bill, error) {
	var breakdown Breakdown
	switch t.Status {
	case trip.StatusCompleted:
		breakdown = p.Quote(t.BikeType, t.Duration(time.Now()))
	case trip.StatusAbandoned:
		breakdown = p.AbandonmentQuote(t.Duration(time.Now()))
	default:
		return Bill{}, ErrTripNotCompleted
	}

	_, err := r.db.ExecContext(ctx, insertBill,
		uuid.New(), t.ID, t.RiderID,
		breakdown.DurationMinutes, breakdown.BaseCents, breakdown.RideCents,
		breakdown.TaxCents, breakdown.TotalCents, p.Currency)
	if err != nil {
		return Bill{}, err
	}

	return r.GetByTripID(ctx, t.ID)
}

const insertBill = `
INSERT INTO bills (id, trip_id, rider_id, duration_minutes, base_cents, ride_cents, tax_cents, total_cents, currency, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, now())
ON CONFLICT (trip_id) DO NOTHING
`

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Bill, error) {
	var bill Bill
	err := r.db.GetContext(ctx, &bill, getBill, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Bill{}, ErrNotFound
	}
	return bill, err
}

const getBill = `SELECT * FROM bills WHERE id = $1`

func (r *Repository) GetByTripID(ctx context.Context, tripID uuid.UUID) (Bill, error) {
	var bill Bill
	err := r.db.GetContext(ctx, &bill, getBillByTrip, tripID)
	if errors.Is(err, sql.ErrNoRows) {
		return Bill{}, ErrNotFound
	}
	return bill, err
}

const getBillByTrip = `SELECT * FROM bills WHERE trip_id = $1`
