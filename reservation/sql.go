package reservation

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velocitymobility/fleetops-backend/bike"
)

var (
	ErrNotFound        = errors.New("reservation not found")
	ErrBikeUnavailable = errors.New("bike unavailable for reservation")
	ErrExpired         = errors.New("reservation expired")
	ErrConsumed        = errors.New("reservation already consumed")
	ErrNotRider        = errors.New("reservation belongs to another rider")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Reserve places a hold on a bike for a rider. The bike must be
// available and docked at the named station. The bike row is locked so
// two concurrent holds on the same bike cannot both succeed.
func (r *Repository) Reserve(ctx context.Context, bikeID, riderID, stationID uuid.UUID, hold time.Duration) (Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Reservation{}, err
	}
	defer tx.Rollback()

	var b bike.Bike
	err = tx.GetContext(ctx, &b, getBikeForUpdate, bikeID)
	if errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, bike.ErrNotFound
	}
	if err != nil {
		return Reservation{}, err
	}

	if b.Status != bike.StatusAvailable || b.StationID == nil || *b.StationID != stationID || b.InTransit() {
		return Reservation{}, ErrBikeUnavailable
	}

	res, err := tx.ExecContext(ctx, markBikeReserved, bikeID)
	if err != nil {
		return Reservation{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return Reservation{}, err
	}
	if n == 0 {
		return Reservation{}, ErrBikeUnavailable
	}

	var reservation Reservation
	err = tx.GetContext(ctx, &reservation, createReservation,
		uuid.New(), bikeID, riderID, stationID, time.Now().Add(hold))
	if err != nil {
		return Reservation{}, err
	}

	return reservation, tx.Commit()
}

const getBikeForUpdate = `SELECT * FROM bikes WHERE id = $1 FOR UPDATE`

const markBikeReserved = `UPDATE bikes SET status = 'reserved' WHERE id = $1 AND status = 'available'`

const createReservation = `
INSERT INTO reservations (id, bike_id, rider_id, station_id, status, created_at, expires_at)
VALUES ($1, $2, $3, $4, 'active', now(), $5)
RETURNING *
`

// GetByID fetches a single reservation.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Reservation, error) {
	var reservation Reservation
	err := r.db.GetContext(ctx, &reservation, getByID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, ErrNotFound
	}
	return reservation, err
}

const getByID = `SELECT * FROM reservations WHERE id = $1`

// ActiveForBike fetches the active reservation on a bike, or nil.
func (r *Repository) ActiveForBike(ctx context.Context, bikeID uuid.UUID) (*Reservation, error) {
	var reservation Reservation
	err := r.db.GetContext(ctx, &reservation, activeForBike, bikeID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &reservation, nil
}

const activeForBike = `SELECT * FROM reservations WHERE bike_id = $1 AND status = 'active'`

// Cancel releases a hold before it is consumed. Only the holding rider
// may cancel; the bike reverts to available.
func (r *Repository) Cancel(ctx context.Context, id, riderID uuid.UUID) (Reservation, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Reservation{}, err
	}
	defer tx.Rollback()

	var reservation Reservation
	err = tx.GetContext(ctx, &reservation, getForUpdate, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, ErrNotFound
	}
	if err != nil {
		return Reservation{}, err
	}

	if reservation.RiderID != riderID {
		return Reservation{}, ErrNotRider
	}
	switch reservation.Status {
	case StatusActive:
	case StatusConsumed:
		return Reservation{}, ErrConsumed
	default:
		return Reservation{}, ErrExpired
	}

	err = tx.GetContext(ctx, &reservation, markCancelled, id)
	if err != nil {
		return Reservation{}, err
	}

	// CAS back to available; a racing expiry sweep may already have done it.
	_, err = tx.ExecContext(ctx, releaseBike, reservation.BikeID)
	if err != nil {
		return Reservation{}, err
	}

	return reservation, tx.Commit()
}

const getForUpdate = `SELECT * FROM reservations WHERE id = $1 FOR UPDATE`
const markCancelled = `UPDATE reservations SET status = 'cancelled' WHERE id = $1 RETURNING *`
const releaseBike = `UPDATE bikes SET status = 'available' WHERE id = $1 AND status = 'reserved'`

// ExpireDue flips every active reservation past its hold window to
// expired and the held bikes back to available, in one statement per
// side. Both updates are guarded on current state so the sweep is
// idempotent and safe to race against a trip start: whichever flips the
// bike status first wins.
func (r *Repository) ExpireDue(ctx context.Context) (int64, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var bikeIDs []uuid.UUID
	err = tx.SelectContext(ctx, &bikeIDs, expireDueReservations)
	if err != nil {
		return 0, err
	}

	if len(bikeIDs) > 0 {
		query, args, err := sqlx.In(releaseExpiredBikes, bikeIDs)
		if err != nil {
			return 0, err
		}
		_, err = tx.ExecContext(ctx, tx.Rebind(query), args...)
		if err != nil {
			return 0, err
		}
	}

	return int64(len(bikeIDs)), tx.Commit()
}

const expireDueReservations = `
UPDATE reservations SET status = 'expired'
WHERE status = 'active' AND expires_at <= now()
RETURNING bike_id
`

const releaseExpiredBikes = `UPDATE bikes SET status = 'available' WHERE id IN (?) AND status = 'reserved'`
