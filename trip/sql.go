package trip

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velocitymobility/fleetops-backend/bike"
	"github.com/velocitymobility/fleetops-backend/dock"
	"github.com/velocitymobility/fleetops-backend/reservation"
)

var (
	ErrNotFound            = errors.New("trip not found")
	ErrNoActiveReservation = errors.New("no active reservation for bike and rider")
	ErrInvalidDockCode     = errors.New("invalid dock code")
	ErrDockNotFound        = errors.New("dock not found")
	ErrDockEmpty           = errors.New("no bike docked")
	ErrDockOccupied        = errors.New("dock already occupied")
	ErrBikeNotAvailable    = errors.New("bike not available")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// StartFromReservation consumes an active hold and starts a trip: the
// reservation flips to consumed, the bike reserved -> on_trip, the
// origin dock is vacated and an active trip row is created, all in one
// transaction. An expired hold found here is expired in place (the lazy
// side of the sweep) and surfaced as reservation.ErrExpired.
func (r *Repository) StartFromReservation(ctx context.Context, bikeID, riderID uuid.UUID, dockCode string) (Trip, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Trip{}, err
	}
	defer tx.Rollback()

	var b bike.Bike
	err = tx.GetContext(ctx, &b, getBikeForUpdate, bikeID)
	if errors.Is(err, sql.ErrNoRows) {
		return Trip{}, bike.ErrNotFound
	}
	if err != nil {
		return Trip{}, err
	}

	var res reservation.Reservation
	err = tx.GetContext(ctx, &res, getActiveReservationForUpdate, bikeID)
	if errors.Is(err, sql.ErrNoRows) {
		return Trip{}, ErrNoActiveReservation
	}
	if err != nil {
		return Trip{}, err
	}
	if res.RiderID != riderID {
		return Trip{}, ErrNoActiveReservation
	}

	var expired bool
	err = tx.GetContext(ctx, &expired, reservationPastExpiry, res.ID)
	if err != nil {
		return Trip{}, err
	}
	if expired {
		// Expire in place and keep that state change even though the
		// start fails.
		_, err = tx.ExecContext(ctx, expireReservation, res.ID)
		if err != nil {
			return Trip{}, err
		}
		_, err = tx.ExecContext(ctx, releaseReservedBike, bikeID)
		if err != nil {
			return Trip{}, err
		}
		if err := tx.Commit(); err != nil {
			return Trip{}, err
		}
		return Trip{}, reservation.ErrExpired
	}

	if b.DockID == nil {
		return Trip{}, ErrBikeNotAvailable
	}

	d, err := lockDock(ctx, tx, *b.DockID)
	if err != nil {
		return Trip{}, err
	}
	if !d.CodeMatches(dockCode) {
		return Trip{}, ErrInvalidDockCode
	}

	if _, err := tx.ExecContext(ctx, consumeReservation, res.ID); err != nil {
		return Trip{}, err
	}

	// CAS reserved -> on_trip; a racing sweep losing here is impossible
	// because we hold the bike row lock, but the guard keeps the
	// transition table honest in SQL too.
	n, err := execRows(ctx, tx, bikeReservedToOnTrip, bikeID)
	if err != nil {
		return Trip{}, err
	}
	if n == 0 {
		return Trip{}, reservation.ErrConsumed
	}

	if _, err := tx.ExecContext(ctx, vacateDock, d.ID); err != nil {
		return Trip{}, err
	}

	var trip Trip
	err = tx.GetContext(ctx, &trip, createTrip,
		uuid.New(), bikeID, riderID, b.Type.String(), d.ID, d.StationID)
	if err != nil {
		return Trip{}, err
	}

	return trip, tx.Commit()
}

// StartDirect starts a trip straight off a dock without a reservation.
func (r *Repository) StartDirect(ctx context.Context, dockID uuid.UUID, dockCode string, riderID uuid.UUID) (Trip, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Trip{}, err
	}
	defer tx.Rollback()

	d, err := lockDock(ctx, tx, dockID)
	if err != nil {
		return Trip{}, err
	}
	if !d.CodeMatches(dockCode) {
		return Trip{}, ErrInvalidDockCode
	}
	if !d.Occupied() || d.BikeID == nil {
		return Trip{}, ErrDockEmpty
	}

	var b bike.Bike
	err = tx.GetContext(ctx, &b, getBikeForUpdate, *d.BikeID)
	if errors.Is(err, sql.ErrNoRows) {
		return Trip{}, bike.ErrNotFound
	}
	if err != nil {
		return Trip{}, err
	}
	if b.Status != bike.StatusAvailable {
		return Trip{}, ErrBikeNotAvailable
	}

	n, err := execRows(ctx, tx, bikeAvailableToOnTrip, b.ID)
	if err != nil {
		return Trip{}, err
	}
	if n == 0 {
		return Trip{}, ErrBikeNotAvailable
	}

	if _, err := tx.ExecContext(ctx, vacateDock, d.ID); err != nil {
		return Trip{}, err
	}

	var trip Trip
	err = tx.GetContext(ctx, &trip, createTrip,
		uuid.New(), b.ID, riderID, b.Type.String(), d.ID, d.StationID)
	if err != nil {
		return Trip{}, err
	}

	return trip, tx.Commit()
}

// End docks the bike and completes the rider's active trip. A full
// destination dock fails with ErrDockOccupied and leaves the trip
// active so the rider can retry at another dock.
func (r *Repository) End(ctx context.Context, bikeID, riderID, dockID uuid.UUID, dockCode string) (Trip, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Trip{}, err
	}
	defer tx.Rollback()

	var trip Trip
	err = tx.GetContext(ctx, &trip, getActiveTripForUpdate, bikeID, riderID)
	if errors.Is(err, sql.ErrNoRows) {
		return Trip{}, ErrNotFound
	}
	if err != nil {
		return Trip{}, err
	}

	d, err := lockDock(ctx, tx, dockID)
	if err != nil {
		return Trip{}, err
	}
	if !d.CodeMatches(dockCode) {
		return Trip{}, ErrInvalidDockCode
	}
	if d.Occupied() {
		return Trip{}, ErrDockOccupied
	}

	n, err := execRows(ctx, tx, bikeOnTripToDocked, bikeID, d.ID, d.StationID)
	if err != nil {
		return Trip{}, err
	}
	if n == 0 {
		return Trip{}, ErrBikeNotAvailable
	}

	if _, err := tx.ExecContext(ctx, occupyDock, d.ID, bikeID); err != nil {
		return Trip{}, err
	}

	err = tx.GetContext(ctx, &trip, completeTrip, trip.ID, d.ID, d.StationID)
	if err != nil {
		return Trip{}, err
	}

	return trip, tx.Commit()
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Trip, error) {
	var trip Trip
	err := r.db.GetContext(ctx, &trip, getTrip, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Trip{}, ErrNotFound
	}
	return trip, err
}

const getTrip = `SELECT * FROM trips WHERE id = $1`

// GetByRider fetches a rider's trips, most recent first.
func (r *Repository) GetByRider(ctx context.Context, riderID uuid.UUID) ([]Trip, error) {
	var trips []Trip
	err := r.db.SelectContext(ctx, &trips, getTripsByRider, riderID)
	return trips, err
}

const getTripsByRider = `SELECT * FROM trips WHERE rider_id = $1 ORDER BY started_at DESC`

// ReportIssue appends a problem report to a trip regardless of its
// status. Trip and bike state are untouched; any follow-up (e.g. moving
// the bike to maintenance) is an operator workflow.
func (r *Repository) ReportIssue(ctx context.Context, tripID, riderID uuid.UUID, text string) (Issue, error) {
	var issue Issue
	err := r.db.GetContext(ctx, &issue, createIssue, uuid.New(), tripID, riderID, text)
	if isForeignKeyViolation(err) {
		return Issue{}, ErrNotFound
	}
	return issue, err
}

const createIssue = `
INSERT INTO trip_issues (id, trip_id, rider_id, issue, created_at)
VALUES ($1, $2, $3, $4, now())
RETURNING *
`

// Issues lists the reports filed against a trip, oldest first.
func (r *Repository) Issues(ctx context.Context, tripID uuid.UUID) ([]Issue, error) {
	var issues []Issue
	err := r.db.SelectContext(ctx, &issues, getIssues, tripID)
	return issues, err
}

const getIssues = `SELECT * FROM trip_issues WHERE trip_id = $1 ORDER BY created_at ASC`

// SweepAbandoned flags trips active longer than threshold as abandoned
// and forces their bikes into maintenance, since the bike's physical
// location is no longer trustworthy. Returns the flagged trips so the
// caller can bill and publish events.
func (r *Repository) SweepAbandoned(ctx context.Context, threshold time.Duration) ([]Trip, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var trips []Trip
	err = tx.SelectContext(ctx, &trips, abandonOverdueTrips, threshold.Seconds())
	if err != nil {
		return nil, err
	}

	for _, t := range trips {
		if _, err := tx.ExecContext(ctx, bikeToMaintenance, t.BikeID); err != nil {
			return nil, err
		}
	}

	return trips, tx.Commit()
}

const abandonOverdueTrips = `
UPDATE trips SET status = 'abandoned', ended_at = now()
WHERE status = 'active' AND started_at <= now() - make_interval(secs => $1)
RETURNING *
`

const bikeToMaintenance = `UPDATE bikes SET status = 'maintenance', dock_id = NULL, station_id = NULL WHERE id = $1`

// lockDock fetches a dock under FOR UPDATE so occupancy checks and the
// later occupy/vacate cannot interleave with another transaction.
func lockDock(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (dock.Dock, error) {
	var d dock.Dock
	err := tx.GetContext(ctx, &d, getDockForUpdate, id)
	if errors.Is(err, sql.ErrNoRows) {
		return d, ErrDockNotFound
	}
	return d, err
}

func execRows(ctx context.Context, tx *sqlx.Tx, query string, args ...any) (int64, error) {
	res, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23503"
	}
	return false
}

const getBikeForUpdate = `SELECT * FROM bikes WHERE id = $1 FOR UPDATE`
const getDockForUpdate = `SELECT * FROM docks WHERE id = $1 FOR UPDATE`
const getActiveReservationForUpdate = `SELECT * FROM reservations WHERE bike_id = $1 AND status = 'active' FOR UPDATE`
const getActiveTripForUpdate = `SELECT * FROM trips WHERE bike_id = $1 AND rider_id = $2 AND status = 'active' FOR UPDATE`

const reservationPastExpiry = `SELECT expires_at <= now() FROM reservations WHERE id = $1`
const expireReservation = `UPDATE reservations SET status = 'expired' WHERE id = $1`
const consumeReservation = `UPDATE reservations SET status = 'consumed' WHERE id = $1`
const releaseReservedBike = `UPDATE bikes SET status = 'available' WHERE id = $1 AND status = 'reserved'`

const bikeReservedToOnTrip = `UPDATE bikes SET status = 'on_trip', dock_id = NULL, station_id = NULL WHERE id = $1 AND status = 'reserved'`
const bikeAvailableToOnTrip = `UPDATE bikes SET status = 'on_trip', dock_id = NULL, station_id = NULL WHERE id = $1 AND status = 'available'`
const bikeOnTripToDocked = `UPDATE bikes SET status = 'available', dock_id = $2, station_id = $3 WHERE id = $1 AND status = 'on_trip'`

const vacateDock = `UPDATE docks SET status = 'empty', bike_id = NULL WHERE id = $1`
const occupyDock = `UPDATE docks SET status = 'occupied', bike_id = $2 WHERE id = $1`

const createTrip = `
INSERT INTO trips (id, bike_id, rider_id, bike_type, origin_dock_id, origin_station_id, status, started_at)
VALUES ($1, $2, $3, $4, $5, $6, 'active', now())
RETURNING *
`

const completeTrip = `
UPDATE trips SET status = 'completed', ended_at = now(), destination_dock_id = $2, destination_station_id = $3
WHERE id = $1
RETURNING *
`
