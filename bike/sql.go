package bike

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velocitymobility/fleetops-backend/dock"
)

var (
	ErrNotFound         = errors.New("bike not found")
	ErrNotAvailable     = errors.New("bike not available")
	ErrDockNotFound     = errors.New("dock not found")
	ErrDockOccupied     = errors.New("dock occupied")
	ErrNotInMaintenance = errors.New("bike not in maintenance")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetBike(ctx context.Context, id uuid.UUID) (Bike, error) {
	var bike Bike

	err := r.db.GetContext(ctx, &bike, getBike, id)
	if errors.Is(err, sql.ErrNoRows) {
		return bike, ErrNotFound
	}

	return bike, err
}

const getBike = `SELECT * FROM bikes WHERE id = $1`

// ListAvailableAtStation fetches docked bikes with status available at
// the given station.
func (r *Repository) ListAvailableAtStation(ctx context.Context, stationID uuid.UUID) ([]Bike, error) {
	var bikes []Bike
	err := r.db.SelectContext(ctx, &bikes, listAvailableAtStation, stationID)
	return bikes, err
}

const listAvailableAtStation = `
SELECT b.* FROM bikes b
JOIN docks d ON d.bike_id = b.id
WHERE b.station_id = $1
  AND b.status = 'available'
  AND d.status = 'occupied'
ORDER BY b.label ASC
`

// ListAtStation fetches every bike currently docked at the station.
func (r *Repository) ListAtStation(ctx context.Context, stationID uuid.UUID) ([]Bike, error) {
	var bikes []Bike
	err := r.db.SelectContext(ctx, &bikes, listAtStation, stationID)
	return bikes, err
}

const listAtStation = `SELECT * FROM bikes WHERE station_id = $1 ORDER BY label ASC`

// SetStatus moves a bike through the status state machine. The bike row
// is locked for the duration so two concurrent changes cannot both read
// the same prior status. Forcing a reserved bike out of reservation
// cancels the active hold.
func (r *Repository) SetStatus(ctx context.Context, id uuid.UUID, next Status) (Bike, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Bike{}, err
	}
	defer tx.Rollback()

	var bike Bike
	err = tx.GetContext(ctx, &bike, getBikeForUpdate, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Bike{}, ErrNotFound
	}
	if err != nil {
		return Bike{}, err
	}

	if err := ValidateTransition(bike.Status, next); err != nil {
		return Bike{}, err
	}

	if bike.Status == StatusReserved {
		_, err = tx.ExecContext(ctx, cancelActiveReservations, id)
		if err != nil {
			return Bike{}, err
		}
	}

	err = tx.GetContext(ctx, &bike, setStatus, id, next)
	if err != nil {
		return Bike{}, err
	}

	return bike, tx.Commit()
}

const getBikeForUpdate = `SELECT * FROM bikes WHERE id = $1 FOR UPDATE`

const setStatus = `UPDATE bikes SET status = $2 WHERE id = $1 RETURNING *`

const cancelActiveReservations = `UPDATE reservations SET status = 'cancelled' WHERE bike_id = $1 AND status = 'active'`

// Redock places a maintenance bike into an empty dock and returns it to
// service. An available bike must sit in a dock, so this is the only
// way back from maintenance once a bike's location was lost.
func (r *Repository) Redock(ctx context.Context, id, dockID uuid.UUID) (Bike, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Bike{}, err
	}
	defer tx.Rollback()

	var bike Bike
	err = tx.GetContext(ctx, &bike, getBikeForUpdate, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Bike{}, ErrNotFound
	}
	if err != nil {
		return Bike{}, err
	}
	if bike.Status != StatusMaintenance {
		return Bike{}, ErrNotInMaintenance
	}

	var d dock.Dock
	err = tx.GetContext(ctx, &d, getDockForUpdate, dockID)
	if errors.Is(err, sql.ErrNoRows) {
		return Bike{}, ErrDockNotFound
	}
	if err != nil {
		return Bike{}, err
	}
	if d.Occupied() {
		return Bike{}, ErrDockOccupied
	}

	// A bike flipped to maintenance in place still holds its old dock.
	if bike.DockID != nil {
		if _, err := tx.ExecContext(ctx, vacateDock, *bike.DockID); err != nil {
			return Bike{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, occupyDock, d.ID, bike.ID); err != nil {
		return Bike{}, err
	}
	err = tx.GetContext(ctx, &bike, dockBike, bike.ID, d.ID, d.StationID)
	if err != nil {
		return Bike{}, err
	}

	return bike, tx.Commit()
}

const getDockForUpdate = `SELECT * FROM docks WHERE id = $1 FOR UPDATE`
const vacateDock = `UPDATE docks SET status = 'empty', bike_id = NULL WHERE id = $1`
const occupyDock = `UPDATE docks SET status = 'occupied', bike_id = $2 WHERE id = $1`
const dockBike = `UPDATE bikes SET status = 'available', dock_id = $2, station_id = $3 WHERE id = $1 RETURNING *`
