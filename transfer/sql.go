package transfer

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/velocitymobility/fleetops-backend/bike"
	"github.com/velocitymobility/fleetops-backend/dock"
)

var (
	ErrNotFound         = errors.New("transfer not found")
	ErrBikeNotAvailable = errors.New("bike not available for transfer")
	ErrBikeNotDocked    = errors.New("bike not docked at source dock")
	ErrDockOccupied     = errors.New("destination dock occupied")
	ErrDockNotFound     = errors.New("dock not found")
	ErrStationMismatch  = errors.New("dock does not belong to station")
	ErrAlreadyResolved  = errors.New("transfer already resolved")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Initiate starts relocating a bike: the source dock is vacated, the
// bike goes in transit and an in-progress transfer is recorded, all in
// one transaction. Only available, docked bikes can be moved; bikes
// mid-trip or mid-reservation are a conflict.
func (r *Repository) Initiate(ctx context.Context, bikeID, sourceDockID, destinationDockID, sourceStationID, destinationStationID uuid.UUID) (Transfer, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Transfer{}, err
	}
	defer tx.Rollback()

	src, err := lockDock(ctx, tx, sourceDockID)
	if err != nil {
		return Transfer{}, err
	}
	if src.StationID != sourceStationID {
		return Transfer{}, ErrStationMismatch
	}
	if !src.Occupied() || src.BikeID == nil || *src.BikeID != bikeID {
		return Transfer{}, ErrBikeNotDocked
	}

	var b bike.Bike
	err = tx.GetContext(ctx, &b, getBikeForUpdate, bikeID)
	if errors.Is(err, sql.ErrNoRows) {
		return Transfer{}, bike.ErrNotFound
	}
	if err != nil {
		return Transfer{}, err
	}
	if b.Status != bike.StatusAvailable {
		return Transfer{}, ErrBikeNotAvailable
	}

	dst, err := lockDock(ctx, tx, destinationDockID)
	if err != nil {
		return Transfer{}, err
	}
	if dst.StationID != destinationStationID {
		return Transfer{}, ErrStationMismatch
	}
	if dst.Occupied() {
		return Transfer{}, ErrDockOccupied
	}

	n, err := execRows(ctx, tx, bikeAvailableToInTransfer, bikeID)
	if err != nil {
		return Transfer{}, err
	}
	if n == 0 {
		return Transfer{}, ErrBikeNotAvailable
	}

	if _, err := tx.ExecContext(ctx, vacateDock, src.ID); err != nil {
		return Transfer{}, err
	}

	var transfer Transfer
	err = tx.GetContext(ctx, &transfer, createTransfer,
		uuid.New(), bikeID, src.ID, src.StationID, dst.ID, dst.StationID)
	if err != nil {
		return Transfer{}, err
	}

	return transfer, tx.Commit()
}

// Complete confirms the physical arrival of the bike. If the
// destination dock filled up in the meantime the transfer is marked
// failed and the bike forced into maintenance, because its physical
// location can no longer be trusted; that outcome is committed and
// surfaced as ErrDockOccupied rather than silently reverted.
func (r *Repository) Complete(ctx context.Context, id uuid.UUID) (Transfer, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Transfer{}, err
	}
	defer tx.Rollback()

	transfer, err := lockTransfer(ctx, tx, id)
	if err != nil {
		return Transfer{}, err
	}

	dst, err := lockDock(ctx, tx, transfer.DestinationDockID)
	if err != nil {
		return Transfer{}, err
	}

	if dst.Occupied() {
		transfer, err = resolve(ctx, tx, transfer, StatusFailed, "destination dock occupied at confirmation")
		if err != nil {
			return Transfer{}, err
		}
		if _, err := tx.ExecContext(ctx, bikeToMaintenance, transfer.BikeID); err != nil {
			return Transfer{}, err
		}
		if err := tx.Commit(); err != nil {
			return Transfer{}, err
		}
		return transfer, ErrDockOccupied
	}

	n, err := execRows(ctx, tx, bikeInTransferToDocked, transfer.BikeID, dst.ID, dst.StationID)
	if err != nil {
		return Transfer{}, err
	}
	if n == 0 {
		return Transfer{}, ErrBikeNotAvailable
	}

	if _, err := tx.ExecContext(ctx, occupyDock, dst.ID, transfer.BikeID); err != nil {
		return Transfer{}, err
	}

	transfer, err = resolve(ctx, tx, transfer, StatusCompleted, "")
	if err != nil {
		return Transfer{}, err
	}

	return transfer, tx.Commit()
}

// Fail marks an in-progress transfer as failed and the bike as needing
// operator attention.
func (r *Repository) Fail(ctx context.Context, id uuid.UUID, reason string) (Transfer, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Transfer{}, err
	}
	defer tx.Rollback()

	transfer, err := lockTransfer(ctx, tx, id)
	if err != nil {
		return Transfer{}, err
	}

	transfer, err = resolve(ctx, tx, transfer, StatusFailed, reason)
	if err != nil {
		return Transfer{}, err
	}

	if _, err := tx.ExecContext(ctx, bikeToMaintenance, transfer.BikeID); err != nil {
		return Transfer{}, err
	}

	return transfer, tx.Commit()
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Transfer, error) {
	var transfer Transfer
	err := r.db.GetContext(ctx, &transfer, getTransfer, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Transfer{}, ErrNotFound
	}
	return transfer, err
}

const getTransfer = `SELECT * FROM transfers WHERE id = $1`

func lockTransfer(ctx context.Context, tx *sqlx.Tx, id uuid.UUID) (Transfer, error) {
	var transfer Transfer
	err := tx.GetContext(ctx, &transfer, getTransferForUpdate, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Transfer{}, ErrNotFound
	}
	if err != nil {
		return Transfer{}, err
	}
	if transfer.Status != StatusInProgress {
		return Transfer{}, ErrAlreadyResolved
	}
	return transfer, nil
}

func resolve(ctx context.Context, tx *sqlx.Tx, t Transfer, status Status, reason string) (Transfer, error) {
	err := tx.GetContext(ctx, &t, resolveTransfer, t.ID, status, sql.NullString{String: reason, Valid: reason != ""})
	return t, err
}

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

const getBikeForUpdate = `SELECT * FROM bikes WHERE id = $1 FOR UPDATE`
const getDockForUpdate = `SELECT * FROM docks WHERE id = $1 FOR UPDATE`
const getTransferForUpdate = `SELECT * FROM transfers WHERE id = $1 FOR UPDATE`

const bikeAvailableToInTransfer = `UPDATE bikes SET status = 'in_transfer', dock_id = NULL, station_id = NULL WHERE id = $1 AND status = 'available'`
const bikeInTransferToDocked = `UPDATE bikes SET status = 'available', dock_id = $2, station_id = $3 WHERE id = $1 AND status = 'in_transfer'`
const bikeToMaintenance = `UPDATE bikes SET status = 'maintenance', dock_id = NULL, station_id = NULL WHERE id = $1`

const vacateDock = `UPDATE docks SET status = 'empty', bike_id = NULL WHERE id = $1`
const occupyDock = `UPDATE docks SET status = 'occupied', bike_id = $2 WHERE id = $1`

const createTransfer = `
INSERT INTO transfers (id, bike_id, source_dock_id, source_station_id, destination_dock_id, destination_station_id, status, created_at)
VALUES ($1, $2, $3, $4, $5, $6, 'in_progress', now())
RETURNING *
`

const resolveTransfer = `
UPDATE transfers SET status = $2, reason = $3, resolved_at = now()
WHERE id = $1
RETURNING *
`
