package station

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var (
	ErrNotFound      = errors.New("station not found")
	ErrDocksOccupied = errors.New("station has occupied docks")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

func (r *Repository) GetStations(ctx context.Context) ([]Station, error) {
	var stations []Station
	err := r.db.SelectContext(ctx, &stations, getStations)
	return stations, err
}

const getStations = `SELECT * FROM stations ORDER BY name ASC`

func (r *Repository) GetStation(ctx context.Context, id uuid.UUID) (Station, error) {
	var station Station
	err := r.db.GetContext(ctx, &station, getStation, id)
	if errors.Is(err, sql.ErrNoRows) {
		return station, ErrNotFound
	}
	return station, err
}

const getStation = `SELECT * FROM stations WHERE id = $1`

// DeleteStation removes a station and its docks. A station with any
// occupied dock cannot be removed.
func (r *Repository) DeleteStation(ctx context.Context, id uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Lock the station's docks so an in-flight dock occupation cannot
	// slip past the emptiness check.
	var occupiedIDs []uuid.UUID
	err = tx.SelectContext(ctx, &occupiedIDs, lockOccupiedDocks, id)
	if err != nil {
		return err
	}
	if len(occupiedIDs) > 0 {
		return ErrDocksOccupied
	}

	_, err = tx.ExecContext(ctx, deleteStationDocks, id)
	if err != nil {
		return err
	}

	res, err := tx.ExecContext(ctx, deleteStation, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	return tx.Commit()
}

const lockOccupiedDocks = `SELECT id FROM docks WHERE station_id = $1 AND status = 'occupied' FOR UPDATE`
const deleteStationDocks = `DELETE FROM docks WHERE station_id = $1`
const deleteStation = `DELETE FROM stations WHERE id = $1`
