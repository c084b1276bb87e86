package dock

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// ListDocks fetches every dock at a station in creation order.
func (r *Repository) ListDocks(ctx context.Context, stationID uuid.UUID) ([]Dock, error) {
	var docks []Dock
	err := r.db.SelectContext(ctx, &docks, listDocks, stationID)
	return docks, err
}

const listDocks = `SELECT * FROM docks WHERE station_id = $1 ORDER BY created_at ASC, id ASC`

// ListAvailableDocks fetches the empty docks at a station.
func (r *Repository) ListAvailableDocks(ctx context.Context, stationID uuid.UUID) ([]Dock, error) {
	var docks []Dock
	err := r.db.SelectContext(ctx, &docks, listAvailableDocks, stationID)
	return docks, err
}

const listAvailableDocks = `SELECT * FROM docks WHERE station_id = $1 AND status = 'empty' ORDER BY created_at ASC, id ASC`
