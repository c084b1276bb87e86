// Package trip orchestrates the checkout lifecycle of a bike: start
// from a reservation or straight off a dock, end by docking, issue
// reports, and the abandoned-trip sweep.
package trip

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/velocitymobility/fleetops-backend/bike"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	// StatusAbandoned marks trips that stayed active past the
	// abandonment threshold. The bike's whereabouts are unknown at
	// that point so it is forced into maintenance.
	StatusAbandoned Status = "abandoned"
)

type Trip struct {
	ID       uuid.UUID `db:"id"`
	BikeID   uuid.UUID `db:"bike_id"`
	RiderID  uuid.UUID `db:"rider_id"`
	BikeType bike.Type `db:"bike_type"`

	OriginDockID    uuid.UUID `db:"origin_dock_id"`
	OriginStationID uuid.UUID `db:"origin_station_id"`

	// Destination is set only on completion.
	DestinationDockID    *uuid.UUID `db:"destination_dock_id"`
	DestinationStationID *uuid.UUID `db:"destination_station_id"`

	Status    Status       `db:"status"`
	StartedAt time.Time    `db:"started_at"`
	EndedAt   sql.NullTime `db:"ended_at"`
}

// Duration is the elapsed ride time; for active trips it runs against
// the clock.
func (t Trip) Duration(now time.Time) time.Duration {
	end := now
	if t.EndedAt.Valid {
		end = t.EndedAt.Time
	}
	return end.Sub(t.StartedAt)
}

// Issue is a rider-filed problem report appended to a trip. Reports
// never change the trip's status on their own.
type Issue struct {
	ID        uuid.UUID `db:"id"`
	TripID    uuid.UUID `db:"trip_id"`
	RiderID   uuid.UUID `db:"rider_id"`
	Issue     string    `db:"issue"`
	CreatedAt time.Time `db:"created_at"`
}
