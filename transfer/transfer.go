// Package transfer handles operator-initiated relocation of a bike
// between docks. A transfer is two-phase: initiation vacates the source
// dock and puts the bike in transit; a later confirmation docks it at
// the destination. Terminal states are never resumed.
package transfer

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

type Transfer struct {
	ID     uuid.UUID `db:"id"`
	BikeID uuid.UUID `db:"bike_id"`

	SourceDockID    uuid.UUID `db:"source_dock_id"`
	SourceStationID uuid.UUID `db:"source_station_id"`

	DestinationDockID    uuid.UUID `db:"destination_dock_id"`
	DestinationStationID uuid.UUID `db:"destination_station_id"`

	Status Status `db:"status"`

	// Reason records why a failed transfer failed.
	Reason sql.NullString `db:"reason"`

	CreatedAt  time.Time    `db:"created_at"`
	ResolvedAt sql.NullTime `db:"resolved_at"`
}
