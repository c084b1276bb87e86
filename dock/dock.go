// Package dock
package dock

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusEmpty    Status = "empty"
	StatusOccupied Status = "occupied"
)

// Dock is a single bike-holding slot. Invariant: status occupied iff
// BikeID is set and that bike's dock_id points back here.
type Dock struct {
	ID        uuid.UUID
	StationID uuid.UUID `db:"station_id"`
	Status    Status

	BikeID *uuid.UUID `db:"bike_id"`

	// DockCode is the secret that authorises a physical lock/unlock.
	// It is never serialised in API responses.
	DockCode string `db:"dock_code" json:"-"`

	CreatedAt time.Time `db:"created_at"`
}

func (d Dock) Occupied() bool {
	return d.Status == StatusOccupied
}

// CodeMatches compares a supplied unlock code against the stored one in
// constant time. The stored code is never part of the result.
func (d Dock) CodeMatches(supplied string) bool {
	return subtle.ConstantTimeCompare([]byte(d.DockCode), []byte(supplied)) == 1
}
