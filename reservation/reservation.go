// Package reservation implements time-bounded holds on bikes. At most
// one active reservation exists per bike; the hold either gets consumed
// by a trip start or expires back to an available bike.
package reservation

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive    Status = "active"
	StatusConsumed  Status = "consumed"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

type Reservation struct {
	ID        uuid.UUID `db:"id"`
	BikeID    uuid.UUID `db:"bike_id"`
	RiderID   uuid.UUID `db:"rider_id"`
	StationID uuid.UUID `db:"station_id"`
	Status    Status    `db:"status"`
	CreatedAt time.Time `db:"created_at"`
	ExpiresAt time.Time `db:"expires_at"`
}

// ExpiredAt reports whether the hold window has passed at the given time.
func (r Reservation) ExpiredAt(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}
