// Package bike
package bike

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Type distinguishes the pricing class of a bike.
type Type int

const (
	Standard Type = iota
	Electric
)

// Bike represents a single fleet bicycle and where it currently is.
type Bike struct {
	// ID is an internal identifier for a bike
	ID uuid.UUID
	// Label is a physical label which is on the bike (e.g. "VLC-123")
	Label string

	Type Type `db:"bike_type"`

	Status Status

	// DockID and StationID are nil while the bike is in transit
	// (on a trip or mid-transfer).
	DockID    *uuid.UUID `db:"dock_id"`
	StationID *uuid.UUID `db:"station_id"`

	CreatedAt time.Time `db:"created_at"`
}

// InTransit reports whether the bike is away from any dock.
func (b Bike) InTransit() bool {
	return b.DockID == nil
}

func (t Type) String() string {
	return [...]string{"standard", "electric"}[t]
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) Scan(i any) error {
	switch v := i.(type) {
	case string:
		switch v {
		case "standard":
			*t = Standard
			return nil
		case "electric":
			*t = Electric
			return nil
		}
	}
	panic("invalid scan type")
}
