package acceptance

import (
	"time"

	"github.com/google/uuid"
)

// JSON shapes of the API responses the tests decode.

type stationResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

type bikeResponse struct {
	ID        uuid.UUID  `json:"id"`
	Label     string     `json:"label"`
	Type      string     `json:"type"`
	Status    string     `json:"status"`
	DockID    *uuid.UUID `json:"dockId"`
	StationID *uuid.UUID `json:"stationId"`
	InTransit bool       `json:"inTransit"`
}

type reservationResponse struct {
	ID        uuid.UUID `json:"id"`
	BikeID    uuid.UUID `json:"bikeId"`
	RiderID   uuid.UUID `json:"riderId"`
	StationID uuid.UUID `json:"stationId"`
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type tripResponse struct {
	ID                   uuid.UUID  `json:"id"`
	BikeID               uuid.UUID  `json:"bikeId"`
	RiderID              uuid.UUID  `json:"riderId"`
	BikeType             string     `json:"bikeType"`
	OriginDockID         uuid.UUID  `json:"originDockId"`
	OriginStationID      uuid.UUID  `json:"originStationId"`
	DestinationDockID    *uuid.UUID `json:"destinationDockId"`
	DestinationStationID *uuid.UUID `json:"destinationStationId"`
	Status               string     `json:"status"`
	StartedAt            time.Time  `json:"startedAt"`
	EndedAt              *time.Time `json:"endedAt"`
}

type billResponse struct {
	ID              uuid.UUID `json:"id"`
	TripID          uuid.UUID `json:"tripId"`
	RiderID         uuid.UUID `json:"riderId"`
	DurationMinutes int64     `json:"durationMinutes"`
	BaseCents       int64     `json:"baseCents"`
	RideCents       int64     `json:"rideCents"`
	TaxCents        int64     `json:"taxCents"`
	TotalCents      int64     `json:"totalCents"`
	Currency        string    `json:"currency"`
}

type endTripResponse struct {
	Trip tripResponse `json:"trip"`
	Bill billResponse `json:"bill"`
}

type transferResponse struct {
	ID                   uuid.UUID  `json:"id"`
	BikeID               uuid.UUID  `json:"bikeId"`
	SourceDockID         uuid.UUID  `json:"sourceDockId"`
	SourceStationID      uuid.UUID  `json:"sourceStationId"`
	DestinationDockID    uuid.UUID  `json:"destinationDockId"`
	DestinationStationID uuid.UUID  `json:"destinationStationId"`
	Status               string     `json:"status"`
	Reason               string     `json:"reason"`
	ResolvedAt           *time.Time `json:"resolvedAt"`
}
