// Package events publishes fleet lifecycle events for downstream
// consumers (dashboards, notifications, data export). Publishing is
// best-effort: a failed publish is logged by the caller, never rolled
// into the request outcome.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Routing keys on the fleet topic exchange.
const (
	KeyTripCompleted      = "fleet.trip.completed"
	KeyTripAbandoned      = "fleet.trip.abandoned"
	KeyReservationExpired = "fleet.reservation.expired"
	KeyTransferFailed     = "fleet.transfer.failed"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close() error
}

type TripCompleted struct {
	TripID          uuid.UUID `json:"tripId"`
	BikeID          uuid.UUID `json:"bikeId"`
	RiderID         uuid.UUID `json:"riderId"`
	DurationMinutes int64     `json:"durationMinutes"`
	TotalCents      int64     `json:"totalCents"`
	EndedAt         time.Time `json:"endedAt"`
}

type TripAbandoned struct {
	TripID  uuid.UUID `json:"tripId"`
	BikeID  uuid.UUID `json:"bikeId"`
	RiderID uuid.UUID `json:"riderId"`
}

type ReservationsExpired struct {
	Count   int64     `json:"count"`
	SweptAt time.Time `json:"sweptAt"`
}

type TransferFailed struct {
	TransferID uuid.UUID `json:"transferId"`
	BikeID     uuid.UUID `json:"bikeId"`
	Reason     string    `json:"reason"`
}

// Noop satisfies Publisher when no broker is configured.
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close() error                               { return nil }
