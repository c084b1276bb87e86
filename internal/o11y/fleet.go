package o11y

import "github.com/prometheus/client_golang/prometheus"

// FleetMetrics are the domain counters the operations dashboard graphs.
type FleetMetrics struct {
	ReservationsCreated prometheus.Counter
	ReservationsExpired prometheus.Counter
	TripsStarted        prometheus.Counter
	TripsCompleted      prometheus.Counter
	TripsAbandoned      prometheus.Counter
	TransfersInitiated  prometheus.Counter
	TransfersFailed     prometheus.Counter
}

func NewFleetMetrics(reg *prometheus.Registry) *FleetMetrics {
	m := &FleetMetrics{
		ReservationsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_reservations_created_total",
			Help: "Total number of bike holds placed",
		}),
		ReservationsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_reservations_expired_total",
			Help: "Total number of holds released by the expiry sweep",
		}),
		TripsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_trips_started_total",
			Help: "Total number of trips started",
		}),
		TripsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_trips_completed_total",
			Help: "Total number of trips completed by docking",
		}),
		TripsAbandoned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_trips_abandoned_total",
			Help: "Total number of trips flagged abandoned",
		}),
		TransfersInitiated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_transfers_initiated_total",
			Help: "Total number of bike relocations started",
		}),
		TransfersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "fleet_transfers_failed_total",
			Help: "Total number of relocations that ended in failure",
		}),
	}

	reg.MustRegister(
		m.ReservationsCreated, m.ReservationsExpired,
		m.TripsStarted, m.TripsCompleted, m.TripsAbandoned,
		m.TransfersInitiated, m.TransfersFailed,
	)

	return m
}
