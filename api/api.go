package api

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velocitymobility/fleetops-backend/bike"
	"github.com/velocitymobility/fleetops-backend/bill"
	"github.com/velocitymobility/fleetops-backend/dock"
	"github.com/velocitymobility/fleetops-backend/internal/auth0"
	"github.com/velocitymobility/fleetops-backend/internal/events"
	"github.com/velocitymobility/fleetops-backend/internal/middleware"
	"github.com/velocitymobility/fleetops-backend/internal/o11y"
	"github.com/velocitymobility/fleetops-backend/reservation"
	"github.com/velocitymobility/fleetops-backend/rider"
	"github.com/velocitymobility/fleetops-backend/station"
	"github.com/velocitymobility/fleetops-backend/transfer"
	"github.com/velocitymobility/fleetops-backend/trip"
)

// Auth supplies the token-validation middleware and the subject
// extractor. Production wires the auth0 JWT middleware; the acceptance
// suite substitutes a header-based fake.
type Auth struct {
	Middleware gin.HandlerFunc
	Subject    func(c *gin.Context) (string, bool)
}

type Config struct {
	Bikes        *bike.Repository
	Stations     *station.Repository
	Docks        *dock.Repository
	Riders       *rider.Repository
	Reservations *reservation.Repository
	Trips        *trip.Repository
	Bills        *bill.Repository
	Transfers    *transfer.Repository

	Obs    *o11y.Observability
	Events events.Publisher
	Auth   Auth

	// IdentityProvider enriches newly created rider rows with profile
	// data; nil disables enrichment.
	IdentityProvider auth0.Client

	Pricing         bill.Pricing
	ReservationHold time.Duration

	MetricsUsername string
	MetricsPassword string

	StripeEnabled bool
}

type API struct {
	r   *gin.Engine
	cfg Config
}

func New(cfg Config) *API {
	a := &API{
		r:   gin.New(),
		cfg: cfg,
	}

	a.r.Use(gin.Recovery())
	a.r.Use(middleware.Tracing())
	a.r.Use(middleware.Logging(cfg.Obs.Logger))
	a.r.Use(middleware.Metrics(cfg.Obs.Registry))

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	metrics := a.r.Group("/metrics")
	if cfg.MetricsUsername != "" {
		metrics.Use(gin.BasicAuth(gin.Accounts{cfg.MetricsUsername: cfg.MetricsPassword}))
	}
	metrics.GET("", gin.WrapH(promhttp.HandlerFor(cfg.Obs.Registry, promhttp.HandlerOpts{})))

	protected := a.r.Group("/")
	protected.Use(cfg.Auth.Middleware)
	{
		protected.GET("/stations", a.stationsHandler)
		protected.GET("/stations/:stationId", a.stationHandler)
		protected.GET("/stations/:stationId/docks/available", a.availableDocksHandler)
		protected.DELETE("/stations/:stationId", a.deleteStationHandler)

		protected.POST("/bikes/reserve", a.reserveBikeHandler)
		protected.GET("/bikes/available", a.availableBikesHandler)
		protected.GET("/bikes/:bikeId", a.bikeHandler)
		protected.PATCH("/bikes/:bikeId/status", a.bikeStatusHandler)
		protected.POST("/bikes/:bikeId/redock", a.redockHandler)

		protected.POST("/reservations/:reservationId/cancel", a.cancelReservationHandler)

		protected.PATCH("/riders/:riderId/operator", a.setOperatorHandler)

		protected.POST("/trips/start/reserved", a.startReservedHandler)
		protected.POST("/trips/start/direct", a.startDirectHandler)
		protected.POST("/trips/end", a.endTripHandler)
		protected.GET("/trips/:tripId", a.tripHandler)
		protected.POST("/trips/:tripId/report", a.reportIssueHandler)
		protected.GET("/trips/bills/:billId", a.billHandler)
		protected.GET("/trips/rider/:userId", a.riderTripsHandler)

		protected.GET("/transfer/stations", a.transferStationsHandler)
		protected.GET("/transfer/stations/:id/bikes", a.transferStationBikesHandler)
		protected.GET("/transfer/stations/:id/docks", a.transferStationDocksHandler)
		protected.POST("/transfer/bike", a.transferBikeHandler)
		protected.POST("/transfer/:transferId/complete", a.transferCompleteHandler)
		protected.POST("/transfer/:transferId/fail", a.transferFailHandler)
	}

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}
