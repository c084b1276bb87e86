package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velocitymobility/fleetops-backend/bike"
	"github.com/velocitymobility/fleetops-backend/bill"
	"github.com/velocitymobility/fleetops-backend/internal/authz"
	"github.com/velocitymobility/fleetops-backend/internal/events"
	"github.com/velocitymobility/fleetops-backend/internal/middleware"
	"github.com/velocitymobility/fleetops-backend/reservation"
	"github.com/velocitymobility/fleetops-backend/trip"
)

type tripResponse struct {
	ID                   uuid.UUID   `json:"id"`
	BikeID               uuid.UUID   `json:"bikeId"`
	RiderID              uuid.UUID   `json:"riderId"`
	BikeType             bike.Type   `json:"bikeType"`
	OriginDockID         uuid.UUID   `json:"originDockId"`
	OriginStationID      uuid.UUID   `json:"originStationId"`
	DestinationDockID    *uuid.UUID  `json:"destinationDockId,omitempty"`
	DestinationStationID *uuid.UUID  `json:"destinationStationId,omitempty"`
	Status               trip.Status `json:"status"`
	StartedAt            time.Time   `json:"startedAt"`
	EndedAt              *time.Time  `json:"endedAt,omitempty"`
}

func toTripResponse(t trip.Trip) tripResponse {
	resp := tripResponse{
		ID:                   t.ID,
		BikeID:               t.BikeID,
		RiderID:              t.RiderID,
		BikeType:             t.BikeType,
		OriginDockID:         t.OriginDockID,
		OriginStationID:      t.OriginStationID,
		DestinationDockID:    t.DestinationDockID,
		DestinationStationID: t.DestinationStationID,
		Status:               t.Status,
		StartedAt:            t.StartedAt,
	}
	if t.EndedAt.Valid {
		endedAt := t.EndedAt.Time
		resp.EndedAt = &endedAt
	}
	return resp
}

type issueResponse struct {
	ID        uuid.UUID `json:"id"`
	Issue     string    `json:"issue"`
	CreatedAt time.Time `json:"createdAt"`
}

// tripDetailResponse is the single-trip view: the trip plus any issue
// reports filed against it.
type tripDetailResponse struct {
	tripResponse
	Issues []issueResponse `json:"issues"`
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

func toBillResponse(b bill.Bill) billResponse {
	return billResponse{
		ID:              b.ID,
		TripID:          b.TripID,
		RiderID:         b.RiderID,
		DurationMinutes: b.DurationMinutes,
		BaseCents:       b.BaseCents,
		RideCents:       b.RideCents,
		TaxCents:        b.TaxCents,
		TotalCents:      b.TotalCents,
		Currency:        b.Currency,
	}
}

type startReservedRequest struct {
	BikeID   uuid.UUID `json:"bikeId" binding:"required"`
	DockCode string    `json:"dockCode" binding:"required"`
}

func (a *API) startReservedHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.StartTrip) {
		return
	}

	var req startReservedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	t, err := a.cfg.Trips.StartFromReservation(c, req.BikeID, r.ID, req.DockCode)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrExpired):
			c.JSON(http.StatusGone, gin.H{"code": "RESERVATION_EXPIRED", "message": "Reservation has expired"})
		case errors.Is(err, trip.ErrNoActiveReservation), errors.Is(err, reservation.ErrConsumed):
			c.JSON(http.StatusConflict, gin.H{"code": "NO_ACTIVE_RESERVATION", "message": "No active reservation for this bike and rider"})
		case errors.Is(err, trip.ErrInvalidDockCode):
			c.JSON(http.StatusUnauthorized, gin.H{"code": "INVALID_DOCK_CODE", "message": "Dock code does not match"})
		case errors.Is(err, bike.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
		case errors.Is(err, trip.ErrBikeNotAvailable):
			c.JSON(http.StatusConflict, gin.H{"code": "BIKE_UNAVAILABLE", "message": "Bike cannot start a trip"})
		default:
			logger.ErrorContext(c, "failed to start trip from reservation", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	a.cfg.Obs.Fleet.TripsStarted.Inc()
	c.JSON(http.StatusCreated, toTripResponse(t))
}

type startDirectRequest struct {
	DockID   uuid.UUID `json:"dockId" binding:"required"`
	DockCode string    `json:"dockCode" binding:"required"`
}

func (a *API) startDirectHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.StartTrip) {
		return
	}

	var req startDirectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	t, err := a.cfg.Trips.StartDirect(c, req.DockID, req.DockCode, r.ID)
	if err != nil {
		switch {
		case errors.Is(err, trip.ErrDockNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "DOCK_NOT_FOUND", "message": "Dock not found"})
		case errors.Is(err, trip.ErrInvalidDockCode):
			c.JSON(http.StatusUnauthorized, gin.H{"code": "INVALID_DOCK_CODE", "message": "Dock code does not match"})
		case errors.Is(err, trip.ErrDockEmpty):
			c.JSON(http.StatusConflict, gin.H{"code": "DOCK_EMPTY", "message": "No bike docked here"})
		case errors.Is(err, trip.ErrBikeNotAvailable), errors.Is(err, bike.ErrNotFound):
			c.JSON(http.StatusConflict, gin.H{"code": "BIKE_UNAVAILABLE", "message": "Bike cannot start a trip"})
		default:
			logger.ErrorContext(c, "failed to start direct trip", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	a.cfg.Obs.Fleet.TripsStarted.Inc()
	c.JSON(http.StatusCreated, toTripResponse(t))
}

type endTripRequest struct {
	BikeID   uuid.UUID `json:"bikeId" binding:"required"`
	DockID   uuid.UUID `json:"dockId" binding:"required"`
	DockCode string    `json:"dockCode" binding:"required"`
}

type endTripResponse struct {
	Trip tripResponse `json:"trip"`
	Bill billResponse `json:"bill"`
}

func (a *API) endTripHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.EndTrip) {
		return
	}

	var req endTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	t, err := a.cfg.Trips.End(c, req.BikeID, r.ID, req.DockID, req.DockCode)
	if err != nil {
		switch {
		case errors.Is(err, trip.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "TRIP_NOT_FOUND", "message": "No active trip for this bike and rider"})
		case errors.Is(err, trip.ErrDockNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "DOCK_NOT_FOUND", "message": "Dock not found"})
		case errors.Is(err, trip.ErrInvalidDockCode):
			c.JSON(http.StatusUnauthorized, gin.H{"code": "INVALID_DOCK_CODE", "message": "Dock code does not match"})
		case errors.Is(err, trip.ErrDockOccupied):
			c.JSON(http.StatusConflict, gin.H{"code": "DOCK_OCCUPIED", "message": "Dock is occupied, try another"})
		default:
			logger.ErrorContext(c, "failed to end trip", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	a.cfg.Obs.Fleet.TripsCompleted.Inc()

	b, err := a.cfg.Bills.ComputeForTrip(c, t, a.cfg.Pricing)
	if err != nil {
		logger.ErrorContext(c, "failed to compute bill", "error", err, "trip_id", t.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if err := a.cfg.Events.Publish(c, events.KeyTripCompleted, events.TripCompleted{
		TripID:          t.ID,
		BikeID:          t.BikeID,
		RiderID:         t.RiderID,
		DurationMinutes: b.DurationMinutes,
		TotalCents:      b.TotalCents,
		EndedAt:         t.EndedAt.Time,
	}); err != nil {
		logger.WarnContext(c, "failed to publish trip completed event", "error", err)
	}

	if a.cfg.StripeEnabled {
		go a.invoiceBill(context.WithoutCancel(c), logger.With("trip_id", t.ID), r, b)
	}

	c.JSON(http.StatusOK, endTripResponse{
		Trip: toTripResponse(t),
		Bill: toBillResponse(b),
	})
}

func (a *API) tripHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, role, ok := a.currentRider(c)
	if !ok {
		return
	}

	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid tripId"})
		return
	}

	t, err := a.cfg.Trips.GetByID(c, tripID)
	if err != nil {
		if errors.Is(err, trip.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "TRIP_NOT_FOUND", "message": "Trip not found"})
			return
		}
		logger.ErrorContext(c, "failed to get trip", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if t.RiderID != r.ID && !role.Operator {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Trip belongs to another rider"})
		return
	}

	issues, err := a.cfg.Trips.Issues(c, t.ID)
	if err != nil {
		logger.ErrorContext(c, "failed to list trip issues", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	detail := tripDetailResponse{tripResponse: toTripResponse(t)}
	detail.Issues = make([]issueResponse, 0, len(issues))
	for _, issue := range issues {
		detail.Issues = append(detail.Issues, issueResponse{
			ID:        issue.ID,
			Issue:     issue.Issue,
			CreatedAt: issue.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, detail)
}

func (a *API) riderTripsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, role, ok := a.currentRider(c)
	if !ok {
		return
	}

	riderID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid userId"})
		return
	}

	if riderID != r.ID && !role.Operator {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Cannot list another rider's trips"})
		return
	}

	trips, err := a.cfg.Trips.GetByRider(c, riderID)
	if err != nil {
		logger.ErrorContext(c, "failed to list rider trips", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]tripResponse, 0, len(trips))
	for _, t := range trips {
		responses = append(responses, toTripResponse(t))
	}
	c.JSON(http.StatusOK, responses)
}

type reportIssueRequest struct {
	Issue string `json:"issue" binding:"required"`
}

func (a *API) reportIssueHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ReportIssue) {
		return
	}

	tripID, err := uuid.Parse(c.Param("tripId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid tripId"})
		return
	}

	var req reportIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	issue, err := a.cfg.Trips.ReportIssue(c, tripID, r.ID, req.Issue)
	if err != nil {
		if errors.Is(err, trip.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "TRIP_NOT_FOUND", "message": "Trip not found"})
			return
		}
		logger.ErrorContext(c, "failed to report issue", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":        issue.ID,
		"tripId":    issue.TripID,
		"issue":     issue.Issue,
		"createdAt": issue.CreatedAt,
	})
}

func (a *API) billHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, role, ok := a.currentRider(c)
	if !ok {
		return
	}

	billID, err := uuid.Parse(c.Param("billId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid billId"})
		return
	}

	b, err := a.cfg.Bills.GetByID(c, billID)
	if err != nil {
		if errors.Is(err, bill.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "BILL_NOT_FOUND", "message": "Bill not found"})
			return
		}
		logger.ErrorContext(c, "failed to get bill", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	if b.RiderID != r.ID && !role.Operator {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Bill belongs to another rider"})
		return
	}

	c.JSON(http.StatusOK, toBillResponse(b))
}
