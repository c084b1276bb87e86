package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velocitymobility/fleetops-backend/bike"
	"github.com/velocitymobility/fleetops-backend/internal/authz"
	"github.com/velocitymobility/fleetops-backend/internal/middleware"
	"github.com/velocitymobility/fleetops-backend/reservation"
)

type reserveBikeRequest struct {
	BikeID    uuid.UUID `json:"bikeId" binding:"required"`
	UserID    uuid.UUID `json:"userId" binding:"required"`
	StationID uuid.UUID `json:"stationId" binding:"required"`
}

type reservationResponse struct {
	ID        uuid.UUID          `json:"id"`
	BikeID    uuid.UUID          `json:"bikeId"`
	RiderID   uuid.UUID          `json:"riderId"`
	StationID uuid.UUID          `json:"stationId"`
	Status    reservation.Status `json:"status"`
	ExpiresAt time.Time          `json:"expiresAt"`
}

func toReservationResponse(res reservation.Reservation) reservationResponse {
	return reservationResponse{
		ID:        res.ID,
		BikeID:    res.BikeID,
		RiderID:   res.RiderID,
		StationID: res.StationID,
		Status:    res.Status,
		ExpiresAt: res.ExpiresAt,
	}
}

func (a *API) reserveBikeHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ReserveBike) {
		return
	}

	var req reserveBikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}
	if req.UserID != r.ID {
		c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Cannot reserve on behalf of another rider"})
		return
	}

	res, err := a.cfg.Reservations.Reserve(c, req.BikeID, r.ID, req.StationID, a.cfg.ReservationHold)
	if err != nil {
		if errors.Is(err, reservation.ErrBikeUnavailable) {
			c.JSON(http.StatusConflict, gin.H{"code": "BIKE_UNAVAILABLE", "message": "Bike is not available for reservation"})
			return
		}
		if errors.Is(err, bike.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
			return
		}
		logger.ErrorContext(c, "failed to reserve bike", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	a.cfg.Obs.Fleet.ReservationsCreated.Inc()
	c.JSON(http.StatusCreated, toReservationResponse(res))
}

// cancelReservationHandler releases a hold before it is consumed. Only
// the holding rider can cancel.
func (a *API) cancelReservationHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ReserveBike) {
		return
	}

	reservationID, err := uuid.Parse(c.Param("reservationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid reservationId"})
		return
	}

	res, err := a.cfg.Reservations.Cancel(c, reservationID, r.ID)
	if err != nil {
		switch {
		case errors.Is(err, reservation.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "RESERVATION_NOT_FOUND", "message": "Reservation not found"})
		case errors.Is(err, reservation.ErrNotRider):
			c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": "Reservation belongs to another rider"})
		case errors.Is(err, reservation.ErrConsumed):
			c.JSON(http.StatusConflict, gin.H{"code": "RESERVATION_CONSUMED", "message": "Reservation was already used to start a trip"})
		case errors.Is(err, reservation.ErrExpired):
			c.JSON(http.StatusGone, gin.H{"code": "RESERVATION_EXPIRED", "message": "Reservation is no longer active"})
		default:
			logger.ErrorContext(c, "failed to cancel reservation", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, toReservationResponse(res))
}
