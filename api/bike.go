package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velocitymobility/fleetops-backend/bike"
	"github.com/velocitymobility/fleetops-backend/internal/authz"
	"github.com/velocitymobility/fleetops-backend/internal/middleware"
)

type bikeResponse struct {
	ID        uuid.UUID   `json:"id"`
	Label     string      `json:"label"`
	Type      bike.Type   `json:"type"`
	Status    bike.Status `json:"status"`
	DockID    *uuid.UUID  `json:"dockId,omitempty"`
	StationID *uuid.UUID  `json:"stationId,omitempty"`
	InTransit bool        `json:"inTransit"`
}

func toBikeResponse(b bike.Bike) bikeResponse {
	return bikeResponse{
		ID:        b.ID,
		Label:     b.Label,
		Type:      b.Type,
		Status:    b.Status,
		DockID:    b.DockID,
		StationID: b.StationID,
		InTransit: b.InTransit(),
	}
}

func (a *API) availableBikesHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ViewFleet) {
		return
	}

	stationID, err := uuid.Parse(c.Query("stationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid stationId"})
		return
	}

	bikes, err := a.cfg.Bikes.ListAvailableAtStation(c, stationID)
	if err != nil {
		logger.ErrorContext(c, "failed to list available bikes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]bikeResponse, 0, len(bikes))
	for _, b := range bikes {
		responses = append(responses, toBikeResponse(b))
	}
	c.JSON(http.StatusOK, responses)
}

func (a *API) bikeHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ViewFleet) {
		return
	}

	bikeID, err := uuid.Parse(c.Param("bikeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid bikeId"})
		return
	}

	b, err := a.cfg.Bikes.GetBike(c, bikeID)
	if err != nil {
		if errors.Is(err, bike.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
			return
		}
		logger.ErrorContext(c, "failed to get bike", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toBikeResponse(b))
}

type bikeStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// bikeStatusHandler is the operator override for a bike's status,
// validated against the bike state machine.
func (a *API) bikeStatusHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.OverrideBikeStatus) {
		return
	}

	bikeID, err := uuid.Parse(c.Param("bikeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid bikeId"})
		return
	}

	var req bikeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	b, err := a.cfg.Bikes.SetStatus(c, bikeID, bike.Status(req.Status))
	if err != nil {
		var ite *bike.InvalidTransitionError
		if errors.As(err, &ite) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"code": "INVALID_TRANSITION", "message": ite.Error()})
			return
		}
		if errors.Is(err, bike.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
			return
		}
		logger.ErrorContext(c, "failed to set bike status", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toBikeResponse(b))
}

type redockRequest struct {
	DockID uuid.UUID `json:"dockId" binding:"required"`
}

// redockHandler returns a maintenance bike to service by placing it in
// an empty dock.
func (a *API) redockHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.OverrideBikeStatus) {
		return
	}

	bikeID, err := uuid.Parse(c.Param("bikeId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid bikeId"})
		return
	}

	var req redockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	b, err := a.cfg.Bikes.Redock(c, bikeID, req.DockID)
	if err != nil {
		switch {
		case errors.Is(err, bike.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
		case errors.Is(err, bike.ErrDockNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "DOCK_NOT_FOUND", "message": "Dock not found"})
		case errors.Is(err, bike.ErrDockOccupied):
			c.JSON(http.StatusConflict, gin.H{"code": "DOCK_OCCUPIED", "message": "Dock is occupied, pick another"})
		case errors.Is(err, bike.ErrNotInMaintenance):
			c.JSON(http.StatusConflict, gin.H{"code": "BIKE_NOT_IN_MAINTENANCE", "message": "Only maintenance bikes can be redocked"})
		default:
			logger.ErrorContext(c, "failed to redock bike", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, toBikeResponse(b))
}
