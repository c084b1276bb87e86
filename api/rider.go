package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velocitymobility/fleetops-backend/internal/authz"
	"github.com/velocitymobility/fleetops-backend/internal/middleware"
	"github.com/velocitymobility/fleetops-backend/rider"
)

type setOperatorRequest struct {
	IsOperator     bool `json:"isOperator"`
	IsOperatorView bool `json:"isOperatorView"`
}

// setOperatorHandler grants or revokes a rider's operator capabilities.
func (a *API) setOperatorHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ManageRiders) {
		return
	}

	riderID, err := uuid.Parse(c.Param("riderId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid riderId"})
		return
	}

	var req setOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	if err := a.cfg.Riders.SetOperator(c, riderID, req.IsOperator, req.IsOperatorView); err != nil {
		if errors.Is(err, rider.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "RIDER_NOT_FOUND", "message": "Rider not found"})
			return
		}
		logger.ErrorContext(c, "failed to set operator flags", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":             riderID,
		"isOperator":     req.IsOperator,
		"isOperatorView": req.IsOperatorView,
	})
}
