package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velocitymobility/fleetops-backend/bike"
	"github.com/velocitymobility/fleetops-backend/dock"
	"github.com/velocitymobility/fleetops-backend/internal/authz"
	"github.com/velocitymobility/fleetops-backend/internal/events"
	"github.com/velocitymobility/fleetops-backend/internal/middleware"
	"github.com/velocitymobility/fleetops-backend/transfer"
)

type transferResponse struct {
	ID                   uuid.UUID       `json:"id"`
	BikeID               uuid.UUID       `json:"bikeId"`
	SourceDockID         uuid.UUID       `json:"sourceDockId"`
	SourceStationID      uuid.UUID       `json:"sourceStationId"`
	DestinationDockID    uuid.UUID       `json:"destinationDockId"`
	DestinationStationID uuid.UUID       `json:"destinationStationId"`
	Status               transfer.Status `json:"status"`
	Reason               string          `json:"reason,omitempty"`
	CreatedAt            time.Time       `json:"createdAt"`
	ResolvedAt           *time.Time      `json:"resolvedAt,omitempty"`
}

func toTransferResponse(t transfer.Transfer) transferResponse {
	resp := transferResponse{
		ID:                   t.ID,
		BikeID:               t.BikeID,
		SourceDockID:         t.SourceDockID,
		SourceStationID:      t.SourceStationID,
		DestinationDockID:    t.DestinationDockID,
		DestinationStationID: t.DestinationStationID,
		Status:               t.Status,
		CreatedAt:            t.CreatedAt,
	}
	if t.Reason.Valid {
		resp.Reason = t.Reason.String
	}
	if t.ResolvedAt.Valid {
		resolvedAt := t.ResolvedAt.Time
		resp.ResolvedAt = &resolvedAt
	}
	return resp
}

type transferDockResponse struct {
	ID        uuid.UUID   `json:"id"`
	StationID uuid.UUID   `json:"stationId"`
	Status    dock.Status `json:"status"`
	BikeID    *uuid.UUID  `json:"bikeId,omitempty"`
}

func toTransferDockResponse(d dock.Dock) transferDockResponse {
	return transferDockResponse{
		ID:        d.ID,
		StationID: d.StationID,
		Status:    d.Status,
		BikeID:    d.BikeID,
	}
}

// transferStationsHandler is the operator view of the station list.
func (a *API) transferStationsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.TransferBike) {
		return
	}

	stations, err := a.cfg.Stations.GetStations(c)
	if err != nil {
		logger.ErrorContext(c, "failed to get stations", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]stationResponse, 0, len(stations))
	for _, s := range stations {
		responses = append(responses, toStationResponse(s))
	}
	c.JSON(http.StatusOK, responses)
}

// transferStationBikesHandler lists every bike at a station regardless
// of status, which the rider-facing listing never does.
func (a *API) transferStationBikesHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.TransferBike) {
		return
	}

	stationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid station id"})
		return
	}

	bikes, err := a.cfg.Bikes.ListAtStation(c, stationID)
	if err != nil {
		logger.ErrorContext(c, "failed to list station bikes", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]bikeResponse, 0, len(bikes))
	for _, b := range bikes {
		responses = append(responses, toBikeResponse(b))
	}
	c.JSON(http.StatusOK, responses)
}

func (a *API) transferStationDocksHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.TransferBike) {
		return
	}

	stationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid station id"})
		return
	}

	docks, err := a.cfg.Docks.ListDocks(c, stationID)
	if err != nil {
		logger.ErrorContext(c, "failed to list station docks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]transferDockResponse, 0, len(docks))
	for _, d := range docks {
		responses = append(responses, toTransferDockResponse(d))
	}
	c.JSON(http.StatusOK, responses)
}

type transferBikeRequest struct {
	BikeID               uuid.UUID `json:"bikeId" binding:"required"`
	SourceDockID         uuid.UUID `json:"sourceDockId" binding:"required"`
	SourceStationID      uuid.UUID `json:"sourceStationId" binding:"required"`
	DestinationDockID    uuid.UUID `json:"destinationDockId" binding:"required"`
	DestinationStationID uuid.UUID `json:"destinationStationId" binding:"required"`
}

func (a *API) transferBikeHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.TransferBike) {
		return
	}

	var req transferBikeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	t, err := a.cfg.Transfers.Initiate(c, req.BikeID, req.SourceDockID, req.DestinationDockID, req.SourceStationID, req.DestinationStationID)
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrDockNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "DOCK_NOT_FOUND", "message": "Dock not found"})
		case errors.Is(err, transfer.ErrStationMismatch):
			c.JSON(http.StatusConflict, gin.H{"code": "STATION_MISMATCH", "message": "Dock does not belong to the named station"})
		case errors.Is(err, transfer.ErrBikeNotDocked):
			c.JSON(http.StatusConflict, gin.H{"code": "BIKE_NOT_DOCKED", "message": "Bike is not docked at the source dock"})
		case errors.Is(err, transfer.ErrBikeNotAvailable):
			c.JSON(http.StatusConflict, gin.H{"code": "BIKE_UNAVAILABLE", "message": "Bike cannot be transferred in its current status"})
		case errors.Is(err, transfer.ErrDockOccupied):
			c.JSON(http.StatusConflict, gin.H{"code": "DOCK_OCCUPIED", "message": "Destination dock is occupied"})
		case errors.Is(err, bike.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "BIKE_NOT_FOUND", "message": "Bike not found"})
		default:
			logger.ErrorContext(c, "failed to initiate transfer", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	a.cfg.Obs.Fleet.TransfersInitiated.Inc()
	c.JSON(http.StatusCreated, toTransferResponse(t))
}

func (a *API) transferCompleteHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ResolveTransfer) {
		return
	}

	transferID, err := uuid.Parse(c.Param("transferId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid transferId"})
		return
	}

	t, err := a.cfg.Transfers.Complete(c, transferID)
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrDockOccupied):
			// The transfer was resolved as failed and the bike moved
			// to maintenance; report what happened.
			a.transferFailed(c, t)
			c.JSON(http.StatusConflict, gin.H{
				"code":     "DOCK_OCCUPIED",
				"message":  "Destination dock was occupied; transfer failed",
				"transfer": toTransferResponse(t),
			})
		case errors.Is(err, transfer.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "TRANSFER_NOT_FOUND", "message": "Transfer not found"})
		case errors.Is(err, transfer.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"code": "TRANSFER_RESOLVED", "message": "Transfer already resolved"})
		default:
			logger.ErrorContext(c, "failed to complete transfer", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.JSON(http.StatusOK, toTransferResponse(t))
}

type transferFailRequest struct {
	Reason string `json:"reason" binding:"required"`
}

func (a *API) transferFailHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ResolveTransfer) {
		return
	}

	transferID, err := uuid.Parse(c.Param("transferId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid transferId"})
		return
	}

	var req transferFailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
		return
	}

	t, err := a.cfg.Transfers.Fail(c, transferID, req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, transfer.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "TRANSFER_NOT_FOUND", "message": "Transfer not found"})
		case errors.Is(err, transfer.ErrAlreadyResolved):
			c.JSON(http.StatusConflict, gin.H{"code": "TRANSFER_RESOLVED", "message": "Transfer already resolved"})
		default:
			logger.ErrorContext(c, "failed to fail transfer", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	a.transferFailed(c, t)
	c.JSON(http.StatusOK, toTransferResponse(t))
}

// transferFailed records the metrics and event for a failed transfer.
func (a *API) transferFailed(c *gin.Context, t transfer.Transfer) {
	a.cfg.Obs.Fleet.TransfersFailed.Inc()

	reason := ""
	if t.Reason.Valid {
		reason = t.Reason.String
	}
	if err := a.cfg.Events.Publish(c, events.KeyTransferFailed, events.TransferFailed{
		TransferID: t.ID,
		BikeID:     t.BikeID,
		Reason:     reason,
	}); err != nil {
		middleware.GetLogger(c).WarnContext(c, "failed to publish transfer failed event", "error", err)
	}
}
