package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/velocitymobility/fleetops-backend/internal/authz"
	"github.com/velocitymobility/fleetops-backend/internal/middleware"
	"github.com/velocitymobility/fleetops-backend/station"
)

type stationResponse struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

func toStationResponse(s station.Station) stationResponse {
	return stationResponse{
		ID:        s.ID,
		Name:      s.Name,
		Latitude:  s.Location.P.Y,
		Longitude: s.Location.P.X,
	}
}

func (a *API) stationsHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ViewFleet) {
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

func (a *API) stationHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ViewFleet) {
		return
	}

	stationID, err := uuid.Parse(c.Param("stationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid stationId"})
		return
	}

	s, err := a.cfg.Stations.GetStation(c, stationID)
	if err != nil {
		if errors.Is(err, station.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"code": "STATION_NOT_FOUND", "message": "Station not found"})
			return
		}
		logger.ErrorContext(c, "failed to get station", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	c.JSON(http.StatusOK, toStationResponse(s))
}

type availableDockResponse struct {
	ID        uuid.UUID `json:"id"`
	StationID uuid.UUID `json:"stationId"`
}

// availableDocksHandler lists the empty docks at a station, so a rider
// can pick a return slot before arriving.
func (a *API) availableDocksHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ViewFleet) {
		return
	}

	stationID, err := uuid.Parse(c.Param("stationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid stationId"})
		return
	}

	docks, err := a.cfg.Docks.ListAvailableDocks(c, stationID)
	if err != nil {
		logger.ErrorContext(c, "failed to list available docks", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	responses := make([]availableDockResponse, 0, len(docks))
	for _, d := range docks {
		responses = append(responses, availableDockResponse{ID: d.ID, StationID: d.StationID})
	}
	c.JSON(http.StatusOK, responses)
}

func (a *API) deleteStationHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	_, role, ok := a.currentRider(c)
	if !ok {
		return
	}
	if !a.requireCapability(c, role, authz.ManageStations) {
		return
	}

	stationID, err := uuid.Parse(c.Param("stationId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "Invalid stationId"})
		return
	}

	if err := a.cfg.Stations.DeleteStation(c, stationID); err != nil {
		switch {
		case errors.Is(err, station.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"code": "STATION_NOT_FOUND", "message": "Station not found"})
		case errors.Is(err, station.ErrDocksOccupied):
			c.JSON(http.StatusConflict, gin.H{"code": "DOCKS_OCCUPIED", "message": "Station still has docked bikes"})
		default:
			logger.ErrorContext(c, "failed to delete station", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		}
		return
	}

	c.Status(http.StatusNoContent)
}
