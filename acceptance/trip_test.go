package acceptance

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"
	"time"
)

func TestTrip_FullLifecycle(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	riderID := ts.SeedRider(t, "rider-1", false)
	stationID := ts.CreateTestStation(t, "Mile End")
	originDock := ts.CreateTestDock(t, stationID, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", originDock, stationID)

	destStation := ts.CreateTestStation(t, "Plateau")
	destDock := ts.CreateTestDock(t, destStation, "5678")

	// Reserve
	w := ts.POST("/bikes/reserve", map[string]interface{}{
		"bikeId":    bikeID,
		"userId":    riderID,
		"stationId": stationID,
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("reserve: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	// Start from the reservation
	w = ts.POST("/trips/start/reserved", map[string]interface{}{
		"bikeId":   bikeID,
		"dockCode": "1234",
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var started tripResponse
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if started.Status != "active" {
		t.Errorf("expected active trip, got %s", started.Status)
	}
	if started.OriginDockID != originDock {
		t.Errorf("expected origin dock %s, got %s", originDock, started.OriginDockID)
	}

	if status := ts.BikeStatus(t, bikeID); status != "on_trip" {
		t.Errorf("expected bike on_trip, got %s", status)
	}
	if status := ts.DockStatus(t, originDock); status != "empty" {
		t.Errorf("expected origin dock empty, got %s", status)
	}

	// End at the destination dock
	w = ts.POST("/trips/end", map[string]interface{}{
		"bikeId":   bikeID,
		"dockId":   destDock,
		"dockCode": "5678",
	}, asUser("rider-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("end: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var ended endTripResponse
	if err := json.Unmarshal(w.Body.Bytes(), &ended); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if ended.Trip.ID != started.ID {
		t.Errorf("expected trip %s, got %s", started.ID, ended.Trip.ID)
	}
	if ended.Trip.Status != "completed" {
		t.Errorf("expected completed trip, got %s", ended.Trip.Status)
	}
	if ended.Trip.DestinationDockID == nil || *ended.Trip.DestinationDockID != destDock {
		t.Errorf("expected destination dock %s, got %v", destDock, ended.Trip.DestinationDockID)
	}
	if ended.Bill.TripID != started.ID {
		t.Errorf("expected bill for trip %s, got %s", started.ID, ended.Bill.TripID)
	}
	if ended.Bill.TotalCents <= 0 {
		t.Errorf("expected a positive bill total, got %d", ended.Bill.TotalCents)
	}

	if status := ts.BikeStatus(t, bikeID); status != "available" {
		t.Errorf("expected bike available after docking, got %s", status)
	}
	if status := ts.DockStatus(t, destDock); status != "occupied" {
		t.Errorf("expected destination dock occupied, got %s", status)
	}
}

func TestTrip_StartDirect(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "rider-1", false)
	stationID := ts.CreateTestStation(t, "Mile End")
	dockID := ts.CreateTestDock(t, stationID, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "electric", dockID, stationID)

	w := ts.POST("/trips/start/direct", map[string]interface{}{
		"dockId":   dockID,
		"dockCode": "1234",
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var resp tripResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.BikeID != bikeID {
		t.Errorf("expected bike %s, got %s", bikeID, resp.BikeID)
	}
	if resp.BikeType != "electric" {
		t.Errorf("expected electric bike type, got %s", resp.BikeType)
	}

	if status := ts.BikeStatus(t, bikeID); status != "on_trip" {
		t.Errorf("expected bike on_trip, got %s", status)
	}
}

func TestTrip_StartWithWrongDockCode(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "rider-1", false)
	stationID := ts.CreateTestStation(t, "Mile End")
	dockID := ts.CreateTestDock(t, stationID, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", dockID, stationID)

	w := ts.POST("/trips/start/direct", map[string]interface{}{
		"dockId":   dockID,
		"dockCode": "0000",
	}, asUser("rider-1"))

	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected status %d, got %d: %s", http.StatusUnauthorized, w.Code, w.Body.String())
	}
	if status := ts.BikeStatus(t, bikeID); status != "available" {
		t.Errorf("expected bike untouched, got %s", status)
	}
}

func TestTrip_EndAtOccupiedDockLeavesTripActive(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "rider-1", false)
	stationID := ts.CreateTestStation(t, "Mile End")
	originDock := ts.CreateTestDock(t, stationID, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", originDock, stationID)

	destStation := ts.CreateTestStation(t, "Plateau")
	fullDock := ts.CreateTestDock(t, destStation, "5678")
	ts.DockTestBike(t, "BIKE-002", "standard", fullDock, destStation)
	freeDock := ts.CreateTestDock(t, destStation, "9999")

	w := ts.POST("/trips/start/direct", map[string]interface{}{
		"dockId":   originDock,
		"dockCode": "1234",
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var started tripResponse
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	// Full dock rejects the return and the trip stays active.
	w = ts.POST("/trips/end", map[string]interface{}{
		"bikeId":   bikeID,
		"dockId":   fullDock,
		"dockCode": "5678",
	}, asUser("rider-1"))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}
	if status := ts.BikeStatus(t, bikeID); status != "on_trip" {
		t.Errorf("expected bike still on_trip, got %s", status)
	}

	// Retrying at a free dock completes the same trip.
	w = ts.POST("/trips/end", map[string]interface{}{
		"bikeId":   bikeID,
		"dockId":   freeDock,
		"dockCode": "9999",
	}, asUser("rider-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("retry: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var ended endTripResponse
	if err := json.Unmarshal(w.Body.Bytes(), &ended); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if ended.Trip.ID != started.ID {
		t.Errorf("expected the same trip %s, got %s", started.ID, ended.Trip.ID)
	}
}

func TestTrip_ReportIssue(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "rider-1", false)
	stationID := ts.CreateTestStation(t, "Mile End")
	dockID := ts.CreateTestDock(t, stationID, "1234")
	ts.DockTestBike(t, "BIKE-001", "standard", dockID, stationID)

	w := ts.POST("/trips/start/direct", map[string]interface{}{
		"dockId":   dockID,
		"dockCode": "1234",
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var started tripResponse
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	w = ts.POST("/trips/"+started.ID.String()+"/report", map[string]interface{}{
		"issue": "rear brake is loose",
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Errorf("expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	// The report never touches the trip's status, but it shows up on
	// the trip detail.
	w = ts.GET("/trips/"+started.ID.String(), asUser("rider-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var resp struct {
		tripResponse
		Issues []struct {
			Issue string `json:"issue"`
		} `json:"issues"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if resp.Status != "active" {
		t.Errorf("expected trip still active after report, got %s", resp.Status)
	}
	if len(resp.Issues) != 1 || resp.Issues[0].Issue != "rear brake is loose" {
		t.Errorf("expected the reported issue on the trip detail, got %+v", resp.Issues)
	}
}

func TestTrip_ReportIssueUnknownTrip(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "rider-1", false)

	w := ts.POST("/trips/00000000-0000-0000-0000-000000000001/report", map[string]interface{}{
		"issue": "phantom bike",
	}, asUser("rider-1"))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status %d, got %d: %s", http.StatusNotFound, w.Code, w.Body.String())
	}
}

func TestTrip_VisibilityIsOwnerOrOperator(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "rider-1", false)
	ts.SeedRider(t, "rider-2", false)
	ts.SeedRider(t, "op-1", true)
	stationID := ts.CreateTestStation(t, "Mile End")
	dockID := ts.CreateTestDock(t, stationID, "1234")
	ts.DockTestBike(t, "BIKE-001", "standard", dockID, stationID)

	w := ts.POST("/trips/start/direct", map[string]interface{}{
		"dockId":   dockID,
		"dockCode": "1234",
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var started tripResponse
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	if w := ts.GET("/trips/"+started.ID.String(), asUser("rider-2")); w.Code != http.StatusForbidden {
		t.Errorf("other rider: expected status %d, got %d", http.StatusForbidden, w.Code)
	}
	if w := ts.GET("/trips/"+started.ID.String(), asUser("op-1")); w.Code != http.StatusOK {
		t.Errorf("operator: expected status %d, got %d", http.StatusOK, w.Code)
	}
	if w := ts.GET("/trips/"+started.ID.String(), asUser("rider-1")); w.Code != http.StatusOK {
		t.Errorf("owner: expected status %d, got %d", http.StatusOK, w.Code)
	}
}

func TestTrip_RiderHistory(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	riderID := ts.SeedRider(t, "rider-1", false)
	ts.SeedRider(t, "rider-2", false)
	stationID := ts.CreateTestStation(t, "Mile End")
	dockID := ts.CreateTestDock(t, stationID, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", dockID, stationID)
	destDock := ts.CreateTestDock(t, stationID, "5678")

	w := ts.POST("/trips/start/direct", map[string]interface{}{
		"dockId":   dockID,
		"dockCode": "1234",
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	w = ts.POST("/trips/end", map[string]interface{}{
		"bikeId":   bikeID,
		"dockId":   destDock,
		"dockCode": "5678",
	}, asUser("rider-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("end: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}

	w = ts.GET("/trips/rider/"+riderID.String(), asUser("rider-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var trips []tripResponse
	if err := json.Unmarshal(w.Body.Bytes(), &trips); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(trips) != 1 {
		t.Fatalf("expected 1 trip, got %d", len(trips))
	}

	// Another rider cannot read the history.
	if w := ts.GET("/trips/rider/"+riderID.String(), asUser("rider-2")); w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestTrip_AbandonedSweep(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "rider-1", false)
	stationID := ts.CreateTestStation(t, "Mile End")
	dockID := ts.CreateTestDock(t, stationID, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", dockID, stationID)

	w := ts.POST("/trips/start/direct", map[string]interface{}{
		"dockId":   dockID,
		"dockCode": "1234",
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var started tripResponse
	if err := json.Unmarshal(w.Body.Bytes(), &started); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	ts.BackdateTrip(t, started.ID, 5*time.Hour)

	abandoned, err := ts.Cfg.Trips.SweepAbandoned(context.Background(), 4*time.Hour)
	if err != nil {
		t.Fatalf("abandoned sweep failed: %v", err)
	}
	if len(abandoned) != 1 {
		t.Fatalf("expected 1 abandoned trip, got %d", len(abandoned))
	}
	if abandoned[0].ID != started.ID {
		t.Errorf("expected trip %s, got %s", started.ID, abandoned[0].ID)
	}

	if status := ts.BikeStatus(t, bikeID); status != "maintenance" {
		t.Errorf("expected bike in maintenance, got %s", status)
	}

	// An abandoned trip carries the flat fee plus tax.
	b, err := ts.Cfg.Bills.ComputeForTrip(context.Background(), abandoned[0], ts.Cfg.Pricing)
	if err != nil {
		t.Fatalf("failed to bill abandoned trip: %v", err)
	}
	if b.BaseCents != 33300 {
		t.Errorf("expected abandonment fee 33300, got %d", b.BaseCents)
	}
}
