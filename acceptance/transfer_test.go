package acceptance

import (
	"encoding/json"
	"net/http"
	"testing"
)

func TestTransfer_InitiateAndComplete(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "op-1", true)
	srcStation := ts.CreateTestStation(t, "Mile End")
	srcDock := ts.CreateTestDock(t, srcStation, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", srcDock, srcStation)

	dstStation := ts.CreateTestStation(t, "Plateau")
	dstDock := ts.CreateTestDock(t, dstStation, "5678")

	w := ts.POST("/transfer/bike", map[string]interface{}{
		"bikeId":               bikeID,
		"sourceDockId":         srcDock,
		"sourceStationId":      srcStation,
		"destinationDockId":    dstDock,
		"destinationStationId": dstStation,
	}, asUser("op-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("initiate: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var tr transferResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tr); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if tr.Status != "in_progress" {
		t.Errorf("expected in_progress transfer, got %s", tr.Status)
	}

	if status := ts.BikeStatus(t, bikeID); status != "in_transfer" {
		t.Errorf("expected bike in_transfer, got %s", status)
	}
	if status := ts.DockStatus(t, srcDock); status != "empty" {
		t.Errorf("expected source dock empty, got %s", status)
	}

	w = ts.POST("/transfer/"+tr.ID.String()+"/complete", nil, asUser("op-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("complete: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var completed transferResponse
	if err := json.Unmarshal(w.Body.Bytes(), &completed); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if completed.Status != "completed" {
		t.Errorf("expected completed transfer, got %s", completed.Status)
	}
	if completed.ResolvedAt == nil {
		t.Errorf("expected resolvedAt to be set")
	}

	if status := ts.BikeStatus(t, bikeID); status != "available" {
		t.Errorf("expected bike available at destination, got %s", status)
	}
	if status := ts.DockStatus(t, dstDock); status != "occupied" {
		t.Errorf("expected destination dock occupied, got %s", status)
	}
}

func TestTransfer_RejectsBikeOnTrip(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "rider-1", false)
	ts.SeedRider(t, "op-1", true)
	srcStation := ts.CreateTestStation(t, "Mile End")
	srcDock := ts.CreateTestDock(t, srcStation, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", srcDock, srcStation)
	dstStation := ts.CreateTestStation(t, "Plateau")
	dstDock := ts.CreateTestDock(t, dstStation, "5678")

	w := ts.POST("/trips/start/direct", map[string]interface{}{
		"dockId":   srcDock,
		"dockCode": "1234",
	}, asUser("rider-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("start: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}

	w = ts.POST("/transfer/bike", map[string]interface{}{
		"bikeId":               bikeID,
		"sourceDockId":         srcDock,
		"sourceStationId":      srcStation,
		"destinationDockId":    dstDock,
		"destinationStationId": dstStation,
	}, asUser("op-1"))

	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}
}

func TestTransfer_CompleteWithOccupiedDestinationFails(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "op-1", true)
	srcStation := ts.CreateTestStation(t, "Mile End")
	srcDock := ts.CreateTestDock(t, srcStation, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", srcDock, srcStation)

	dstStation := ts.CreateTestStation(t, "Plateau")
	dstDock := ts.CreateTestDock(t, dstStation, "5678")

	w := ts.POST("/transfer/bike", map[string]interface{}{
		"bikeId":               bikeID,
		"sourceDockId":         srcDock,
		"sourceStationId":      srcStation,
		"destinationDockId":    dstDock,
		"destinationStationId": dstStation,
	}, asUser("op-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("initiate: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var tr transferResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tr); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	// Someone docks another bike at the destination mid-transfer.
	ts.DockTestBike(t, "BIKE-002", "standard", dstDock, dstStation)

	w = ts.POST("/transfer/"+tr.ID.String()+"/complete", nil, asUser("op-1"))
	if w.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}

	var status string
	if err := ts.DB.Get(&status, `SELECT status FROM transfers WHERE id = $1`, tr.ID); err != nil {
		t.Fatalf("failed to read transfer: %v", err)
	}
	if status != "failed" {
		t.Errorf("expected transfer failed, got %s", status)
	}
	if status := ts.BikeStatus(t, bikeID); status != "maintenance" {
		t.Errorf("expected bike forced to maintenance, got %s", status)
	}
}

func TestTransfer_FailEndpoint(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "op-1", true)
	srcStation := ts.CreateTestStation(t, "Mile End")
	srcDock := ts.CreateTestDock(t, srcStation, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", srcDock, srcStation)
	dstStation := ts.CreateTestStation(t, "Plateau")
	dstDock := ts.CreateTestDock(t, dstStation, "5678")

	w := ts.POST("/transfer/bike", map[string]interface{}{
		"bikeId":               bikeID,
		"sourceDockId":         srcDock,
		"sourceStationId":      srcStation,
		"destinationDockId":    dstDock,
		"destinationStationId": dstStation,
	}, asUser("op-1"))
	if w.Code != http.StatusCreated {
		t.Fatalf("initiate: expected status %d, got %d: %s", http.StatusCreated, w.Code, w.Body.String())
	}
	var tr transferResponse
	if err := json.Unmarshal(w.Body.Bytes(), &tr); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}

	w = ts.POST("/transfer/"+tr.ID.String()+"/fail", map[string]interface{}{
		"reason": "truck broke down",
	}, asUser("op-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("fail: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var failed transferResponse
	if err := json.Unmarshal(w.Body.Bytes(), &failed); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if failed.Status != "failed" {
		t.Errorf("expected failed transfer, got %s", failed.Status)
	}
	if failed.Reason != "truck broke down" {
		t.Errorf("expected reason to round-trip, got %q", failed.Reason)
	}

	if status := ts.BikeStatus(t, bikeID); status != "maintenance" {
		t.Errorf("expected bike in maintenance, got %s", status)
	}

	// Terminal transfers stay terminal.
	w = ts.POST("/transfer/"+tr.ID.String()+"/complete", nil, asUser("op-1"))
	if w.Code != http.StatusConflict {
		t.Errorf("expected status %d, got %d: %s", http.StatusConflict, w.Code, w.Body.String())
	}
}

func TestTransfer_RequiresOperator(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "rider-1", false)
	srcStation := ts.CreateTestStation(t, "Mile End")
	srcDock := ts.CreateTestDock(t, srcStation, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", srcDock, srcStation)
	dstStation := ts.CreateTestStation(t, "Plateau")
	dstDock := ts.CreateTestDock(t, dstStation, "5678")

	w := ts.POST("/transfer/bike", map[string]interface{}{
		"bikeId":               bikeID,
		"sourceDockId":         srcDock,
		"sourceStationId":      srcStation,
		"destinationDockId":    dstDock,
		"destinationStationId": dstStation,
	}, asUser("rider-1"))

	if w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d: %s", http.StatusForbidden, w.Code, w.Body.String())
	}
	if w := ts.GET("/transfer/stations", asUser("rider-1")); w.Code != http.StatusForbidden {
		t.Errorf("expected status %d, got %d", http.StatusForbidden, w.Code)
	}
}

func TestTransfer_StationListings(t *testing.T) {
	ts := NewTestServer(t)
	defer ts.Close()

	ts.SeedRider(t, "op-1", true)
	stationID := ts.CreateTestStation(t, "Mile End")
	dockID := ts.CreateTestDock(t, stationID, "1234")
	bikeID := ts.DockTestBike(t, "BIKE-001", "standard", dockID, stationID)
	ts.CreateTestDock(t, stationID, "5678")

	// Operators see every bike, including ones riders never would.
	_, err := ts.DB.Exec(`UPDATE bikes SET status = 'maintenance' WHERE id = $1`, bikeID)
	if err != nil {
		t.Fatalf("failed to update bike: %v", err)
	}

	w := ts.GET("/transfer/stations", asUser("op-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("stations: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var stations []stationResponse
	if err := json.Unmarshal(w.Body.Bytes(), &stations); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(stations) != 1 {
		t.Fatalf("expected 1 station, got %d", len(stations))
	}

	w = ts.GET("/transfer/stations/"+stationID.String()+"/bikes", asUser("op-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("bikes: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var bikes []bikeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &bikes); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(bikes) != 1 {
		t.Fatalf("expected 1 bike, got %d", len(bikes))
	}
	if bikes[0].Status != "maintenance" {
		t.Errorf("expected maintenance bike in listing, got %s", bikes[0].Status)
	}

	w = ts.GET("/transfer/stations/"+stationID.String()+"/docks", asUser("op-1"))
	if w.Code != http.StatusOK {
		t.Fatalf("docks: expected status %d, got %d: %s", http.StatusOK, w.Code, w.Body.String())
	}
	var docks []map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &docks); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	if len(docks) != 2 {
		t.Fatalf("expected 2 docks, got %d", len(docks))
	}
	for _, d := range docks {
		if _, leaked := d["dockCode"]; leaked {
			t.Errorf("dock code must never be serialised")
		}
	}
}
