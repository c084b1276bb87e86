package bike

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTransitions(t *testing.T) {
	legal := []struct {
		from, to Status
	}{
		{StatusAvailable, StatusReserved},
		{StatusAvailable, StatusOnTrip},
		{StatusAvailable, StatusInTransfer},
		{StatusReserved, StatusOnTrip},
		{StatusReserved, StatusAvailable},
		{StatusOnTrip, StatusAvailable},
		{StatusInTransfer, StatusAvailable},
		{StatusInTransfer, StatusMaintenance},
		{StatusMaintenance, StatusAvailable},
		// operator override reaches maintenance from anywhere
		{StatusAvailable, StatusMaintenance},
		{StatusReserved, StatusMaintenance},
		{StatusOnTrip, StatusMaintenance},
	}
	for _, tc := range legal {
		assert.NoError(t, ValidateTransition(tc.from, tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct {
		from, to Status
	}{
		{StatusReserved, StatusInTransfer},
		{StatusOnTrip, StatusReserved},
		{StatusOnTrip, StatusInTransfer},
		{StatusInTransfer, StatusReserved},
		{StatusInTransfer, StatusOnTrip},
		{StatusMaintenance, StatusReserved},
		{StatusMaintenance, StatusOnTrip},
		{StatusMaintenance, StatusInTransfer},
	}
	for _, tc := range illegal {
		err := ValidateTransition(tc.from, tc.to)
		require.Error(t, err, "%s -> %s", tc.from, tc.to)

		var ite *InvalidTransitionError
		require.ErrorAs(t, err, &ite)
		assert.Equal(t, tc.from, ite.From)
		assert.Equal(t, tc.to, ite.To)
	}
}

func TestValidateTransitionRejectsUnknownStatus(t *testing.T) {
	err := ValidateTransition(StatusAvailable, Status("scrapped"))
	require.Error(t, err)
}

func TestInTransit(t *testing.T) {
	var b Bike
	assert.True(t, b.InTransit())
}
