package bike

import "fmt"

type Status string

const (
	StatusAvailable   Status = "available"
	StatusReserved    Status = "reserved"
	StatusOnTrip      Status = "on_trip"
	StatusInTransfer  Status = "in_transfer"
	StatusMaintenance Status = "maintenance"
)

// transitions is the full set of legal status changes. Maintenance is
// reachable from every state (operator override).
var transitions = map[Status][]Status{
	StatusAvailable:   {StatusReserved, StatusOnTrip, StatusInTransfer, StatusMaintenance},
	StatusReserved:    {StatusOnTrip, StatusAvailable, StatusMaintenance},
	StatusOnTrip:      {StatusAvailable, StatusMaintenance},
	StatusInTransfer:  {StatusAvailable, StatusMaintenance},
	StatusMaintenance: {StatusAvailable},
}

// Valid reports whether s is a known bike status.
func (s Status) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is legal.
func (s Status) CanTransitionTo(next Status) bool {
	for _, t := range transitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// InvalidTransitionError is returned when a status change would violate
// the bike state machine. The bike is left unchanged.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid bike status transition %s -> %s", e.From, e.To)
}

// ValidateTransition returns an InvalidTransitionError if from -> to is
// not in the transition table.
func ValidateTransition(from, to Status) error {
	if !to.Valid() {
		return &InvalidTransitionError{From: from, To: to}
	}
	if !from.CanTransitionTo(to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}
