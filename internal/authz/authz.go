// Package authz maps identity-provider profile flags to an explicit
// capability set. The fleet core evaluates this on every mutating call
// instead of trusting an upstream route guard.
package authz

// Action is something a caller can attempt against the fleet core.
type Action int

const (
	ViewFleet Action = iota
	ReserveBike
	StartTrip
	EndTrip
	ReportIssue
	OverrideBikeStatus
	TransferBike
	ResolveTransfer
	ManageStations
	ManageRiders
)

// Role is the capability set evaluated once per request.
type Role struct {
	Rider        bool
	Operator     bool
	OperatorView bool
}

// RoleFor builds a Role from the rider record's profile flags. Every
// authenticated caller is at least a rider.
func RoleFor(isOperator, isOperatorView bool) Role {
	return Role{
		Rider:        true,
		Operator:     isOperator,
		OperatorView: isOperator && isOperatorView,
	}
}

// Can reports whether the role is allowed to attempt the action.
func (r Role) Can(a Action) bool {
	switch a {
	case ViewFleet, ReserveBike, StartTrip, EndTrip, ReportIssue:
		return r.Rider
	case OverrideBikeStatus, TransferBike, ResolveTransfer, ManageStations, ManageRiders:
		return r.Operator
	}
	return false
}
