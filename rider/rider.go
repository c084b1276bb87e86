package rider

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Rider is the fleet-side record for an identity-provider subject.
// Operator flags live here rather than being trusted from any client
// supplied state.
type Rider struct {
	ID             uuid.UUID
	Auth0ID        string         `db:"auth0_id"`
	StripeID       sql.NullString `db:"stripe_id"`
	Email          sql.NullString `db:"email"`
	Name           sql.NullString `db:"name"`
	IsOperator     bool           `db:"is_operator"`
	IsOperatorView bool           `db:"is_operator_view"`
	CreatedAt      time.Time      `db:"created_at"`
}
