package station

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Station is a physical site holding an ordered set of docks. A dock
// belongs to exactly one station for its lifetime.
type Station struct {
	ID        uuid.UUID
	Name      string
	Location  pgtype.Point
	CreatedAt time.Time `db:"created_at"`
}
