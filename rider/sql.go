package rider

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{
		db: db,
	}
}

var ErrNotFound = errors.New("rider not found")

func (r *Repository) GetRiderByAuth0ID(ctx context.Context, auth0ID string) (*Rider, error) {
	var rider Rider
	err := r.db.GetContext(ctx, &rider, getRiderByAuth0IDQuery, auth0ID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}

		return nil, err
	}
	return &rider, nil
}

const getRiderByAuth0IDQuery = "SELECT * FROM riders WHERE auth0_id = $1"

func (r *Repository) CreateRider(ctx context.Context, auth0ID string) (*Rider, error) {
	var rider Rider
	err := r.db.GetContext(ctx, &rider, createRiderQuery, uuid.New(), auth0ID)
	return &rider, err
}

const createRiderQuery = "INSERT INTO riders (id, auth0_id) VALUES ($1, $2) RETURNING *"

func (r *Repository) AddStripeIDToRider(ctx context.Context, auth0ID, stripeID string) error {
	_, err := r.db.ExecContext(ctx, addStripeIDToRiderQuery, stripeID, auth0ID)
	return err
}

const addStripeIDToRiderQuery = "UPDATE riders SET stripe_id = $1 WHERE auth0_id = $2"

func (r *Repository) UpdateProfile(ctx context.Context, auth0ID, email, name string) error {
	_, err := r.db.ExecContext(ctx, updateProfileQuery, email, name, auth0ID)
	return err
}

const updateProfileQuery = `UPDATE riders SET email = NULLIF($1, ''), name = NULLIF($2, '') WHERE auth0_id = $3`

// SetOperator flips the operator capability flags for a rider.
func (r *Repository) SetOperator(ctx context.Context, id uuid.UUID, isOperator, isOperatorView bool) error {
	res, err := r.db.ExecContext(ctx, setOperatorQuery, id, isOperator, isOperatorView)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const setOperatorQuery = `UPDATE riders SET is_operator = $2, is_operator_view = $3 WHERE id = $1`
