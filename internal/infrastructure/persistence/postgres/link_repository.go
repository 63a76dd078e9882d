package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

const (
	linkedSQL          = `SELECT EXISTS (SELECT 1 FROM trainer_customers WHERE trainer_id = $1 AND customer_id = $2)`
	listCustomerIDsSQL = `SELECT customer_id FROM trainer_customers WHERE trainer_id = $1 ORDER BY customer_id`
)

// LinkRepository implements ports.TrainerLinkStore over the
// trainer_customers join table.
type LinkRepository struct {
	pool *pgxpool.Pool
}

func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{pool: pool}
}

func (r *LinkRepository) Linked(ctx context.Context, trainerID, customerID domain.UserID) (bool, error) {
	var linked bool
	err := r.pool.QueryRow(ctx, linkedSQL, trainerID.UUID, customerID.UUID).Scan(&linked)
	return linked, err
}

func (r *LinkRepository) ListCustomerIDs(ctx context.Context, trainerID domain.UserID) ([]domain.UserID, error) {
	rows, err := r.pool.Query(ctx, listCustomerIDsSQL, trainerID.UUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []domain.UserID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, domain.NewUserID(id))
	}
	return ids, rows.Err()
}

var _ ports.TrainerLinkStore = (*LinkRepository)(nil)
