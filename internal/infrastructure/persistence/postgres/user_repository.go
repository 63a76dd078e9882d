package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

const (
	createUserSQL = `INSERT INTO users (id, email, password_hash, role, external_id, display_name, profile_image_url, created_at, updated_at)
VALUES ($1, lower($2), NULLIF($3, ''), $4, NULLIF($5, ''), $6, $7, $8, $9)`
	userColumns = `id, email, COALESCE(password_hash, ''), role, COALESCE(external_id, ''), COALESCE(display_name, ''), COALESCE(profile_image_url, ''), created_at, updated_at`

	getUserByEmailSQL      = `SELECT ` + userColumns + ` FROM users WHERE email = lower($1)`
	getUserByIDSQL         = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	getUserByExternalIDSQL = `SELECT ` + userColumns + ` FROM users WHERE external_id = $1`
	linkExternalIDSQL      = `UPDATE users SET external_id = $2, updated_at = NOW() WHERE id = $1`
	updateProfileSQL       = `UPDATE users SET display_name = $2, profile_image_url = $3, updated_at = NOW() WHERE id = $1`
	updatePasswordSQL      = `UPDATE users SET password_hash = $2, updated_at = NOW() WHERE id = $1`
	listUsersSQL           = `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC LIMIT $1 OFFSET $2`
)

// UserRepository implements ports.UserRepository via raw SQL on the pool.
type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	_, err := r.pool.Exec(ctx, createUserSQL,
		user.ID.UUID, user.Email, user.PasswordHash, user.Role.String(),
		user.ExternalID, user.DisplayName, user.ProfileImageURL,
		user.CreatedAt, user.UpdatedAt)
	return err
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, getUserByEmailSQL, email))
}

func (r *UserRepository) GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error) {
	return r.scanOne(r.pool.QueryRow(ctx, getUserByIDSQL, userID.UUID))
}

func (r *UserRepository) GetByExternalID(ctx context.Context, externalID string) (*domain.User, error) {
	if externalID == "" {
		return nil, nil
	}
	return r.scanOne(r.pool.QueryRow(ctx, getUserByExternalIDSQL, externalID))
}

func (r *UserRepository) LinkExternalID(ctx context.Context, userID domain.UserID, externalID string) error {
	_, err := r.pool.Exec(ctx, linkExternalIDSQL, userID.UUID, externalID)
	return err
}

func (r *UserRepository) UpdateProfile(ctx context.Context, userID domain.UserID, displayName, profileImageURL string) error {
	_, err := r.pool.Exec(ctx, updateProfileSQL, userID.UUID, displayName, profileImageURL)
	return err
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID domain.UserID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, updatePasswordSQL, userID.UUID, passwordHash)
	return err
}

func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*domain.User, error) {
	rows, err := r.pool.Query(ctx, listUsersSQL, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, u)
	}
	return list, rows.Err()
}

func (r *UserRepository) scanOne(row pgx.Row) (*domain.User, error) {
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return u, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var role string
	if err := row.Scan(&u.ID.UUID, &u.Email, &u.PasswordHash, &role,
		&u.ExternalID, &u.DisplayName, &u.ProfileImageURL,
		&u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = domain.Role(role)
	return &u, nil
}

var _ ports.UserRepository = (*UserRepository)(nil)
