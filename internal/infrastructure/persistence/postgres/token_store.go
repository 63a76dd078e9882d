package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

const (
	storeRefreshSQL = `INSERT INTO refresh_credentials (token_hash, user_id, issued_at, expires_at)
VALUES ($1, $2, $3, $4)`
	getRefreshSQL = `SELECT token_hash, user_id, issued_at, expires_at
FROM refresh_credentials WHERE token_hash = $1`
	// Rotation safety hangs on this statement: the row delete is the
	// compare-and-delete, so of two concurrent rotations only one sees
	// RowsAffected = 1.
	consumeRefreshSQL   = `DELETE FROM refresh_credentials WHERE token_hash = $1`
	deleteAllForUserSQL = `DELETE FROM refresh_credentials WHERE user_id = $1`
	purgeExpiredSQL     = `DELETE FROM refresh_credentials WHERE expires_at < $1`
)

// TokenStore implements ports.RefreshCredentialStore on Postgres.
type TokenStore struct {
	pool *pgxpool.Pool
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	return &TokenStore{pool: pool}
}

func (s *TokenStore) Store(ctx context.Context, userID domain.UserID, tokenHash string, issuedAt, expiresAt time.Time) error {
	_, err := s.pool.Exec(ctx, storeRefreshSQL, tokenHash, userID.UUID, issuedAt, expiresAt)
	return err
}

func (s *TokenStore) Get(ctx context.Context, tokenHash string) (*domain.RefreshCredential, error) {
	var cred domain.RefreshCredential
	err := s.pool.QueryRow(ctx, getRefreshSQL, tokenHash).
		Scan(&cred.TokenHash, &cred.UserID.UUID, &cred.IssuedAt, &cred.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &cred, nil
}

func (s *TokenStore) ConsumeIfPresent(ctx context.Context, tokenHash string) (bool, error) {
	tag, err := s.pool.Exec(ctx, consumeRefreshSQL, tokenHash)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (s *TokenStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) error {
	_, err := s.pool.Exec(ctx, deleteAllForUserSQL, userID.UUID)
	return err
}

// PurgeExpired removes credentials past their expiry; safe to run
// periodically, rotation never resurrects them.
func (s *TokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, purgeExpiredSQL, now)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

var _ ports.RefreshCredentialStore = (*TokenStore)(nil)
