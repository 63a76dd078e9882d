package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

const (
	credKeyPrefix = "refresh:"
	userKeyPrefix = "refresh_user:"
)

type credRecord struct {
	UserID    uuid.UUID `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TokenStore implements ports.RefreshCredentialStore on Redis. The key TTL
// mirrors the credential expiry, and GETDEL provides the single-use consume.
type TokenStore struct {
	client *goredis.Client
}

func NewTokenStore(client *goredis.Client) *TokenStore {
	return &TokenStore{client: client}
}

func (s *TokenStore) Store(ctx context.Context, userID domain.UserID, tokenHash string, issuedAt, expiresAt time.Time) error {
	payload, err := json.Marshal(credRecord{UserID: userID.UUID, IssuedAt: issuedAt, ExpiresAt: expiresAt})
	if err != nil {
		return err
	}
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return nil
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, credKeyPrefix+tokenHash, payload, ttl)
	pipe.SAdd(ctx, userKeyPrefix+userID.String(), tokenHash)
	pipe.Expire(ctx, userKeyPrefix+userID.String(), ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *TokenStore) Get(ctx context.Context, tokenHash string) (*domain.RefreshCredential, error) {
	raw, err := s.client.Get(ctx, credKeyPrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var rec credRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, err
	}
	return &domain.RefreshCredential{
		TokenHash: tokenHash,
		UserID:    domain.NewUserID(rec.UserID),
		IssuedAt:  rec.IssuedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (s *TokenStore) ConsumeIfPresent(ctx context.Context, tokenHash string) (bool, error) {
	// GETDEL is the atomic compare-and-delete: only one of N concurrent
	// callers for the same hash gets the value back.
	raw, err := s.client.GetDel(ctx, credKeyPrefix+tokenHash).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, err
	}
	var rec credRecord
	if err := json.Unmarshal(raw, &rec); err == nil {
		s.client.SRem(ctx, userKeyPrefix+rec.UserID.String(), tokenHash)
	}
	return true, nil
}

func (s *TokenStore) DeleteAllForUser(ctx context.Context, userID domain.UserID) error {
	userKey := userKeyPrefix + userID.String()
	hashes, err := s.client.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil
		}
		return err
	}
	pipe := s.client.TxPipeline()
	for _, h := range hashes {
		pipe.Del(ctx, credKeyPrefix+h)
	}
	pipe.Del(ctx, userKey)
	_, err = pipe.Exec(ctx)
	return err
}

// PurgeExpired is a no-op on Redis: every credential key carries a TTL equal
// to its expiry, so Redis evicts on its own.
func (s *TokenStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

var _ ports.RefreshCredentialStore = (*TokenStore)(nil)
