package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

const (
	DefaultAccessTTL  = 15 * time.Minute
	DefaultRefreshTTL = 30 * 24 * time.Hour
)

// TokenPair is one access credential plus the raw refresh credential that
// goes into the HTTP-only cookie.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Issuer produces an access/refresh pair for an already-authenticated
// identity. It never checks passwords; callers authenticate first.
type Issuer struct {
	tokens     ports.TokenIssuer
	store      ports.RefreshCredentialStore
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewIssuer(tokens ports.TokenIssuer, store ports.RefreshCredentialStore, accessTTL, refreshTTL time.Duration) *Issuer {
	if accessTTL <= 0 {
		accessTTL = DefaultAccessTTL
	}
	if refreshTTL <= 0 {
		refreshTTL = DefaultRefreshTTL
	}
	return &Issuer{tokens: tokens, store: store, accessTTL: accessTTL, refreshTTL: refreshTTL}
}

// Issue signs a new access token and persists one new refresh credential.
// A persistence failure propagates untouched; the caller surfaces it as a
// server error.
func (i *Issuer) Issue(ctx context.Context, userID domain.UserID, role domain.Role) (*TokenPair, error) {
	accessToken, accessExp, err := i.tokens.IssueAccessToken(userID, role, i.accessTTL)
	if err != nil {
		return nil, err
	}
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	refreshToken := hex.EncodeToString(raw)
	now := time.Now()
	refreshExp := now.Add(i.refreshTTL)
	if err := i.store.Store(ctx, userID, HashToken(refreshToken), now, refreshExp); err != nil {
		return nil, err
	}
	return &TokenPair{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// RefreshTTL exposes the configured refresh window (cookie Max-Age).
func (i *Issuer) RefreshTTL() time.Duration { return i.refreshTTL }

// AccessTTL exposes the configured access window.
func (i *Issuer) AccessTTL() time.Duration { return i.accessTTL }

// HashToken returns the SHA-256 hex digest of a raw refresh token. Only
// hashes are stored, so a leaked store cannot mint sessions.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
