package ports

import (
	"time"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

// PasswordHasher hashes and verifies passwords (Argon2id).
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// AccessClaims are the verified contents of an access token.
type AccessClaims struct {
	UserID domain.UserID
	Role   domain.Role
}

// TokenIssuer signs and validates short-lived access tokens (HS256).
type TokenIssuer interface {
	// IssueAccessToken returns the signed token and its expiry.
	IssueAccessToken(userID domain.UserID, role domain.Role, ttl time.Duration) (token string, expiresAt time.Time, err error)
	// ValidateAccessToken returns domerrors.ErrExpiredToken for a
	// well-signed-but-expired token and domerrors.ErrInvalidToken for
	// anything else that fails, so the request gate can decide whether a
	// silent rotation is allowed.
	ValidateAccessToken(token string) (*AccessClaims, error)
}
