package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
)

// TokenIssuer implements ports.TokenIssuer with HS256 and a server-held
// signing secret.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
}

type accessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

func NewTokenIssuer(secret []byte, issuer, audience string) *TokenIssuer {
	return &TokenIssuer{secret: secret, issuer: issuer, audience: audience}
}

func (t *TokenIssuer) IssueAccessToken(userID domain.UserID, role domain.Role, ttl time.Duration) (string, time.Time, error) {
	now := time.Now()
	expiresAt := now.Add(ttl)
	claims := accessClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    t.issuer,
			Audience:  jwt.ClaimStrings{t.audience},
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Role: role.String(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(t.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// ValidateAccessToken checks signature and expiry. Expiry is reported as
// ErrExpiredToken so the request gate knows silent rotation is allowed;
// every other failure is ErrInvalidToken.
func (t *TokenIssuer) ValidateAccessToken(tokenString string) (*ports.AccessClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return t.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domerrors.ErrExpiredToken
		}
		return nil, domerrors.ErrInvalidToken
	}
	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid {
		return nil, domerrors.ErrInvalidToken
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, domerrors.ErrInvalidToken
	}
	role := domain.Role(claims.Role)
	if !role.Valid() {
		return nil, domerrors.ErrInvalidToken
	}
	return &ports.AccessClaims{UserID: domain.NewUserID(id), Role: role}, nil
}

var _ ports.TokenIssuer = (*TokenIssuer)(nil)
