package middleware

import (
	"context"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
)

type contextKey string

const authContextKey contextKey = "auth"

// WithAuth injects the verified access claims into the context.
func WithAuth(ctx context.Context, claims *ports.AccessClaims) context.Context {
	return context.WithValue(ctx, authContextKey, claims)
}

// AuthFromContext returns the verified claims, or nil when the request did
// not pass the authenticator.
func AuthFromContext(ctx context.Context) *ports.AccessClaims {
	v := ctx.Value(authContextKey)
	if v == nil {
		return nil
	}
	c, _ := v.(*ports.AccessClaims)
	return c
}
