package middleware

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/auth"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
)

// RotatedAccessTokenHeader carries the replacement access token when the
// gate silently rotated an expired session. Clients that sent a stale token
// pick the new one up from here.
const RotatedAccessTokenHeader = "X-Access-Token"

// Authenticator is the request gate. A valid Bearer token wins outright; an
// absent or expired one triggers a silent rotation from the refresh cookie.
// A token that fails signature or claim checks is rejected without ever
// touching the cookie.
type Authenticator struct {
	tokens  ports.TokenIssuer
	users   ports.UserRepository
	refresh *auth.Refresh
	cookies CookieConfig
	log     zerolog.Logger
}

func NewAuthenticator(tokens ports.TokenIssuer, users ports.UserRepository, refresh *auth.Refresh, cookies CookieConfig, log zerolog.Logger) *Authenticator {
	return &Authenticator{tokens: tokens, users: users, refresh: refresh, cookies: cookies, log: log}
}

func (m *Authenticator) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header != "" {
			if !strings.HasPrefix(header, "Bearer ") {
				unauthorized(w)
				return
			}
			claims, err := m.tokens.ValidateAccessToken(strings.TrimPrefix(header, "Bearer "))
			switch {
			case err == nil:
				user, uerr := m.users.GetByID(r.Context(), claims.UserID)
				if uerr != nil || user == nil {
					unauthorized(w)
					return
				}
				next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), claims)))
				return
			case errors.Is(err, domerrors.ErrExpiredToken):
				// fall through to the refresh cookie
			default:
				unauthorized(w)
				return
			}
		}
		m.rotate(w, r, next)
	})
}

// rotate exchanges the refresh cookie for a fresh pair and lets the request
// proceed under the new identity. The new access token travels back in
// RotatedAccessTokenHeader alongside the replaced cookie.
func (m *Authenticator) rotate(w http.ResponseWriter, r *http.Request, next http.Handler) {
	raw := RefreshTokenFromRequest(r)
	if raw == "" {
		unauthorized(w)
		return
	}
	result, err := m.refresh.Execute(r.Context(), auth.RefreshInput{RefreshToken: raw})
	if err != nil {
		if errors.Is(err, domerrors.ErrInvalidToken) ||
			errors.Is(err, domerrors.ErrExpiredToken) ||
			errors.Is(err, domerrors.ErrUserNotFound) {
			m.cookies.ClearRefreshCookie(w)
			unauthorized(w)
			return
		}
		m.log.Error().Err(err).Msg("silent rotation failed")
		writeMiddlewareErr(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	m.cookies.SetRefreshCookie(w, result.Tokens.RefreshToken, m.refresh.RefreshTTL())
	w.Header().Set(RotatedAccessTokenHeader, result.Tokens.AccessToken)
	claims := &ports.AccessClaims{UserID: result.User.ID, Role: result.User.Role}
	next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), claims)))
}

func unauthorized(w http.ResponseWriter) {
	writeMiddlewareErr(w, http.StatusUnauthorized, "unauthorized", "authentication required")
}

func writeMiddlewareErr(w http.ResponseWriter, code int, errCode, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message, "code": errCode})
}
