package middleware

import (
	"net/http"
	"time"
)

// RefreshCookieName is the HTTP-only cookie carrying the raw refresh token.
const RefreshCookieName = "refresh_token"

// CookieConfig controls the refresh cookie attributes. Secure is off in
// local development so the cookie survives plain HTTP.
type CookieConfig struct {
	Secure bool
	Path   string
}

func (c CookieConfig) path() string {
	if c.Path == "" {
		return "/"
	}
	return c.Path
}

// SetRefreshCookie writes the refresh token cookie. The token is never
// readable from script; browsers send it back on same-site requests only.
func (c CookieConfig) SetRefreshCookie(w http.ResponseWriter, token string, ttl time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    token,
		Path:     c.path(),
		MaxAge:   int(ttl / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRefreshCookie expires the refresh cookie immediately.
func (c CookieConfig) ClearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RefreshCookieName,
		Value:    "",
		Path:     c.path(),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// RefreshTokenFromRequest returns the raw refresh token cookie value, or "".
func RefreshTokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(RefreshCookieName)
	if err != nil {
		return ""
	}
	return c.Value
}
