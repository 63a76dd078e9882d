package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/rs/zerolog"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/auth"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/middleware"
)

// oauthRoleCookie carries the role the user asked for across the provider
// redirect. It rides in its own short-lived cookie rather than the gothic
// session: gothic re-reads the session cookie from the request on every
// save, so writing the role there and then calling GetAuthURL emits two
// competing Set-Cookie headers and the browser keeps only the second.
// The value only applies if a brand-new account is created.
const (
	oauthRoleCookie = "evofit_intended_role"
	oauthRoleTTL    = 10 * time.Minute
)

func setIntendedRole(w http.ResponseWriter, role domain.Role, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthRoleCookie,
		Value:    role.String(),
		Path:     "/auth",
		MaxAge:   int(oauthRoleTTL.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func intendedRoleFromRequest(r *http.Request) string {
	c, err := r.Cookie(oauthRoleCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

func clearIntendedRole(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     oauthRoleCookie,
		Value:    "",
		Path:     "/auth",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// InitOAuthProviders registers Goth providers and session store. Call once at startup.
func InitOAuthProviders(callbackBaseURL, sessionSecret string, googleClientID, googleClientSecret string) {
	if googleClientID != "" && googleClientSecret != "" {
		callbackURL := callbackBaseURL + "/auth/google/callback"
		goth.UseProviders(google.New(googleClientID, googleClientSecret, callbackURL))
	}
	if sessionSecret != "" {
		gothic.Store = sessions.NewCookieStore([]byte(sessionSecret))
	}
}

// OAuthBegin redirects to the OAuth provider. Provider from URL: /auth/{provider}.
// An optional ?role=trainer query is remembered for account creation.
func OAuthBegin(cookies middleware.CookieConfig) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		if provider == "" {
			writeErr(w, http.StatusBadRequest, "", "provider required")
			return
		}
		if _, err := goth.GetProvider(provider); err != nil {
			writeErr(w, http.StatusBadRequest, "", "unknown provider")
			return
		}
		role := domain.ParseRole(r.URL.Query().Get("role"))
		setIntendedRole(w, role, cookies.Secure)
		// Gothic expects provider in query
		r2 := r.Clone(r.Context())
		q := r2.URL.Query()
		q.Set("provider", provider)
		r2.URL.RawQuery = q.Encode()
		authURL, err := gothic.GetAuthURL(w, r2)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, "", "internal error")
			return
		}
		http.Redirect(w, r, authURL, http.StatusTemporaryRedirect)
	}
}

// OAuthCallback completes the provider handshake, resolves the identity and
// redirects to the frontend with the access token. The refresh token goes
// into the HTTP-only cookie, never into the redirect URL.
func OAuthCallback(oauthCallback *auth.OAuthCallback, cookies middleware.CookieConfig, enqueuer ports.TaskEnqueuer, redirectURL string, log zerolog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		provider := chi.URLParam(r, "provider")
		if provider == "" {
			writeErr(w, http.StatusBadRequest, "", "provider required")
			return
		}
		r2 := r.Clone(r.Context())
		q := r2.URL.Query()
		q.Set("provider", provider)
		r2.URL.RawQuery = q.Encode()
		gothUser, err := gothic.CompleteUserAuth(w, r2)
		if err != nil {
			AuditEmit(log, r, enqueuer, "auth.oauth", "", "", false, err.Error())
			middleware.RecordAuthAttempt("oauth", false)
			writeErr(w, http.StatusUnauthorized, "", "oauth failed")
			return
		}
		intendedRole := intendedRoleFromRequest(r)
		clearIntendedRole(w, cookies.Secure)
		result, err := oauthCallback.Execute(r.Context(), domain.ExternalProfile{
			Provider:    gothUser.Provider,
			SubjectID:   gothUser.UserID,
			Email:       gothUser.Email,
			DisplayName: gothUser.Name,
			PhotoURL:    gothUser.AvatarURL,
		}, intendedRole)
		if err != nil {
			AuditEmit(log, r, enqueuer, "auth.oauth", "", gothUser.Email, false, err.Error())
			middleware.RecordAuthAttempt("oauth", false)
			if errors.Is(err, domerrors.ErrMissingEmail) {
				// The provider handshake succeeded but gave us nothing to
				// key an account on. That is the provider's failure.
				writeErr(w, http.StatusBadGateway, ErrCodeProviderError, "provider returned no email address")
				return
			}
			log.Error().Err(err).Msg("oauth callback failed")
			writeErr(w, http.StatusInternalServerError, "", "internal error")
			return
		}
		AuditEmit(log, r, enqueuer, "auth.oauth", result.User.ID.String(), result.User.Email, true, "")
		middleware.RecordAuthAttempt("oauth", true)
		cookies.SetRefreshCookie(w, result.Tokens.RefreshToken, time.Until(result.Tokens.RefreshExpiresAt))
		u, err := url.Parse(redirectURL)
		if err != nil {
			log.Error().Err(err).Str("redirect_url", redirectURL).Msg("oauth redirect URL unusable")
			writeErr(w, http.StatusInternalServerError, "", "internal error")
			return
		}
		uq := u.Query()
		uq.Set("access_token", result.Tokens.AccessToken)
		uq.Set("expires_in", strconv.FormatInt(int64(time.Until(result.Tokens.AccessExpiresAt).Seconds()), 10))
		u.RawQuery = uq.Encode()
		http.Redirect(w, r, u.String(), http.StatusTemporaryRedirect)
	}
}
