package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/middleware"
)

func oauthTestRouter(t *testing.T) chi.Router {
	t.Helper()
	goth.UseProviders(google.New("client-id", "client-secret", "http://localhost:8080/auth/google/callback"))
	gothic.Store = sessions.NewCookieStore([]byte("session-secret-32-bytes-long!!!!"))
	r := chi.NewRouter()
	r.Get("/auth/{provider}", OAuthBegin(middleware.CookieConfig{}))
	return r
}

// browserCookies mimics a browser's cookie jar: for same-named Set-Cookie
// headers only the last one survives.
func browserCookies(rec *httptest.ResponseRecorder) []*http.Cookie {
	byName := make(map[string]*http.Cookie)
	var order []string
	for _, c := range rec.Result().Cookies() {
		if _, seen := byName[c.Name]; !seen {
			order = append(order, c.Name)
		}
		byName[c.Name] = c
	}
	out := make([]*http.Cookie, 0, len(order))
	for _, name := range order {
		out = append(out, byName[name])
	}
	return out
}

func TestOAuthBeginRedirectsToProvider(t *testing.T) {
	router := oauthTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google", nil))
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	if loc := rec.Header().Get("Location"); !strings.Contains(loc, "accounts.google.com") {
		t.Errorf("redirect location %q is not the provider", loc)
	}
}

func TestOAuthBeginUnknownProvider(t *testing.T) {
	router := oauthTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/github", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestIntendedRoleSurvivesProviderRedirect(t *testing.T) {
	router := oauthTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google?role=trainer", nil))
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}

	// The role cookie and the provider session cookie must coexist. If the
	// role were written into the gothic session, the session save done by
	// GetAuthURL would clobber it on the way out.
	callback := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=x", nil)
	var sawRole, sawSession bool
	for _, c := range browserCookies(rec) {
		callback.AddCookie(c)
		switch c.Name {
		case oauthRoleCookie:
			sawRole = true
		default:
			sawSession = true
		}
	}
	if !sawRole {
		t.Fatal("begin response set no role cookie")
	}
	if !sawSession {
		t.Fatal("begin response set no provider session cookie")
	}
	if got := intendedRoleFromRequest(callback); got != "trainer" {
		t.Errorf("intended role at callback = %q, want %q", got, "trainer")
	}
}

func TestIntendedRoleNeverCarriesAdmin(t *testing.T) {
	router := oauthTestRouter(t)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth/google?role=admin", nil))
	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("status = %d, want 307", rec.Code)
	}
	callback := httptest.NewRequest(http.MethodGet, "/auth/google/callback?code=x", nil)
	for _, c := range browserCookies(rec) {
		callback.AddCookie(c)
	}
	if got := intendedRoleFromRequest(callback); got != "customer" {
		t.Errorf("intended role at callback = %q, want %q", got, "customer")
	}
}
