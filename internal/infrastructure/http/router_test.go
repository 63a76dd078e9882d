package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/auth"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/user"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	infraauth "github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/auth"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/handlers"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/http/middleware"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/lockout"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/persistence/memory"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/queue"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/security"
)

type testEnv struct {
	store  *memory.Store
	issuer *auth.Issuer
	router http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zerolog.Nop()
	store := memory.NewStore()
	tokens := infraauth.NewTokenIssuer([]byte("test-secret-at-least-32-bytes-long!!"), "evofit", "evofit-api")
	hasher := security.NewArgon2Hasher(security.Argon2Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	issuer := auth.NewIssuer(tokens, store, 15*time.Minute, 30*24*time.Hour)
	registerUC := auth.NewRegister(store, hasher, issuer)
	loginUC := auth.NewLogin(store, hasher, issuer, lockout.NewMemoryStore(5, 60))
	refreshUC := auth.NewRefresh(store, store, issuer)
	logoutUC := auth.NewLogout(store)
	updateProfileUC := user.NewUpdateProfile(store)
	changePasswordUC := user.NewChangePassword(store, hasher)
	enqueuer := queue.NewNoopEnqueuer()

	cookies := middleware.CookieConfig{}
	requireAuth := middleware.NewAuthenticator(tokens, store, refreshUC, cookies, log).Handler

	router := NewRouter(RouterConfig{
		AuthHandler:      handlers.NewAuthHandler(registerUC, loginUC, refreshUC, logoutUC, cookies, enqueuer, log),
		UsersHandler:     handlers.NewUsersHandler(store, updateProfileUC, changePasswordUC, log),
		CustomersHandler: handlers.NewCustomersHandler(store, store, log),
		RequireAuth:      requireAuth,
		Log:              log,
	})
	return &testEnv{store: store, issuer: issuer, router: router}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}, mod func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if mod != nil {
		mod(req)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return m
}

func refreshCookie(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == middleware.RefreshCookieName {
			return c
		}
	}
	return nil
}

func (e *testEnv) registerHTTP(t *testing.T, email, password, role string) (map[string]interface{}, *http.Cookie) {
	t.Helper()
	rec := e.do(t, http.MethodPost, "/auth/register", map[string]string{
		"email": email, "password": password, "role": role,
	}, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: status = %d, body %s", email, rec.Code, rec.Body.String())
	}
	c := refreshCookie(rec)
	if c == nil || c.Value == "" {
		t.Fatal("register must set the refresh cookie")
	}
	return decodeJSON(t, rec), c
}

func bearer(body map[string]interface{}) string {
	tok, _ := body["accessToken"].(string)
	return "Bearer " + tok
}

func TestRegisterAndLoginFlow(t *testing.T) {
	env := newTestEnv(t)
	body, cookie := env.registerHTTP(t, "new@example.com", "correct horse battery", "trainer")

	if body["accessToken"] == "" {
		t.Error("register response missing accessToken")
	}
	if _, ok := body["refreshToken"]; ok {
		t.Error("refresh token must never appear in the body")
	}
	u, _ := body["user"].(map[string]interface{})
	if u["email"] != "new@example.com" || u["role"] != "trainer" {
		t.Errorf("user payload = %v", u)
	}
	if !cookie.HttpOnly {
		t.Error("refresh cookie must be HTTP-only")
	}

	rec := env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "New@Example.com", "password": "correct horse battery",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if refreshCookie(rec) == nil {
		t.Error("login must set a refresh cookie")
	}

	rec = env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "new@example.com", "password": "wrong",
	}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d", rec.Code)
	}
	if decodeJSON(t, rec)["code"] != "invalid_credentials" {
		t.Errorf("wrong password code = %v", decodeJSON(t, rec)["code"])
	}
}

func TestRefreshRotationOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.registerHTTP(t, "rot@example.com", "correct horse battery", "")

	rec := env.do(t, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("refresh: status = %d, body %s", rec.Code, rec.Body.String())
	}
	next := refreshCookie(rec)
	if next == nil || next.Value == cookie.Value {
		t.Fatal("refresh must rotate the cookie")
	}
	if decodeJSON(t, rec)["accessToken"] == "" {
		t.Error("refresh response missing accessToken")
	}

	// The spent cookie is dead; the response also clears it.
	rec = env.do(t, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("replay: status = %d, want 401", rec.Code)
	}
	if decodeJSON(t, rec)["code"] != "invalid_token" {
		t.Errorf("replay code = %v", decodeJSON(t, rec)["code"])
	}
	cleared := refreshCookie(rec)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Error("failed refresh should clear the cookie")
	}

	// The rotated cookie still works.
	rec = env.do(t, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(next)
	})
	if rec.Code != http.StatusOK {
		t.Errorf("rotated cookie: status = %d", rec.Code)
	}
}

func TestLogoutOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	_, cookie := env.registerHTTP(t, "out@example.com", "correct horse battery", "")

	rec := env.do(t, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout: status = %d", rec.Code)
	}
	cleared := refreshCookie(rec)
	if cleared == nil || cleared.MaxAge >= 0 {
		t.Error("logout should clear the cookie")
	}

	rec = env.do(t, http.MethodPost, "/auth/refresh", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("refresh after logout: status = %d, want 401", rec.Code)
	}

	// Logging out again with the dead cookie is still a 204.
	rec = env.do(t, http.MethodPost, "/auth/logout", nil, func(r *http.Request) {
		r.AddCookie(cookie)
	})
	if rec.Code != http.StatusNoContent {
		t.Errorf("second logout: status = %d", rec.Code)
	}
}

func TestLogoutAllOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	body, _ := env.registerHTTP(t, "all@example.com", "correct horse battery", "")

	// Two more sessions.
	for i := 0; i < 2; i++ {
		rec := env.do(t, http.MethodPost, "/auth/login", map[string]string{
			"email": "all@example.com", "password": "correct horse battery",
		}, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("login %d: status = %d", i, rec.Code)
		}
	}
	if env.store.CredentialCount() != 3 {
		t.Fatalf("credential count = %d, want 3", env.store.CredentialCount())
	}

	rec := env.do(t, http.MethodPost, "/auth/logout-all", nil, func(r *http.Request) {
		r.Header.Set("Authorization", bearer(body))
	})
	if rec.Code != http.StatusNoContent {
		t.Fatalf("logout-all: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if env.store.CredentialCount() != 0 {
		t.Errorf("credential count = %d, want 0 after logout-all", env.store.CredentialCount())
	}
}

func TestUsersMeOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	body, _ := env.registerHTTP(t, "me@example.com", "correct horse battery", "")

	rec := env.do(t, http.MethodGet, "/users/me", nil, func(r *http.Request) {
		r.Header.Set("Authorization", bearer(body))
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("me: status = %d, body %s", rec.Code, rec.Body.String())
	}
	me := decodeJSON(t, rec)
	if me["email"] != "me@example.com" || me["role"] != "customer" {
		t.Errorf("me = %v", me)
	}

	rec = env.do(t, http.MethodGet, "/users/me", nil, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("me without credentials: status = %d, want 401", rec.Code)
	}
}

func TestUpdateProfileOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	body, _ := env.registerHTTP(t, "patch@example.com", "correct horse battery", "")

	rec := env.do(t, http.MethodPatch, "/users/me", map[string]string{
		"displayName":     "Sam",
		"profileImageUrl": "https://img.example.com/sam.png",
	}, func(r *http.Request) {
		r.Header.Set("Authorization", bearer(body))
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("patch: status = %d, body %s", rec.Code, rec.Body.String())
	}
	if decodeJSON(t, rec)["displayName"] != "Sam" {
		t.Errorf("patched profile = %v", decodeJSON(t, rec))
	}
}

func TestChangePasswordOverHTTP(t *testing.T) {
	env := newTestEnv(t)
	body, _ := env.registerHTTP(t, "pw@example.com", "correct horse battery", "")
	authz := func(r *http.Request) { r.Header.Set("Authorization", bearer(body)) }

	rec := env.do(t, http.MethodPost, "/users/me/password", map[string]string{
		"currentPassword": "not it", "newPassword": "a whole new password",
	}, authz)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong current password: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/users/me/password", map[string]string{
		"currentPassword": "correct horse battery", "newPassword": "a whole new password",
	}, authz)
	if rec.Code != http.StatusOK {
		t.Fatalf("change password: status = %d, body %s", rec.Code, rec.Body.String())
	}

	rec = env.do(t, http.MethodPost, "/auth/login", map[string]string{
		"email": "pw@example.com", "password": "a whole new password",
	}, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("login with new password: status = %d", rec.Code)
	}
}

func TestAdminRouteForbiddenForCustomer(t *testing.T) {
	env := newTestEnv(t)
	body, _ := env.registerHTTP(t, "cust@example.com", "correct horse battery", "")

	rec := env.do(t, http.MethodGet, "/admin/users", nil, func(r *http.Request) {
		r.Header.Set("Authorization", bearer(body))
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("customer on /admin/users: status = %d, want 403", rec.Code)
	}
	if decodeJSON(t, rec)["code"] != "forbidden" {
		t.Errorf("code = %v", decodeJSON(t, rec)["code"])
	}
}

func TestAdminListUsers(t *testing.T) {
	env := newTestEnv(t)
	env.registerHTTP(t, "one@example.com", "correct horse battery", "")
	env.registerHTTP(t, "two@example.com", "correct horse battery", "trainer")

	// Roles never escalate over the wire, so the admin is seeded directly.
	admin := seedAdmin(t, env)
	pair, err := env.issuer.Issue(context.Background(), admin.ID, admin.Role)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	rec := env.do(t, http.MethodGet, "/admin/users", nil, func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("admin list: status = %d, body %s", rec.Code, rec.Body.String())
	}
	users, _ := decodeJSON(t, rec)["users"].([]interface{})
	if len(users) != 3 {
		t.Errorf("listed %d users, want 3", len(users))
	}
}

func TestCustomerVisibility(t *testing.T) {
	env := newTestEnv(t)
	trainerBody, _ := env.registerHTTP(t, "coach@example.com", "correct horse battery", "trainer")
	linkedBody, _ := env.registerHTTP(t, "linked@example.com", "correct horse battery", "")
	otherBody, _ := env.registerHTTP(t, "other@example.com", "correct horse battery", "")

	trainerID := userIDFromPayload(t, trainerBody)
	linkedID := userIDFromPayload(t, linkedBody)
	otherID := userIDFromPayload(t, otherBody)
	env.store.Link(trainerID, linkedID)

	authz := func(r *http.Request) { r.Header.Set("Authorization", bearer(trainerBody)) }

	rec := env.do(t, http.MethodGet, "/customers", nil, authz)
	if rec.Code != http.StatusOK {
		t.Fatalf("customers list: status = %d, body %s", rec.Code, rec.Body.String())
	}
	customers, _ := decodeJSON(t, rec)["customers"].([]interface{})
	if len(customers) != 1 {
		t.Fatalf("trainer sees %d customers, want 1", len(customers))
	}

	rec = env.do(t, http.MethodGet, "/customers/"+linkedID.String(), nil, authz)
	if rec.Code != http.StatusOK {
		t.Errorf("linked customer: status = %d", rec.Code)
	}

	rec = env.do(t, http.MethodGet, "/customers/"+otherID.String(), nil, authz)
	if rec.Code != http.StatusForbidden {
		t.Errorf("unlinked customer: status = %d, want 403", rec.Code)
	}

	// A customer has no business on the route at all.
	rec = env.do(t, http.MethodGet, "/customers", nil, func(r *http.Request) {
		r.Header.Set("Authorization", bearer(linkedBody))
	})
	if rec.Code != http.StatusForbidden {
		t.Errorf("customer on /customers: status = %d, want 403", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: status = %d", rec.Code)
	}
}

func seedAdmin(t *testing.T, env *testEnv) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:           domain.NewUserID(uuid.New()),
		Email:        "admin@example.com",
		PasswordHash: "x",
		Role:         domain.RoleAdmin,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	if err := env.store.Create(context.Background(), u); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	return u
}

func userIDFromPayload(t *testing.T, body map[string]interface{}) domain.UserID {
	t.Helper()
	u, _ := body["user"].(map[string]interface{})
	id, _ := u["id"].(string)
	parsed, err := uuid.Parse(id)
	if err != nil {
		t.Fatalf("parse user id %q: %v", id, err)
	}
	return domain.NewUserID(parsed)
}
