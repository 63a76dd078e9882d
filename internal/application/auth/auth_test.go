package auth

import (
	"context"
	"testing"
	"time"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	infraauth "github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/auth"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/lockout"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/persistence/memory"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/security"
)

// Shared fixture: real token issuer and hasher over the in-memory store.

type fixture struct {
	store    *memory.Store
	tokens   ports.TokenIssuer
	hasher   ports.PasswordHasher
	issuer   *Issuer
	login    *Login
	register *Register
	refresh  *Refresh
	logout   *Logout
	oauth    *OAuthCallback
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	tokens := infraauth.NewTokenIssuer([]byte("test-secret-at-least-32-bytes-long!!"), "evofit", "evofit-api")
	// small params keep test runs fast
	hasher := security.NewArgon2Hasher(security.Argon2Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
	issuer := NewIssuer(tokens, store, 15*time.Minute, 30*24*time.Hour)
	return &fixture{
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		issuer:   issuer,
		login:    NewLogin(store, hasher, issuer, lockout.NewMemoryStore(5, 60)),
		register: NewRegister(store, hasher, issuer),
		refresh:  NewRefresh(store, store, issuer),
		logout:   NewLogout(store),
		oauth:    NewOAuthCallback(store, issuer),
	}
}

func (f *fixture) mustRegister(t *testing.T, email, password, role string) *domain.User {
	t.Helper()
	res, err := f.register.Execute(context.Background(), RegisterInput{
		Email: email, Password: password, Role: role,
	})
	if err != nil {
		t.Fatalf("register %s: %v", email, err)
	}
	return res.User
}
