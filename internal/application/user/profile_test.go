package user

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/persistence/memory"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/infrastructure/security"
)

func testHasher() *security.Argon2Hasher {
	return security.NewArgon2Hasher(security.Argon2Params{
		Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
	})
}

func seedUser(t *testing.T, store *memory.Store, email, password string) *domain.User {
	t.Helper()
	u := &domain.User{
		ID:        domain.NewUserID(uuid.New()),
		Email:     email,
		Role:      domain.RoleCustomer,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if password != "" {
		hash, err := testHasher().Hash(password)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		u.PasswordHash = hash
	} else {
		u.ExternalID = "sub-" + email
	}
	if err := store.Create(context.Background(), u); err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	return u
}

func TestUpdateProfile(t *testing.T) {
	store := memory.NewStore()
	u := seedUser(t, store, "p@example.com", "old password 123")
	uc := NewUpdateProfile(store)

	got, err := uc.Execute(context.Background(), UpdateProfileInput{
		UserID:          u.ID,
		DisplayName:     "Pat",
		ProfileImageURL: "https://img.example.com/pat.png",
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.DisplayName != "Pat" || got.ProfileImageURL != "https://img.example.com/pat.png" {
		t.Errorf("returned user not updated: %+v", got)
	}

	stored, err := store.GetByID(context.Background(), u.ID)
	if err != nil || stored == nil {
		t.Fatalf("reload: user=%v err=%v", stored, err)
	}
	if stored.DisplayName != "Pat" {
		t.Errorf("stored display name = %q", stored.DisplayName)
	}
}

func TestUpdateProfileUnknownUser(t *testing.T) {
	uc := NewUpdateProfile(memory.NewStore())
	_, err := uc.Execute(context.Background(), UpdateProfileInput{
		UserID:      domain.NewUserID(uuid.New()),
		DisplayName: "Nobody",
	})
	if !errors.Is(err, domerrors.ErrUserNotFound) {
		t.Fatalf("err = %v, want ErrUserNotFound", err)
	}
}

func TestChangePassword(t *testing.T) {
	store := memory.NewStore()
	hasher := testHasher()
	u := seedUser(t, store, "c@example.com", "old password 123")
	uc := NewChangePassword(store, hasher)

	err := uc.Execute(context.Background(), ChangePasswordInput{
		UserID:          u.ID,
		CurrentPassword: "old password 123",
		NewPassword:     "new password 456",
	})
	if err != nil {
		t.Fatalf("change: %v", err)
	}

	stored, _ := store.GetByID(context.Background(), u.ID)
	if !hasher.Verify("new password 456", stored.PasswordHash) {
		t.Error("new password does not verify")
	}
	if hasher.Verify("old password 123", stored.PasswordHash) {
		t.Error("old password still verifies")
	}
}

func TestChangePasswordWrongCurrent(t *testing.T) {
	store := memory.NewStore()
	u := seedUser(t, store, "w@example.com", "old password 123")
	uc := NewChangePassword(store, testHasher())

	err := uc.Execute(context.Background(), ChangePasswordInput{
		UserID:          u.ID,
		CurrentPassword: "not the password",
		NewPassword:     "new password 456",
	})
	if !errors.Is(err, domerrors.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestChangePasswordOAuthOnlyFirstPassword(t *testing.T) {
	store := memory.NewStore()
	hasher := testHasher()
	u := seedUser(t, store, "oauth@example.com", "")
	uc := NewChangePassword(store, hasher)

	// No current password exists, so none is required.
	err := uc.Execute(context.Background(), ChangePasswordInput{
		UserID:      u.ID,
		NewPassword: "first password 789",
	})
	if err != nil {
		t.Fatalf("first password: %v", err)
	}

	stored, _ := store.GetByID(context.Background(), u.ID)
	if !hasher.Verify("first password 789", stored.PasswordHash) {
		t.Error("first password does not verify")
	}
	// From now on the current password is enforced.
	err = uc.Execute(context.Background(), ChangePasswordInput{
		UserID:      u.ID,
		NewPassword: "another password",
	})
	if !errors.Is(err, domerrors.ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials once a password is set", err)
	}
}
