package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserID is a value object for user identity.
type UserID struct{ uuid.UUID }

// NewUserID creates a new UserID from uuid.
func NewUserID(id uuid.UUID) UserID { return UserID{UUID: id} }

// String returns the canonical string form.
func (u UserID) String() string { return u.UUID.String() }

// Role is the closed set of account roles.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleTrainer  Role = "trainer"
	RoleCustomer Role = "customer"
)

// ParseRole maps a string onto the closed role set. Unknown or empty input
// falls back to customer; admin is never assignable through parsing.
func ParseRole(s string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(s))) {
	case RoleTrainer:
		return RoleTrainer
	default:
		return RoleCustomer
	}
}

// Valid reports whether r is one of the closed set.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleTrainer, RoleCustomer:
		return true
	}
	return false
}

func (r Role) String() string { return string(r) }

// User is an identity record. PasswordHash is empty for OAuth-only accounts
// and ExternalID is empty for password-only accounts; at least one of the two
// is always set.
type User struct {
	ID              UserID
	Email           string
	PasswordHash    string
	Role            Role
	ExternalID      string // provider subject id (e.g. Google sub)
	DisplayName     string
	ProfileImageURL string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanAuthenticate reports the invariant that the user has at least one way to
// sign in.
func (u *User) CanAuthenticate() bool {
	return u.PasswordHash != "" || u.ExternalID != ""
}
