package domain

import (
	"strings"
	"time"
)

// RefreshCredential is one logical session's renewable proof. Only the
// SHA-256 hash of the raw token is ever stored; the raw value lives in the
// client's HTTP-only cookie.
type RefreshCredential struct {
	TokenHash string
	UserID    UserID
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// Expired reports whether the credential is past its expiry at the given time.
func (c *RefreshCredential) Expired(now time.Time) bool {
	return now.After(c.ExpiresAt)
}

// ExternalProfile is the provider profile as validated at the OAuth boundary.
// Downstream linkage logic relies on this shape and never re-checks it.
type ExternalProfile struct {
	Provider    string
	SubjectID   string
	Email       string // required join key; empty means the provider gave none
	DisplayName string
	PhotoURL    string
}

// FallbackDisplayName returns the profile display name, defaulting to the
// local part of the email when the provider supplies none.
func (p ExternalProfile) FallbackDisplayName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	if i := strings.IndexByte(p.Email, '@'); i > 0 {
		return p.Email[:i]
	}
	return p.Email
}
