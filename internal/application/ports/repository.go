package ports

import (
	"context"
	"time"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

// UserRepository defines persistence for identity records. Lookups return
// (nil, nil) when no record matches.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, userID domain.UserID) (*domain.User, error)
	GetByExternalID(ctx context.Context, externalID string) (*domain.User, error)
	// LinkExternalID attaches a provider subject id to an existing account.
	LinkExternalID(ctx context.Context, userID domain.UserID, externalID string) error
	UpdateProfile(ctx context.Context, userID domain.UserID, displayName, profileImageURL string) error
	UpdatePassword(ctx context.Context, userID domain.UserID, passwordHash string) error
	List(ctx context.Context, limit, offset int) ([]*domain.User, error)
}

// RefreshCredentialStore defines storage for refresh credentials (Postgres or
// Redis). Credentials are keyed by the SHA-256 hash of the raw token.
type RefreshCredentialStore interface {
	Store(ctx context.Context, userID domain.UserID, tokenHash string, issuedAt, expiresAt time.Time) error
	// Get returns (nil, nil) when no credential matches the hash.
	Get(ctx context.Context, tokenHash string) (*domain.RefreshCredential, error)
	// ConsumeIfPresent deletes the credential and reports whether it was still
	// there. Exactly one of N concurrent callers for the same hash observes
	// true; rotation relies on this, not on application-level locking.
	ConsumeIfPresent(ctx context.Context, tokenHash string) (bool, error)
	DeleteAllForUser(ctx context.Context, userID domain.UserID) error
	// PurgeExpired drops credentials past their expiry and reports how many
	// went. Rotation consumes an expired credential when it sees one; the
	// purge catches the ones never presented again.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}

// TrainerLinkStore answers the trainer-to-customer ownership question layered
// on top of the role gate.
type TrainerLinkStore interface {
	Linked(ctx context.Context, trainerID, customerID domain.UserID) (bool, error)
	ListCustomerIDs(ctx context.Context, trainerID domain.UserID) ([]domain.UserID, error)
}
