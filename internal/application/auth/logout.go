package auth

import (
	"context"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
)

// Logout invalidates refresh credentials server-side. Logging out with an
// already-spent token is not an error; the end state is the same.
type Logout struct {
	store ports.RefreshCredentialStore
}

func NewLogout(store ports.RefreshCredentialStore) *Logout {
	return &Logout{store: store}
}

// Execute deletes the session behind one raw refresh token.
func (uc *Logout) Execute(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	_, err := uc.store.ConsumeIfPresent(ctx, HashToken(refreshToken))
	return err
}

// ExecuteAll revokes every session the user holds, across devices.
func (uc *Logout) ExecuteAll(ctx context.Context, userID domain.UserID) error {
	return uc.store.DeleteAllForUser(ctx, userID)
}
