package auth

import (
	"context"
	"time"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
)

type RefreshInput struct {
	RefreshToken string
}

type RefreshResult struct {
	Tokens *TokenPair
	User   *domain.User
}

// Refresh exchanges one valid refresh credential for a new pair, invalidating
// the old one. The single-use guarantee rests on the store's conditional
// consume: of two concurrent exchanges of the same token, exactly one
// observes the credential and wins; the loser gets ErrInvalidToken.
type Refresh struct {
	users  ports.UserRepository
	store  ports.RefreshCredentialStore
	issuer *Issuer
}

func NewRefresh(users ports.UserRepository, store ports.RefreshCredentialStore, issuer *Issuer) *Refresh {
	return &Refresh{users: users, store: store, issuer: issuer}
}

func (uc *Refresh) Execute(ctx context.Context, input RefreshInput) (*RefreshResult, error) {
	if input.RefreshToken == "" {
		return nil, domerrors.ErrInvalidToken
	}
	tokenHash := HashToken(input.RefreshToken)
	cred, err := uc.store.Get(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		return nil, domerrors.ErrInvalidToken
	}
	if cred.Expired(time.Now()) {
		// Spend it on the spot; an expired credential has no future use and
		// the caller must force a full re-login either way.
		if _, err := uc.store.ConsumeIfPresent(ctx, tokenHash); err != nil {
			return nil, err
		}
		return nil, domerrors.ErrExpiredToken
	}
	user, err := uc.users.GetByID(ctx, cred.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domerrors.ErrUserNotFound
	}
	consumed, err := uc.store.ConsumeIfPresent(ctx, tokenHash)
	if err != nil {
		return nil, err
	}
	if !consumed {
		// A concurrent rotation already spent this credential.
		return nil, domerrors.ErrInvalidToken
	}
	tokens, err := uc.issuer.Issue(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &RefreshResult{Tokens: tokens, User: user}, nil
}

// RefreshTTL exposes the issuer's refresh window for cookie lifetimes.
func (uc *Refresh) RefreshTTL() time.Duration { return uc.issuer.RefreshTTL() }
