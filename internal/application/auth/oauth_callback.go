package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
)

type OAuthCallbackResult struct {
	Tokens *TokenPair
	User   *domain.User
}

// OAuthCallback resolves an external provider profile to a local user and
// issues tokens. The decision order is fixed and each branch is terminal:
// linked external id, then email match, then create.
type OAuthCallback struct {
	users  ports.UserRepository
	issuer *Issuer
}

func NewOAuthCallback(users ports.UserRepository, issuer *Issuer) *OAuthCallback {
	return &OAuthCallback{users: users, issuer: issuer}
}

// Execute resolves the profile and hands off to the issuer. intendedRole is
// the role captured before the provider redirect, if any; it only applies
// when a brand-new account is created.
func (uc *OAuthCallback) Execute(ctx context.Context, profile domain.ExternalProfile, intendedRole string) (*OAuthCallbackResult, error) {
	if profile.Email == "" {
		// Email is the join key for the remaining branches; without it no
		// linkage decision can be made and no user is created.
		return nil, domerrors.ErrMissingEmail
	}

	// 1. External id already linked: use the account as-is, no write.
	user, err := uc.users.GetByExternalID(ctx, profile.SubjectID)
	if err != nil {
		return nil, err
	}
	if user != nil {
		return uc.issueFor(ctx, user)
	}

	// 2. Email matches an existing local account: link the external id onto
	// it, preserving its role. No duplicate account.
	user, err = uc.users.GetByEmail(ctx, profile.Email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		if err := uc.users.LinkExternalID(ctx, user.ID, profile.SubjectID); err != nil {
			return nil, err
		}
		user.ExternalID = profile.SubjectID
		return uc.issueFor(ctx, user)
	}

	// 3. No match: create a new OAuth-only account.
	now := time.Now()
	user = &domain.User{
		ID:              domain.NewUserID(uuid.New()),
		Email:           profile.Email,
		Role:            domain.ParseRole(intendedRole),
		ExternalID:      profile.SubjectID,
		DisplayName:     profile.FallbackDisplayName(),
		ProfileImageURL: profile.PhotoURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return uc.issueFor(ctx, user)
}

func (uc *OAuthCallback) issueFor(ctx context.Context, user *domain.User) (*OAuthCallbackResult, error) {
	tokens, err := uc.issuer.Issue(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &OAuthCallbackResult{Tokens: tokens, User: user}, nil
}
