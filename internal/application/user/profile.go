package user

import (
	"context"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
)

type UpdateProfileInput struct {
	UserID          domain.UserID
	DisplayName     string
	ProfileImageURL string
}

// UpdateProfile mutates the display fields of an identity record.
type UpdateProfile struct {
	users ports.UserRepository
}

func NewUpdateProfile(users ports.UserRepository) *UpdateProfile {
	return &UpdateProfile{users: users}
}

func (uc *UpdateProfile) Execute(ctx context.Context, input UpdateProfileInput) (*domain.User, error) {
	existing, err := uc.users.GetByID(ctx, input.UserID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, domerrors.ErrUserNotFound
	}
	if err := uc.users.UpdateProfile(ctx, input.UserID, input.DisplayName, input.ProfileImageURL); err != nil {
		return nil, err
	}
	existing.DisplayName = input.DisplayName
	existing.ProfileImageURL = input.ProfileImageURL
	return existing, nil
}

type ChangePasswordInput struct {
	UserID          domain.UserID
	CurrentPassword string
	NewPassword     string
}

// ChangePassword sets a new password hash after verifying the current one.
// Revoking other sessions is the caller's decision.
type ChangePassword struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
}

func NewChangePassword(users ports.UserRepository, hasher ports.PasswordHasher) *ChangePassword {
	return &ChangePassword{users: users, hasher: hasher}
}

func (uc *ChangePassword) Execute(ctx context.Context, input ChangePasswordInput) error {
	existing, err := uc.users.GetByID(ctx, input.UserID)
	if err != nil {
		return err
	}
	if existing == nil {
		return domerrors.ErrUserNotFound
	}
	// OAuth-only accounts may set a first password without a current one.
	if existing.PasswordHash != "" && !uc.hasher.Verify(input.CurrentPassword, existing.PasswordHash) {
		return domerrors.ErrInvalidCredentials
	}
	hash, err := uc.hasher.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	return uc.users.UpdatePassword(ctx, input.UserID, hash)
}
