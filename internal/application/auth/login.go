package auth

import (
	"context"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
)

type LoginInput struct {
	Email    string
	Password string
}

type LoginResult struct {
	Tokens *TokenPair
	User   *domain.User
}

type Login struct {
	users   ports.UserRepository
	hasher  ports.PasswordHasher
	issuer  *Issuer
	lockout ports.LoginLockoutStore
}

func NewLogin(users ports.UserRepository, hasher ports.PasswordHasher, issuer *Issuer, lockout ports.LoginLockoutStore) *Login {
	return &Login{users: users, hasher: hasher, issuer: issuer, lockout: lockout}
}

func (uc *Login) Execute(ctx context.Context, input LoginInput) (*LoginResult, error) {
	if uc.lockout != nil {
		if locked, _ := uc.lockout.IsLocked(ctx, input.Email); locked {
			return nil, domerrors.ErrAccountLocked
		}
	}
	user, err := uc.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	// OAuth-only accounts have no password hash and cannot pass this check.
	if user == nil || user.PasswordHash == "" || !uc.hasher.Verify(input.Password, user.PasswordHash) {
		if uc.lockout != nil {
			uc.lockout.RecordFailure(ctx, input.Email)
		}
		return nil, domerrors.ErrInvalidCredentials
	}
	if uc.lockout != nil {
		uc.lockout.RecordSuccess(ctx, input.Email)
	}
	tokens, err := uc.issuer.Issue(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Tokens: tokens, User: user}, nil
}
