package auth

import (
	"context"
	"regexp"
	"time"

	"github.com/google/uuid"

	"github.com/drmweyers/evofithealthprotocol-sub012/internal/application/ports"
	"github.com/drmweyers/evofithealthprotocol-sub012/internal/domain"
	domerrors "github.com/drmweyers/evofithealthprotocol-sub012/internal/domain/errors"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

type RegisterInput struct {
	Email    string
	Password string
	// Role is the requested role; only trainer and customer are honored.
	Role string
}

type RegisterResult struct {
	Tokens *TokenPair
	User   *domain.User
}

type Register struct {
	users  ports.UserRepository
	hasher ports.PasswordHasher
	issuer *Issuer
}

func NewRegister(users ports.UserRepository, hasher ports.PasswordHasher, issuer *Issuer) *Register {
	return &Register{users: users, hasher: hasher, issuer: issuer}
}

func (uc *Register) Execute(ctx context.Context, input RegisterInput) (*RegisterResult, error) {
	if !emailRegex.MatchString(input.Email) {
		return nil, domerrors.ErrInvalidCredentials
	}
	existing, err := uc.users.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, domerrors.ErrUserExists
	}
	hash, err := uc.hasher.Hash(input.Password)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	user := &domain.User{
		ID:           domain.NewUserID(uuid.New()),
		Email:        input.Email,
		PasswordHash: hash,
		Role:         domain.ParseRole(input.Role),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := uc.users.Create(ctx, user); err != nil {
		return nil, err
	}
	tokens, err := uc.issuer.Issue(ctx, user.ID, user.Role)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{Tokens: tokens, User: user}, nil
}
