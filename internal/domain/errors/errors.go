package errors

import "errors"

// Sentinel errors for handlers to map to HTTP status.
var (
	ErrUserExists         = errors.New("an account with this email already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidToken       = errors.New("invalid refresh token")
	ErrExpiredToken       = errors.New("refresh token expired")
	ErrMissingEmail       = errors.New("oauth provider supplied no email")
	ErrForbidden          = errors.New("role not permitted for this resource")
	ErrAccountLocked      = errors.New("account temporarily locked")
)
