package service

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password
	// so a caller cannot probe which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")

	ErrDuplicateEmail  = errors.New("email already registered")
	ErrEmailTaken      = errors.New("email already taken")
	ErrSameEmail       = errors.New("new email matches the current one")
	ErrNotVerified     = errors.New("account is not verified")
	ErrUserNotFound    = errors.New("user not found")
	ErrCodeMismatch    = errors.New("verification code does not match")
	ErrCodeExpired     = errors.New("verification code expired")
	ErrAlreadyVerified = errors.New("account is already verified")
	ErrForbidden       = errors.New("not enough rights")
	ErrUnknownRole     = errors.New("unknown role")
)
