package token

import "errors"

var (
	ErrMissingSigningKey = errors.New("token signing key is required")
	ErrInvalidToken      = errors.New("invalid or expired token")
)
