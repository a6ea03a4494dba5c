package common

import "errors"

var (
	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors. The expiry is detected locally from the
	// token's exp claim, never reported by the server.
	ErrSessionExpired = errors.New("session expired")
)
