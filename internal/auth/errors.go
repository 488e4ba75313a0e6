package auth

import "errors"

var (
	ErrNotFound        = errors.New("auth: not found")
	ErrConflict        = errors.New("auth: already exists")
	ErrInvalidInput    = errors.New("auth: invalid input")
	ErrUnauthenticated = errors.New("auth: authentication required")
	ErrForbidden       = errors.New("auth: not permitted")

	// ErrInvalidToken covers malformed, forged, revoked and superseded tokens.
	ErrInvalidToken = errors.New("auth: invalid token")
	// ErrTokenExpired is returned for a well-formed access token past its expiry.
	ErrTokenExpired = errors.New("auth: token expired")
)
