// Package common defines shared constants and sentinel errors used across
// the cartkeeper server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// ErrorStaleRefreshToken is returned when a compare-and-swap rotation finds
	// a different refresh token on file than the one presented.
	ErrorStaleRefreshToken = errors.New("stale refresh token")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired = errors.New("token expired")
)
