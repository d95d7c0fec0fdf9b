// Package common defines shared constants and sentinel errors used across
// the drawkeeper server and CLI. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrVersionConflict = errors.New("version conflict")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Validation errors (bad file type, size, missing fields).
	ErrValidation = errors.New("validation error")

	// ErrUpstream marks a failure of the external translation service while
	// reconciling a drawing.
	ErrUpstream = errors.New("upstream error")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)
