// Package common defines shared constants and sentinel errors used across
// the blog API layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Request validation errors.
	ErrorValidation = errors.New("validation error")

	// Rate limiting.
	ErrorRateLimited = errors.New("rate limited")

	// Upload validation (claimed type or extension outside the allow-list,
	// or the two disagree).
	ErrorUnsupportedMedia = errors.New("unsupported media type")
)
