package domain

import "errors"

// Domain errors represent terminal failure classes; transient external
// failures are retried internally and never cross component boundaries.
var (
	// ErrInvalidConfig indicates invalid construction parameters,
	// e.g. a chunk overlap that is not smaller than the chunk size.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNotFound indicates a required persisted artifact is missing.
	ErrNotFound = errors.New("not found")

	// ErrRateLimited indicates the external API rejected a call with a
	// quota signal (HTTP 429).
	ErrRateLimited = errors.New("rate limited")

	// ErrOverloaded indicates the external API is temporarily overloaded
	// (HTTP 503 or an overload indicator in the response).
	ErrOverloaded = errors.New("service overloaded")
)
