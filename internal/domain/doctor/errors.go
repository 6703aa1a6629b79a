package doctor

import "errors"

// Typed failures returned by the profile service. Handlers map these to HTTP
// status codes; anything else is treated as an internal error.
var (
	// ErrNotFound signals a missing doctor profile.
	ErrNotFound = errors.New("doctor profile not found")

	// ErrInvalidInput signals a profile write rejected by validation.
	ErrInvalidInput = errors.New("invalid doctor profile")
)
