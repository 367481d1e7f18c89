package core

import "errors"

var (
	// ErrMalformedEvent marks a login event whose details cannot be evaluated.
	ErrMalformedEvent = errors.New("malformed event")
	// ErrUnknownUser marks an event for a user with no behavior profile.
	ErrUnknownUser = errors.New("unknown user")
	// ErrInvalidEvent is returned when an externally supplied event lacks required fields.
	ErrInvalidEvent = errors.New("invalid event")
)
