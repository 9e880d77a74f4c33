package models

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrMalformedEnvelope = errors.New("malformed envelope")
	// ErrPublishFailure means the mutation was applied but its event was not emitted
	ErrPublishFailure = errors.New("event publish failed")
)
