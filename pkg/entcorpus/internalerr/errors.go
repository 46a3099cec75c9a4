package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidInput  = errors.New("invalid input")
	ErrInvalidConfig = errors.New("invalid configuration")

	// Article-level failures. The run skips the article and keeps going.
	ErrMalformedRecord    = errors.New("malformed record")
	ErrUnresolvableEntity = errors.New("unresolvable entity")
	ErrMarkerCorruption   = errors.New("marker corruption")

	// ErrStrategyFailure is fatal for the whole run.
	ErrStrategyFailure = errors.New("segmentation strategy failure")
)
