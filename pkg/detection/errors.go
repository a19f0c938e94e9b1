package detection

import "errors"

// Sentinel errors for common error conditions.
var (
	// ErrEmptyFrame is returned when a request carries no usable pixels.
	ErrEmptyFrame = errors.New("detection: empty frame")

	// ErrModelNotFound is returned when a model or cascade file is missing.
	ErrModelNotFound = errors.New("detection: model file not found")

	// ErrUnknownBackend is returned for an unrecognized Config.Backend.
	ErrUnknownBackend = errors.New("detection: unknown backend")

	// ErrUnsupportedFormat is returned when a backend cannot read a frame format.
	ErrUnsupportedFormat = errors.New("detection: unsupported frame format")

	// ErrClosed is returned when submitting to a closed detector.
	ErrClosed = errors.New("detection: detector closed")

	// ErrPanic wraps a panic recovered from a backend.
	ErrPanic = errors.New("detection: backend panicked")
)
