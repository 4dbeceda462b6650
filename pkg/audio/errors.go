package audio

import "errors"

// Common errors for the audio engine.
var (
	// Output errors
	ErrBackendUnavailable = errors.New("audio backend is not available")
	ErrBackendNotReady    = errors.New("audio backend is not ready")
	ErrUnknownBackend     = errors.New("unknown audio backend")

	// Clip errors
	ErrEmptyClip         = errors.New("clip payload is empty")
	ErrUnsupportedFormat = errors.New("unsupported clip format")
	ErrMalformedClip     = errors.New("malformed clip payload")
	ErrClipNotFound      = errors.New("clip not found")

	// Player errors
	ErrPlayerStopped = errors.New("clip player was stopped")
)
