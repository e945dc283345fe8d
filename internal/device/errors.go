package device

import "errors"

var (
	// ErrUnknownChannel indicates a channel name outside the fixed channel set.
	ErrUnknownChannel = errors.New("unknown actuator channel")

	// ErrInvalidValue indicates a value outside the channel's valid range.
	ErrInvalidValue = errors.New("invalid channel value")

	// ErrBackendUnavailable indicates the capability backend could not be
	// initialised (adaptor connect or driver start failed).
	ErrBackendUnavailable = errors.New("device backend unavailable")

	// ErrClosed indicates an operation on a closed controller or backend.
	ErrClosed = errors.New("device closed")
)
