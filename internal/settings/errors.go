package settings

import "errors"

var (
	// ErrUnknownNamespace indicates a namespace outside the fixed set.
	ErrUnknownNamespace = errors.New("unknown settings namespace")

	// ErrInvalidSetting indicates a recognised key carrying an invalid value.
	// The whole update is rejected; no key is mutated.
	ErrInvalidSetting = errors.New("invalid setting value")
)
