package mqtt

import "errors"

var (
	// ErrConnectionFailed indicates the initial broker connection failed.
	ErrConnectionFailed = errors.New("mqtt connection failed")

	// ErrNotConnected indicates an operation attempted while disconnected.
	ErrNotConnected = errors.New("mqtt not connected")

	// ErrInvalidTopic indicates an empty or malformed topic.
	ErrInvalidTopic = errors.New("invalid mqtt topic")

	// ErrPublishFailed indicates a publish that did not complete.
	ErrPublishFailed = errors.New("mqtt publish failed")

	// ErrSubscribeFailed indicates a subscription that did not complete.
	ErrSubscribeFailed = errors.New("mqtt subscribe failed")
)
