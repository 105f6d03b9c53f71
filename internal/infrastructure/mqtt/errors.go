package mqtt

import "errors"

// Sentinel errors, matchable with errors.Is.
var (
	// ErrNotConnected is returned when a publish or subscribe is
	// attempted before the broker connection is up (or after it dropped
	// and auto-reconnect has not caught up yet).
	ErrNotConnected = errors.New("mqtt: not connected to broker")

	// ErrConnectionFailed wraps failures of the initial connect.
	ErrConnectionFailed = errors.New("mqtt: connection failed")

	// ErrPublishFailed wraps broker-side or timeout failures of Publish.
	ErrPublishFailed = errors.New("mqtt: publish failed")

	// ErrSubscribeFailed wraps broker-side or timeout failures of Subscribe.
	ErrSubscribeFailed = errors.New("mqtt: subscribe failed")

	// ErrInvalidQoS marks a QoS level outside 0..2.
	ErrInvalidQoS = errors.New("mqtt: invalid QoS level")

	// ErrInvalidTopic marks an empty topic.
	ErrInvalidTopic = errors.New("mqtt: invalid topic")
)
