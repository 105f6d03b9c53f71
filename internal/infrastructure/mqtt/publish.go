package mqtt

import (
	"fmt"
)

// maxPayloadSize bounds outbound payloads at 1MB, in line with common
// broker limits. Recommendation events and execution plans sit far
// below this.
const maxPayloadSize = 1 << 20

// Publish sends one message and waits for broker acknowledgment.
//
// Hearth publishes three kinds of traffic: execution-plan dispatches
// (QoS 1, not retained), engine events for the WebSocket relay (QoS 0,
// not retained), and the presence status (retained, handled by the
// client itself).
//
// Parameters:
//   - topic: Destination topic, usually from a Topics builder
//   - payload: Message body, JSON, at most 1MB
//   - qos: Delivery guarantee, 0..2
//   - retained: Whether late subscribers should see this message
//
// Returns:
//   - error: ErrInvalidTopic, ErrInvalidQoS, ErrNotConnected, or
//     ErrPublishFailed wrapping the broker error or timeout
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}
	if !c.IsConnected() {
		return ErrNotConnected
	}

	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}
	return nil
}
