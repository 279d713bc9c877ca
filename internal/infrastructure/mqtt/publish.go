package mqtt

import (
	"fmt"
)

// maxPayloadSize caps outgoing messages at 1MB. State and availability
// payloads are a few hundred bytes; anything near this limit is a bug
// upstream, and most brokers reject larger messages anyway.
const maxPayloadSize = 1 << 20

// Publish sends a message to the broker and waits for acknowledgment.
//
// The bridge publishes three kinds of messages through this: retained
// device state on lantuya/state/<id>, retained availability on
// lantuya/availability/<id>, and discovery announcements on
// lantuya/discovery. Retained messages let a consumer that connects later
// see the last known state without waiting for the next poll sweep.
//
// QoS 0 is fire and forget, 1 guarantees delivery but may duplicate,
// 2 guarantees exactly-once at higher cost. Values above 2 are rejected
// with ErrInvalidQoS.
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
