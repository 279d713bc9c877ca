package mqtt

import (
	"context"
	"errors"
	"testing"
)

// =============================================================================
// Validation Tests (no broker required)
// =============================================================================

// Argument validation runs before any broker traffic, so a zero Client is
// enough to exercise it.
func TestPublishValidation(t *testing.T) {
	noopHandler := func(string, []byte) error { return nil }
	client := &Client{}

	tests := []struct {
		name string
		call func() error
		want error
	}{
		{
			name: "publish empty topic",
			call: func() error { return client.Publish("", []byte(`{"power":true}`), 1, false) },
			want: ErrInvalidTopic,
		},
		{
			name: "publish QoS above 2",
			call: func() error { return client.Publish("lantuya/state/dev-1", nil, 3, false) },
			want: ErrInvalidQoS,
		},
		{
			name: "publish while disconnected",
			call: func() error { return client.Publish("lantuya/state/dev-1", nil, 1, true) },
			want: ErrNotConnected,
		},
		{
			name: "subscribe empty topic",
			call: func() error { return client.Subscribe("", 1, noopHandler) },
			want: ErrInvalidTopic,
		},
		{
			name: "subscribe QoS above 2",
			call: func() error { return client.Subscribe("lantuya/command/+", 3, noopHandler) },
			want: ErrInvalidQoS,
		},
		{
			name: "subscribe nil handler",
			call: func() error { return client.Subscribe("lantuya/command/+", 1, nil) },
			want: ErrSubscribeFailed,
		},
		{
			name: "unsubscribe empty topic",
			call: func() error { return client.Unsubscribe("") },
			want: ErrInvalidTopic,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestZeroClientLifecycle(t *testing.T) {
	client := &Client{}

	if client.IsConnected() {
		t.Error("IsConnected() = true for a client that never connected")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close() on unconnected client error = %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client := &Client{}

	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() error = %v, want ErrNotConnected", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := client.HealthCheck(ctx); err == nil {
		t.Error("HealthCheck() with cancelled context returned nil")
	}
}

// =============================================================================
// Topics Tests
// =============================================================================

func TestTopicBuilders(t *testing.T) {
	tests := []struct {
		name     string
		builder  func() string
		expected string
	}{
		{
			name: "DeviceState",
			builder: func() string {
				return Topics{}.DeviceState("bf1234567890abcdef")
			},
			expected: "lantuya/state/bf1234567890abcdef",
		},
		{
			name: "DeviceCommand",
			builder: func() string {
				return Topics{}.DeviceCommand("bf1234567890abcdef")
			},
			expected: "lantuya/command/bf1234567890abcdef",
		},
		{
			name: "DeviceAvailability",
			builder: func() string {
				return Topics{}.DeviceAvailability("bf1234567890abcdef")
			},
			expected: "lantuya/availability/bf1234567890abcdef",
		},
		{
			name: "Discovery",
			builder: func() string {
				return Topics{}.Discovery()
			},
			expected: "lantuya/discovery",
		},
		{
			name: "SystemStatus",
			builder: func() string {
				return Topics{}.SystemStatus()
			},
			expected: "lantuya/system/status",
		},
		{
			name: "AllDeviceStates",
			builder: func() string {
				return Topics{}.AllDeviceStates()
			},
			expected: "lantuya/state/+",
		},
		{
			name: "AllDeviceCommands",
			builder: func() string {
				return Topics{}.AllDeviceCommands()
			},
			expected: "lantuya/command/+",
		},
		{
			name: "AllTopics",
			builder: func() string {
				return Topics{}.AllTopics()
			},
			expected: "lantuya/#",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.builder()
			if result != tt.expected {
				t.Errorf("%s() = %q, want %q", tt.name, result, tt.expected)
			}
		})
	}
}

func TestDeviceIDFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"lantuya/command/bf1234567890abcdef", "bf1234567890abcdef"},
		{"lantuya/state/dev-1", "dev-1"},
		{"lantuya/discovery", "discovery"},
		{"noslash", ""},
	}
	for _, tt := range tests {
		if got := DeviceIDFromTopic(tt.topic); got != tt.want {
			t.Errorf("DeviceIDFromTopic(%q) = %q, want %q", tt.topic, got, tt.want)
		}
	}
}
