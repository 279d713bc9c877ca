package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// WriteDeviceState writes a single device attribute reading to InfluxDB.
//
// This is the primary method for recording device state over time.
// The write is non-blocking; data is batched and sent asynchronously.
//
// Parameters:
//   - deviceID: Unique identifier for the device (e.g., "bf1234567890abcdef")
//   - attribute: The generic attribute name (e.g., "brightness", "color_temp")
//   - value: The numeric value to record
//   - source: What produced the reading ("poll" or "command")
//
// Example:
//
//	client.WriteDeviceState("bf1234567890abcdef", "brightness", 128, "poll")
func (c *Client) WriteDeviceState(deviceID string, attribute string, value float64, source string) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"device_state",
		map[string]string{
			"device_id": deviceID,
			"attribute": attribute,
			"source":    source,
		},
		map[string]interface{}{
			"value": value,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

// WriteAvailability records a device availability transition.
//
// Used for tracking how often devices drop off the network and how
// long they stay reachable.
//
// Parameters:
//   - deviceID: Device identifier
//   - online: Whether the device is currently reachable
//   - assumed: Whether the reported state is assumed rather than confirmed
func (c *Client) WriteAvailability(deviceID string, online bool, assumed bool) {
	if !c.IsConnected() {
		return
	}

	point := write.NewPoint(
		"availability",
		map[string]string{
			"device_id": deviceID,
		},
		map[string]interface{}{
			"online":  online,
			"assumed": assumed,
		},
		time.Now(),
	)

	c.writeAPI.WritePoint(point)
}

