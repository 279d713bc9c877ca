package mqtt

import "fmt"

// Topic prefixes for the LAN Tuya MQTT surface.
//
// All topics use the flat scheme: lantuya/{category}/{device_id}
const (
	// TopicPrefix is the base for all service topics.
	TopicPrefix = "lantuya"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "lantuya/system"
)

// Topics provides builders for the service's MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	stateTopic := topics.DeviceState("bf1234567890abcdef")
//	// Returns: "lantuya/state/bf1234567890abcdef"
type Topics struct{}

// DeviceState returns the topic device state updates are published on.
//
// Example: lantuya/state/bf1234567890abcdef
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// DeviceCommand returns the topic commands for a device arrive on.
//
// Example: lantuya/command/bf1234567890abcdef
func (Topics) DeviceCommand(deviceID string) string {
	return fmt.Sprintf("%s/command/%s", TopicPrefix, deviceID)
}

// DeviceAvailability returns the topic a device's reachability is published
// on. Payloads are "online" or "assumed" (too many consecutive failed
// polls).
//
// Example: lantuya/availability/bf1234567890abcdef
func (Topics) DeviceAvailability(deviceID string) string {
	return fmt.Sprintf("%s/availability/%s", TopicPrefix, deviceID)
}

// Discovery returns the topic presence broadcasts are republished on.
//
// Example: lantuya/discovery
func (Topics) Discovery() string {
	return fmt.Sprintf("%s/discovery", TopicPrefix)
}

// SystemStatus returns the service status topic, used for the online
// message, graceful shutdown, and the Last Will.
//
// Example: lantuya/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllDeviceStates returns a pattern matching every device state topic.
//
// Pattern: lantuya/state/+
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// AllDeviceCommands returns a pattern matching every device command topic.
//
// Pattern: lantuya/command/+
func (Topics) AllDeviceCommands() string {
	return fmt.Sprintf("%s/command/+", TopicPrefix)
}

// AllTopics returns a pattern matching all service topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: lantuya/#
func (Topics) AllTopics() string {
	return "lantuya/#"
}

// DeviceIDFromTopic extracts the trailing device id from a per-device topic
// such as lantuya/command/<id>. It returns "" when the topic has no id
// segment.
func DeviceIDFromTopic(topic string) string {
	for i := len(topic) - 1; i >= 0; i-- {
		if topic[i] == '/' {
			return topic[i+1:]
		}
	}
	return ""
}
