// Package bridge connects the LAN device stack to MQTT.
//
// It owns the running set of devices and wires together the pieces that
// keep them live:
//   - Discovery announcements bind addresses to registered devices
//   - The poller refreshes device state on a fixed interval
//   - State changes are published to per-device MQTT topics and recorded
//     in history storage
//   - Commands arriving over MQTT are translated and sent to devices
//
// # Topics
//
// The bridge publishes and subscribes under the "lantuya" prefix:
//
//	lantuya/state/<device_id>         retained JSON state (publish)
//	lantuya/availability/<device_id>  "online" / "assumed" / "offline" (publish)
//	lantuya/discovery                 raw discovery announcements (publish)
//	lantuya/command/<device_id>       JSON command objects (subscribe)
//
// Command payloads map generic attribute names to desired values:
//
//	{"power": true, "brightness": 80}
//	{"color": {"h": 120, "s": 100, "v": 255}}
//
// # Optional collaborators
//
// MQTT, state history, metrics, and the ARP table are all optional. A
// bridge with none of them still polls devices and keeps their in-memory
// state fresh, which is useful for tests and headless tooling.
//
// # Thread Safety
//
// All methods are safe for concurrent use. Poll callbacks, discovery
// callbacks, and MQTT handlers arrive on separate goroutines and share
// state through the bridge's internal locks.
package bridge
