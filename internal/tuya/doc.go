// Package tuya implements the Tuya LAN wire protocol.
//
// This package provides the binary frame codec and the one-shot control
// channel used to talk to Tuya devices on the local network, without any
// cloud round-trip.
//
// # Architecture
//
// The package sits between the device model and the network:
//
//	┌─────────────────┐          ┌─────────────────┐
//	│  Device Model   │  frames  │  tuya (this     │   TCP 6668
//	│ internal/device │◄────────►│  package)       │◄──────────► Device
//	└─────────────────┘          └─────────────────┘
//
// # Key Responsibilities
//
//   - Pack and unpack the 0x000055AA / 0x0000AA55 framed messages with CRC32
//   - Build per-command JSON payloads from a descriptor table
//   - Apply per-generation encryption and signing ("3.1" vs "3.3")
//   - Perform exactly one request/response exchange per TCP connection
//
// # Protocol Generations
//
// Two incompatible wire generations exist and are selected by the device's
// reported version string:
//
//   - "3.1": payloads are plain JSON except for CONTROL, which is AES-128-ECB
//     encrypted, base64 encoded, and prefixed with a truncated MD5 signature.
//   - "3.3": payloads are always AES-128-ECB encrypted (no base64) and carry a
//     16-byte version header except on DP_QUERY and UPDATEDPS.
//
// # Thread Safety
//
// Client is safe for concurrent use. The sequence counter shared by all
// in-flight exchanges is atomic and strictly monotonic.
package tuya
