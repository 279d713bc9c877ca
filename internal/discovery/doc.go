// Package discovery implements passive UDP presence discovery of Tuya
// devices.
//
// Devices announce themselves on the local network every few seconds. Two
// incompatible broadcast variants exist, one per protocol generation:
//
//   - port 6666 ("3.1"): the datagram body is plain UTF-8 JSON
//   - port 6667 ("3.3"): the body is AES-128-ECB encrypted with a fixed,
//     protocol-defined key shared by all devices of that generation (the MD5
//     digest of a constant passphrase), not the per-device local key
//
// Both variants wrap the body in a 20-byte header and an 8-byte footer that
// are stripped before decoding.
//
// # Delivery Model
//
// The Scanner maintains a registry of subscribers. Adding the first
// subscriber lazily binds both sockets; removing the last closes them.
// Announcements are de-duplicated on the full ScanResult tuple and fanned out
// to each subscriber over its own buffered channel drained by its own
// goroutine, so a slow or panicking consumer can never stall the socket read
// loop or starve other consumers.
//
// # Thread Safety
//
// All exported methods are safe for concurrent use.
package discovery
