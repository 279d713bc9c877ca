// Package device implements the protocol-agnostic device model for Tuya LAN
// devices.
//
// A Device wraps one registration record (DeviceData) and presents typed,
// unit-normalised getters and command builders for power, brightness, colour,
// colour temperature, and work mode, hiding the raw versioned data-point
// codes the wire protocol speaks.
//
// # Responsibilities
//
//   - Bind discovery results (ip + protocol generation) to device records
//   - Resolve which attribute code serves each capability, deterministically
//   - Scale values between generic and protocol-native unit ranges
//   - Fetch state over the control channel, tracking consecutive failures
//     for the assumed-state heuristic
//   - Translate attribute names to data-point codes and push writes with
//     bounded retry
//
// # Unit Translation
//
// All range and category mappings live in a Translation value constructed
// once at startup and passed to every Device. There is no package-level
// mutable configuration.
//
// # Thread Safety
//
// A Device serialises its own fetch and set calls internally; distinct
// devices are fully independent.
package device
