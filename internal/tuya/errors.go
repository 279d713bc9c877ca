package tuya

import "errors"

// Domain errors for the tuya protocol package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, tuya.ErrConnection) {
//	    // peer unreachable, reset, or timed out
//	}
var (
	// ErrConnection is returned when the device is unreachable, resets the
	// connection, or the exchange times out.
	ErrConnection = errors.New("tuya: connection failed")

	// ErrProtocol is returned when a frame is malformed, a payload cannot be
	// decrypted, or a reply has an unexpected shape.
	ErrProtocol = errors.New("tuya: protocol error")

	// ErrBadVersion is returned when a device reports a protocol version this
	// package does not speak.
	ErrBadVersion = errors.New("tuya: unsupported protocol version")

	// ErrBadKey is returned when a local key has the wrong length for AES-128.
	ErrBadKey = errors.New("tuya: invalid local key")

	// ErrUnknownCommand is returned when a command code has no descriptor.
	ErrUnknownCommand = errors.New("tuya: unknown command")
)
