package device

import "errors"

var (
	// ErrUnsupported indicates the device does not expose the requested
	// capability, or a payload could not be interpreted for it.
	ErrUnsupported = errors.New("device: capability not supported")

	// ErrNotReady indicates the device has no code mapping yet; a fetch or
	// an explicit code_to_name table must establish one before writes.
	ErrNotReady = errors.New("device: no attribute mapping established")

	// ErrInvalidDevice indicates a registration record missing required
	// identity fields.
	ErrInvalidDevice = errors.New("device: invalid device record")
)
