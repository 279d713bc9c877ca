package bridge

import "errors"

var (
	// ErrUnknownDevice indicates a command addressed a device id that is
	// not registered with the bridge.
	ErrUnknownDevice = errors.New("bridge: unknown device")

	// ErrInvalidCommand indicates a command payload could not be parsed
	// or contained values of the wrong type.
	ErrInvalidCommand = errors.New("bridge: invalid command payload")
)
