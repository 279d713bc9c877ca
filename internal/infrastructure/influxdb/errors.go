package influxdb

import "errors"

// Sentinel errors for metrics-backend connectivity. Write failures never
// surface here; they arrive asynchronously through the SetOnError
// callback because the write API batches in the background.
var (
	// ErrNotConnected indicates the client is closed or never connected.
	ErrNotConnected = errors.New("influxdb: not connected")

	// ErrConnectionFailed indicates the initial connection attempt failed.
	ErrConnectionFailed = errors.New("influxdb: connection failed")

	// ErrDisabled indicates the metrics backend is turned off in config.
	// The service treats this as "run without metrics", not a failure.
	ErrDisabled = errors.New("influxdb: disabled in configuration")
)
