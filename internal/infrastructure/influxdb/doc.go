// Package influxdb provides InfluxDB connectivity for the LAN Tuya service.
//
// It wraps the official influxdb-client-go v2 library with service-specific
// patterns for connection management, state recording, and health monitoring.
//
// # Purpose
//
// This package handles time-series data storage for:
//   - Device attribute history (brightness, colour temperature, power)
//   - Availability transitions (online, offline, assumed)
//   - Custom measurements from other subsystems
//
// # Usage
//
//	cfg := config.InfluxDBConfig{
//	    URL:    "http://localhost:8086",
//	    Token:  "your-token",
//	    Org:    "lantuya",
//	    Bucket: "devices",
//	}
//
//	client, err := influxdb.Connect(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	// Record a polled attribute value
//	client.WriteDeviceState("bf1234567890abcdef", "brightness", 128, "poll")
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are logged via a callback.
// Connection and health check errors are returned directly.
//
// # Performance
//
// Writes are batched according to config.yaml settings (batch_size, flush_interval).
// This reduces network overhead for high-frequency polling.
package influxdb
