// Package influxdb provides InfluxDB connectivity for GridWatch Core.
//
// It wraps the official influxdb-client-go v2 library with GridWatch-specific
// patterns for connection management, metric writing, and health monitoring.
//
// # Purpose
//
// This package handles long-term time-series storage for:
//   - Electrical meter readings (voltage, power, cumulative energy)
//   - Connection traffic counters from network agents
//
// The monitor registry keeps only the most recent entries per device;
// InfluxDB, when enabled, retains the full telemetry history.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	client.WriteMeterReading("d1", reading)
//
// # Thread Safety
//
// All methods are safe for concurrent use from multiple goroutines.
// The underlying write API uses non-blocking batched writes.
//
// # Error Handling
//
// Write operations are non-blocking and batch errors are surfaced via a
// callback. Connection and health check errors are returned directly.
package influxdb
