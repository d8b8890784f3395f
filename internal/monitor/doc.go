// Package monitor tracks the fleet of reporting devices: network agents and
// smart-meter simulators that push telemetry over the API.
//
// The Registry is the single authority over fleet state. Each device record
// owns capped logs of its most recent connections and meter readings;
// appends beyond the retention cap drop the oldest entries. Registration
// recovers identity through the device name when a device returns with a
// fresh ID, and dashboard views merge all records sharing a device name into
// one logical device.
//
// Availability is derived at read time: a device silent for longer than the
// configured staleness window reads as offline regardless of what it last
// reported. Fleet state is deliberately in-memory; it is telemetry, not a
// system of record.
package monitor
