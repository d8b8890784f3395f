// Package ingest feeds broker-published telemetry into the monitor registry.
//
// Devices in broker-backed deployments publish meter readings, connection
// events, and status changes to gridwatch/telemetry/... topics instead of
// the HTTP API. The ingest service subscribes to those topics and applies
// each message through the same registry operations the HTTP handlers use,
// so both transports produce identical fleet state.
//
// Messages carrying a deviceName auto-register unknown devices, mirroring
// the HTTP registration flow for agents provisioned broker-first.
package ingest
