package mqtt

import (
	"fmt"
	"strings"
)

// Topic prefixes for the GridWatch MQTT namespace.
//
// Telemetry topics carry the reporting device's ID as the last segment:
// gridwatch/telemetry/{kind}/{device_id}
const (
	// TopicPrefixTelemetry is the base for device telemetry topics.
	TopicPrefixTelemetry = "gridwatch/telemetry"

	// TopicPrefixSystem is the base for service lifecycle topics.
	TopicPrefixSystem = "gridwatch/system"

	// TopicPrefixEvents is the base for server-published event mirrors.
	// Telemetry accepted over HTTP is republished here so broker-attached
	// consumers see the full stream regardless of the transport devices use.
	// Distinct from the telemetry namespace so the mirror is never
	// re-ingested.
	TopicPrefixEvents = "gridwatch/events"
)

// Topics provides builders for GridWatch MQTT topics. Using these helpers
// keeps topic naming consistent between the ingest service and the devices
// that publish to it.
type Topics struct{}

// TelemetryMeter returns the topic a device publishes meter readings on.
//
// Example: gridwatch/telemetry/meter/d1
func (Topics) TelemetryMeter(deviceID string) string {
	return fmt.Sprintf("%s/meter/%s", TopicPrefixTelemetry, deviceID)
}

// TelemetryConnection returns the topic a device publishes connection
// events on.
//
// Example: gridwatch/telemetry/connection/d1
func (Topics) TelemetryConnection(deviceID string) string {
	return fmt.Sprintf("%s/connection/%s", TopicPrefixTelemetry, deviceID)
}

// TelemetryStatus returns the topic a device publishes status changes on.
//
// Example: gridwatch/telemetry/status/d1
func (Topics) TelemetryStatus(deviceID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixTelemetry, deviceID)
}

// SystemStatus returns the service status topic carrying the retained
// online/offline payload and the LWT.
//
// Example: gridwatch/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllMeterTelemetry returns a pattern matching meter readings from any device.
//
// Pattern: gridwatch/telemetry/meter/+
func (Topics) AllMeterTelemetry() string {
	return fmt.Sprintf("%s/meter/+", TopicPrefixTelemetry)
}

// AllConnectionTelemetry returns a pattern matching connection events from
// any device.
//
// Pattern: gridwatch/telemetry/connection/+
func (Topics) AllConnectionTelemetry() string {
	return fmt.Sprintf("%s/connection/+", TopicPrefixTelemetry)
}

// AllStatusTelemetry returns a pattern matching status changes from any device.
//
// Pattern: gridwatch/telemetry/status/+
func (Topics) AllStatusTelemetry() string {
	return fmt.Sprintf("%s/status/+", TopicPrefixTelemetry)
}

// EventMeter returns the topic the server mirrors accepted meter readings on.
//
// Example: gridwatch/events/meter/d1
func (Topics) EventMeter(deviceID string) string {
	return fmt.Sprintf("%s/meter/%s", TopicPrefixEvents, deviceID)
}

// EventConnection returns the topic the server mirrors accepted connection
// events on.
//
// Example: gridwatch/events/connection/d1
func (Topics) EventConnection(deviceID string) string {
	return fmt.Sprintf("%s/connection/%s", TopicPrefixEvents, deviceID)
}

// EventStatus returns the topic carrying a device's current status. Published
// retained so new subscribers see the last known state immediately.
//
// Example: gridwatch/events/status/d1
func (Topics) EventStatus(deviceID string) string {
	return fmt.Sprintf("%s/status/%s", TopicPrefixEvents, deviceID)
}

// DeviceIDFromTopic extracts the device ID segment from a telemetry topic.
// Returns an empty string if the topic is not a telemetry topic.
func DeviceIDFromTopic(topic string) string {
	if !strings.HasPrefix(topic, TopicPrefixTelemetry+"/") {
		return ""
	}
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[3] == "" {
		return ""
	}
	return parts[3]
}
