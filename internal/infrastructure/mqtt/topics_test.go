package mqtt

import "testing"

func TestTopicBuilders(t *testing.T) {
	topics := Topics{}

	tests := []struct {
		got  string
		want string
	}{
		{topics.TelemetryMeter("d1"), "gridwatch/telemetry/meter/d1"},
		{topics.TelemetryConnection("d1"), "gridwatch/telemetry/connection/d1"},
		{topics.TelemetryStatus("d1"), "gridwatch/telemetry/status/d1"},
		{topics.SystemStatus(), "gridwatch/system/status"},
		{topics.EventMeter("d1"), "gridwatch/events/meter/d1"},
		{topics.EventConnection("d1"), "gridwatch/events/connection/d1"},
		{topics.EventStatus("d1"), "gridwatch/events/status/d1"},
		{topics.AllMeterTelemetry(), "gridwatch/telemetry/meter/+"},
		{topics.AllConnectionTelemetry(), "gridwatch/telemetry/connection/+"},
		{topics.AllStatusTelemetry(), "gridwatch/telemetry/status/+"},
	}

	for _, tc := range tests {
		if tc.got != tc.want {
			t.Errorf("topic = %q, want %q", tc.got, tc.want)
		}
	}
}

func TestDeviceIDFromTopic(t *testing.T) {
	tests := []struct {
		topic string
		want  string
	}{
		{"gridwatch/telemetry/meter/d1", "d1"},
		{"gridwatch/telemetry/connection/agent-7", "agent-7"},
		{"gridwatch/telemetry/meter/", ""},
		{"gridwatch/telemetry/meter", ""},
		{"gridwatch/system/status", ""},
		{"other/telemetry/meter/d1", ""},
	}

	for _, tc := range tests {
		if got := DeviceIDFromTopic(tc.topic); got != tc.want {
			t.Errorf("DeviceIDFromTopic(%q) = %q, want %q", tc.topic, got, tc.want)
		}
	}
}
