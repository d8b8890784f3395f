package ingest

import (
	"testing"

	"github.com/gridwatch/gridwatch-core/internal/infrastructure/mqtt"
	"github.com/gridwatch/gridwatch-core/internal/monitor"
)

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// recordingExporter captures exported telemetry for assertions.
type recordingExporter struct {
	readings    []string
	connections []string
}

func (e *recordingExporter) WriteMeterReading(deviceID string, _ *monitor.MeterReading) {
	e.readings = append(e.readings, deviceID)
}

func (e *recordingExporter) WriteConnectionTraffic(deviceID string, _ *monitor.Connection) {
	e.connections = append(e.connections, deviceID)
}

func newTestService() (*Service, *monitor.Registry) {
	registry := monitor.NewRegistry(monitor.NewMemoryStore(), monitor.Options{})
	return New(registry, nil, 1, nopLogger{}), registry
}

func TestHandleMeter(t *testing.T) {
	svc, registry := newTestService()
	if _, _, err := registry.Register("d1", "alice", "Plug1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	exporter := &recordingExporter{}
	svc.SetExporter(exporter)

	payload := []byte(`{"voltage_v":230,"current_a":1.5,"active_power_kw":0.34,"power_factor":0.98,"cumulative_kwh":12.5}`)
	if err := svc.handleMeter("gridwatch/telemetry/meter/d1", payload); err != nil {
		t.Fatalf("handleMeter: %v", err)
	}

	device, err := registry.Get("d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(device.MeterReadings) != 1 || device.MeterReadings[0].VoltageV != 230 {
		t.Errorf("reading not stored: %+v", device.MeterReadings)
	}
	if len(exporter.readings) != 1 || exporter.readings[0] != "d1" {
		t.Errorf("reading not exported: %v", exporter.readings)
	}
}

func TestHandleMeterAutoRegisters(t *testing.T) {
	svc, registry := newTestService()

	payload := []byte(`{"deviceName":"Plug1","username":"alice","voltage_v":230,"current_a":1.5,"active_power_kw":0.34,"power_factor":0.98,"cumulative_kwh":12.5}`)
	if err := svc.handleMeter("gridwatch/telemetry/meter/d9", payload); err != nil {
		t.Fatalf("handleMeter: %v", err)
	}

	device, err := registry.Get("d9")
	if err != nil {
		t.Fatalf("auto-registration failed: %v", err)
	}
	if device.DeviceName != "Plug1" || len(device.MeterReadings) != 1 {
		t.Errorf("unexpected device after auto-registration: %+v", device)
	}
}

func TestHandleMeterRejectsIncomplete(t *testing.T) {
	svc, registry := newTestService()
	if _, _, err := registry.Register("d1", "alice", "Plug1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	tests := []struct {
		name    string
		payload string
	}{
		{"missing voltage", `{"current_a":1.5,"active_power_kw":0.34,"power_factor":0.98,"cumulative_kwh":12.5}`},
		{"missing cumulative", `{"voltage_v":230,"current_a":1.5,"active_power_kw":0.34,"power_factor":0.98}`},
		{"not json", `voltage=230`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if err := svc.handleMeter("gridwatch/telemetry/meter/d1", []byte(tc.payload)); err == nil {
				t.Error("expected error")
			}
		})
	}

	device, _ := registry.Get("d1")
	if len(device.MeterReadings) != 0 {
		t.Errorf("rejected payloads mutated the registry: %d readings", len(device.MeterReadings))
	}
}

func TestHandleConnection(t *testing.T) {
	svc, registry := newTestService()
	if _, _, err := registry.Register("d1", "alice", "Plug1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	payload := []byte(`{"sourceIp":"10.0.0.1","sourcePort":51234,"destIp":"8.8.8.8","destPort":53,"protocol":"udp"}`)
	if err := svc.handleConnection("gridwatch/telemetry/connection/d1", payload); err != nil {
		t.Fatalf("handleConnection: %v", err)
	}

	device, err := registry.Get("d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(device.Connections) != 1 {
		t.Fatalf("connection not stored")
	}
	if device.Connections[0].Protocol != monitor.ProtocolUDP {
		t.Errorf("protocol = %q, want UDP", device.Connections[0].Protocol)
	}
}

func TestHandleConnectionRejectsBadProtocol(t *testing.T) {
	svc, registry := newTestService()
	if _, _, err := registry.Register("d1", "alice", "Plug1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	payload := []byte(`{"sourceIp":"10.0.0.1","destIp":"8.8.8.8","protocol":"SCTP"}`)
	if err := svc.handleConnection("gridwatch/telemetry/connection/d1", payload); err == nil {
		t.Fatal("expected error for unsupported protocol")
	}

	device, _ := registry.Get("d1")
	if len(device.Connections) != 0 {
		t.Error("rejected payload mutated the registry")
	}
}

func TestHandleStatus(t *testing.T) {
	svc, registry := newTestService()
	if _, _, err := registry.Register("d1", "alice", "Plug1"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if err := svc.handleStatus("gridwatch/telemetry/status/d1", []byte(`{"status":"offline"}`)); err != nil {
		t.Fatalf("handleStatus: %v", err)
	}

	device, _ := registry.Get("d1")
	if device.Status != monitor.StatusOffline {
		t.Errorf("status = %q, want offline", device.Status)
	}

	if err := svc.handleStatus("gridwatch/telemetry/status/d1", []byte(`{"status":"rebooting"}`)); err == nil {
		t.Error("expected error for invalid status")
	}
}

func TestHandlersRejectMalformedTopic(t *testing.T) {
	svc, _ := newTestService()

	if err := svc.handleMeter("gridwatch/system/status", []byte(`{}`)); err == nil {
		t.Error("handleMeter accepted a non-telemetry topic")
	}
	if err := svc.handleConnection("gridwatch/telemetry/connection/", []byte(`{}`)); err == nil {
		t.Error("handleConnection accepted an empty device segment")
	}
}

// recordingBroker captures subscribe/unsubscribe calls.
type recordingBroker struct {
	subscribed   []string
	unsubscribed []string
}

func (b *recordingBroker) Subscribe(topic string, _ byte, _ mqtt.MessageHandler) error {
	b.subscribed = append(b.subscribed, topic)
	return nil
}

func (b *recordingBroker) Unsubscribe(topic string) error {
	b.unsubscribed = append(b.unsubscribed, topic)
	return nil
}

func TestStartStopSubscriptions(t *testing.T) {
	registry := monitor.NewRegistry(monitor.NewMemoryStore(), monitor.Options{})
	broker := &recordingBroker{}
	svc := New(registry, broker, 1, nopLogger{})

	if err := svc.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	want := []string{
		"gridwatch/telemetry/meter/+",
		"gridwatch/telemetry/connection/+",
		"gridwatch/telemetry/status/+",
	}
	if len(broker.subscribed) != len(want) {
		t.Fatalf("subscribed = %v, want %v", broker.subscribed, want)
	}
	for i, topic := range want {
		if broker.subscribed[i] != topic {
			t.Errorf("subscribed[%d] = %q, want %q", i, broker.subscribed[i], topic)
		}
	}

	if err := svc.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if len(broker.unsubscribed) != len(want) {
		t.Fatalf("unsubscribed = %v, want %v", broker.unsubscribed, want)
	}

	// Stop again is a no-op.
	if err := svc.Stop(); err != nil {
		t.Fatalf("second Stop: %v", err)
	}
	if len(broker.unsubscribed) != len(want) {
		t.Errorf("second Stop unsubscribed again: %v", broker.unsubscribed)
	}
}
