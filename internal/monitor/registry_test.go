package monitor

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func newTestRegistry() *Registry {
	return NewRegistry(NewMemoryStore(), Options{})
}

func TestRegisterFresh(t *testing.T) {
	r := newTestRegistry()

	device, isNew, err := r.Register("d1", "alice", "Plug1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !isNew {
		t.Error("expected isNew=true for a fresh registration")
	}
	if device.Status != StatusOnline {
		t.Errorf("status = %q, want online", device.Status)
	}
	if len(device.Connections) != 0 || len(device.MeterReadings) != 0 {
		t.Error("fresh device must start with empty logs")
	}
	if device.LastSeen.IsZero() || device.RegisteredAt.IsZero() {
		t.Error("expected LastSeen and RegisteredAt to be stamped")
	}
}

func TestRegisterRequiresDeviceName(t *testing.T) {
	r := newTestRegistry()

	if _, _, err := r.Register("d1", "alice", ""); !errors.Is(err, ErrDeviceNameRequired) {
		t.Errorf("expected ErrDeviceNameRequired, got %v", err)
	}
}

func TestRegisterSameIDRefreshesInPlace(t *testing.T) {
	r := newTestRegistry()

	if _, _, err := r.Register("d1", "alice", "Plug1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.AddConnection("d1", ConnectionParams{SourceIP: "10.0.0.1", DestIP: "10.0.0.2", Protocol: ProtocolTCP}); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}

	device, isNew, err := r.Register("d1", "alice2", "Plug1-renamed")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if isNew {
		t.Error("expected isNew=false for a known ID")
	}
	if device.Username != "alice2" || device.DeviceName != "Plug1-renamed" {
		t.Errorf("refresh did not update fields: %+v", device)
	}
	if len(device.Connections) != 1 {
		t.Errorf("logs lost across re-registration: %d connections", len(device.Connections))
	}
	if r.Count() != 1 {
		t.Errorf("device count = %d, want 1", r.Count())
	}
}

func TestRegisterRecoversIdentityByDeviceName(t *testing.T) {
	r := newTestRegistry()

	if _, _, err := r.Register("d1", "alice", "Plug1"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := r.AddMeterReading("d1", MeterReading{VoltageV: 230}); err != nil {
		t.Fatalf("AddMeterReading: %v", err)
	}

	// Same deviceName arrives under a new ID: the old record is adopted.
	device, isNew, err := r.Register("d2", "alice", "Plug1")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if isNew {
		t.Error("expected isNew=false when a deviceName match is adopted")
	}
	if device.ID != "d2" {
		t.Errorf("adopted record ID = %q, want d2", device.ID)
	}
	if len(device.MeterReadings) != 1 {
		t.Errorf("logs lost across adoption: %d readings", len(device.MeterReadings))
	}
	if r.Count() != 1 {
		t.Errorf("device count = %d, want 1", r.Count())
	}
	if _, err := r.Get("d1"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("old ID still resolvable, err = %v", err)
	}
}

func TestAddConnection(t *testing.T) {
	r := newTestRegistry()
	mustRegister(t, r, "d1", "alice", "Plug1")

	conn, err := r.AddConnection("d1", ConnectionParams{
		SourceIP:   "192.168.1.10",
		SourcePort: 51234,
		DestIP:     "93.184.216.34",
		DestPort:   443,
		Protocol:   ProtocolTCP,
	})
	if err != nil {
		t.Fatalf("AddConnection: %v", err)
	}

	if !strings.HasPrefix(conn.ID, "d1-") {
		t.Errorf("connection ID %q does not carry the device prefix", conn.ID)
	}
	if conn.State != ConnectionEstablished {
		t.Errorf("state = %q, want ESTABLISHED", conn.State)
	}
	if conn.BytesIn != 0 || conn.BytesOut != 0 || conn.PacketsIn != 0 || conn.PacketsOut != 0 {
		t.Error("new connection counters must start at zero")
	}

	if _, err := r.AddConnection("ghost", ConnectionParams{Protocol: ProtocolUDP}); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestUpdateConnection(t *testing.T) {
	r := newTestRegistry()
	mustRegister(t, r, "d1", "alice", "Plug1")

	conn, err := r.AddConnection("d1", ConnectionParams{SourceIP: "10.0.0.1", DestIP: "10.0.0.2", Protocol: ProtocolUDP})
	if err != nil {
		t.Fatalf("AddConnection: %v", err)
	}

	updated, err := r.UpdateConnection("d1", conn.ID, ConnectionDeltas{BytesIn: 100, BytesOut: 40, PacketsIn: 2, PacketsOut: 1})
	if err != nil {
		t.Fatalf("UpdateConnection: %v", err)
	}
	updated, err = r.UpdateConnection("d1", conn.ID, ConnectionDeltas{BytesIn: 50, State: ConnectionClosed})
	if err != nil {
		t.Fatalf("UpdateConnection: %v", err)
	}

	if updated.BytesIn != 150 || updated.BytesOut != 40 || updated.PacketsIn != 2 || updated.PacketsOut != 1 {
		t.Errorf("counters not accumulated: %+v", updated)
	}
	if updated.State != ConnectionClosed {
		t.Errorf("state = %q, want CLOSED", updated.State)
	}
	if !updated.LastUpdated.After(conn.Timestamp) && !updated.LastUpdated.Equal(conn.Timestamp) {
		t.Error("LastUpdated went backwards")
	}

	if _, err := r.UpdateConnection("d1", "no-such-conn", ConnectionDeltas{}); !errors.Is(err, ErrConnectionNotFound) {
		t.Errorf("expected ErrConnectionNotFound, got %v", err)
	}
}

func TestConnectionLogRetention(t *testing.T) {
	r := NewRegistry(NewMemoryStore(), Options{Retention: 100})
	mustRegister(t, r, "d1", "alice", "Plug1")

	for i := 0; i < 150; i++ {
		params := ConnectionParams{
			SourceIP: fmt.Sprintf("10.0.0.%d", i),
			DestIP:   "192.168.1.1",
			Protocol: ProtocolTCP,
		}
		if _, err := r.AddConnection("d1", params); err != nil {
			t.Fatalf("AddConnection #%d: %v", i, err)
		}
	}

	device, err := r.Get("d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(device.Connections) != 100 {
		t.Fatalf("retained %d connections, want 100", len(device.Connections))
	}
	// The 100 retained entries are the most recent, in insertion order.
	if device.Connections[0].SourceIP != "10.0.0.50" {
		t.Errorf("oldest retained = %s, want 10.0.0.50", device.Connections[0].SourceIP)
	}
	if device.Connections[99].SourceIP != "10.0.0.149" {
		t.Errorf("newest retained = %s, want 10.0.0.149", device.Connections[99].SourceIP)
	}
}

func TestMeterReadingDefaults(t *testing.T) {
	r := newTestRegistry()
	mustRegister(t, r, "d1", "alice", "Plug1")

	reading, err := r.AddMeterReading("d1", MeterReading{
		VoltageV:      230,
		CurrentA:      1.5,
		ActivePowerKW: 0.34,
		PowerFactor:   0.98,
		CumulativeKWh: 12.5,
	})
	if err != nil {
		t.Fatalf("AddMeterReading: %v", err)
	}

	if reading.IP != "unknown" {
		t.Errorf("ip = %q, want unknown default", reading.IP)
	}
	if reading.Protocol != ProtocolTCP {
		t.Errorf("protocol = %q, want TCP default", reading.Protocol)
	}
	if reading.Timestamp.IsZero() {
		t.Error("expected timestamp to be stamped")
	}
	if !strings.HasPrefix(reading.ID, "d1-") {
		t.Errorf("reading ID %q does not carry the device prefix", reading.ID)
	}

	device, err := r.Get("d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if device.Status != StatusOnline {
		t.Error("reading did not mark the device online")
	}
	if len(device.MeterReadings) != 1 || device.MeterReadings[0].VoltageV != 230 {
		t.Errorf("stored readings wrong: %+v", device.MeterReadings)
	}
}

func TestMeterReadingRetention(t *testing.T) {
	r := NewRegistry(NewMemoryStore(), Options{Retention: 100})
	mustRegister(t, r, "d1", "alice", "Plug1")

	for i := 0; i < 120; i++ {
		if _, err := r.AddMeterReading("d1", MeterReading{CumulativeKWh: float64(i)}); err != nil {
			t.Fatalf("AddMeterReading #%d: %v", i, err)
		}
	}

	device, err := r.Get("d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(device.MeterReadings) != 100 {
		t.Fatalf("retained %d readings, want 100", len(device.MeterReadings))
	}
	if device.MeterReadings[0].CumulativeKWh != 20 {
		t.Errorf("oldest retained kWh = %v, want 20", device.MeterReadings[0].CumulativeKWh)
	}
	if device.MeterReadings[99].CumulativeKWh != 119 {
		t.Errorf("newest retained kWh = %v, want 119", device.MeterReadings[99].CumulativeKWh)
	}
}

func TestSetStatus(t *testing.T) {
	r := newTestRegistry()
	mustRegister(t, r, "d1", "alice", "Plug1")

	device, err := r.SetStatus("d1", "", StatusOffline)
	if err != nil {
		t.Fatalf("SetStatus: %v", err)
	}
	if device.Status != StatusOffline {
		t.Errorf("status = %q, want offline", device.Status)
	}

	// Unknown ID falls back to deviceName.
	device, err = r.SetStatus("ghost", "Plug1", StatusOnline)
	if err != nil {
		t.Fatalf("SetStatus with fallback: %v", err)
	}
	if device.ID != "d1" || device.Status != StatusOnline {
		t.Errorf("fallback resolved wrong record: %+v", device)
	}

	if _, err := r.SetStatus("ghost", "NoSuchDevice", StatusOnline); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestFindByDeviceNameEarliestWins(t *testing.T) {
	store := NewMemoryStore()
	r := NewRegistry(store, Options{})
	mustRegister(t, r, "d1", "alice", "Plug1")

	// A second record with the same name but a later RegisteredAt, inserted
	// directly so Register's adoption path does not collapse them.
	younger, _ := store.Get("d1")
	dup := younger.DeepCopy()
	dup.ID = "d2"
	dup.RegisteredAt = dup.RegisteredAt.Add(1)
	store.Put(dup)

	found, err := r.FindByDeviceName("Plug1")
	if err != nil {
		t.Fatalf("FindByDeviceName: %v", err)
	}
	if found.ID != "d1" {
		t.Errorf("found %q, want earliest-registered d1", found.ID)
	}

	if _, err := r.FindByDeviceName("NoSuchDevice"); !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("expected ErrDeviceNotFound, got %v", err)
	}
}

func TestGetReturnsCopy(t *testing.T) {
	r := newTestRegistry()
	mustRegister(t, r, "d1", "alice", "Plug1")
	if _, err := r.AddConnection("d1", ConnectionParams{SourceIP: "10.0.0.1", DestIP: "10.0.0.2", Protocol: ProtocolTCP}); err != nil {
		t.Fatalf("AddConnection: %v", err)
	}

	first, err := r.Get("d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	first.Username = "mallory"
	first.Connections[0].BytesIn = 1 << 30

	second, err := r.Get("d1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if second.Username != "alice" || second.Connections[0].BytesIn != 0 {
		t.Error("mutating a returned device leaked into the registry")
	}
}

func TestParseProtocol(t *testing.T) {
	tests := []struct {
		in      string
		want    Protocol
		wantErr bool
	}{
		{"TCP", ProtocolTCP, false},
		{"tcp", ProtocolTCP, false},
		{"udp", ProtocolUDP, false},
		{"Icmp", ProtocolICMP, false},
		{"other", ProtocolOther, false},
		{"SCTP", "", true},
		{"", "", true},
	}

	for _, tc := range tests {
		got, err := ParseProtocol(tc.in)
		if tc.wantErr {
			if !errors.Is(err, ErrUnsupportedProtocol) {
				t.Errorf("ParseProtocol(%q): expected ErrUnsupportedProtocol, got %v", tc.in, err)
			}
			continue
		}
		if err != nil || got != tc.want {
			t.Errorf("ParseProtocol(%q) = %q, %v; want %q", tc.in, got, err, tc.want)
		}
	}
}

func mustRegister(t *testing.T, r *Registry, id, username, deviceName string) {
	t.Helper()
	if _, _, err := r.Register(id, username, deviceName); err != nil {
		t.Fatalf("Register(%s): %v", id, err)
	}
}
