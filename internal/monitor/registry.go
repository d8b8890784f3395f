package monitor

import (
	"sort"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Registry.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Options tunes registry behaviour.
type Options struct {
	// Retention caps the per-device connection and meter-reading logs.
	// Appends beyond the cap drop the oldest entries.
	Retention int

	// StaleAfter is the silence window after which a device reads as
	// offline regardless of its stored status.
	StaleAfter time.Duration
}

// Default registry tuning.
const (
	DefaultRetention  = 100
	DefaultStaleAfter = 120 * time.Second
)

// Registry tracks the monitored device fleet. Reporting devices register and
// push telemetry through it; dashboard views read from it.
//
// All compound operations run under a single registry lock, so lookups by
// deviceName and the subsequent write see a consistent fleet. All public
// methods are thread-safe, and all returned records are deep copies.
type Registry struct {
	mu     sync.RWMutex
	store  Store
	opts   Options
	logger Logger
}

// NewRegistry creates a registry over the given store. Zero option fields
// take the defaults.
func NewRegistry(store Store, opts Options) *Registry {
	if opts.Retention <= 0 {
		opts.Retention = DefaultRetention
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = DefaultStaleAfter
	}
	return &Registry{
		store:  store,
		opts:   opts,
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// StaleAfter reports the configured staleness window.
func (r *Registry) StaleAfter() time.Duration {
	return r.opts.StaleAfter
}

// Register records a reporting device. Three cases, in order:
//
//  1. The ID is known: the record is refreshed in place (username,
//     deviceName, LastSeen, status online) and its logs are kept.
//  2. The ID is unknown but another record carries the same deviceName:
//     that record adopts the new ID. This recovers devices that lost
//     their token and re-provisioned.
//  3. Otherwise a fresh record is created with empty logs.
//
// The returned bool is true only for case 3.
func (r *Registry) Register(id, username, deviceName string) (*Device, bool, error) {
	if deviceName == "" {
		return nil, false, ErrDeviceNameRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC()

	if existing, ok := r.store.Get(id); ok {
		existing.Username = username
		existing.DeviceName = deviceName
		existing.Status = StatusOnline
		existing.LastSeen = now
		r.store.Put(existing)
		r.logger.Debug("device re-registered", "id", id, "device_name", deviceName)
		return existing.DeepCopy(), false, nil
	}

	if adopted := r.findByDeviceNameLocked(deviceName); adopted != nil {
		r.store.Delete(adopted.ID)
		adopted.ID = id
		adopted.Username = username
		adopted.Status = StatusOnline
		adopted.LastSeen = now
		r.store.Put(adopted)
		r.logger.Info("device identity recovered", "id", id, "device_name", deviceName)
		return adopted.DeepCopy(), false, nil
	}

	device := &Device{
		ID:            id,
		Username:      username,
		DeviceName:    deviceName,
		Status:        StatusOnline,
		Connections:   []Connection{},
		MeterReadings: []MeterReading{},
		LastSeen:      now,
		RegisteredAt:  now,
	}
	r.store.Put(device)
	r.logger.Info("device registered", "id", id, "device_name", deviceName)
	return device.DeepCopy(), true, nil
}

// SetStatus updates a device's reported status, falling back to a deviceName
// lookup when the ID is unknown.
func (r *Registry) SetStatus(id, deviceName string, status Status) (*Device, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.store.Get(id)
	if !ok && deviceName != "" {
		device = r.findByDeviceNameLocked(deviceName)
		ok = device != nil
	}
	if !ok {
		return nil, ErrDeviceNotFound
	}

	device.Status = status
	device.LastSeen = time.Now().UTC()
	r.store.Put(device)

	r.logger.Debug("device status updated", "id", device.ID, "status", status)
	return device.DeepCopy(), nil
}

// ConnectionParams describes a new observed connection.
type ConnectionParams struct {
	SourceIP   string
	SourcePort int
	DestIP     string
	DestPort   int
	Protocol   Protocol
	State      string
}

// AddConnection appends a connection to a device's log, trimming the oldest
// entries beyond the retention cap. The device is marked online and its
// LastSeen advances. Counters start at zero; the agent reports traffic
// through UpdateConnection.
func (r *Registry) AddConnection(id string, params ConnectionParams) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.store.Get(id)
	if !ok {
		return nil, ErrDeviceNotFound
	}

	now := time.Now().UTC()
	state := params.State
	if state == "" {
		state = ConnectionEstablished
	}

	conn := Connection{
		ID:          newRecordID(id, now),
		DeviceID:    id,
		SourceIP:    params.SourceIP,
		SourcePort:  params.SourcePort,
		DestIP:      params.DestIP,
		DestPort:    params.DestPort,
		Protocol:    params.Protocol,
		State:       state,
		Timestamp:   now,
		LastUpdated: now,
	}

	device.Connections = appendCapped(device.Connections, conn, r.opts.Retention)
	device.Status = StatusOnline
	device.LastSeen = now
	r.store.Put(device)

	return &conn, nil
}

// ConnectionDeltas carries counter increments for an existing connection.
type ConnectionDeltas struct {
	BytesIn    int64
	BytesOut   int64
	PacketsIn  int64
	PacketsOut int64
	State      string
}

// UpdateConnection increments an existing connection's traffic counters and
// optionally moves its state. The owning device's LastSeen advances.
func (r *Registry) UpdateConnection(deviceID, connID string, deltas ConnectionDeltas) (*Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.store.Get(deviceID)
	if !ok {
		return nil, ErrDeviceNotFound
	}

	now := time.Now().UTC()
	for i := range device.Connections {
		if device.Connections[i].ID != connID {
			continue
		}
		c := &device.Connections[i]
		c.BytesIn += deltas.BytesIn
		c.BytesOut += deltas.BytesOut
		c.PacketsIn += deltas.PacketsIn
		c.PacketsOut += deltas.PacketsOut
		if deltas.State != "" {
			c.State = deltas.State
		}
		c.LastUpdated = now

		device.Status = StatusOnline
		device.LastSeen = now
		r.store.Put(device)

		clone := *c
		return &clone, nil
	}

	return nil, ErrConnectionNotFound
}

// AddMeterReading appends an electrical reading to a device's log, trimming
// beyond the retention cap. The device is marked online.
func (r *Registry) AddMeterReading(id string, reading MeterReading) (*MeterReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	device, ok := r.store.Get(id)
	if !ok {
		return nil, ErrDeviceNotFound
	}

	now := time.Now().UTC()
	reading.ID = newRecordID(id, now)
	reading.DeviceID = id
	if reading.Timestamp.IsZero() {
		reading.Timestamp = now
	}
	if reading.IP == "" {
		reading.IP = "unknown"
	}
	if reading.Protocol == "" {
		reading.Protocol = ProtocolTCP
	}

	device.MeterReadings = appendCapped(device.MeterReadings, reading, r.opts.Retention)
	device.Status = StatusOnline
	device.LastSeen = now
	r.store.Put(device)

	return &reading, nil
}

// Get retrieves a device by ID. The returned device is a deep copy.
func (r *Registry) Get(id string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device, ok := r.store.Get(id)
	if !ok {
		return nil, ErrDeviceNotFound
	}
	return device.DeepCopy(), nil
}

// FindByDeviceName retrieves the device with the given name. When several
// records share the name, the earliest-registered one wins.
func (r *Registry) FindByDeviceName(name string) (*Device, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	device := r.findByDeviceNameLocked(name)
	if device == nil {
		return nil, ErrDeviceNotFound
	}
	return device.DeepCopy(), nil
}

// List returns all devices ordered by registration time, then ID. The
// returned devices are deep copies.
func (r *Registry) List() []*Device {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.listLocked()
}

// Count returns the number of registered device records.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.store.List())
}

func (r *Registry) listLocked() []*Device {
	devices := r.store.List()
	sort.Slice(devices, func(i, j int) bool {
		if !devices[i].RegisteredAt.Equal(devices[j].RegisteredAt) {
			return devices[i].RegisteredAt.Before(devices[j].RegisteredAt)
		}
		return devices[i].ID < devices[j].ID
	})

	out := make([]*Device, len(devices))
	for i, d := range devices {
		out[i] = d.DeepCopy()
	}
	return out
}

// findByDeviceNameLocked returns the live (non-copied) earliest-registered
// record with the given name. Callers must hold the registry lock.
func (r *Registry) findByDeviceNameLocked(name string) *Device {
	var match *Device
	for _, d := range r.store.List() {
		if d.DeviceName != name {
			continue
		}
		if match == nil || d.RegisteredAt.Before(match.RegisteredAt) ||
			(d.RegisteredAt.Equal(match.RegisteredAt) && d.ID < match.ID) {
			match = d
		}
	}
	return match
}

// appendCapped appends to a log, dropping the oldest entries so the result
// never exceeds limit entries.
func appendCapped[T any](log []T, entry T, limit int) []T {
	log = append(log, entry)
	if len(log) > limit {
		log = log[len(log)-limit:]
	}
	return log
}
