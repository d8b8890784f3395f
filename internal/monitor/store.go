package monitor

import "sync"

// Store persists monitored devices. The registry performs compound
// read-modify-write sequences under its own lock, so implementations only
// need to make individual calls safe.
type Store interface {
	Get(id string) (*Device, bool)
	Put(device *Device)
	Delete(id string)
	List() []*Device
}

// MemoryStore is a mutex-guarded in-memory Store. Monitoring state is
// intentionally ephemeral; a restart starts with an empty fleet.
type MemoryStore struct {
	mu      sync.RWMutex
	devices map[string]*Device
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{devices: make(map[string]*Device)}
}

// Get returns the stored device for id, if any.
func (s *MemoryStore) Get(id string) (*Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.devices[id]
	return d, ok
}

// Put stores or replaces a device keyed by its ID.
func (s *MemoryStore) Put(device *Device) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.devices[device.ID] = device
}

// Delete removes a device.
func (s *MemoryStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.devices, id)
}

// List returns all stored devices in unspecified order.
func (s *MemoryStore) List() []*Device {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Device, 0, len(s.devices))
	for _, d := range s.devices {
		out = append(out, d)
	}
	return out
}
