package monitor

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents a device's reported availability.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
)

// ParseStatus validates a wire-format status string.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(s)) {
	case StatusOnline:
		return StatusOnline, nil
	case StatusOffline:
		return StatusOffline, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Protocol identifies the transport protocol of an observed connection.
type Protocol string

const (
	ProtocolTCP   Protocol = "TCP"
	ProtocolUDP   Protocol = "UDP"
	ProtocolICMP  Protocol = "ICMP"
	ProtocolOther Protocol = "OTHER"
)

// ParseProtocol normalises a wire-format protocol string.
func ParseProtocol(s string) (Protocol, error) {
	switch Protocol(strings.ToUpper(s)) {
	case ProtocolTCP:
		return ProtocolTCP, nil
	case ProtocolUDP:
		return ProtocolUDP, nil
	case ProtocolICMP:
		return ProtocolICMP, nil
	case ProtocolOther:
		return ProtocolOther, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProtocol, s)
	}
}

// Device is a monitored reporting device: a network agent or smart-meter
// simulator that pushes telemetry. Each device owns capped logs of its most
// recent connections and meter readings.
//
// ID is the primary key. Several IDs may share a DeviceName; listing views
// merge those into one logical device.
type Device struct {
	ID            string         `json:"id"`
	Username      string         `json:"username"`
	DeviceName    string         `json:"deviceName"`
	Status        Status         `json:"status"`
	Connections   []Connection   `json:"connections"`
	MeterReadings []MeterReading `json:"meterReadings"`
	LastSeen      time.Time      `json:"lastSeen"`
	RegisteredAt  time.Time      `json:"registeredAt"`
}

// DeepCopy returns a copy sharing no memory with the original.
func (d *Device) DeepCopy() *Device {
	if d == nil {
		return nil
	}
	clone := *d
	clone.Connections = append([]Connection(nil), d.Connections...)
	clone.MeterReadings = append([]MeterReading(nil), d.MeterReadings...)
	return &clone
}

// Connection is an observed network flow reported by an agent. Counters are
// cumulative and may be incremented after creation.
type Connection struct {
	ID          string    `json:"id"`
	DeviceID    string    `json:"deviceId"`
	SourceIP    string    `json:"sourceIp"`
	SourcePort  int       `json:"sourcePort"`
	DestIP      string    `json:"destIp"`
	DestPort    int       `json:"destPort"`
	Protocol    Protocol  `json:"protocol"`
	BytesIn     int64     `json:"bytesIn"`
	BytesOut    int64     `json:"bytesOut"`
	PacketsIn   int64     `json:"packetsIn"`
	PacketsOut  int64     `json:"packetsOut"`
	State       string    `json:"state"`
	Timestamp   time.Time `json:"timestamp"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// ConnectionState values reported over the wire.
const (
	ConnectionEstablished = "ESTABLISHED"
	ConnectionClosed      = "CLOSED"
)

// MeterReading is a single electrical measurement from a smart-meter
// simulator. Readings are append-only; once stored they never change.
type MeterReading struct {
	ID                string    `json:"id"`
	DeviceID          string    `json:"deviceId"`
	Timestamp         time.Time `json:"timestamp"`
	VoltageV          float64   `json:"voltage_v"`
	CurrentA          float64   `json:"current_a"`
	ActivePowerKW     float64   `json:"active_power_kw"`
	ReactivePowerKVAR float64   `json:"reactive_power_kvar"`
	ApparentPowerKVA  float64   `json:"apparent_power_kva"`
	PowerFactor       float64   `json:"power_factor"`
	FrequencyHz       float64   `json:"frequency_hz"`
	CumulativeKWh     float64   `json:"cumulative_kwh"`
	IP                string    `json:"ip"`
	Protocol          Protocol  `json:"protocol"`
}

// newRecordID builds a log-entry ID in the form the reporting agents expect:
// deviceID, millisecond timestamp, random suffix.
func newRecordID(deviceID string, at time.Time) string {
	return fmt.Sprintf("%s-%d-%s", deviceID, at.UnixMilli(), uuid.NewString()[:8])
}
