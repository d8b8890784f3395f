package ingest

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gridwatch/gridwatch-core/internal/infrastructure/mqtt"
	"github.com/gridwatch/gridwatch-core/internal/monitor"
)

// meterMessage is the broker payload for a meter reading. DeviceName and
// Username allow auto-registration of devices provisioned broker-first.
type meterMessage struct {
	DeviceName        string   `json:"deviceName,omitempty"`
	Username          string   `json:"username,omitempty"`
	VoltageV          *float64 `json:"voltage_v"`
	CurrentA          *float64 `json:"current_a"`
	ActivePowerKW     *float64 `json:"active_power_kw"`
	ReactivePowerKVAR float64  `json:"reactive_power_kvar"`
	ApparentPowerKVA  float64  `json:"apparent_power_kva"`
	PowerFactor       *float64 `json:"power_factor"`
	FrequencyHz       float64  `json:"frequency_hz"`
	CumulativeKWh     *float64 `json:"cumulative_kwh"`
	IP                string   `json:"ip,omitempty"`
	Protocol          string   `json:"protocol,omitempty"`
}

// connectionMessage is the broker payload for a connection event.
type connectionMessage struct {
	DeviceName string `json:"deviceName,omitempty"`
	Username   string `json:"username,omitempty"`
	SourceIP   string `json:"sourceIp"`
	SourcePort int    `json:"sourcePort"`
	DestIP     string `json:"destIp"`
	DestPort   int    `json:"destPort"`
	Protocol   string `json:"protocol"`
	State      string `json:"state,omitempty"`
}

// statusMessage is the broker payload for a status change.
type statusMessage struct {
	DeviceName string `json:"deviceName,omitempty"`
	Status     string `json:"status"`
}

func (s *Service) handleMeter(topic string, payload []byte) error {
	deviceID := mqtt.DeviceIDFromTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("ingest: malformed topic %q", topic)
	}

	var msg meterMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("ingest: decoding meter payload: %w", err)
	}
	if msg.VoltageV == nil || msg.CurrentA == nil || msg.ActivePowerKW == nil ||
		msg.PowerFactor == nil || msg.CumulativeKWh == nil {
		return errors.New("ingest: meter payload missing required fields")
	}

	protocol := monitor.Protocol("")
	if msg.Protocol != "" {
		p, err := monitor.ParseProtocol(msg.Protocol)
		if err != nil {
			return err
		}
		protocol = p
	}

	reading := monitor.MeterReading{
		VoltageV:          *msg.VoltageV,
		CurrentA:          *msg.CurrentA,
		ActivePowerKW:     *msg.ActivePowerKW,
		ReactivePowerKVAR: msg.ReactivePowerKVAR,
		ApparentPowerKVA:  msg.ApparentPowerKVA,
		PowerFactor:       *msg.PowerFactor,
		FrequencyHz:       msg.FrequencyHz,
		CumulativeKWh:     *msg.CumulativeKWh,
		IP:                msg.IP,
		Protocol:          protocol,
	}

	stored, err := s.registry.AddMeterReading(deviceID, reading)
	if errors.Is(err, monitor.ErrDeviceNotFound) && msg.DeviceName != "" {
		if _, _, rerr := s.registry.Register(deviceID, msg.Username, msg.DeviceName); rerr != nil {
			return rerr
		}
		s.recordDeviceRegistered(deviceID, msg.DeviceName)
		stored, err = s.registry.AddMeterReading(deviceID, reading)
	}
	if err != nil {
		return err
	}

	s.logger.Debug("meter reading ingested", "device_id", deviceID, "voltage_v", stored.VoltageV)

	if s.exporter != nil {
		s.exporter.WriteMeterReading(deviceID, stored)
	}
	if s.broadcaster != nil {
		s.broadcaster.TelemetryEvent(deviceID, "meter_reading", stored)
	}
	return nil
}

func (s *Service) handleConnection(topic string, payload []byte) error {
	deviceID := mqtt.DeviceIDFromTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("ingest: malformed topic %q", topic)
	}

	var msg connectionMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("ingest: decoding connection payload: %w", err)
	}
	if msg.SourceIP == "" || msg.DestIP == "" || msg.Protocol == "" {
		return errors.New("ingest: connection payload missing required fields")
	}

	protocol, err := monitor.ParseProtocol(msg.Protocol)
	if err != nil {
		return err
	}

	params := monitor.ConnectionParams{
		SourceIP:   msg.SourceIP,
		SourcePort: msg.SourcePort,
		DestIP:     msg.DestIP,
		DestPort:   msg.DestPort,
		Protocol:   protocol,
		State:      msg.State,
	}

	conn, err := s.registry.AddConnection(deviceID, params)
	if errors.Is(err, monitor.ErrDeviceNotFound) && msg.DeviceName != "" {
		if _, _, rerr := s.registry.Register(deviceID, msg.Username, msg.DeviceName); rerr != nil {
			return rerr
		}
		s.recordDeviceRegistered(deviceID, msg.DeviceName)
		conn, err = s.registry.AddConnection(deviceID, params)
	}
	if err != nil {
		return err
	}

	s.logger.Debug("connection ingested", "device_id", deviceID, "connection_id", conn.ID)

	if s.exporter != nil {
		s.exporter.WriteConnectionTraffic(deviceID, conn)
	}
	if s.broadcaster != nil {
		s.broadcaster.TelemetryEvent(deviceID, "connection", conn)
	}
	return nil
}

func (s *Service) handleStatus(topic string, payload []byte) error {
	deviceID := mqtt.DeviceIDFromTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("ingest: malformed topic %q", topic)
	}

	var msg statusMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("ingest: decoding status payload: %w", err)
	}

	status, err := monitor.ParseStatus(msg.Status)
	if err != nil {
		return err
	}

	device, err := s.registry.SetStatus(deviceID, msg.DeviceName, status)
	if err != nil {
		return err
	}

	s.logger.Debug("status ingested", "device_id", device.ID, "status", status)

	if s.broadcaster != nil {
		s.broadcaster.TelemetryEvent(device.ID, "status", map[string]any{
			"status":   device.Status,
			"lastSeen": device.LastSeen,
		})
	}
	return nil
}
