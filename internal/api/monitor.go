package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gridwatch/gridwatch-core/internal/audit"
	"github.com/gridwatch/gridwatch-core/internal/infrastructure/mqtt"
	"github.com/gridwatch/gridwatch-core/internal/monitor"
)

// deviceIdentity resolves the reporting device's identity from a request
// body. Devices send either an "id" or a legacy "token" field; when the
// value verifies as a signed token the identity comes from its claims,
// otherwise the raw string is the identity.
func (s *Server) deviceIdentity(id, legacy string) (deviceID, username string) {
	value := id
	if value == "" {
		value = legacy
	}
	if value == "" {
		return "", ""
	}
	if claims, err := s.auth.Verify(value); err == nil {
		return claims.Subject, claims.Username
	}
	return value, ""
}

// monitorRegisterRequest is the request body for POST /api/monitor/register.
type monitorRegisterRequest struct {
	ID         string `json:"id"`
	Token      string `json:"token"` // legacy field name
	Username   string `json:"username"`
	DeviceName string `json:"deviceName"`
}

// handleMonitorRegister records a reporting device in the fleet.
func (s *Server) handleMonitorRegister(w http.ResponseWriter, r *http.Request) {
	var req monitorRegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	deviceID, tokenUsername := s.deviceIdentity(req.ID, req.Token)
	if deviceID == "" {
		writeBadRequest(w, "id or token is required")
		return
	}
	if req.DeviceName == "" {
		writeBadRequest(w, "deviceName is required")
		return
	}

	username := req.Username
	if username == "" {
		username = tokenUsername
	}

	device, isNew, err := s.registry.Register(deviceID, username, req.DeviceName)
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	if isNew {
		s.logger.Info("device registered", "device_id", device.ID, "device_name", device.DeviceName)
		s.recordActivity(r.Context(), &audit.Entry{
			Action:     audit.ActionDeviceRegister,
			EntityType: audit.EntityDevice,
			EntityID:   device.ID,
			Source:     audit.SourceHTTP,
			Details:    map[string]any{"deviceName": device.DeviceName},
		})
		if s.hub != nil {
			s.hub.TelemetryEvent(device.ID, "registered", device)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"device":  device,
		"created": isNew,
	})
}

// connectionRequest is the request body for POST /api/monitor/connections.
// When ConnectionID is set the request updates an existing connection's
// counters instead of creating a new entry.
type connectionRequest struct {
	ID           string `json:"id"`
	Token        string `json:"token"`
	ConnectionID string `json:"connectionId,omitempty"`
	SourceIP     string `json:"sourceIp"`
	SourcePort   int    `json:"sourcePort"`
	DestIP       string `json:"destIp"`
	DestPort     int    `json:"destPort"`
	Protocol     string `json:"protocol"`
	State        string `json:"state,omitempty"`
	BytesIn      int64  `json:"bytesIn,omitempty"`
	BytesOut     int64  `json:"bytesOut,omitempty"`
	PacketsIn    int64  `json:"packetsIn,omitempty"`
	PacketsOut   int64  `json:"packetsOut,omitempty"`
}

// handleMonitorConnections records or updates an observed network connection.
func (s *Server) handleMonitorConnections(w http.ResponseWriter, r *http.Request) {
	var req connectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	deviceID, _ := s.deviceIdentity(req.ID, req.Token)
	if deviceID == "" {
		writeBadRequest(w, "id or token is required")
		return
	}

	// Counter update for an existing connection.
	if req.ConnectionID != "" {
		conn, err := s.registry.UpdateConnection(deviceID, req.ConnectionID, monitor.ConnectionDeltas{
			BytesIn:    req.BytesIn,
			BytesOut:   req.BytesOut,
			PacketsIn:  req.PacketsIn,
			PacketsOut: req.PacketsOut,
			State:      req.State,
		})
		if err != nil {
			switch {
			case errors.Is(err, monitor.ErrDeviceNotFound):
				writeNotFound(w, "device not found")
			case errors.Is(err, monitor.ErrConnectionNotFound):
				writeNotFound(w, "connection not found")
			default:
				writeInternalError(w, "internal server error")
			}
			return
		}
		s.exportConnection(deviceID, conn)
		writeJSON(w, http.StatusOK, conn)
		return
	}

	if req.SourceIP == "" || req.DestIP == "" || req.Protocol == "" {
		writeBadRequest(w, "sourceIp, destIp and protocol are required")
		return
	}

	protocol, err := monitor.ParseProtocol(req.Protocol)
	if err != nil || (protocol != monitor.ProtocolTCP && protocol != monitor.ProtocolUDP) {
		writeBadRequest(w, "Only TCP and UDP protocols are supported")
		return
	}

	conn, err := s.registry.AddConnection(deviceID, monitor.ConnectionParams{
		SourceIP:   req.SourceIP,
		SourcePort: req.SourcePort,
		DestIP:     req.DestIP,
		DestPort:   req.DestPort,
		Protocol:   protocol,
		State:      req.State,
	})
	if err != nil {
		if errors.Is(err, monitor.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "internal server error")
		return
	}

	s.exportConnection(deviceID, conn)
	writeJSON(w, http.StatusCreated, conn)
}

// meterRequest is the request body for POST /api/monitor/meter. Numeric
// fields are pointers so absent values can be rejected rather than silently
// read as zero.
type meterRequest struct {
	ID                string   `json:"id"`
	Token             string   `json:"token"`
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

// handleMonitorMeter records an electrical meter reading.
func (s *Server) handleMonitorMeter(w http.ResponseWriter, r *http.Request) {
	var req meterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	deviceID, _ := s.deviceIdentity(req.ID, req.Token)
	if deviceID == "" {
		writeBadRequest(w, "id or token is required")
		return
	}
	if req.VoltageV == nil || req.CurrentA == nil || req.ActivePowerKW == nil ||
		req.PowerFactor == nil || req.CumulativeKWh == nil {
		writeBadRequest(w, "voltage_v, current_a, active_power_kw, power_factor and cumulative_kwh are required")
		return
	}

	protocol := monitor.Protocol("")
	if req.Protocol != "" {
		p, err := monitor.ParseProtocol(req.Protocol)
		if err != nil {
			writeBadRequest(w, "Only TCP and UDP protocols are supported")
			return
		}
		protocol = p
	}

	reading, err := s.registry.AddMeterReading(deviceID, monitor.MeterReading{
		VoltageV:          *req.VoltageV,
		CurrentA:          *req.CurrentA,
		ActivePowerKW:     *req.ActivePowerKW,
		ReactivePowerKVAR: req.ReactivePowerKVAR,
		ApparentPowerKVA:  req.ApparentPowerKVA,
		PowerFactor:       *req.PowerFactor,
		FrequencyHz:       req.FrequencyHz,
		CumulativeKWh:     *req.CumulativeKWh,
		IP:                req.IP,
		Protocol:          protocol,
	})
	if err != nil {
		if errors.Is(err, monitor.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "internal server error")
		return
	}

	if s.exporter != nil {
		s.exporter.WriteMeterReading(deviceID, reading)
	}
	if s.hub != nil {
		s.hub.TelemetryEvent(deviceID, "meter_reading", reading)
	}
	s.mirrorEvent(mqtt.Topics{}.EventMeter(deviceID), reading, false)

	writeJSON(w, http.StatusCreated, reading)
}

// statusRequest is the request body for POST /api/monitor/status.
type statusRequest struct {
	ID         string `json:"id"`
	Token      string `json:"token"`
	DeviceName string `json:"deviceName,omitempty"`
	Status     string `json:"status"`
}

// handleMonitorStatus updates a device's reported availability.
func (s *Server) handleMonitorStatus(w http.ResponseWriter, r *http.Request) {
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	deviceID, _ := s.deviceIdentity(req.ID, req.Token)
	if deviceID == "" {
		writeBadRequest(w, "id or token is required")
		return
	}

	status, err := monitor.ParseStatus(req.Status)
	if err != nil {
		writeBadRequest(w, "status must be online or offline")
		return
	}

	device, err := s.registry.SetStatus(deviceID, req.DeviceName, status)
	if err != nil {
		if errors.Is(err, monitor.ErrDeviceNotFound) {
			writeNotFound(w, "device not found")
			return
		}
		writeInternalError(w, "internal server error")
		return
	}

	s.recordActivity(r.Context(), &audit.Entry{
		Action:     audit.ActionStatusChange,
		EntityType: audit.EntityDevice,
		EntityID:   device.ID,
		Source:     audit.SourceHTTP,
		Details:    map[string]any{"status": string(device.Status)},
	})
	if s.hub != nil {
		s.hub.TelemetryEvent(device.ID, "status", map[string]any{
			"status":   device.Status,
			"lastSeen": device.LastSeen,
		})
	}
	// Retained so broker-attached consumers see the last known state on
	// subscribe.
	s.mirrorEvent(mqtt.Topics{}.EventStatus(device.ID), map[string]any{
		"status":   device.Status,
		"lastSeen": device.LastSeen,
	}, true)

	writeJSON(w, http.StatusOK, device)
}

// exportConnection forwards an accepted connection to the exporter, hub and
// broker mirror.
func (s *Server) exportConnection(deviceID string, conn *monitor.Connection) {
	if s.exporter != nil {
		s.exporter.WriteConnectionTraffic(deviceID, conn)
	}
	if s.hub != nil {
		s.hub.TelemetryEvent(deviceID, "connection", conn)
	}
	s.mirrorEvent(mqtt.Topics{}.EventConnection(deviceID), conn, false)
}

// mirrorEvent republishes an accepted record on the broker's event
// namespace. Best-effort: publish errors are logged, never surfaced to the
// reporting device.
func (s *Server) mirrorEvent(topic string, payload any, retained bool) {
	if s.publisher == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("marshalling event mirror", "topic", topic, "error", err)
		return
	}
	if retained {
		err = s.publisher.PublishRetained(topic, data)
	} else {
		err = s.publisher.Publish(topic, data, 0, false)
	}
	if err != nil {
		s.logger.Warn("event mirror publish failed", "topic", topic, "error", err)
	}
}
