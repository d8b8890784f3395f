package ingest

import (
	"context"
	"fmt"

	"github.com/gridwatch/gridwatch-core/internal/audit"
	"github.com/gridwatch/gridwatch-core/internal/infrastructure/mqtt"
	"github.com/gridwatch/gridwatch-core/internal/monitor"
)

// Logger defines the logging interface used by the Service.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Exporter receives accepted telemetry for long-term storage. Implemented by
// the InfluxDB client; nil disables export.
type Exporter interface {
	WriteMeterReading(deviceID string, reading *monitor.MeterReading)
	WriteConnectionTraffic(deviceID string, conn *monitor.Connection)
}

// Broadcaster pushes accepted telemetry to live dashboard subscribers.
// Implemented by the API websocket hub; nil disables push.
type Broadcaster interface {
	TelemetryEvent(deviceID, kind string, data any)
}

// Subscriber is the broker surface the service needs. Satisfied by
// *mqtt.Client; narrowed for tests.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
	Unsubscribe(topic string) error
}

// Recorder writes activity trail entries. Satisfied by audit.Repository;
// nil disables recording.
type Recorder interface {
	Record(ctx context.Context, entry *audit.Entry) error
}

// Service subscribes to telemetry topics and applies messages to the
// registry. Construct with New, then call Start once the broker client is
// connected.
type Service struct {
	registry    *monitor.Registry
	broker      Subscriber
	qos         byte
	exporter    Exporter
	broadcaster Broadcaster
	recorder    Recorder
	logger      Logger
	topics      []string // subscribed topics, for Stop
}

// New creates an ingest service. exporter and broadcaster may be nil.
func New(registry *monitor.Registry, broker Subscriber, qos byte, logger Logger) *Service {
	return &Service{
		registry: registry,
		broker:   broker,
		qos:      qos,
		logger:   logger,
	}
}

// SetExporter attaches a telemetry exporter.
func (s *Service) SetExporter(e Exporter) {
	s.exporter = e
}

// SetBroadcaster attaches a live-update broadcaster.
func (s *Service) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// SetRecorder attaches an activity trail recorder.
func (s *Service) SetRecorder(r Recorder) {
	s.recorder = r
}

// recordDeviceRegistered notes a broker-first device registration in the
// activity trail. Failures are logged, never returned to the broker loop.
func (s *Service) recordDeviceRegistered(deviceID, deviceName string) {
	if s.recorder == nil {
		return
	}
	entry := &audit.Entry{
		Action:     audit.ActionDeviceRegister,
		EntityType: audit.EntityDevice,
		EntityID:   deviceID,
		Source:     audit.SourceMQTT,
		Details:    map[string]any{"deviceName": deviceName},
	}
	if err := s.recorder.Record(context.Background(), entry); err != nil {
		s.logger.Error("recording device registration", "device_id", deviceID, "error", err)
	}
}

// Start subscribes to all telemetry topics.
func (s *Service) Start() error {
	topics := mqtt.Topics{}

	subs := []struct {
		topic   string
		handler mqtt.MessageHandler
	}{
		{topics.AllMeterTelemetry(), s.handleMeter},
		{topics.AllConnectionTelemetry(), s.handleConnection},
		{topics.AllStatusTelemetry(), s.handleStatus},
	}

	for _, sub := range subs {
		if err := s.broker.Subscribe(sub.topic, s.qos, sub.handler); err != nil {
			return fmt.Errorf("subscribing to %s: %w", sub.topic, err)
		}
		s.topics = append(s.topics, sub.topic)
	}

	s.logger.Info("telemetry ingest started", "topics", len(subs), "qos", s.qos)
	return nil
}

// Stop unsubscribes from all telemetry topics. Safe to call before Start.
func (s *Service) Stop() error {
	var firstErr error
	for _, topic := range s.topics {
		if err := s.broker.Unsubscribe(topic); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("unsubscribing from %s: %w", topic, err)
		}
	}
	s.topics = nil
	if firstErr != nil {
		return firstErr
	}
	s.logger.Info("telemetry ingest stopped")
	return nil
}
