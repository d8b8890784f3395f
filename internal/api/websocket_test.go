package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gridwatch/gridwatch-core/internal/infrastructure/config"
	"github.com/gridwatch/gridwatch-core/internal/infrastructure/logging"
)

// newWSTestServer starts a real HTTP listener with a running hub so the
// full upgrade path (middleware included) is exercised.
func newWSTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()

	srv, handler := newTestServer(t)
	srv.wsCfg = config.WebSocketConfig{
		MaxMessageSize: 8192,
		PingInterval:   30,
		PongTimeout:    10,
	}
	srv.hub = NewHub(srv.wsCfg, logging.Default())

	ctx, cancel := context.WithCancel(context.Background())
	go srv.hub.Run(ctx)

	ts := httptest.NewServer(handler)
	t.Cleanup(func() {
		ts.Close()
		cancel()
	})
	return srv, ts
}

func wsURL(ts *httptest.Server, token string) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/ws?token=" + token
}

func TestWebSocketUpgrade(t *testing.T) {
	srv, ts := newWSTestServer(t)

	_, token := registerAccount(t, srv.buildRouter(), "wsviewer")

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, token), nil)
	if err != nil {
		t.Fatalf("Dial: %v (status %v)", err, resp)
	}
	defer conn.Close()

	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("handshake status = %d, want 101", resp.StatusCode)
	}

	// Ping round-trip proves both pumps are running.
	if err := conn.WriteJSON(WSMessage{Type: WSTypePing, ID: "p1"}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	var reply WSMessage
	if err := conn.ReadJSON(&reply); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	if reply.Type != WSTypePong || reply.ID != "p1" {
		t.Errorf("reply = {%s %s}, want pong p1", reply.Type, reply.ID)
	}
}

func TestWebSocketRejectsBadToken(t *testing.T) {
	_, ts := newWSTestServer(t)

	_, resp, err := websocket.DefaultDialer.Dial(wsURL(ts, "not-a-token"), nil)
	if err == nil {
		t.Fatal("expected handshake failure with an invalid token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("handshake response = %v, want 401", resp)
	}
}

func TestWebSocketTelemetryBroadcast(t *testing.T) {
	srv, ts := newWSTestServer(t)
	handler := srv.buildRouter()

	_, token := registerAccount(t, handler, "wsub")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL(ts, token), nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer conn.Close()

	// Subscribe to meter telemetry and wait for the acknowledgement so the
	// subscription is in place before the broadcast.
	if err := conn.WriteJSON(WSMessage{
		Type:    WSTypeSubscribe,
		ID:      "s1",
		Payload: WSSubscribePayload{Channels: []string{ChannelTelemetry}},
	}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second)) //nolint:errcheck // test deadline
	var ack WSMessage
	if err := conn.ReadJSON(&ack); err != nil {
		t.Fatalf("ReadJSON ack: %v", err)
	}
	if ack.Type != WSTypeResponse {
		t.Fatalf("ack type = %q, want response", ack.Type)
	}

	srv.hub.TelemetryEvent("d1", "meter_reading", map[string]any{"voltage_v": 230.0})

	var event WSMessage
	if err := conn.ReadJSON(&event); err != nil {
		t.Fatalf("ReadJSON event: %v", err)
	}
	if event.Type != WSTypeEvent {
		t.Errorf("event type = %q, want event", event.Type)
	}

	payload, err := json.Marshal(event.Payload)
	if err != nil {
		t.Fatalf("marshalling event payload: %v", err)
	}
	var body struct {
		DeviceID string `json:"deviceId"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		t.Fatalf("decoding event payload: %v", err)
	}
	if body.DeviceID != "d1" {
		t.Errorf("event device_id = %q, want d1", body.DeviceID)
	}
}
