package websocket

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/raaihank/pii-anonymizer/internal/config"
	"github.com/raaihank/pii-anonymizer/internal/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.WebSocketConfig {
	cfg := config.GetDefaults().WebSocket
	return &cfg
}

func startHub(t *testing.T, cfg *config.WebSocketConfig) (*Hub, *httptest.Server) {
	t.Helper()

	hub := NewHub(cfg, logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	go hub.Run(ctx)

	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(func() {
		srv.Close()
		cancel()
	})
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, header http.Header) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) map[string]any {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg map[string]any
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestHubBroadcast(t *testing.T) {
	hub, srv := startHub(t, testConfig())
	conn := dial(t, srv, nil)

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.BroadcastEvent(Event{
		Type: EventTypeAnonymization,
		Data: AnonymizationEvent{
			RequestID:       "req-1",
			EntitiesFound:   2,
			EntityBreakdown: map[string]int{"EMAIL": 1, "PERSONA": 1},
		},
	})

	msg := readEvent(t, conn)
	assert.Equal(t, "anonymization", msg["type"])
	data := msg["data"].(map[string]any)
	assert.Equal(t, "req-1", data["request_id"])
	assert.EqualValues(t, 2, data["entities_found"])

	stats := hub.GetStats()
	assert.EqualValues(t, 1, stats.TotalConnections)
	assert.EqualValues(t, 1, stats.ActiveConnections)
}

func TestHubSubscription(t *testing.T) {
	hub, srv := startHub(t, testConfig())
	conn := dial(t, srv, nil)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "subscribe", Events: []EventType{EventTypeAnalysis}}))
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "ping"}))
	assert.Equal(t, "pong", readEvent(t, conn)["type"])

	hub.BroadcastEvent(Event{Type: EventTypeAnonymization, Data: AnonymizationEvent{RequestID: "skipped"}})
	hub.BroadcastEvent(Event{Type: EventTypeAnalysis, Data: AnalysisEvent{RequestID: "wanted", Sentiment: "positive"}})

	msg := readEvent(t, conn)
	assert.Equal(t, "analysis", msg["type"])
	assert.Equal(t, "wanted", msg["data"].(map[string]any)["request_id"])
}

func TestHubConnectionEvents(t *testing.T) {
	hub, srv := startHub(t, testConfig())
	first := dial(t, srv, nil)
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	second := dial(t, srv, nil)
	msg := readEvent(t, first)
	assert.Equal(t, "connection", msg["type"])
	assert.Equal(t, "connected", msg["data"].(map[string]any)["action"])

	second.Close()
	msg = readEvent(t, first)
	assert.Equal(t, "disconnected", msg["data"].(map[string]any)["action"])
	assert.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)
}

func TestHubBasicAuth(t *testing.T) {
	cfg := testConfig()
	cfg.BasicAuth.Username = "admin"
	cfg.BasicAuth.Password = "secret"
	_, srv := startHub(t, cfg)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	req.SetBasicAuth("admin", "secret")
	dial(t, srv, req.Header)
}

func TestHubDisabledDropsEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false
	hub := NewHub(cfg, logger.NewNop())

	hub.BroadcastEvent(Event{Type: EventTypeSystemStatus})
	assert.Len(t, hub.broadcast, 0)
}

func TestCheckOrigin(t *testing.T) {
	cfg := testConfig()
	cfg.AllowedOrigins = []string{"http://dashboard.local"}
	hub := NewHub(cfg, logger.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "http://dashboard.local")
	assert.True(t, hub.checkOrigin(req))

	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, hub.checkOrigin(req))
}
