package websocket

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeAnonymization is emitted after a text was anonymized
	EventTypeAnonymization EventType = "anonymization"
	// EventTypeAnalysis is emitted after an anonymized text was scored
	EventTypeAnalysis EventType = "analysis"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
	// EventTypePong answers a client ping
	EventTypePong EventType = "pong"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
	RequestID string    `json:"request_id,omitempty"`
}

// AnonymizationEvent summarizes one anonymization. It carries counts only,
// never original or anonymized text.
type AnonymizationEvent struct {
	RequestID       string         `json:"request_id"`
	EntitiesFound   int            `json:"entities_found"`
	EntityBreakdown map[string]int `json:"entity_breakdown"`
	ProcessingMS    float64        `json:"processing_ms"`
	TextLength      int            `json:"text_length"`
}

// AnalysisEvent summarizes one sentiment analysis
type AnalysisEvent struct {
	RequestID       string         `json:"request_id"`
	Sentiment       string         `json:"sentiment"`
	Score           float64        `json:"score"`
	EntitiesFound   int            `json:"entities_found"`
	EntityBreakdown map[string]int `json:"entity_breakdown"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TotalEntities    int64  `json:"total_entities"`
	ConnectedClients int    `json:"connected_clients"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type   string      `json:"type"`
	Events []EventType `json:"events,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID          string
	Conn        *websocket.Conn
	Send        chan Event
	ConnectedAt time.Time
	IP          string
	UserAgent   string

	mu sync.Mutex
	// subscription is nil until the client subscribes; nil receives everything
	subscription map[EventType]struct{}
}

func (c *Client) subscribe(events []EventType) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(events) == 0 {
		c.subscription = nil
		return
	}
	c.subscription = make(map[EventType]struct{}, len(events))
	for _, e := range events {
		c.subscription[e] = struct{}{}
	}
}

func (c *Client) wants(t EventType) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.subscription == nil {
		return true
	}
	_, ok := c.subscription[t]
	return ok
}

// HubStats tracks WebSocket hub statistics
type HubStats struct {
	TotalConnections   int64     `json:"total_connections"`
	ActiveConnections  int64     `json:"active_connections"`
	TotalMessages      int64     `json:"total_messages"`
	TotalBroadcasts    int64     `json:"total_broadcasts"`
	DroppedEvents      int64     `json:"dropped_events"`
	LastConnectionTime time.Time `json:"last_connection_time"`
	LastBroadcastTime  time.Time `json:"last_broadcast_time"`
}
