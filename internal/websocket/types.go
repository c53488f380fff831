package websocket

import (
	"time"
)

// EventType represents the type of WebSocket event
type EventType string

const (
	// EventTypeAnonymization represents an anonymization run event
	EventTypeAnonymization EventType = "anonymization"
	// EventTypeQuery represents a dataset query event
	EventTypeQuery EventType = "query"
	// EventTypeSystemStatus represents a system status event
	EventTypeSystemStatus EventType = "system_status"
	// EventTypeConnection represents connection events
	EventTypeConnection EventType = "connection"
)

// Event represents a WebSocket event sent to clients
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
	RequestID string      `json:"request_id,omitempty"`
}

// AnonymizationEvent summarizes an anonymization run for live dashboards
type AnonymizationEvent struct {
	RequestID          string   `json:"request_id"`
	DatasetID          string   `json:"dataset_id,omitempty"`
	ColumnsRemoved     []string `json:"columns_removed"`
	ColumnsRedacted    []string `json:"columns_redacted"`
	SensitiveDataFound int      `json:"sensitive_data_found"`
	UncommonNames      int      `json:"uncommon_names_detected"`
	AnonymizationScore float64  `json:"anonymization_score"`
	ProcessingMS       float64  `json:"processing_ms"`
}

// QueryEvent represents a dataset query event
type QueryEvent struct {
	RequestID    string  `json:"request_id"`
	DatasetID    string  `json:"dataset_id,omitempty"`
	Intent       string  `json:"intent"`
	CacheHit     bool    `json:"cache_hit"`
	ClientIP     string  `json:"client_ip"`
	ProcessingMS float64 `json:"processing_ms"`
}

// SystemStatusEvent represents system status information
type SystemStatusEvent struct {
	Status           string `json:"status"`
	Uptime           string `json:"uptime"`
	TotalRequests    int64  `json:"total_requests"`
	TotalQueries     int64  `json:"total_queries"`
	DatasetsLoaded   int    `json:"datasets_loaded"`
	ConnectedClients int    `json:"connected_clients"`
	MemoryUsage      string `json:"memory_usage"`
}

// ConnectionEvent represents WebSocket connection events
type ConnectionEvent struct {
	Action    string `json:"action"` // "connected", "disconnected"
	ClientID  string `json:"client_id"`
	ClientIP  string `json:"client_ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Message   string `json:"message,omitempty"`
}

// ClientMessage represents messages sent from clients to server
type ClientMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// SubscriptionRequest represents a client subscription request
type SubscriptionRequest struct {
	Events []EventType  `json:"events"`
	Filter *EventFilter `json:"filter,omitempty"`
}

// EventFilter represents filtering options for events
type EventFilter struct {
	DatasetIDs    []string `json:"dataset_ids,omitempty"`
	Intents       []string `json:"intents,omitempty"`
	IPWhitelist   []string `json:"ip_whitelist,omitempty"`
	ExcludeHealth bool     `json:"exclude_health,omitempty"`
}

// Client represents a WebSocket client connection
type Client struct {
	ID           string
	Conn         interface{} // Will be *websocket.Conn
	Send         chan Event
	Subscription *SubscriptionRequest
	ConnectedAt  time.Time
	LastPing     time.Time
	IP           string
	UserAgent    string
}
