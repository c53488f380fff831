package websocket

import (
	"encoding/base64"
	"testing"

	"go.uber.org/zap"
)

func testHub(config *HubConfig) *Hub {
	return NewHub(config, zap.NewNop())
}

func TestShouldBroadcastEvent(t *testing.T) {
	t.Run("PerTypeToggles", func(t *testing.T) {
		h := testHub(&HubConfig{
			BroadcastQueries:       true,
			BroadcastAnonymization: false,
			BroadcastSystem:        true,
			BroadcastConnections:   false,
		})

		if !h.shouldBroadcastEvent(EventTypeQuery) {
			t.Error("Query events disabled despite config")
		}
		if h.shouldBroadcastEvent(EventTypeAnonymization) {
			t.Error("Anonymization events enabled despite config")
		}
		if !h.shouldBroadcastEvent(EventTypeSystemStatus) {
			t.Error("System events disabled despite config")
		}
		if h.shouldBroadcastEvent(EventTypeConnection) {
			t.Error("Connection events enabled despite config")
		}
	})

	t.Run("UnknownType", func(t *testing.T) {
		h := testHub(&HubConfig{BroadcastQueries: true})
		if h.shouldBroadcastEvent(EventType("nonsense")) {
			t.Error("Unknown event type broadcast")
		}
	})

	t.Run("NilConfig", func(t *testing.T) {
		h := testHub(nil)
		if h.shouldBroadcastEvent(EventTypeQuery) {
			t.Error("Nil config should broadcast nothing")
		}
	})
}

func TestApplyEventFilter(t *testing.T) {
	h := testHub(&HubConfig{})

	queryEvent := func(datasetID, intent string) Event {
		return Event{
			Type: EventTypeQuery,
			Data: QueryEvent{DatasetID: datasetID, Intent: intent},
		}
	}

	t.Run("DatasetFilter", func(t *testing.T) {
		filter := &EventFilter{DatasetIDs: []string{"sales"}}

		if !h.applyEventFilter(filter, queryEvent("sales", "summary")) {
			t.Error("Matching dataset filtered out")
		}
		if h.applyEventFilter(filter, queryEvent("customers", "summary")) {
			t.Error("Non-matching dataset passed the filter")
		}
	})

	t.Run("IntentFilter", func(t *testing.T) {
		filter := &EventFilter{Intents: []string{"analysis"}}

		if !h.applyEventFilter(filter, queryEvent("sales", "analysis")) {
			t.Error("Matching intent filtered out")
		}
		if h.applyEventFilter(filter, queryEvent("sales", "summary")) {
			t.Error("Non-matching intent passed the filter")
		}
	})

	t.Run("NonQueryEventsPass", func(t *testing.T) {
		filter := &EventFilter{DatasetIDs: []string{"sales"}}
		event := Event{Type: EventTypeSystemStatus, Data: SystemStatusEvent{}}

		if !h.applyEventFilter(filter, event) {
			t.Error("Non-query event blocked by query filter")
		}
	})
}

func TestParseCredentials(t *testing.T) {
	t.Run("Valid", func(t *testing.T) {
		data := base64.StdEncoding.EncodeToString([]byte("admin:secret"))
		user, pass, ok := parseCredentials(data)
		if !ok || user != "admin" || pass != "secret" {
			t.Errorf("parseCredentials = %q/%q/%v", user, pass, ok)
		}
	})

	t.Run("NotBase64", func(t *testing.T) {
		if _, _, ok := parseCredentials("!!!"); ok {
			t.Error("Invalid base64 accepted")
		}
	})

	t.Run("MissingColon", func(t *testing.T) {
		data := base64.StdEncoding.EncodeToString([]byte("adminsecret"))
		if _, _, ok := parseCredentials(data); ok {
			t.Error("Credentials without separator accepted")
		}
	})
}

func TestParseBasicAuth(t *testing.T) {
	typ, data, err := parseBasicAuth("Basic abc123")
	if err != nil || typ != "Basic" || data != "abc123" {
		t.Errorf("parseBasicAuth = %q/%q/%v", typ, data, err)
	}
	if _, _, err := parseBasicAuth("garbage"); err == nil {
		t.Error("Expected error for malformed auth header")
	}
}
