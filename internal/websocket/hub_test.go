package websocket

import (
	"encoding/json"
	"testing"
	"time"

	"autotrader/internal/models"
	"autotrader/pkg/utils"
)

// ============================================================
// Unit Tests
// ============================================================

func newTestHub(t *testing.T) *Hub {
	t.Helper()
	return NewHub(utils.InitLogger(utils.LogConfig{Level: "error", Format: "text"}))
}

func TestNewHub(t *testing.T) {
	hub := newTestHub(t)

	if hub == nil {
		t.Fatal("NewHub returned nil")
	}

	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients, got %d", hub.ClientCount())
	}
}

func TestOriginChecker_Check(t *testing.T) {
	checker := &OriginChecker{
		allowedOrigins: map[string]struct{}{
			"http://localhost:3000": {},
			"https://example.com":   {},
		},
		allowAll: false,
	}

	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},                       // empty origin allowed
		{"http://localhost:3000", true},  // allowed
		{"https://example.com", true},    // allowed
		{"http://evil.com", false},       // not allowed
		{"http://localhost:8080", false}, // not in list
	}

	for _, tt := range tests {
		got := checker.Check(tt.origin)
		if got != tt.want {
			t.Errorf("Check(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}
}

func TestOriginChecker_AllowAll(t *testing.T) {
	checker := &OriginChecker{
		allowAll: true,
	}

	origins := []string{
		"http://localhost:3000",
		"https://evil.com",
		"http://anything.example.org",
	}

	for _, origin := range origins {
		if !checker.Check(origin) {
			t.Errorf("allowAll=true but Check(%q) = false", origin)
		}
	}
}

func TestHub_BroadcastTrade(t *testing.T) {
	hub := newTestHub(t)
	go hub.Run()

	client := &Client{
		hub:  hub,
		send: make(chan []byte, clientSendBufferSize),
	}
	hub.register <- client

	// Ждём регистрации
	deadline := time.After(time.Second)
	for hub.ClientCount() != 1 {
		select {
		case <-deadline:
			t.Fatal("client was not registered")
		case <-time.After(time.Millisecond):
		}
	}

	trade := &models.TradeRecord{
		Symbol:       "BTCUSDT",
		Side:         models.SideBuy,
		Quantity:     0.5,
		Entry:        50000,
		SizingMethod: models.SizingFixed,
	}
	hub.BroadcastTrade(trade)

	select {
	case raw := <-client.send:
		var msg TradeMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if msg.Type != MessageTypeTrade {
			t.Errorf("expected type %s, got %s", MessageTypeTrade, msg.Type)
		}
		if msg.Data == nil || msg.Data.Symbol != "BTCUSDT" {
			t.Errorf("unexpected payload: %+v", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatal("message was not delivered")
	}
}

func TestHub_SlowClientRemoved(t *testing.T) {
	hub := newTestHub(t)
	go hub.Run()

	// Клиент с заполненным буфером - сообщения не читаются
	client := &Client{
		hub:  hub,
		send: make(chan []byte),
	}
	hub.register <- client

	deadline := time.After(time.Second)
	for hub.ClientCount() != 1 {
		select {
		case <-deadline:
			t.Fatal("client was not registered")
		case <-time.After(time.Millisecond):
		}
	}

	hub.BroadcastAlert(&models.AlertEvent{Message: "test"})

	deadline = time.After(time.Second)
	for hub.ClientCount() != 0 {
		select {
		case <-deadline:
			t.Fatal("slow client was not removed")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestMessageFactories(t *testing.T) {
	sample := &models.EquitySample{Equity: 10000}
	msg := NewEquityMessage(sample)
	if msg.Type != MessageTypeEquity {
		t.Errorf("expected type %s, got %s", MessageTypeEquity, msg.Type)
	}
	if msg.Timestamp.IsZero() {
		t.Error("timestamp was not set")
	}

	event := &models.SafetyEvent{Symbol: "ETHUSDT", Reason: models.ReasonStaleOrder}
	safety := NewSafetyMessage(event)
	if safety.Type != MessageTypeSafety {
		t.Errorf("expected type %s, got %s", MessageTypeSafety, safety.Type)
	}
	if safety.Data.Reason != models.ReasonStaleOrder {
		t.Errorf("unexpected reason: %s", safety.Data.Reason)
	}
}
