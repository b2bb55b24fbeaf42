package assistant

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"autotrader/pkg/retry"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientConfig{
		BaseURL:        srv.URL,
		APIKey:         "test-key",
		Model:          "test-model",
		RequestTimeout: 2 * time.Second,
	}, srv.Client(), testLogger())

	// Быстрые ретраи, чтобы тесты не спали секундами
	client.retryCfg = retry.Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     5 * time.Millisecond,
		Multiplier:   2.0,
	}

	return client
}

func TestClientComplete_FreeText(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing bearer token")
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"Рынок спокоен, входов нет."}}]}`))
	})

	result, err := client.Complete(context.Background(), "что делать?", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FunctionCall != nil {
		t.Error("expected free text, got a function call")
	}
	if result.Text == "" {
		t.Error("expected non-empty text")
	}
}

func TestClientComplete_FunctionCall(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"function_call":{"name":"place_order","arguments":"{\"symbol\":\"BTCUSDT\",\"side\":\"BUY\",\"qty\":0.5}"}}}]}`))
	})

	result, err := client.Complete(context.Background(), "купи немного биткоина", []FunctionSchema{{Name: "place_order"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.FunctionCall == nil {
		t.Fatal("expected a function call")
	}
	if result.FunctionCall.Name != "place_order" {
		t.Errorf("unexpected function name %q", result.FunctionCall.Name)
	}
	if result.FunctionCall.Arguments["symbol"] != "BTCUSDT" {
		t.Errorf("unexpected arguments: %v", result.FunctionCall.Arguments)
	}
	if qty, ok := result.FunctionCall.Arguments["qty"].(float64); !ok || qty != 0.5 {
		t.Errorf("qty must decode as number, got %v", result.FunctionCall.Arguments["qty"])
	}
}

func TestClientComplete_RetriesTransient(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	result, err := client.Complete(context.Background(), "ping", nil)
	if err != nil {
		t.Fatalf("transient failures must be retried: %v", err)
	}
	if result.Text != "ok" {
		t.Errorf("unexpected text %q", result.Text)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("expected 3 attempts, got %d", calls)
	}
}

func TestClientComplete_FatalNotRetried(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"invalid api key"}}`))
	})

	_, err := client.Complete(context.Background(), "ping", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("auth failure must not be retried, got %d attempts", calls)
	}
}
