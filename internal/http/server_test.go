package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"ledgerchat/internal/classifier"
	"ledgerchat/internal/dispatch"
	"ledgerchat/internal/ledger/memory"
	"ledgerchat/internal/view"
)

func newTestServer(t *testing.T) (*httptest.Server, *memory.Store) {
	t.Helper()

	store := memory.New()
	coordinator := view.NewCoordinator(store)
	dispatcher := dispatch.New(classifier.NewRulesFromFile(""), store, coordinator, nil, 500000)

	srv := NewServer(":0", dispatcher, coordinator)
	coordinator.AddRenderer(srv)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	if err := coordinator.Start(ctx); err != nil {
		t.Fatalf("start coordinator: %v", err)
	}
	t.Cleanup(coordinator.Close)
	ts := httptest.NewServer(srv.Server.Handler)
	t.Cleanup(func() {
		srv.CloseClients()
		ts.Close()
	})
	return ts, store
}

func postMessage(t *testing.T, ts *httptest.Server, message string) (*http.Response, messageResponse) {
	t.Helper()

	body, _ := json.Marshal(messageRequest{Message: message})
	resp, err := http.Post(ts.URL+"/api/message", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post message: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })

	var out messageResponse
	if resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			t.Fatalf("decode response: %v", err)
		}
	}
	return resp, out
}

func TestHandleMessageLogsTransaction(t *testing.T) {
	ts, store := newTestServer(t)

	resp, out := postMessage(t, ts, "Spent 500 on groceries")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(out.Entries) < 2 {
		t.Fatalf("expected user echo plus reply, got %d entries", len(out.Entries))
	}
	if out.Entries[0].Sender != dispatch.SenderUser {
		t.Errorf("first entry sender = %q, want %q", out.Entries[0].Sender, dispatch.SenderUser)
	}
	if out.Entries[0].Text != "Spent 500 on groceries" {
		t.Errorf("first entry should echo the user text, got %q", out.Entries[0].Text)
	}
	if store.Len() != 1 {
		t.Errorf("store length = %d, want 1", store.Len())
	}
}

func TestHandleMessageRejectsEmptyBody(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, _ := postMessage(t, ts, "   ")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for blank message, got %d", resp.StatusCode)
	}
}

func TestHandleMessageRejectsGet(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/api/message")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", resp.StatusCode)
	}
}

func TestHandleDashboardReflectsLedger(t *testing.T) {
	ts, _ := newTestServer(t)

	if resp, _ := postMessage(t, ts, "Received salary of 1000"); resp.StatusCode != http.StatusOK {
		t.Fatalf("seed message failed with %d", resp.StatusCode)
	}

	// The coordinator recomputes asynchronously after the store change.
	deadline := time.Now().Add(2 * time.Second)
	for {
		resp, err := http.Get(ts.URL + "/api/dashboard")
		if err != nil {
			t.Fatalf("get dashboard: %v", err)
		}
		var v view.View
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
			t.Fatalf("decode view: %v", err)
		}
		resp.Body.Close()

		if len(v.Rows) == 1 && strings.Contains(v.Figures.Income, "1,000") {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("dashboard never showed the appended record: %+v", v)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func TestWebSocketSendsCurrentViewOnConnect(t *testing.T) {
	ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read initial view: %v", err)
	}
	var v view.View
	if err := json.Unmarshal(payload, &v); err != nil {
		t.Fatalf("decode initial view: %v", err)
	}
	if !v.Empty {
		t.Errorf("fresh ledger should produce the empty view, got %+v", v)
	}
}

func TestWebSocketReceivesBroadcast(t *testing.T) {
	ts, _ := newTestServer(t)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial websocket: %v", err)
	}
	defer conn.Close()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err != nil {
		t.Fatalf("read initial view: %v", err)
	}

	if resp, _ := postMessage(t, ts, "Spent 300 on food"); resp.StatusCode != http.StatusOK {
		t.Fatalf("message failed with %d", resp.StatusCode)
	}

	for {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, payload, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read broadcast: %v", err)
		}
		var v view.View
		if err := json.Unmarshal(payload, &v); err != nil {
			t.Fatalf("decode broadcast: %v", err)
		}
		if len(v.Rows) == 1 {
			if v.Rows[0].Income {
				t.Errorf("expected an expense row, got %+v", v.Rows[0])
			}
			return
		}
	}
}

func TestHealthz(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestStatusRecorderSupportsHijack(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}

	// Websocket upgrades hijack the connection through the middleware's
	// wrapped writer; both reach-through paths must stay available.
	if _, ok := interface{}(rec).(http.Hijacker); !ok {
		t.Error("statusRecorder must implement http.Hijacker")
	}
	if rec.Unwrap() == nil {
		t.Error("Unwrap() must expose the underlying ResponseWriter")
	}
	// A non-hijackable underlying writer yields an error, not a panic.
	if _, _, err := rec.Hijack(); err == nil {
		t.Error("Hijack() on a plain recorder should fail")
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		forwarded  string
		want       string
	}{
		{"plain remote addr", "192.168.1.10:54321", "", "192.168.1.10"},
		{"single forwarded", "10.0.0.1:80", "203.0.113.7", "203.0.113.7"},
		{"forwarded chain", "10.0.0.1:80", "203.0.113.7, 10.0.0.2", "203.0.113.7"},
		{"unparseable remote", "bogus", "", "bogus"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			r.RemoteAddr = tt.remoteAddr
			if tt.forwarded != "" {
				r.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			if got := clientIP(r); got != tt.want {
				t.Errorf("clientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
