// Package testhelpers provides common utilities for testing the CastRelay
// server.
//
// It contains reusable helpers shared across unit and integration tests:
// starting a fully wired relay on an ephemeral port, dialing WebSocket
// connections, and exchanging raw text frames.
package testhelpers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/castrelay/castrelay/internal/server"
)

// Relay bundles the pieces of a running test relay.
type Relay struct {
	Server *httptest.Server
	Hub    *server.Hub
	WSURL  string
}

// StartRelay wires a registry, hub, and routes with the given configuration
// and starts them on an ephemeral port. Everything is torn down via t.Cleanup.
func StartRelay(t *testing.T, cfg server.Config) *Relay {
	t.Helper()

	promRegistry := prometheus.NewRegistry()
	metrics := server.NewMetrics(promRegistry)
	registry := server.NewRegistry(metrics)
	hub := server.NewHub(registry, metrics, cfg.QueueSize)
	go hub.Run()

	mux := server.SetupRoutes(hub, cfg, promRegistry)
	testServer := httptest.NewServer(mux)

	t.Cleanup(func() {
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Logf("hub shutdown: %v", err)
		}
		testServer.Close()
	})

	return &Relay{
		Server: testServer,
		Hub:    hub,
		WSURL:  "ws" + strings.TrimPrefix(testServer.URL, "http") + cfg.WSPath,
	}
}

// ConnectWebSocket dials the relay endpoint and registers cleanup for the
// connection. It fails the test if the handshake does not succeed.
func ConnectWebSocket(t *testing.T, wsURL string) *websocket.Conn {
	t.Helper()

	conn, err := DialWebSocket(wsURL, "http://localhost:8080")
	if err != nil {
		t.Fatalf("Failed to connect to %s: %v", wsURL, err)
	}

	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// DialWebSocket dials the relay endpoint with the given Origin header and
// returns the connection or the handshake error.
func DialWebSocket(wsURL, origin string) (*websocket.Conn, error) {
	dialer := websocket.Dialer{
		HandshakeTimeout: 5 * time.Second,
	}

	headers := http.Header{}
	if origin != "" {
		headers.Set("Origin", origin)
	}

	conn, resp, err := dialer.Dial(wsURL, headers)
	if resp != nil {
		_ = resp.Body.Close()
	}
	return conn, err
}

// SendText sends one raw text frame over the connection.
func SendText(t *testing.T, conn *websocket.Conn, payload string) {
	t.Helper()

	if err := conn.WriteMessage(websocket.TextMessage, []byte(payload)); err != nil {
		t.Fatalf("Failed to send %q: %v", payload, err)
	}
}

// ReceiveText reads one frame from the connection and returns its payload.
// It fails the test if nothing arrives within two seconds.
func ReceiveText(t *testing.T, conn *websocket.Conn) string {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Failed to receive message: %v", err)
	}
	return string(payload)
}

// ExpectNoMessage asserts that nothing arrives on the connection within the
// given window.
func ExpectNoMessage(t *testing.T, conn *websocket.Conn, window time.Duration) {
	t.Helper()

	if err := conn.SetReadDeadline(time.Now().Add(window)); err != nil {
		t.Fatalf("Failed to set read deadline: %v", err)
	}

	_, payload, err := conn.ReadMessage()
	if err == nil {
		t.Fatalf("Expected no message but received %q", payload)
	}
}

// CloseWebSocket gracefully closes a WebSocket connection.
func CloseWebSocket(conn *websocket.Conn) error {
	err := conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	if err != nil {
		return err
	}
	return conn.Close()
}

// MakeRequest creates and executes an HTTP request, returning the response.
func MakeRequest(t *testing.T, method, url string) *http.Response {
	t.Helper()

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(method, url, http.NoBody)
	if err != nil {
		t.Fatalf("Failed to create request: %v", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("Failed to make request: %v", err)
	}

	return resp
}

// AssertStatusCode checks if the HTTP response has the expected status code.
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	if resp.StatusCode != expected {
		t.Errorf("Expected status code %d, got %d", expected, resp.StatusCode)
	}
}

// AssertContentType checks if the HTTP response has the expected Content-Type header.
func AssertContentType(t *testing.T, resp *http.Response, expected string) {
	t.Helper()
	contentType := resp.Header.Get("Content-Type")
	if contentType != expected {
		t.Errorf("Expected content type %s, got %s", expected, contentType)
	}
}
