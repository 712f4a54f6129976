// Package unit contains unit tests for individual components of the
// CastRelay server.
//
// These tests exercise the registry, hub, and configuration in isolation
// using a fake connection type, so broken-pipe and disconnect scenarios can
// be simulated deterministically without real sockets.
package unit

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/castrelay/castrelay/internal/server"
)

// fakeConn implements server.Conn. Reads block until a payload is queued or
// the connection is closed; writes are recorded and can be made to fail.
type fakeConn struct {
	mu        sync.Mutex
	writes    [][]byte
	failWrite bool
	reads     chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		reads: make(chan []byte, 16),
		done:  make(chan struct{}),
	}
}

func (f *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case payload := <-f.reads:
		return websocket.TextMessage, payload, nil
	case <-f.done:
		return 0, nil, errors.New("use of closed network connection")
	}
}

func (f *fakeConn) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failWrite {
		return errors.New("write: broken pipe")
	}

	copied := make([]byte, len(data))
	copy(copied, data)
	f.writes = append(f.writes, copied)
	return nil
}

func (f *fakeConn) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) SetReadLimit(int64)               {}

func (f *fakeConn) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

func (f *fakeConn) closed() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

func (f *fakeConn) setFailWrite(fail bool) {
	f.mu.Lock()
	f.failWrite = fail
	f.mu.Unlock()
}

func (f *fakeConn) received() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	payloads := make([]string, len(f.writes))
	for i, w := range f.writes {
		payloads[i] = string(w)
	}
	return payloads
}

// newTestStack wires a fresh registry and hub on an isolated Prometheus
// registry. The hub's distribution loop is not started; tests that need it
// call Run themselves.
func newTestStack(t *testing.T) (*server.Hub, *server.Registry, *prometheus.Registry) {
	t.Helper()

	promRegistry := prometheus.NewRegistry()
	metrics := server.NewMetrics(promRegistry)
	registry := server.NewRegistry(metrics)
	hub := server.NewHub(registry, metrics, 64)
	return hub, registry, promRegistry
}

// startHub runs the distribution loop and shuts it down on cleanup.
func startHub(t *testing.T, hub *server.Hub) {
	t.Helper()

	go hub.Run()
	t.Cleanup(func() {
		if err := hub.Shutdown(2 * time.Second); err != nil {
			t.Logf("hub shutdown: %v", err)
		}
	})
}

func newTestClient(hub *server.Hub) (*server.Client, *fakeConn) {
	conn := newFakeConn()
	return server.NewClient(conn, hub, "127.0.0.1:12345", server.DefaultConfig()), conn
}
