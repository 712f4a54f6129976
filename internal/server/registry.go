// Package server tracks the set of live WebSocket clients through the
// Registry type, which owns all synchronization for membership changes.
package server

import (
	"log/slog"
	"sync"
)

// Registry is the authoritative set of currently connected clients. All
// mutation and iteration goes through its mutex, so a broadcast pass never
// observes a half-removed client.
type Registry struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	metrics *Metrics
}

// NewRegistry creates an empty Registry reporting membership changes to the
// given metrics.
func NewRegistry(metrics *Metrics) *Registry {
	return &Registry{
		clients: make(map[*Client]struct{}),
		metrics: metrics,
	}
}

// Add inserts the client into the registry. Adding a client that is already
// present is a no-op.
func (r *Registry) Add(client *Client) {
	if client == nil {
		return
	}

	r.mu.Lock()
	if _, exists := r.clients[client]; exists {
		r.mu.Unlock()
		return
	}
	r.clients[client] = struct{}{}
	count := len(r.clients)
	r.mu.Unlock()

	r.metrics.ActiveConnections.Set(float64(count))
	slog.Info("client connected", "client_id", client.ID(), "remote_addr", client.Addr(), "total_clients", count)
}

// Remove deletes the client if present and closes its connection. Removing a
// client twice is safe; the second call is a no-op.
func (r *Registry) Remove(client *Client) {
	if client == nil {
		return
	}

	r.mu.Lock()
	_, exists := r.clients[client]
	if exists {
		delete(r.clients, client)
	}
	count := len(r.clients)
	r.mu.Unlock()

	if !exists {
		return
	}

	// Close outside the lock so a slow close never stalls a broadcast pass.
	client.Close()

	r.metrics.ActiveConnections.Set(float64(count))
	slog.Info("client disconnected", "client_id", client.ID(), "remote_addr", client.Addr(), "total_clients", count)
}

// Snapshot returns a copy of the current client set for a broadcast pass.
func (r *Registry) Snapshot() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()

	clients := make([]*Client, 0, len(r.clients))
	for client := range r.clients {
		clients = append(clients, client)
	}
	return clients
}

// Len returns the number of currently registered clients.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
