// Package server coordinates message fan-out for CastRelay via the Hub type,
// which owns the inbound queue and the single distribution loop.
package server

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Hub receives published messages from all connections and fans each one out
// to every client registered at distribution time. A single distribution loop
// serializes all deliveries, which is what gives the relay its FIFO guarantee.
type Hub struct {
	registry *Registry
	inbound  chan []byte
	metrics  *Metrics
	wg       sync.WaitGroup
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewHub creates a Hub distributing to clients held by the given registry.
// The inbound queue is bounded at queueSize; publishers block if it fills up,
// which only happens when the distribution loop itself has stalled.
func NewHub(registry *Registry, metrics *Metrics, queueSize int) *Hub {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry: registry,
		inbound:  make(chan []byte, queueSize),
		metrics:  metrics,
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}
}

// Registry returns the registry this hub distributes to.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Publish enqueues a message for delivery to every registered client. It is
// fire-and-forget: the caller learns nothing about individual recipients, and
// a publish with zero clients connected is simply a no-op at distribution
// time. After shutdown the message is dropped.
func (h *Hub) Publish(message []byte) {
	select {
	case h.inbound <- message:
		h.metrics.MessagesPublished.Inc()
	case <-h.ctx.Done():
	}
}

// Attach registers the client and starts its read loop. The read loop runs
// until the connection fails or is closed, then removes the client again.
func (h *Hub) Attach(client *Client) {
	h.registry.Add(client)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		client.readLoop()
	}()
}

// Run starts the distribution loop. It should be called in a separate
// goroutine and runs until Shutdown is invoked.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.closeAllClients()
			return
		case message := <-h.inbound:
			h.distribute(message)
		}
	}
}

// distribute writes one message to every client in the current registry
// snapshot. A failed write marks that client dead: it is removed and the pass
// continues with the remaining clients.
func (h *Hub) distribute(message []byte) {
	for _, client := range h.registry.Snapshot() {
		if err := client.write(message); err != nil {
			h.metrics.WriteFailures.Inc()
			slog.Warn("write failed, dropping client", "client_id", client.ID(), "remote_addr", client.Addr(), "error", err)
			h.registry.Remove(client)
			continue
		}
		h.metrics.MessagesDelivered.Inc()
	}
}

func (h *Hub) closeAllClients() {
	clients := h.registry.Snapshot()
	for _, client := range clients {
		h.registry.Remove(client)
	}
	slog.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the distribution loop, closes all client connections, and
// waits for the per-connection read loops to finish or the timeout to expire.
// Messages still queued at shutdown are dropped.
func (h *Hub) Shutdown(timeout time.Duration) error {
	slog.Info("shutting down hub")

	h.cancel()
	<-h.done

	finished := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		slog.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		slog.Warn("hub shutdown timeout reached, some read loops may still be running")
		return context.DeadlineExceeded
	}
}
