// Package server wires HTTP handlers into a ServeMux for the CastRelay
// application.
package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: health check, the WebSocket relay endpoint, the test page, and the
// Prometheus exposition endpoint.
func SetupRoutes(hub *Hub, cfg Config, gatherer prometheus.Gatherer) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", HealthHandler)
	mux.Handle(cfg.WSPath, NewWebSocketHandler(hub, cfg))
	mux.HandleFunc("/test", TestPageHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return mux
}
