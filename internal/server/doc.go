// Package server implements the core HTTP and WebSocket relay functionality
// for CastRelay.
//
// The implementation is organized into specialized files for configuration,
// the connection registry, the broadcast hub, clients, routing, and HTTP
// handlers to keep the codebase maintainable and testable as the project
// grows.
package server
