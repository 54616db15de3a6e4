// Package server wires HTTP handlers into a ServeMux for the Orbit relay.
package server

import (
	"net/http"

	"github.com/orbitlabs/orbit-relay/internal/relay"
)

// SetupRoutes configures and returns an HTTP ServeMux with all application
// routes: the WebSocket endpoint, the health check, and the static client UI.
func SetupRoutes(hub *relay.Hub, cfg *Config) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", ServeWs(hub, cfg))
	mux.HandleFunc("/healthz", HealthHandler)
	mux.Handle("/", http.FileServer(http.Dir(cfg.StaticDir)))
	return mux
}
