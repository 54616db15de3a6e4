// Package server exposes the HTTP handlers for the Orbit relay: the WebSocket
// upgrade endpoint and the health check.
package server

import (
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/orbitlabs/orbit-relay/internal/relay"
)

// ServeWs returns the handler for WebSocket upgrade requests. It takes the
// hub as a dependency: each accepted connection becomes a relay client,
// registered with the hub before its pump goroutines start.
func ServeWs(hub *relay.Hub, cfg *Config) http.HandlerFunc {
	policy := newOriginPolicy(cfg.AllowedOrigins)
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     policy.checkOrigin,
	}
	clientCfg := relay.ClientConfig{
		MaxMessageSize: cfg.MaxMessageSize,
		RateBurst:      cfg.RateLimit.Burst,
		RateRefill:     cfg.RateLimit.RefillInterval,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed. WebSocket endpoint only accepts GET requests.", http.StatusMethodNotAllowed)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("WebSocket upgrade failed: %v", err)
			return
		}

		client := relay.NewClient(hub, conn, r.RemoteAddr, clientCfg)
		hub.GetRegisterChan() <- client

		go client.WritePump()
		go client.ReadPump()
	}
}

// HealthHandler provides a simple health check endpoint that returns relay
// status as plain text.
func HealthHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = fmt.Fprintf(w, "Orbit relay is running!")
}
