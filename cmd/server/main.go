package main

import (
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/orbitlabs/orbit-relay/internal/relay"
	"github.com/orbitlabs/orbit-relay/internal/server"
)

const (
	serverShutdownTimeout = 10 * time.Second
	hubShutdownTimeout    = 5 * time.Second
)

func main() {
	cfg := server.NewConfigFromEnv()

	hub := relay.NewHub()
	go hub.Run()

	mux := server.SetupRoutes(hub, cfg)
	httpServer := server.CreateServer(cfg.Port, mux)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.StartServer(httpServer)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("HTTP server failed: %v", err)
		}
	case sig := <-stop:
		log.Printf("Received %s, shutting down", sig)

		if err := server.ShutdownServer(httpServer, serverShutdownTimeout); err != nil {
			log.Printf("Forcing shutdown: %v", err)
		}
		if err := hub.Shutdown(hubShutdownTimeout); err != nil {
			log.Printf("Hub did not drain cleanly: %v", err)
		}
	}
}
