// Package server implements the HTTP surface of the Orbit relay.
//
// The relay core lives in internal/relay; this package covers everything
// around it: configuration, origin policy for WebSocket upgrades, route
// wiring, and server lifecycle. The split keeps the membership engine
// testable without a transport.
package server
