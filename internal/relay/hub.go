// Package relay coordinates client registration, presence notifications, and
// chat broadcast for the Orbit relay via the Hub type.
package relay

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Hub is the single serialization point for all membership state. One
// goroutine running Run owns the registry, the room directory, and the client
// table; registration, disconnects, and inbound frames arrive over channels,
// so every read-then-mutate transition runs without interleaving even though
// many connections issue them concurrently.
//
// Delivery is fire-and-forget onto each client's buffered send channel. A
// recipient whose buffer is full loses the frame; it never stalls the loop.
type Hub struct {
	registry *Registry
	rooms    *RoomDirectory

	// clients maps connection IDs to live clients, registered or not. Chat
	// broadcast fans out over this table, not over room membership.
	clients map[string]*Client

	register   chan *Client
	unregister chan *Client
	inbound    chan *Frame

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// NewHub creates a Hub ready to run its event loop.
func NewHub() *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		registry:   NewRegistry(),
		rooms:      NewRoomDirectory(),
		clients:    make(map[string]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan *Frame),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}
}

// GetRegisterChan returns the channel new clients are announced on, write-only
// from the caller's perspective.
func (h *Hub) GetRegisterChan() chan<- *Client {
	return h.register
}

// GetUnregisterChan returns the channel disconnects are announced on,
// write-only from the caller's perspective.
func (h *Hub) GetUnregisterChan() chan<- *Client {
	return h.unregister
}

// Run starts the hub's event loop. It runs until Shutdown is called and
// should be started in its own goroutine.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				log.Printf("Received nil client registration; skipping")
				continue
			}
			h.clients[client.id] = client
			log.Printf("Client %s connected from %s. Total clients: %d", client.id, client.addr, len(h.clients))

		case client := <-h.unregister:
			h.removeClient(client)

		case frame := <-h.inbound:
			h.dispatch(frame)
		}
	}
}

// Shutdown stops the event loop and closes every client connection. It
// returns context.DeadlineExceeded if the loop does not drain in time.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.cancel()

	select {
	case <-h.done:
		log.Println("Hub shutdown completed")
		return nil
	case <-time.After(timeout):
		log.Println("Hub shutdown timeout reached")
		return context.DeadlineExceeded
	}
}

func (h *Hub) dispatch(frame *Frame) {
	switch frame.Type {
	case TypeJoinApp:
		h.handleJoinApp(frame)
	case TypeJoinRoom:
		h.handleJoinRoom(frame)
	case TypeLeaveRoom:
		h.handleLeaveRoom(frame)
	case TypeChatMsg:
		h.handleChat(frame)
	default:
		log.Printf("Unknown frame type %q from client %s", frame.Type, frame.client.id)
	}
}

// handleJoinApp registers the sender's identity. Re-registering a connection
// that is already in a room departs that room first, with the same
// notification an explicit leave produces, so remaining members are not left
// tracking a peer that no longer exists under its old identity.
func (h *Hub) handleJoinApp(frame *Frame) {
	var identity JoinAppPayload
	if err := json.Unmarshal(frame.Payload, &identity); err != nil {
		return
	}
	if identity.Username == "" || identity.PeerID == "" {
		return
	}

	if conn, ok := h.registry.Lookup(frame.client.id); ok {
		h.departRoom(conn)
	}
	h.registry.Register(frame.client.id, identity.Username, identity.PeerID)
	log.Printf("New user: %s (%s)", identity.Username, identity.PeerID)
}

// handleJoinRoom moves the sender into the requested room.
//
// Ordering is significant: the roster snapshot is computed and delivered
// before the joiner is added to the member set, so the joiner never sees
// itself; the arrival broadcast happens only after the join, so a member that
// immediately re-queries sees consistent state.
func (h *Hub) handleJoinRoom(frame *Frame) {
	conn, ok := h.registry.Lookup(frame.client.id)
	if !ok {
		return
	}
	room, ok := frame.stringPayload()
	if !ok || room == "" {
		return
	}

	// Joining the current room again refreshes the private snapshot but must
	// not replay a departure/arrival pair at the other members.
	if conn.Room == room {
		h.send(frame.client, NewFrame(TypeRoomUsers, h.roster(room, conn.ID)))
		return
	}

	h.departRoom(conn)

	h.send(frame.client, NewFrame(TypeRoomUsers, h.roster(room, conn.ID)))

	h.rooms.Join(room, conn.ID)
	conn.Room = room

	h.sendToRoom(room, conn.ID, NewFrame(TypeUserConnected, RoomUser{
		PeerID:   conn.PeerID,
		Username: conn.Username,
	}))
}

func (h *Hub) handleLeaveRoom(frame *Frame) {
	conn, ok := h.registry.Lookup(frame.client.id)
	if !ok {
		return
	}
	h.departRoom(conn)
}

// handleChat fans a chat message out to every connected client, the sender
// included. Chat is global: room membership does not scope it. Messages from
// unregistered connections are dropped.
func (h *Hub) handleChat(frame *Frame) {
	conn, ok := h.registry.Lookup(frame.client.id)
	if !ok {
		return
	}
	text, ok := frame.stringPayload()
	if !ok {
		return
	}

	h.sendToAll(NewFrame(TypeNewChat, ChatPayload{User: conn.Username, Text: text}))
}

// removeClient tears down a disconnected client: depart the current room with
// the usual notification, then drop the registry record and the client table
// entry. Safe to call more than once per client.
func (h *Hub) removeClient(client *Client) {
	if _, ok := h.clients[client.id]; !ok {
		return
	}

	if conn, ok := h.registry.Lookup(client.id); ok {
		h.departRoom(conn)
	}
	h.registry.Remove(client.id)
	delete(h.clients, client.id)
	close(client.send)
	log.Printf("Client %s disconnected. Total clients: %d", client.id, len(h.clients))
}

// departRoom removes conn from its current room, notifying the remaining
// members. Explicit leave, room switches, re-registration, and disconnect all
// funnel through here so the departure semantics stay identical.
func (h *Hub) departRoom(conn *Connection) {
	if conn.Room == "" {
		return
	}
	room := conn.Room

	h.sendToRoom(room, conn.ID, NewFrame(TypeUserDisconnected, conn.PeerID))
	h.rooms.Leave(room, conn.ID)
	conn.Room = ""
}

// roster resolves the members of room, minus excluding, to their public
// identity. Members without a registry record are skipped.
func (h *Hub) roster(room, excluding string) []RoomUser {
	ids := h.rooms.Members(room, excluding)
	users := make([]RoomUser, 0, len(ids))
	for _, id := range ids {
		if conn, ok := h.registry.Lookup(id); ok {
			users = append(users, RoomUser{PeerID: conn.PeerID, Username: conn.Username})
		}
	}
	return users
}

// send delivers a frame to one client without blocking the event loop.
func (h *Hub) send(client *Client, frame *Frame) {
	select {
	case client.send <- frame:
	default:
		log.Printf("Client %s send buffer full; dropping %s frame", client.id, frame.Type)
	}
}

// sendToRoom delivers a frame to every member of room except excluding.
func (h *Hub) sendToRoom(room, excluding string, frame *Frame) {
	for _, id := range h.rooms.Members(room, excluding) {
		if client, ok := h.clients[id]; ok {
			h.send(client, frame)
		}
	}
}

// sendToAll delivers a frame to every connected client.
func (h *Hub) sendToAll(frame *Frame) {
	for _, client := range h.clients {
		h.send(client, frame)
	}
}

// shutdownClients closes every remaining connection and send channel so the
// pump goroutines unwind.
func (h *Hub) shutdownClients() {
	log.Printf("Shutting down %d client connections...", len(h.clients))

	for id, client := range h.clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				log.Printf("Error closing connection for client %s: %v", id, err)
			}
		}
		close(client.send)
		delete(h.clients, id)
	}
}
