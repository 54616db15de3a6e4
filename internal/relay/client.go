// Package relay manages individual WebSocket clients, handling the read and
// write pumps and per-connection throttling.
package relay

import (
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a frame to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Outbound frames queued per connection before the hub starts dropping.
	sendBufferSize = 256

	defaultMaxMessageSize = 4 * 1024
)

// ClientConfig bounds inbound traffic for a single connection.
type ClientConfig struct {
	MaxMessageSize int64
	RateBurst      int
	RateRefill     time.Duration
}

// Client wraps a single WebSocket connection. The hub addresses it by its
// generated connection ID; the identity behind it lives in the registry.
type Client struct {
	id   string
	conn *websocket.Conn
	hub  *Hub
	addr string

	// send is the buffered channel of outbound frames. The hub writes to it,
	// the write pump drains it to the connection. Separating the two keeps a
	// slow reader from blocking state transitions.
	send chan *Frame

	limiter *rateLimiter
}

// NewClient creates a Client for conn with a freshly generated connection ID.
// A nil conn is allowed so the hub can be exercised without a transport.
func NewClient(hub *Hub, conn *websocket.Conn, addr string, cfg ClientConfig) *Client {
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}
	if conn != nil {
		conn.SetReadLimit(cfg.MaxMessageSize)
	}

	return &Client{
		id:      uuid.NewString(),
		conn:    conn,
		hub:     hub,
		addr:    addr,
		send:    make(chan *Frame, sendBufferSize),
		limiter: newRateLimiter(cfg.RateBurst, cfg.RateRefill),
	}
}

// ID returns the connection ID the hub and registry key this client by.
func (c *Client) ID() string {
	return c.id
}

// GetSendChan returns the channel of outbound frames, read-only from the
// caller's perspective.
func (c *Client) GetSendChan() <-chan *Frame {
	return c.send
}

// Forward hands an inbound frame to the hub, attributed to this client. The
// read pump calls it for every decoded frame; it returns without delivering
// once the hub has shut down.
func (c *Client) Forward(frame *Frame) {
	frame.client = c
	select {
	case c.hub.inbound <- frame:
	case <-c.hub.ctx.Done():
	}
}

// ReadPump pumps frames from the connection to the hub. It runs in a
// per-connection goroutine; all reads happen here so there is at most one
// reader per connection. The deferred unregister is what triggers the
// disconnect transition for abrupt closes.
func (c *Client) ReadPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.ctx.Done():
		}
		c.closeConn()
	}()

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		log.Printf("Error setting read deadline for %s: %v", c.addr, err)
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var frame Frame
		if err := c.conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) && !isExpectedCloseError(err) {
				log.Printf("Read error from %s: %v", c.addr, err)
			}
			break
		}

		if !c.limiter.allow() {
			log.Printf("Rate limit exceeded for %s; discarding %s frame", c.addr, frame.Type)
			continue
		}

		c.Forward(&frame)
	}
}

// WritePump pumps frames from the send channel to the connection and keeps
// the connection alive with periodic pings. It runs in a per-connection
// goroutine; all writes happen here so there is at most one writer per
// connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.closeConn()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Printf("Error setting write deadline for %s: %v", c.addr, err)
				return
			}
			if !ok {
				// The hub closed the channel.
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(frame); err != nil {
				if !isExpectedCloseError(err) {
					log.Printf("Write error to %s: %v", c.addr, err)
				}
				return
			}

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) closeConn() {
	if err := c.conn.Close(); err != nil && !isExpectedCloseError(err) {
		log.Printf("Error closing connection for %s: %v", c.addr, err)
	}
}
