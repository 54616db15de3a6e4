// Package relay tracks the identity of every live connection through the
// Registry type.
package relay

// Connection is the registry record for one live client session. A record
// exists from identity registration until disconnect; a connection that never
// registered has no record and every operation referencing it is a no-op.
type Connection struct {
	ID       string
	Username string
	PeerID   string

	// Room is the name of the room the connection is currently in, or empty.
	// It must agree with the room directory's member sets at all times; only
	// the hub goroutine mutates it.
	Room string
}

// Registry owns the Connection records, keyed by connection ID. It is not
// safe for concurrent use: the hub goroutine is its single reader and writer.
type Registry struct {
	conns map[string]*Connection
}

// NewRegistry creates an empty connection registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Connection)}
}

// Register creates or overwrites the record for id with Room cleared.
// Usernames are not unique; two sessions registered under the same name are
// distinct entities. Callers that need remaining room members notified about
// an overwritten record must depart the old room before re-registering.
func (r *Registry) Register(id, username, peerID string) *Connection {
	conn := &Connection{ID: id, Username: username, PeerID: peerID}
	r.conns[id] = conn
	return conn
}

// Lookup returns the record for id, or false if the connection never
// registered or was already removed.
func (r *Registry) Lookup(id string) (*Connection, bool) {
	conn, ok := r.conns[id]
	return conn, ok
}

// Remove deletes the record for id. It must run after any notification that
// still references the record's data has been sent.
func (r *Registry) Remove(id string) {
	delete(r.conns, id)
}
