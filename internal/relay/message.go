// Package relay implements the room membership and event fan-out engine for
// the Orbit signaling relay: the registry of live connections, the room
// directory, and the hub that coordinates presence notifications and global
// chat. The relay is a coordination plane only; media travels peer-to-peer
// out of band.
package relay

import "encoding/json"

// Frame types accepted from clients.
const (
	TypeJoinApp   = "join-app"
	TypeJoinRoom  = "join-room"
	TypeLeaveRoom = "leave-room"
	TypeChatMsg   = "chat-msg"
)

// Frame types emitted to clients.
const (
	TypeRoomUsers        = "room-users"
	TypeUserConnected    = "user-connected"
	TypeUserDisconnected = "user-disconnected"
	TypeNewChat          = "new-chat"
)

// Frame is the envelope for every message exchanged over a connection, in
// both directions. The payload shape depends on Type: join-room and chat-msg
// carry a bare JSON string, everything else carries an object or a list.
type Frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`

	// client is the connection the frame arrived on. Set by the read pump,
	// used by the hub, never serialized.
	client *Client `json:"-"`
}

// JoinAppPayload carries the identity a client registers under.
type JoinAppPayload struct {
	Username string `json:"username"`
	PeerID   string `json:"peerId"`
}

// RoomUser identifies one room member to the joining client. PeerID is the
// opaque token the out-of-band media layer dials.
type RoomUser struct {
	PeerID   string `json:"peerId"`
	Username string `json:"username"`
}

// ChatPayload is the global chat notification delivered to every connection.
type ChatPayload struct {
	User string `json:"user"`
	Text string `json:"text"`
}

// NewFrame builds an outbound frame, marshaling payload into the envelope.
func NewFrame(frameType string, payload any) *Frame {
	data, _ := json.Marshal(payload)
	return &Frame{Type: frameType, Payload: data}
}

// stringPayload decodes payloads that are a bare JSON string, such as the
// room name of a join-room frame or the text of a chat-msg frame.
func (f *Frame) stringPayload() (string, bool) {
	var s string
	if err := json.Unmarshal(f.Payload, &s); err != nil {
		return "", false
	}
	return s, true
}
