package server_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlabs/orbit-relay/internal/relay"
	"github.com/orbitlabs/orbit-relay/internal/server"
)

func startRelay(t *testing.T, cfg *server.Config) *httptest.Server {
	t.Helper()

	hub := relay.NewHub()
	go hub.Run()
	t.Cleanup(func() {
		_ = hub.Shutdown(time.Second)
	})

	ts := httptest.NewServer(server.SetupRoutes(hub, cfg))
	t.Cleanup(ts.Close)
	return ts
}

func permissiveConfig() *server.Config {
	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"*"}
	return cfg
}

func dialRelay(t *testing.T, ts *httptest.Server, origin string) *websocket.Conn {
	t.Helper()

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": {origin}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func writeFrame(t *testing.T, conn *websocket.Conn, frameType string, payload any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(relay.NewFrame(frameType, payload)))
}

func readFrame(t *testing.T, conn *websocket.Conn, wantType string) *relay.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var frame relay.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	require.Equal(t, wantType, frame.Type)
	return &frame
}

func TestHealthEndpoint(t *testing.T) {
	ts := startRelay(t, permissiveConfig())

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/plain", resp.Header.Get("Content-Type"))
}

func TestWebSocketEndpointRejectsNonGet(t *testing.T) {
	ts := startRelay(t, permissiveConfig())

	resp, err := http.Post(ts.URL+"/ws", "application/json", nil)
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestWebSocketEndpointEnforcesOriginPolicy(t *testing.T) {
	cfg := server.NewConfig()
	cfg.AllowedOrigins = []string{"http://allowed.example"}
	ts := startRelay(t, cfg)

	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	header := http.Header{"Origin": {"http://evil.example"}}
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	if conn != nil {
		_ = conn.Close()
	}
	if resp != nil {
		_ = resp.Body.Close()
	}
	assert.Error(t, err, "handshake from a disallowed origin must fail")
}

func TestStaticDirServed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "index.html"), []byte("<h1>orbit</h1>"), 0o644))

	cfg := permissiveConfig()
	cfg.StaticDir = dir
	ts := startRelay(t, cfg)

	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	defer func() {
		_ = resp.Body.Close()
	}()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

// TestRelayFlowOverWebSocket runs the lobby scenario over a real transport:
// two clients register, meet in a room, chat, and one drops the connection.
func TestRelayFlowOverWebSocket(t *testing.T) {
	ts := startRelay(t, permissiveConfig())

	alice := dialRelay(t, ts, "http://client.example")
	bob := dialRelay(t, ts, "http://client.example")

	writeFrame(t, alice, relay.TypeJoinApp, relay.JoinAppPayload{Username: "Alice", PeerID: "peerA"})
	writeFrame(t, alice, relay.TypeJoinRoom, "lobby")

	var aliceRoster []relay.RoomUser
	require.NoError(t, json.Unmarshal(readFrame(t, alice, relay.TypeRoomUsers).Payload, &aliceRoster))
	assert.Empty(t, aliceRoster)

	writeFrame(t, bob, relay.TypeJoinApp, relay.JoinAppPayload{Username: "Bob", PeerID: "peerB"})
	writeFrame(t, bob, relay.TypeJoinRoom, "lobby")

	var bobRoster []relay.RoomUser
	require.NoError(t, json.Unmarshal(readFrame(t, bob, relay.TypeRoomUsers).Payload, &bobRoster))
	assert.Equal(t, []relay.RoomUser{{PeerID: "peerA", Username: "Alice"}}, bobRoster)

	var arrival relay.RoomUser
	require.NoError(t, json.Unmarshal(readFrame(t, alice, relay.TypeUserConnected).Payload, &arrival))
	assert.Equal(t, relay.RoomUser{PeerID: "peerB", Username: "Bob"}, arrival)

	writeFrame(t, alice, relay.TypeChatMsg, "hello")
	for _, conn := range []*websocket.Conn{alice, bob} {
		var chat relay.ChatPayload
		require.NoError(t, json.Unmarshal(readFrame(t, conn, relay.TypeNewChat).Payload, &chat))
		assert.Equal(t, relay.ChatPayload{User: "Alice", Text: "hello"}, chat)
	}

	require.NoError(t, bob.Close())

	var departed string
	require.NoError(t, json.Unmarshal(readFrame(t, alice, relay.TypeUserDisconnected).Payload, &departed))
	assert.Equal(t, "peerB", departed)
}
