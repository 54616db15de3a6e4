package relay_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitlabs/orbit-relay/internal/relay"
)

func TestRegistryRegisterAndLookup(t *testing.T) {
	registry := relay.NewRegistry()

	conn := registry.Register("conn-1", "Alice", "peerA")
	require.NotNil(t, conn)
	assert.Equal(t, "conn-1", conn.ID)
	assert.Equal(t, "Alice", conn.Username)
	assert.Equal(t, "peerA", conn.PeerID)
	assert.Empty(t, conn.Room)

	found, ok := registry.Lookup("conn-1")
	require.True(t, ok)
	assert.Same(t, conn, found)
}

func TestRegistryLookupUnknown(t *testing.T) {
	registry := relay.NewRegistry()

	_, ok := registry.Lookup("never-registered")
	assert.False(t, ok)
}

func TestRegistryReregisterResetsRoom(t *testing.T) {
	registry := relay.NewRegistry()

	first := registry.Register("conn-1", "Alice", "peerA")
	first.Room = "lobby"

	second := registry.Register("conn-1", "Alicia", "peerA2")
	assert.Empty(t, second.Room)
	assert.Equal(t, "Alicia", second.Username)

	found, ok := registry.Lookup("conn-1")
	require.True(t, ok)
	assert.Same(t, second, found)
}

func TestRegistryDuplicateUsernamesAreDistinct(t *testing.T) {
	registry := relay.NewRegistry()

	a := registry.Register("conn-1", "Alice", "peerA")
	b := registry.Register("conn-2", "Alice", "peerB")

	assert.NotSame(t, a, b)
	assert.Equal(t, a.Username, b.Username)
	assert.NotEqual(t, a.PeerID, b.PeerID)
}

func TestRegistryRemove(t *testing.T) {
	registry := relay.NewRegistry()

	registry.Register("conn-1", "Alice", "peerA")
	registry.Remove("conn-1")

	_, ok := registry.Lookup("conn-1")
	assert.False(t, ok)

	// Removing twice is harmless.
	registry.Remove("conn-1")
}
