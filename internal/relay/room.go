// Package relay maps room names to their member connections through the
// RoomDirectory type.
package relay

// RoomDirectory maps room names to member connection IDs. Rooms exist
// implicitly: a room comes into being when the first connection joins it and
// its entry is pruned when the last member leaves. The directory references
// connections by ID only and never owns the registry record behind one.
//
// Like the Registry, it is owned by the hub goroutine and is not safe for
// concurrent use.
type RoomDirectory struct {
	rooms map[string]map[string]struct{}
}

// NewRoomDirectory creates an empty room directory.
func NewRoomDirectory() *RoomDirectory {
	return &RoomDirectory{rooms: make(map[string]map[string]struct{})}
}

// Join adds id to the member set for room, creating the set if absent.
// Joining a room the connection is already in is idempotent.
func (d *RoomDirectory) Join(room, id string) {
	members, ok := d.rooms[room]
	if !ok {
		members = make(map[string]struct{})
		d.rooms[room] = members
	}
	members[id] = struct{}{}
}

// Leave removes id from the member set for room. Empty sets are pruned so a
// long-running process does not accumulate entries for abandoned rooms.
func (d *RoomDirectory) Leave(room, id string) {
	members, ok := d.rooms[room]
	if !ok {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(d.rooms, room)
	}
}

// Members returns the IDs of every member of room except excluding, in no
// particular order.
func (d *RoomDirectory) Members(room, excluding string) []string {
	members := d.rooms[room]
	ids := make([]string, 0, len(members))
	for id := range members {
		if id != excluding {
			ids = append(ids, id)
		}
	}
	return ids
}

// Contains reports whether id is a member of room.
func (d *RoomDirectory) Contains(room, id string) bool {
	_, ok := d.rooms[room][id]
	return ok
}
