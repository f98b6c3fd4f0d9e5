// Package relay tracks advisory conversation membership via the RoomTable
// type.
package relay

import "sync"

// RoomTable maps a conversation identifier to the set of user identifiers
// currently joined to it. Membership is advisory for routing only: a user may
// be a member without holding a live connection, and joining is never gated.
// Rooms are created lazily on first join and deleted when their member set
// empties.
type RoomTable struct {
	mu    sync.RWMutex
	rooms map[string]map[string]struct{}
}

// NewRoomTable returns an empty membership table.
func NewRoomTable() *RoomTable {
	return &RoomTable{rooms: make(map[string]map[string]struct{})}
}

// Join adds userID to the member set for conversationID, creating the room if
// needed. Join is idempotent.
func (t *RoomTable) Join(conversationID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	members, ok := t.rooms[conversationID]
	if !ok {
		members = make(map[string]struct{})
		t.rooms[conversationID] = members
	}
	members[userID] = struct{}{}
}

// Leave removes userID from the member set for conversationID and deletes the
// room once the set empties. Unknown rooms and non-members are no-ops.
func (t *RoomTable) Leave(conversationID, userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.leaveLocked(conversationID, userID)
}

// LeaveAll removes userID from every room it belongs to, deleting rooms that
// empty. It is invoked on disconnect so stale membership cannot accumulate.
func (t *RoomTable) LeaveAll(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for conversationID := range t.rooms {
		t.leaveLocked(conversationID, userID)
	}
}

func (t *RoomTable) leaveLocked(conversationID, userID string) {
	members, ok := t.rooms[conversationID]
	if !ok {
		return
	}
	delete(members, userID)
	if len(members) == 0 {
		delete(t.rooms, conversationID)
	}
}

// MembersExcept returns the members of conversationID other than
// excludeUserID. An unknown room yields an empty slice, never an error; the
// snapshot is taken under the lock so a concurrent Leave cannot expose a
// partially updated set.
func (t *RoomTable) MembersExcept(conversationID, excludeUserID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	members, ok := t.rooms[conversationID]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(members))
	for userID := range members {
		if userID == excludeUserID {
			continue
		}
		out = append(out, userID)
	}
	return out
}

// Count reports the number of rooms with at least one member.
func (t *RoomTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.rooms)
}
