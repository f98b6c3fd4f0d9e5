package relay

import (
	"slices"
	"testing"
)

func TestJoinIsIdempotent(t *testing.T) {
	rt := NewRoomTable()
	rt.Join("c1", "u1")
	rt.Join("c1", "u1")

	members := rt.MembersExcept("c1", "u2")
	if len(members) != 1 || members[0] != "u1" {
		t.Errorf("expected exactly [u1], got %v", members)
	}
}

func TestMembersExceptExcludesCaller(t *testing.T) {
	rt := NewRoomTable()
	rt.Join("c1", "u1")
	rt.Join("c1", "u2")
	rt.Join("c1", "u3")

	members := rt.MembersExcept("c1", "u1")
	if slices.Contains(members, "u1") {
		t.Error("caller must never appear in its own fan-out set")
	}
	if len(members) != 2 || !slices.Contains(members, "u2") || !slices.Contains(members, "u3") {
		t.Errorf("expected the other two members, got %v", members)
	}
}

func TestMembersExceptUnknownRoomIsEmpty(t *testing.T) {
	rt := NewRoomTable()
	if members := rt.MembersExcept("ghost", "u1"); len(members) != 0 {
		t.Errorf("expected empty set for unknown room, got %v", members)
	}
}

func TestLeaveDeletesEmptyRoom(t *testing.T) {
	rt := NewRoomTable()
	rt.Join("c1", "u1")
	rt.Leave("c1", "u1")

	if rt.Count() != 0 {
		t.Errorf("expected room to be deleted once empty, %d rooms remain", rt.Count())
	}
	if members := rt.MembersExcept("c1", ""); len(members) != 0 {
		t.Errorf("expected no members after the room emptied, got %v", members)
	}
}

func TestLeaveUnknownRoomIsNoOp(t *testing.T) {
	rt := NewRoomTable()
	rt.Leave("ghost", "u1")
	if rt.Count() != 0 {
		t.Error("leave on an unknown room created state")
	}
}

func TestLeaveAllRemovesUserEverywhere(t *testing.T) {
	rt := NewRoomTable()
	rt.Join("c1", "u1")
	rt.Join("c1", "u2")
	rt.Join("c2", "u1")

	rt.LeaveAll("u1")

	if slices.Contains(rt.MembersExcept("c1", ""), "u1") {
		t.Error("u1 still a member of c1 after LeaveAll")
	}
	// c2 held only u1 and must be gone entirely.
	if rt.Count() != 1 {
		t.Errorf("expected only c1 to survive, got %d rooms", rt.Count())
	}
}
