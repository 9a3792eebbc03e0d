package hub

import (
	"fmt"
	"math/rand"
	"testing"
)

// checkIndexes verifies the bidirectional invariant: every session-index
// entry references a registered record and every record is indexed.
func checkIndexes(t *testing.T, r *Registry) {
	t.Helper()
	r.mu.RLock()
	defer r.mu.RUnlock()

	for userID, ids := range r.byUser {
		if len(ids) == 0 {
			t.Errorf("user %d has an empty index entry", userID)
		}
		for _, id := range ids {
			s, ok := r.byConn[id]
			if !ok {
				t.Errorf("user %d indexes unknown conn %s", userID, id)
				continue
			}
			if s.UserID != userID {
				t.Errorf("conn %s indexed under user %d but belongs to %d", id, userID, s.UserID)
			}
		}
	}
	for id, s := range r.byConn {
		found := false
		for _, indexed := range r.byUser[s.UserID] {
			if indexed == id {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("conn %s registered but not indexed under user %d", id, s.UserID)
		}
	}
	for roomID, members := range r.rooms {
		if len(members) == 0 {
			t.Errorf("room %s exists with no members", roomID)
		}
	}
}

func TestRegisterUnregister(t *testing.T) {
	r := NewRegistry(nil)

	s1, _ := testSession("c1", 1, 10)
	s2, _ := testSession("c2", 1, 10)
	s3, _ := testSession("c3", 2, 10)
	r.Register(s1)
	r.Register(s2)
	r.Register(s3)
	checkIndexes(t, r)

	if got := r.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}
	if ids := r.LookupSessions(1); len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("LookupSessions(1) = %v, want [c1 c2]", ids)
	}

	if removed := r.Unregister("c1"); removed != s1 {
		t.Errorf("Unregister(c1) = %v, want s1", removed)
	}
	checkIndexes(t, r)
	if ids := r.LookupSessions(1); len(ids) != 1 || ids[0] != "c2" {
		t.Errorf("LookupSessions(1) after removal = %v, want [c2]", ids)
	}

	r.Unregister("c2")
	checkIndexes(t, r)
	if ids := r.LookupSessions(1); len(ids) != 0 {
		t.Errorf("LookupSessions(1) after last removal = %v, want empty", ids)
	}
}

func TestRegisterIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	s, _ := testSession("c1", 1, 10)
	r.Register(s)
	r.Register(s)

	if got := r.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	if ids := r.LookupSessions(1); len(ids) != 1 {
		t.Errorf("LookupSessions(1) = %v, want one entry", ids)
	}
}

func TestUnregisterUnknownIsNoop(t *testing.T) {
	r := NewRegistry(nil)
	s, _ := testSession("c1", 1, 10)
	r.Register(s)

	if removed := r.Unregister("missing"); removed != nil {
		t.Errorf("Unregister(missing) = %v, want nil", removed)
	}
	if got := r.Len(); got != 1 {
		t.Errorf("Len() = %d, want 1", got)
	}
	checkIndexes(t, r)
}

func TestIndexesConsistentUnderRandomOps(t *testing.T) {
	r := NewRegistry(nil)
	rng := rand.New(rand.NewSource(1))

	live := make([]string, 0, 64)
	for i := 0; i < 500; i++ {
		if len(live) == 0 || rng.Intn(2) == 0 {
			id := fmt.Sprintf("c%d", i)
			s, _ := testSession(id, int64(rng.Intn(5)), int64(rng.Intn(3)))
			r.Register(s)
			live = append(live, id)
		} else {
			j := rng.Intn(len(live))
			r.Unregister(live[j])
			live = append(live[:j], live[j+1:]...)
		}
		checkIndexes(t, r)
	}
	if got := r.Len(); got != len(live) {
		t.Errorf("Len() = %d, want %d", got, len(live))
	}
}

func TestRoomMembership(t *testing.T) {
	r := NewRegistry(nil)

	r.JoinRoom("task:5", 1)
	r.JoinRoom("task:5", 2)
	if members := r.RoomMembers("task:5"); len(members) != 2 {
		t.Fatalf("RoomMembers = %v, want 2 members", members)
	}

	r.LeaveRoom("task:5", 1)
	if members := r.RoomMembers("task:5"); len(members) != 1 || members[0] != 2 {
		t.Errorf("RoomMembers after leave = %v, want [2]", members)
	}

	r.LeaveRoom("task:5", 2)
	r.mu.RLock()
	_, exists := r.rooms["task:5"]
	r.mu.RUnlock()
	if exists {
		t.Error("empty room not deleted")
	}
}

func TestLastSessionUnregisterLeavesRooms(t *testing.T) {
	r := NewRegistry(nil)

	s1, _ := testSession("c1", 1, 10)
	s2, _ := testSession("c2", 1, 10)
	r.Register(s1)
	r.Register(s2)
	r.JoinRoom("field:3", 1)
	r.JoinRoom("field:3", 2)

	// A user with another live session stays in their rooms.
	r.Unregister("c1")
	if members := r.RoomMembers("field:3"); len(members) != 2 {
		t.Fatalf("RoomMembers after first unregister = %v, want 2 members", members)
	}

	// The last session going takes the user out of every joined room.
	r.Unregister("c2")
	members := r.RoomMembers("field:3")
	if len(members) != 1 || members[0] != 2 {
		t.Errorf("RoomMembers after last unregister = %v, want [2]", members)
	}
	checkIndexes(t, r)
}
