package chat

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestRooms_GetBounds(t *testing.T) {
	rs := NewRooms()
	for id := uint8(1); id <= NumRooms; id++ {
		r, err := rs.Get(id)
		if err != nil {
			t.Fatalf("get room %d: %v", id, err)
		}
		if r.ID != id {
			t.Fatalf("room %d has id %d", id, r.ID)
		}
		if r.Len() != 0 {
			t.Fatalf("room %d not empty at startup", id)
		}
	}
	for _, id := range []uint8{0, NumRooms + 1, 255} {
		if _, err := rs.Get(id); !errors.Is(err, ErrNoRoom) {
			t.Fatalf("get room %d: expected ErrNoRoom, got %v", id, err)
		}
	}
}

func TestRooms_AddUntilFull(t *testing.T) {
	rs := NewRooms()
	r, err := rs.Get(1)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	users := make([]*User, MaxUsersPerRoom+1)
	for i := range users {
		users[i] = &User{UID: UID(i + 1), Name: DefaultName, Room: InvalidRoom}
	}
	for i := 0; i < MaxUsersPerRoom; i++ {
		if err := rs.Add(r, users[i]); err != nil {
			t.Fatalf("add user %d: %v", i+1, err)
		}
		if users[i].Room != r.ID {
			t.Fatalf("user %d room not set", i+1)
		}
	}
	if r.Len() != MaxUsersPerRoom {
		t.Fatalf("room holds %d members, want %d", r.Len(), MaxUsersPerRoom)
	}
	over := users[MaxUsersPerRoom]
	if err := rs.Add(r, over); !errors.Is(err, ErrRoomFull) {
		t.Fatalf("expected ErrRoomFull, got %v", err)
	}
	if over.Room != InvalidRoom {
		t.Fatalf("rejected user got room %d", over.Room)
	}
	if r.Len() != MaxUsersPerRoom {
		t.Fatalf("rejected add changed member count to %d", r.Len())
	}
}

func TestRooms_RemoveSwapsLastIntoSlot(t *testing.T) {
	rs := NewRooms()
	r, err := rs.Get(2)
	if err != nil {
		t.Fatalf("get room: %v", err)
	}
	u := make([]*User, 4)
	for i := range u {
		u[i] = &User{UID: UID(i + 10)}
		if err := rs.Add(r, u[i]); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	// Removing a middle member moves the last member into its slot.
	if err := rs.Remove(r, u[1]); err != nil {
		t.Fatalf("remove: %v", err)
	}
	want := []UID{10, 13, 12}
	if diff := cmp.Diff(want, r.Members()); diff != "" {
		t.Fatalf("member order after removal (-want +got):\n%s", diff)
	}
	if u[1].Room != InvalidRoom {
		t.Fatalf("removed user still has room %d", u[1].Room)
	}
	// Removing the last member just shrinks the list.
	if err := rs.Remove(r, u[2]); err != nil {
		t.Fatalf("remove last: %v", err)
	}
	want = []UID{10, 13}
	if diff := cmp.Diff(want, r.Members()); diff != "" {
		t.Fatalf("member order after tail removal (-want +got):\n%s", diff)
	}
}

func TestRooms_RemoveNonMember(t *testing.T) {
	rs := NewRooms()
	r1, _ := rs.Get(1)
	r2, _ := rs.Get(2)
	u := &User{UID: 7}
	if err := rs.Remove(r1, u); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember for roomless user, got %v", err)
	}
	if err := rs.Add(r1, u); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := rs.Remove(r2, u); !errors.Is(err, ErrNotMember) {
		t.Fatalf("expected ErrNotMember for wrong room, got %v", err)
	}
	if u.Room != r1.ID {
		t.Fatalf("failed removal changed user's room to %d", u.Room)
	}
}

func TestRooms_MembershipIsExclusive(t *testing.T) {
	rs := NewRooms()
	r1, _ := rs.Get(1)
	r3, _ := rs.Get(3)
	u := &User{UID: 42}
	if err := rs.Add(r1, u); err != nil {
		t.Fatalf("add: %v", err)
	}
	// The dispatcher removes before re-adding; the registry tracks only
	// the latest room on the user record.
	if err := rs.Remove(r1, u); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := rs.Add(r3, u); err != nil {
		t.Fatalf("re-add: %v", err)
	}
	if u.Room != r3.ID {
		t.Fatalf("user room %d, want %d", u.Room, r3.ID)
	}
	if r1.Len() != 0 || r3.Len() != 1 {
		t.Fatalf("member counts %d/%d, want 0/1", r1.Len(), r3.Len())
	}
}
