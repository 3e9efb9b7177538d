package chat

import "fmt"

// Room is a bounded broadcast group. Members are stored in insertion
// order; removal swaps the last member into the vacated slot.
type Room struct {
	ID      uint8
	members []UID
}

// Members returns the member list in its current order. The slice is
// owned by the room; callers must not mutate it.
func (r *Room) Members() []UID { return r.members }

// Len returns the current member count.
func (r *Room) Len() int { return len(r.members) }

// Rooms is the fixed-size room registry. Ids run 1..NumRooms; index 0 of
// the backing array holds room 1.
type Rooms struct {
	rooms [NumRooms]Room
}

// NewRooms provisions all rooms. Rooms are never created or destroyed
// afterwards.
func NewRooms() *Rooms {
	rs := &Rooms{}
	for i := range rs.rooms {
		rs.rooms[i] = Room{ID: uint8(i + 1), members: make([]UID, 0, MaxUsersPerRoom)}
	}
	return rs
}

// Get returns the room with the given id.
func (rs *Rooms) Get(id uint8) (*Room, error) {
	if id < 1 || id > NumRooms {
		return nil, fmt.Errorf("chat: room %d: %w", id, ErrNoRoom)
	}
	return &rs.rooms[id-1], nil
}

// Add appends u to the room's member list and records the room on the
// user. Fails with ErrRoomFull at MaxUsersPerRoom members.
func (rs *Rooms) Add(room *Room, u *User) error {
	if len(room.members) == MaxUsersPerRoom {
		return fmt.Errorf("chat: room %d: %w", room.ID, ErrRoomFull)
	}
	room.members = append(room.members, u.UID)
	u.Room = room.ID
	return nil
}

// Remove deletes u from the room by swapping the last member into its
// slot and resets the user's room to InvalidRoom. The user must
// currently be in this room.
func (rs *Rooms) Remove(room *Room, u *User) error {
	if u.Room != room.ID {
		return fmt.Errorf("chat: room %d, user %d: %w", room.ID, u.UID, ErrNotMember)
	}
	for i, uid := range room.members {
		if uid == u.UID {
			last := len(room.members) - 1
			room.members[i] = room.members[last]
			room.members = room.members[:last]
			u.Room = InvalidRoom
			return nil
		}
	}
	return fmt.Errorf("chat: room %d, user %d: %w", room.ID, u.UID, ErrNotMember)
}
