package chat

import "errors"

const (
	// NumRooms is the fixed number of rooms provisioned at startup.
	NumRooms = 5
	// MaxUsersPerRoom caps the member list of every room.
	MaxUsersPerRoom = 25
	// InvalidRoom is the sentinel room id for "not in any room".
	InvalidRoom uint8 = 0
	// DefaultName is assigned to every user until they pick one.
	DefaultName = "Anonymous"
)

// UID identifies one live connection. Assigned by the accept loop and
// never reused within a process lifetime.
type UID uint64

// Domain errors surfaced to the dispatcher, which turns the user-visible
// ones into reply frames.
var (
	ErrNoRoom        = errors.New("room does not exist")
	ErrRoomFull      = errors.New("room is full")
	ErrNotMember     = errors.New("user not in room")
	ErrDuplicateUser = errors.New("user already registered")
	ErrUnknownUser   = errors.New("user not registered")
)

// User is the per-connection server-side state. Owned by the user
// registry; rooms refer to it by UID only.
type User struct {
	UID  UID
	Name string
	Room uint8 // InvalidRoom when unassigned
}
