package chat

import "fmt"

// Users maps connection ids to user records.
type Users struct {
	m map[UID]*User
}

func NewUsers() *Users { return &Users{m: make(map[UID]*User)} }

// Add registers a new user with the default name and no room.
func (us *Users) Add(uid UID) (*User, error) {
	if _, ok := us.m[uid]; ok {
		return nil, fmt.Errorf("chat: user %d: %w", uid, ErrDuplicateUser)
	}
	u := &User{UID: uid, Name: DefaultName, Room: InvalidRoom}
	us.m[uid] = u
	return u, nil
}

// Find returns the user for uid.
func (us *Users) Find(uid UID) (*User, error) {
	u, ok := us.m[uid]
	if !ok {
		return nil, fmt.Errorf("chat: user %d: %w", uid, ErrUnknownUser)
	}
	return u, nil
}

// Delete removes the user for uid.
func (us *Users) Delete(uid UID) error {
	if _, ok := us.m[uid]; !ok {
		return fmt.Errorf("chat: user %d: %w", uid, ErrUnknownUser)
	}
	delete(us.m, uid)
	return nil
}

// Len returns the number of registered users.
func (us *Users) Len() int { return len(us.m) }
