package models

import "time"

// User is a registered chat participant. Registration itself happens outside
// this service; rows are read to resolve handles into identities.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:150;uniqueIndex;not null" json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity returns the routing identity of the user.
func (u User) Identity() Identity {
	return Identity{ID: u.ID, Handle: u.Username}
}

// Identity is the authenticated participant attached to a connection.
// The zero value is the anonymous identity.
type Identity struct {
	ID     uint   `json:"id"`
	Handle string `json:"handle"`
}

// Anonymous is the explicit marker for an unauthenticated connection.
var Anonymous = Identity{}

// IsAnonymous reports whether the identity carries no participant.
func (i Identity) IsAnonymous() bool {
	return i.ID == 0 || i.Handle == ""
}

// Equal compares identities by identifier only.
func (i Identity) Equal(other Identity) bool {
	return i.ID == other.ID
}
