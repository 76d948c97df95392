package types

import "time"

// User represents an account in the system.
// It contains identity, credentials, and audit metadata.
type User struct {
	// ID is the unique, sequentially assigned identifier of the user.
	ID int `json:"id" db:"id"`

	// Username is the unique login name chosen by the user.
	// It is also the subject of the user's access tokens.
	Username string `json:"username" db:"username"`

	// Email is the user's unique email address.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"-" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"-" db:"updated_at"`
}

// UserPublic is the public projection of a User.
type UserPublic struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// Public returns the fields of the user that may be shown to clients.
func (u User) Public() UserPublic {
	return UserPublic{ID: u.ID, Username: u.Username, Email: u.Email}
}
