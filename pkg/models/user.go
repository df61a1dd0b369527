package models

import (
	"time"
)

// User is an account holder. The id is an opaque string issued by the
// identity provider and is stable for the life of the account.
type User struct {
	ID            string     `json:"id"`
	Name          *string    `json:"name,omitempty"`
	Email         string     `json:"email"`
	EmailVerified *time.Time `json:"emailVerified,omitempty"`
	Image         *string    `json:"image,omitempty"`
}

// Session is a database-backed login session.
type Session struct {
	SessionToken string    `json:"-"`
	UserID       string    `json:"userId"`
	Expires      time.Time `json:"expires"`
}

// VerificationToken is a one-time email sign-in token.
type VerificationToken struct {
	Identifier string    `json:"identifier"`
	Token      string    `json:"-"`
	Expires    time.Time `json:"expires"`
}

// SessionUser is the caller identity resolved for a request.
type SessionUser struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Image string `json:"image,omitempty"`
}

// ToUser converts the session identity into a storable User row.
func (u *SessionUser) ToUser() *User {
	user := &User{ID: u.ID, Email: u.Email}
	if u.Name != "" {
		name := u.Name
		user.Name = &name
	}
	if u.Image != "" {
		image := u.Image
		user.Image = &image
	}
	return user
}
