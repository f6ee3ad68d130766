// Package model defines the data structures used throughout the application.
// In Go, we use structs to represent our data, similar to classes in other languages,
// but without inheritance. Go favours composition over inheritance.
package model

import "time"

// Session is the server-held proof of authentication for one browser.
//
// The browser only ever sees a signed cookie carrying ID. AuthToken is the
// opaque bearer string the backend issued at sign-in and UserEmail the email
// the visitor signed in with; both are persisted together and cleared together.
type Session struct {
	ID        string    `json:"id"        db:"id"`
	AuthToken string    `json:"-"         db:"auth_token"`
	UserEmail string    `json:"userEmail" db:"user_email"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// IsAuthenticated is derived, never stored: true iff an auth token is present.
func (s *Session) IsAuthenticated() bool {
	return s != nil && s.AuthToken != ""
}
