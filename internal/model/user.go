// Package model defines the data structures used throughout the application.
package model

import "time"

// User represents a registered account.
//
// PasswordHash is tagged `json:"-"` so it can never leak into an API response,
// no matter which handler serializes the struct. Handlers that need to return
// a user simply encode the model directly.
//
// GoogleID holds the subject claim from Google sign-in for accounts that were
// provisioned (or later linked) via OAuth. It is empty for password-only
// accounts — we use the empty string as the zero value rather than a nullable
// pointer, same as the other optional fields.
type User struct {
	ID             string    `json:"id"             db:"id"`
	FullName       string    `json:"fullName"       db:"full_name"`       // Display name, unique across accounts
	Email          string    `json:"email"          db:"email"`           // Unique, compared case-insensitively
	PasswordHash   string    `json:"-"              db:"password_hash"`   // bcrypt hash, never serialized
	ProfilePicture string    `json:"profilePicture" db:"profile_picture"` // Avatar URL (may be empty)
	GoogleID       string    `json:"-"              db:"google_id"`       // Google OAuth subject (may be empty)
	IsAdmin        bool      `json:"isAdmin"        db:"is_admin"`
	CreatedAt      time.Time `json:"createdAt"      db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt"      db:"updated_at"`
}
