package identity

import "time"

// User represents a registered wallet owner. Accounts are created on first
// Google sign-in, so GoogleID is the external anchor and Email the payment
// provider contact.
type User struct {
	ID        string
	FullName  string
	Email     string
	GoogleID  string
	CreatedAt time.Time
}

// Profile carries the verified claims extracted from a Google ID token.
type Profile struct {
	GoogleID string
	Email    string
	FullName string
}
