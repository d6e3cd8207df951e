// Package models holds the server-side data records.
package models

import "time"

// User is a credential record. PasswordHash is the bcrypt hash — the
// plaintext never exists beyond the request that carried it, and the hash
// never leaves the service layer.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}
