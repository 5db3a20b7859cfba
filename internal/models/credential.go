package models

import "time"

// Credential is a stored login record. PasswordHash holds a bcrypt hash,
// never the plaintext password.
type Credential struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}
