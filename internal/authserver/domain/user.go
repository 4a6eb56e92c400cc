package domain

import "time"

// User is a resource owner account. Account management (signup, password
// reset, profile) belongs to the external authentication subsystem; the
// registry only resolves users by username.
type User struct {
	ID           string // ULID
	Username     string
	PasswordHash string // argon2id PHC string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
