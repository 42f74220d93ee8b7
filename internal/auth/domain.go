// Package auth authenticates API callers with HTTP Basic credentials
// checked against bcrypt hashes in the users table.
package auth

import "time"

// User represents an account allowed to call the API.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}
