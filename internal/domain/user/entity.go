package user

import (
	"strings"
	"time"
)

// User represents a user entity in the system.
type User struct {
	ID             int64     // ID is the unique identifier for the user
	Name           string    // Name is the display name of the user
	Email          string    // Email is the unique, lower-cased email address of the user
	PasswordDigest string    // PasswordDigest is the bcrypt hash of the password
	IsAdmin        bool      // IsAdmin grants deletion of other users
	CreatedAt      time.Time // CreatedAt is set once on signup
	UpdatedAt      time.Time // UpdatedAt changes on every edit
}

// NormalizeEmail trims and lower-cases an email so lookups and uniqueness are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
