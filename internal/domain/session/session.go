package session

import "time"

// Session binds a browsing context to a signed-in user.
type Session struct {
	Token     string    // Token is the opaque value handed to the client
	UserID    int64     // UserID is the signed-in user
	CreatedAt time.Time // CreatedAt is the sign-in time
	ExpiresAt time.Time // ExpiresAt is when the session stops being honoured
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}
