package domain

import (
	"time"

	"github.com/go-pkgz/auth/token"
)

// Session is server-side login state correlated with a client by ID, which
// travels as the session cookie value.
type Session struct {
	ID        string
	Principal token.User
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Expired reports whether the session is past its expiry at now
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}
