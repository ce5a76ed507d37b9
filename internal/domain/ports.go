package domain

import (
	"context"
	"time"

	"github.com/go-pkgz/auth/token"
)

// ============================================================================
// Primary Ports (Application Use Cases)
// ============================================================================

// AccountService defines the primary port for registration and login use cases
type AccountService interface {
	Register(ctx context.Context, username, password string) (*User, error)
	Login(ctx context.Context, username, password string) (*User, error)
	LoginWithGoogle(ctx context.Context, profile GoogleProfile) (*User, error)
	Resolve(ctx context.Context, principal token.User) (*User, error)
}

// SecretService defines the primary port for secret management use cases
type SecretService interface {
	Wall(ctx context.Context) ([]SecretWallEntry, error)
	Own(ctx context.Context, userID string) ([]string, error)
	Submit(ctx context.Context, userID, secret string) error
	Remove(ctx context.Context, userID, secret string) (bool, error)
}

// ============================================================================
// Secondary Ports (Infrastructure)
// ============================================================================

// UserStore is the document collection holding User records. Implementations
// return ErrUserNotFound and ErrUserAlreadyExists wrapped as DomainErrors.
type UserStore interface {
	CreateLocal(ctx context.Context, username string, cred Credential) (*User, error)
	FindOrCreateByGoogleID(ctx context.Context, profile GoogleProfile) (*User, bool, error)
	GetByID(ctx context.Context, id string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	ListWithSecrets(ctx context.Context) ([]*User, error)
	AppendSecret(ctx context.Context, id, secret string) error
	RemoveSecret(ctx context.Context, id, secret string) (bool, error)
	Close() error
}

// PasswordHasher turns plaintext passwords into salted hashes and back into
// a match decision. Plaintext is never retained.
type PasswordHasher interface {
	Hash(password string) (Credential, error)
	Verify(password string, cred Credential) (bool, error)
}

// SessionStore persists server-side sessions keyed by their opaque id.
// Get returns ErrSessionNotFound for unknown or expired sessions.
type SessionStore interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
