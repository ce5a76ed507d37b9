package domain

import (
	"time"

	"github.com/go-pkgz/auth/token"
)

// User is the single document kept by the store.
//
// SECURITY NOTICE: Secrets of every user are shown to every logged-in viewer on
// the wall page. Nothing in this model scopes read access to the owner.
type User struct {
	ID           string    `json:"id" db:"id"`
	Username     *string   `json:"username,omitempty" db:"username"` // nil for Google-only users
	Email        *string   `json:"email,omitempty" db:"email"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Salt         string    `json:"-" db:"salt"`
	GoogleID     *string   `json:"google_id,omitempty" db:"google_id"`
	Picture      string    `json:"picture,omitempty" db:"picture"`
	Secrets      []string  `json:"secrets" db:"secrets"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// DisplayName returns the username, or the Google id for Google-only users.
func (u *User) DisplayName() string {
	if u.Username != nil && *u.Username != "" {
		return *u.Username
	}
	if u.GoogleID != nil {
		return "google:" + *u.GoogleID
	}
	return u.ID
}

// Credential returns the stored password hash and salt.
func (u *User) Credential() Credential {
	return Credential{Hash: u.PasswordHash, Salt: u.Salt}
}

// HasPassword reports whether the user can log in locally.
func (u *User) HasPassword() bool {
	return u.PasswordHash != "" && u.Salt != ""
}

// Principal builds the minimal session identity for the user.
func (u *User) Principal() token.User {
	p := token.User{ID: u.ID, Picture: u.Picture}
	if u.Username != nil {
		p.Name = *u.Username
	}
	return p
}

// RemoveFirst removes the first exact occurrence of secret from secrets.
// The returned slice is a copy; the input is left untouched.
func RemoveFirst(secrets []string, secret string) ([]string, bool) {
	for i, s := range secrets {
		if s == secret {
			out := make([]string, 0, len(secrets)-1)
			out = append(out, secrets[:i]...)
			out = append(out, secrets[i+1:]...)
			return out, true
		}
	}
	return secrets, false
}

// Credential is a salted one-way password hash. Both fields are opaque to
// everything but the credential package.
type Credential struct {
	Hash string
	Salt string
}

// GoogleProfile is the subset of a Google userinfo response the app keeps.
type GoogleProfile struct {
	ID      string
	Name    string
	Email   string
	Picture string
}

// SecretWallEntry is one row of the shared secrets page.
type SecretWallEntry struct {
	UserID  string
	Secrets []string
}
