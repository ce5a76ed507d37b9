package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-pkgz/auth/token"

	"github.com/secretwall/internal/domain"
)

const (
	// CookieName is the browser cookie carrying the session id
	CookieName = "secretwall_session"

	idBytes = 32
)

// Manager issues and resolves server-side sessions. The browser only holds an
// opaque random id; the principal lives in the store.
type Manager struct {
	store  domain.SessionStore
	ttl    time.Duration
	secure bool
	logger *slog.Logger
	now    func() time.Time
}

// NewManager creates a session manager over store
func NewManager(store domain.SessionStore, ttl time.Duration, secureCookie bool, logger *slog.Logger) *Manager {
	return &Manager{
		store:  store,
		ttl:    ttl,
		secure: secureCookie,
		logger: logger,
		now:    time.Now,
	}
}

// Create starts a new session for principal. A fresh id is issued on every
// login, so an id seen before authentication is never promoted.
func (m *Manager) Create(ctx context.Context, principal token.User) (domain.Session, error) {
	id, err := newID()
	if err != nil {
		return domain.Session{}, err
	}

	now := m.now()
	sess := domain.Session{
		ID:        id,
		Principal: principal,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}
	if err := m.store.Save(ctx, sess); err != nil {
		return domain.Session{}, err
	}

	m.logger.DebugContext(ctx, "session created", "user_id", principal.ID)
	return sess, nil
}

// Lookup resolves a session id to its principal
func (m *Manager) Lookup(ctx context.Context, id string) (token.User, error) {
	if id == "" {
		return token.User{}, domain.ErrSessionNotFound
	}
	sess, err := m.store.Get(ctx, id)
	if err != nil {
		return token.User{}, err
	}
	if sess.Expired(m.now()) {
		return token.User{}, domain.ErrSessionNotFound
	}
	return sess.Principal, nil
}

// Destroy removes the session; unknown ids are ignored
func (m *Manager) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}
	if err := m.store.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	return nil
}

// ReadCookie returns the session id presented by the request, if any
func (m *Manager) ReadCookie(r *http.Request) string {
	c, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	return c.Value
}

// WriteCookie sets the session cookie for sess
func (m *Manager) WriteCookie(w http.ResponseWriter, sess domain.Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    sess.ID,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearCookie expires the session cookie in the browser
func (m *Manager) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func newID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
