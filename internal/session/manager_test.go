package session

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-pkgz/auth/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretwall/internal/db"
	"github.com/secretwall/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func setupSQLiteStore(t *testing.T) *db.SessionStore {
	t.Helper()
	database, err := db.Init(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database.Sessions()
}

func TestManager_CreateLookupDestroy(t *testing.T) {
	m := NewManager(setupSQLiteStore(t), time.Hour, false, testLogger())
	ctx := context.Background()
	alice := token.User{ID: "u1", Name: "alice"}

	sess, err := m.Create(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, sess.ID, 64)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, 5*time.Second)

	got, err := m.Lookup(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, alice, got)

	require.NoError(t, m.Destroy(ctx, sess.ID))
	_, err = m.Lookup(ctx, sess.ID)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))

	assert.NoError(t, m.Destroy(ctx, sess.ID), "destroying twice is harmless")
	assert.NoError(t, m.Destroy(ctx, ""))
}

func TestManager_FreshIDPerLogin(t *testing.T) {
	m := NewManager(setupSQLiteStore(t), time.Hour, false, testLogger())
	ctx := context.Background()
	alice := token.User{ID: "u1", Name: "alice"}

	first, err := m.Create(ctx, alice)
	require.NoError(t, err)
	second, err := m.Create(ctx, alice)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestManager_LookupUnknownOrExpired(t *testing.T) {
	m := NewManager(setupSQLiteStore(t), time.Hour, false, testLogger())
	ctx := context.Background()

	_, err := m.Lookup(ctx, "")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
	_, err = m.Lookup(ctx, "forged")
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))

	m.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, err := m.Create(ctx, token.User{ID: "u1"})
	require.NoError(t, err)
	m.now = time.Now

	_, err = m.Lookup(ctx, stale.ID)
	assert.True(t, errors.Is(err, domain.ErrSessionNotFound))
}

func TestManager_Cookies(t *testing.T) {
	m := NewManager(setupSQLiteStore(t), time.Hour, true, testLogger())
	sess := domain.Session{ID: "abc123", ExpiresAt: time.Now().Add(time.Hour)}

	rec := httptest.NewRecorder()
	m.WriteCookie(rec, sess)
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	c := cookies[0]
	assert.Equal(t, CookieName, c.Name)
	assert.Equal(t, "abc123", c.Value)
	assert.True(t, c.HttpOnly)
	assert.True(t, c.Secure)
	assert.Equal(t, http.SameSiteLaxMode, c.SameSite)
	assert.Equal(t, "/", c.Path)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(c)
	assert.Equal(t, "abc123", m.ReadCookie(req))
	assert.Empty(t, m.ReadCookie(httptest.NewRequest(http.MethodGet, "/", nil)))

	rec = httptest.NewRecorder()
	m.ClearCookie(rec)
	cleared := rec.Result().Cookies()
	require.Len(t, cleared, 1)
	assert.Empty(t, cleared[0].Value)
	assert.Less(t, cleared[0].MaxAge, 0)
}
