package session

import (
	"context"
	"testing"
	"time"

	"github.com/go-pkgz/auth/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/secretwall/internal/domain"
)

func TestNewSweeper_RejectsBadSchedule(t *testing.T) {
	_, err := NewSweeper(setupSQLiteStore(t), "every now and then", testLogger())
	assert.Error(t, err)
}

func TestSweeper_Sweep(t *testing.T) {
	store := setupSQLiteStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, store.Save(ctx, domain.Session{ID: "old", Principal: token.User{ID: "u1"}, ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.Save(ctx, domain.Session{ID: "new", Principal: token.User{ID: "u2"}, ExpiresAt: now.Add(time.Hour)}))

	s, err := NewSweeper(store, "@every 10m", testLogger())
	require.NoError(t, err)

	assert.Equal(t, int64(1), s.Sweep(ctx))
	assert.Zero(t, s.Sweep(ctx))

	_, err = store.Get(ctx, "new")
	assert.NoError(t, err)
}

func TestSweeper_StartStopsOnCancel(t *testing.T) {
	s, err := NewSweeper(setupSQLiteStore(t), "@every 1h", testLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not stop")
	}
}
