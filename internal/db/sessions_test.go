package db

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-pkgz/auth/token"

	"github.com/secretwall/internal/domain"
)

func TestSessionStore_SaveGetDelete(t *testing.T) {
	store := setupTestDB(t).Sessions()
	ctx := context.Background()
	now := time.Now()

	sess := domain.Session{
		ID:        "abc",
		Principal: token.User{ID: "u1", Name: "alice", Picture: "p.png"},
		CreatedAt: now,
		ExpiresAt: now.Add(time.Hour),
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := store.Get(ctx, "abc")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !reflect.DeepEqual(got.Principal, sess.Principal) {
		t.Errorf("Expected principal %+v, got %+v", sess.Principal, got.Principal)
	}
	if got.ExpiresAt.Unix() != sess.ExpiresAt.Unix() {
		t.Errorf("Expected expiry %v, got %v", sess.ExpiresAt, got.ExpiresAt)
	}

	if err := store.Delete(ctx, "abc"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "abc"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound after delete, got %v", err)
	}
	if err := store.Delete(ctx, "abc"); err != nil {
		t.Errorf("Deleting twice should not error, got %v", err)
	}
}

func TestSessionStore_ExpiredSessions(t *testing.T) {
	store := setupTestDB(t).Sessions()
	ctx := context.Background()
	now := time.Now()

	expired := domain.Session{ID: "old", Principal: token.User{ID: "u1"}, CreatedAt: now.Add(-2 * time.Hour), ExpiresAt: now.Add(-time.Hour)}
	live := domain.Session{ID: "new", Principal: token.User{ID: "u2"}, CreatedAt: now, ExpiresAt: now.Add(time.Hour)}
	for _, s := range []domain.Session{expired, live} {
		if err := store.Save(ctx, s); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	if _, err := store.Get(ctx, "old"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected expired session to be invisible, got %v", err)
	}

	n, err := store.DeleteExpired(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpired failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 expired session removed, got %d", n)
	}
	if _, err := store.Get(ctx, "new"); err != nil {
		t.Errorf("Expected live session to survive, got %v", err)
	}
}

func TestDB_StoreErrorsAreWrapped(t *testing.T) {
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer sqlDB.Close()
	database := &DB{DB: sqlDB}
	ctx := context.Background()

	mock.ExpectQuery("SELECT .* FROM users WHERE id = ?").
		WithArgs("u1").
		WillReturnError(errors.New("disk I/O error"))
	mock.ExpectExec("UPDATE users SET secrets").
		WillReturnError(errors.New("database is locked"))
	mock.ExpectQuery("SELECT id, user_id").
		WillReturnError(errors.New("connection reset"))

	if _, err := database.GetByID(ctx, "u1"); !domain.IsInfrastructureError(err) {
		t.Errorf("Expected infrastructure error from GetByID, got %v", err)
	}
	if err := database.AppendSecret(ctx, "u1", "s"); !domain.IsInfrastructureError(err) {
		t.Errorf("Expected infrastructure error from AppendSecret, got %v", err)
	}
	if _, err := database.Sessions().Get(ctx, "sid"); !domain.IsInfrastructureError(err) {
		t.Errorf("Expected infrastructure error from session Get, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
