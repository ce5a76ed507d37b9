package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/secretwall/internal/domain"
)

// Sessions returns a SessionStore backed by the sessions table
func (db *DB) Sessions() *SessionStore {
	return &SessionStore{db: db.DB}
}

// SessionStore implements domain.SessionStore on SQLite
type SessionStore struct {
	db *sql.DB
}

var _ domain.SessionStore = (*SessionStore)(nil)

// Save inserts or replaces a session
func (s *SessionStore) Save(ctx context.Context, sess domain.Session) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, username, picture, created_at, expires_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET user_id = excluded.user_id, username = excluded.username,
		   picture = excluded.picture, expires_at = excluded.expires_at`,
		sess.ID, sess.Principal.ID, sess.Principal.Name, sess.Principal.Picture,
		sess.CreatedAt.Unix(), sess.ExpiresAt.Unix(),
	)
	if err != nil {
		return domain.WrapDatabaseOperation("save session", err)
	}
	return nil
}

// Get retrieves an unexpired session by ID
func (s *SessionStore) Get(ctx context.Context, id string) (domain.Session, error) {
	var sess domain.Session
	var createdAt, expiresAt int64
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, username, picture, created_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?",
		id, time.Now().Unix(),
	).Scan(&sess.ID, &sess.Principal.ID, &sess.Principal.Name, &sess.Principal.Picture, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, domain.WrapDatabaseOperation("get session", err)
	}
	sess.CreatedAt = time.Unix(createdAt, 0)
	sess.ExpiresAt = time.Unix(expiresAt, 0)
	return sess, nil
}

// Delete removes a session; deleting a missing session is not an error
func (s *SessionStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return domain.WrapDatabaseOperation("delete session", err)
	}
	return nil
}

// DeleteExpired removes every session that expired at or before now
func (s *SessionStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, domain.WrapDatabaseOperation("delete expired sessions", err)
	}
	return res.RowsAffected()
}

