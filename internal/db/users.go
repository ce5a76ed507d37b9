package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/secretwall/internal/domain"
)

// SECURITY: ListWithSecrets returns secrets of ALL users; the wall page is
// shared between every logged-in viewer.

var _ domain.UserStore = (*DB)(nil)

const userColumns = "id, username, email, password_hash, salt, google_id, picture, secrets, created_at, updated_at"

// rowScanner is satisfied by *sql.Row and *sql.Rows
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*domain.User, error) {
	u := &domain.User{}
	var username, email, googleID sql.NullString
	var secrets string
	if err := row.Scan(&u.ID, &username, &email, &u.PasswordHash, &u.Salt, &googleID, &u.Picture, &secrets, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	if username.Valid {
		u.Username = &username.String
	}
	if email.Valid {
		u.Email = &email.String
	}
	if googleID.Valid {
		u.GoogleID = &googleID.String
	}
	if err := json.Unmarshal([]byte(secrets), &u.Secrets); err != nil {
		return nil, err
	}
	if u.Secrets == nil {
		u.Secrets = []string{}
	}
	return u, nil
}

// CreateLocal creates a user with a username and password credential
func (db *DB) CreateLocal(ctx context.Context, username string, cred domain.Credential) (*domain.User, error) {
	now := time.Now().UTC()
	u := &domain.User{
		ID:           uuid.New().String(),
		Username:     &username,
		PasswordHash: cred.Hash,
		Salt:         cred.Salt,
		Secrets:      []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	_, err := db.ExecContext(ctx,
		"INSERT INTO users (id, username, password_hash, salt, secrets, created_at, updated_at) VALUES (?, ?, ?, ?, '[]', ?, ?)",
		u.ID, username, u.PasswordHash, u.Salt, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.WrapUserAlreadyExists(username, err)
		}
		return nil, domain.WrapDatabaseOperation("create user", err)
	}

	return u, nil
}

// FindOrCreateByGoogleID returns the user linked to profile.ID, creating one
// without a password if none exists. The insert is a single statement guarded
// by the UNIQUE google_id column, so concurrent callbacks converge on one row.
func (db *DB) FindOrCreateByGoogleID(ctx context.Context, profile domain.GoogleProfile) (*domain.User, bool, error) {
	now := time.Now().UTC()
	var email any
	if profile.Email != "" {
		email = profile.Email
	}

	res, err := db.ExecContext(ctx,
		`INSERT INTO users (id, email, google_id, picture, secrets, created_at, updated_at)
		 VALUES (?, ?, ?, ?, '[]', ?, ?)
		 ON CONFLICT(google_id) DO NOTHING`,
		uuid.New().String(), email, profile.ID, profile.Picture, now, now,
	)
	if err != nil {
		return nil, false, domain.WrapDatabaseOperation("find or create google user", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, domain.WrapDatabaseOperation("find or create google user", err)
	}

	row := db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE google_id = ?", profile.ID)
	u, err := scanUser(row)
	if err != nil {
		return nil, false, domain.WrapDatabaseOperation("load google user", err)
	}
	return u, affected == 1, nil
}

// GetByID retrieves a user by ID
func (db *DB) GetByID(ctx context.Context, id string) (*domain.User, error) {
	row := db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapUserNotFound(id, err)
		}
		return nil, domain.WrapDatabaseOperation("get user", err)
	}
	return u, nil
}

// GetByUsername retrieves a user by username
func (db *DB) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	row := db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE username = ?", username)
	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapUserNotFound(username, err)
		}
		return nil, domain.WrapDatabaseOperation("get user by username", err)
	}
	return u, nil
}

// ListWithSecrets retrieves every user holding at least one secret
func (db *DB) ListWithSecrets(ctx context.Context) ([]*domain.User, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE json_array_length(secrets) > 0 ORDER BY created_at ASC, id ASC",
	)
	if err != nil {
		return nil, domain.WrapDatabaseOperation("list users with secrets", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, domain.WrapDatabaseOperation("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.WrapDatabaseOperation("list users with secrets", err)
	}

	return users, nil
}

// AppendSecret appends secret to the end of the user's list
func (db *DB) AppendSecret(ctx context.Context, id, secret string) error {
	res, err := db.ExecContext(ctx,
		"UPDATE users SET secrets = json_insert(secrets, '$[#]', ?), updated_at = ? WHERE id = ?",
		secret, time.Now().UTC(), id,
	)
	if err != nil {
		return domain.WrapDatabaseOperation("append secret", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.WrapDatabaseOperation("append secret", err)
	}
	if affected == 0 {
		return domain.WrapUserNotFound(id, nil)
	}
	return nil
}

// RemoveSecret removes the first exact occurrence of secret from the user's
// list. It reports false, without error, when the secret is not present.
func (db *DB) RemoveSecret(ctx context.Context, id, secret string) (bool, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return false, domain.WrapDatabaseOperation("remove secret", err)
	}
	defer tx.Rollback()

	var raw string
	if err := tx.QueryRowContext(ctx, "SELECT secrets FROM users WHERE id = ?", id).Scan(&raw); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.WrapUserNotFound(id, err)
		}
		return false, domain.WrapDatabaseOperation("remove secret", err)
	}

	var secrets []string
	if err := json.Unmarshal([]byte(raw), &secrets); err != nil {
		return false, domain.WrapDatabaseOperation("decode secrets", err)
	}

	remaining, removed := domain.RemoveFirst(secrets, secret)
	if !removed {
		return false, nil
	}

	encoded, err := json.Marshal(remaining)
	if err != nil {
		return false, domain.WrapDatabaseOperation("encode secrets", err)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE users SET secrets = ?, updated_at = ? WHERE id = ?",
		string(encoded), time.Now().UTC(), id,
	); err != nil {
		return false, domain.WrapDatabaseOperation("remove secret", err)
	}

	if err := tx.Commit(); err != nil {
		return false, domain.WrapDatabaseOperation("remove secret", err)
	}
	return true, nil
}
