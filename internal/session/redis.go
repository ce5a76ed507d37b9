package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-pkgz/auth/token"
	"github.com/redis/go-redis/v9"

	"github.com/secretwall/internal/domain"
)

const keyPrefix = "session:"

type redisRecord struct {
	UserID    string `json:"user_id"`
	Name      string `json:"name"`
	Picture   string `json:"picture,omitempty"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// RedisStore keeps sessions as JSON values whose key TTL matches the session
// expiry, so Redis evicts them without a sweeper.
type RedisStore struct {
	client redis.UniversalClient
}

var _ domain.SessionStore = (*RedisStore)(nil)

// NewRedisStore wraps an existing client
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Save writes the session with a TTL of its remaining lifetime
func (s *RedisStore) Save(ctx context.Context, sess domain.Session) error {
	ttl := time.Until(sess.ExpiresAt)
	if ttl <= 0 {
		return s.Delete(ctx, sess.ID)
	}

	data, err := json.Marshal(redisRecord{
		UserID:    sess.Principal.ID,
		Name:      sess.Principal.Name,
		Picture:   sess.Principal.Picture,
		CreatedAt: sess.CreatedAt.Unix(),
		ExpiresAt: sess.ExpiresAt.Unix(),
	})
	if err != nil {
		return err
	}

	if err := s.client.Set(ctx, keyPrefix+sess.ID, data, ttl).Err(); err != nil {
		return domain.WrapNetworkOperation("save session", err)
	}
	return nil
}

// Get loads a session by id
func (s *RedisStore) Get(ctx context.Context, id string) (domain.Session, error) {
	data, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Session{}, domain.ErrSessionNotFound
		}
		return domain.Session{}, domain.WrapNetworkOperation("get session", err)
	}

	var rec redisRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		// unreadable entries are treated as gone
		return domain.Session{}, domain.ErrSessionNotFound
	}

	sess := domain.Session{
		ID:        id,
		Principal: token.User{ID: rec.UserID, Name: rec.Name, Picture: rec.Picture},
		CreatedAt: time.Unix(rec.CreatedAt, 0),
		ExpiresAt: time.Unix(rec.ExpiresAt, 0),
	}
	if sess.Expired(time.Now()) {
		return domain.Session{}, domain.ErrSessionNotFound
	}
	return sess, nil
}

// Delete removes the session key
func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, keyPrefix+id).Err(); err != nil {
		return domain.WrapNetworkOperation("delete session", err)
	}
	return nil
}

// DeleteExpired is a no-op; key TTLs already expire sessions
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int64, error) {
	return 0, nil
}
