package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	domain "user-pages-service/internal/domain/session"
)

const keyPrefix = "session:"

// RedisStore keeps sessions in redis, letting the key TTL expire them.
type RedisStore struct {
	client *redis.Client
	log    *zap.Logger
}

// NewRedisStore creates a redis-backed session store.
func NewRedisStore(client *redis.Client, log *zap.Logger) *RedisStore {
	return &RedisStore{client: client, log: log}
}

type storedSession struct {
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func sessionKey(token string) string {
	return keyPrefix + token
}

// Create stores s with a TTL running until s.ExpiresAt.
func (r *RedisStore) Create(ctx context.Context, s *domain.Session) error {
	ttl := time.Until(s.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("session already expired at %s", s.ExpiresAt.Format(time.RFC3339))
	}

	data, err := json.Marshal(storedSession{UserID: s.UserID, CreatedAt: s.CreatedAt, ExpiresAt: s.ExpiresAt})
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	if err := r.client.Set(ctx, sessionKey(s.Token), data, ttl).Err(); err != nil {
		r.log.Error("failed to store session", zap.Int64("user_id", s.UserID), zap.Error(err))
		return err
	}
	return nil
}

// Get loads the session for token; an unknown or expired token yields nil, nil.
func (r *RedisStore) Get(ctx context.Context, token string) (*domain.Session, error) {
	data, err := r.client.Get(ctx, sessionKey(token)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("failed to load session", zap.Error(err))
		return nil, err
	}

	var stored storedSession
	if err := json.Unmarshal(data, &stored); err != nil {
		r.log.Warn("discarding unreadable session", zap.Error(err))
		_ = r.client.Del(ctx, sessionKey(token)).Err()
		return nil, nil
	}

	return &domain.Session{
		Token:     token,
		UserID:    stored.UserID,
		CreatedAt: stored.CreatedAt,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}

// Delete removes token.
func (r *RedisStore) Delete(ctx context.Context, token string) error {
	if err := r.client.Del(ctx, sessionKey(token)).Err(); err != nil {
		r.log.Error("failed to delete session", zap.Error(err))
		return err
	}
	return nil
}
