package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/you/scamwatch/domain"
)

const sessionKeyPrefix = "session:"

// SessionRepositoryImpl stores sessions as JSON blobs in Redis. Keys
// carry a TTL so abandoned sessions vanish without a sweeper.
type SessionRepositoryImpl struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSessionRepository creates a new session repository
func NewSessionRepository(client *redis.Client, ttl time.Duration) domain.SessionRepository {
	return &SessionRepositoryImpl{client: client, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return sessionKeyPrefix + sessionID
}

// Create implements domain.SessionRepository
func (r *SessionRepositoryImpl) Create(ctx context.Context, session *domain.Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return r.client.Set(ctx, sessionKey(session.ID), data, r.ttl).Err()
}

// FindByID implements domain.SessionRepository. A session whose
// ExpiresAt already passed is reaped on read and reported expired.
func (r *SessionRepositoryImpl) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	key := sessionKey(sessionID)
	data, err := r.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}

	var session domain.Session
	if err := json.Unmarshal([]byte(data), &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	if session.ExpiresAt.Before(time.Now()) {
		r.client.Del(ctx, key)
		return nil, domain.ErrSessionExpired
	}
	return &session, nil
}

// Delete implements domain.SessionRepository
func (r *SessionRepositoryImpl) Delete(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, sessionKey(sessionID)).Err()
}

// DeleteExpired implements domain.SessionRepository. Redis TTLs already
// reap expired keys, so there is nothing to sweep.
func (r *SessionRepositoryImpl) DeleteExpired(ctx context.Context) error {
	return nil
}
