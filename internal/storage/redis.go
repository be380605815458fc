package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/jeshanrai/orderbot-backend/internal/models"
)

const sessionKeyPrefix = "session:"

// RedisSessionStore keeps sessions in Redis as JSON documents with a TTL.
// Menu and order data still live in the primary store; Redis only serves
// the hot conversation state.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSessionStore creates a redis-backed session store. A ttl of zero
// defaults to 24h.
func NewRedisSessionStore(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisSessionStore{client: client, ttl: ttl}
}

// LoadSession returns the stored session for userID, creating and
// persisting a default one when absent.
func (r *RedisSessionStore) LoadSession(ctx context.Context, userID string) (*models.Session, error) {
	payload, err := r.client.Get(ctx, sessionKeyPrefix+userID).Result()
	if err == redis.Nil {
		platform, _, _ := strings.Cut(userID, ":")
		session := models.NewSession(userID, platform)
		if saveErr := r.SaveSession(ctx, session); saveErr != nil {
			return nil, saveErr
		}
		return session, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal([]byte(payload), &session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}

// SaveSession upserts the session document and refreshes its TTL.
func (r *RedisSessionStore) SaveSession(ctx context.Context, session *models.Session) error {
	session.UpdatedAt = time.Now()
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	return r.client.Set(ctx, sessionKeyPrefix+session.UserID, payload, r.ttl).Err()
}

// ListIdleSessions scans all session keys and filters by last update time.
func (r *RedisSessionStore) ListIdleSessions(ctx context.Context, idleFor time.Duration) ([]*models.Session, error) {
	cutoff := time.Now().Add(-idleFor)

	var sessions []*models.Session
	iter := r.client.Scan(ctx, 0, sessionKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		payload, err := r.client.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var session models.Session
		if err := json.Unmarshal([]byte(payload), &session); err != nil {
			continue
		}
		if session.UpdatedAt.Before(cutoff) {
			sessions = append(sessions, &session)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}

// Close closes the underlying client.
func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}
