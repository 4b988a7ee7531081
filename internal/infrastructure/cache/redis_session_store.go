package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/bimate/backend/internal/application/navigation"
	"github.com/bimate/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
)

// Defaults used when the configuration leaves them empty
const (
	DefaultKeyPrefix  = "bimate:session:"
	DefaultSessionTTL = 24 * time.Hour
)

// RedisSessionStore implements navigation.SessionStore using Redis.
// Sessions survive restarts and are shared by every bot instance; idle
// sessions expire after the TTL.
type RedisSessionStore struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// NewRedisSessionStore connects to Redis and creates the store
func NewRedisSessionStore(cfg RedisConfig) (*RedisSessionStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisSessionStoreWithClient(client, cfg.KeyPrefix, cfg.TTL), nil
}

// NewRedisSessionStoreWithClient creates a store with an existing Redis client
func NewRedisSessionStoreWithClient(client *redis.Client, keyPrefix string, ttl time.Duration) *RedisSessionStore {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisSessionStore{
		client:    client,
		keyPrefix: keyPrefix,
		ttl:       ttl,
	}
}

func (s *RedisSessionStore) key(userID int64) string {
	return s.keyPrefix + strconv.FormatInt(userID, 10)
}

// Get loads the session of a user
func (s *RedisSessionStore) Get(ctx context.Context, userID int64) (*navigation.Session, error) {
	raw, err := s.client.Get(ctx, s.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: session of user %d", shared.ErrNotFound, userID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	var session navigation.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		// a corrupt entry is as good as a missing one
		return nil, fmt.Errorf("%w: corrupt session of user %d: %v", shared.ErrNotFound, userID, err)
	}
	return &session, nil
}

// Save writes the session and refreshes its TTL
func (s *RedisSessionStore) Save(ctx context.Context, session *navigation.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.client.Set(ctx, s.key(session.UserID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes the session of a user
func (s *RedisSessionStore) Delete(ctx context.Context, userID int64) error {
	if err := s.client.Del(ctx, s.key(userID)).Err(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// Close closes the Redis client
func (s *RedisSessionStore) Close() error {
	return s.client.Close()
}

// GetClient returns the underlying Redis client (for testing/monitoring)
func (s *RedisSessionStore) GetClient() *redis.Client {
	return s.client
}

var _ navigation.SessionStore = (*RedisSessionStore)(nil)
