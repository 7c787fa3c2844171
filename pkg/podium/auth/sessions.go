package auth

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// RefreshTokenTTL is how long a refresh token stays valid
const RefreshTokenTTL = 30 * 24 * time.Hour

var ErrSessionNotFound = errors.New("session not found")

// SessionStore keeps refresh tokens. Consume is single-use: a refresh token
// is deleted when it is exchanged for a new pair.
type SessionStore interface {
	Save(ctx context.Context, token string, userID uint, ttl time.Duration) error
	Consume(ctx context.Context, token string) (uint, error)
	Revoke(ctx context.Context, token string) error
}

// NewRefreshToken returns a new opaque refresh token
func NewRefreshToken() string {
	return uuid.NewString()
}

// RedisSessionStore keeps refresh tokens in Redis with a TTL
type RedisSessionStore struct {
	client *redis.Client
	prefix string
}

// NewRedisSessionStore creates a store on an existing client
func NewRedisSessionStore(client *redis.Client) *RedisSessionStore {
	return &RedisSessionStore{client: client, prefix: "podium:refresh:"}
}

func (s *RedisSessionStore) Save(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	return s.client.Set(ctx, s.prefix+token, strconv.FormatUint(uint64(userID), 10), ttl).Err()
}

func (s *RedisSessionStore) Consume(ctx context.Context, token string) (uint, error) {
	val, err := s.client.GetDel(ctx, s.prefix+token).Result()
	if errors.Is(err, redis.Nil) {
		return 0, ErrSessionNotFound
	}
	if err != nil {
		return 0, err
	}
	id, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, err
	}
	return uint(id), nil
}

func (s *RedisSessionStore) Revoke(ctx context.Context, token string) error {
	return s.client.Del(ctx, s.prefix+token).Err()
}

type memorySession struct {
	userID    uint
	expiresAt time.Time
}

// MemorySessionStore keeps refresh tokens in process memory.
// Used when no Redis URL is configured and in tests.
type MemorySessionStore struct {
	mu       sync.Mutex
	sessions map[string]memorySession
	now      func() time.Time
}

// NewMemorySessionStore creates an empty in-memory store
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]memorySession), now: time.Now}
}

func (s *MemorySessionStore) Save(ctx context.Context, token string, userID uint, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[token] = memorySession{userID: userID, expiresAt: s.now().Add(ttl)}
	return nil
}

func (s *MemorySessionStore) Consume(ctx context.Context, token string) (uint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	session, ok := s.sessions[token]
	if !ok {
		return 0, ErrSessionNotFound
	}
	delete(s.sessions, token)
	if !s.now().Before(session.expiresAt) {
		return 0, ErrSessionNotFound
	}
	return session.userID, nil
}

func (s *MemorySessionStore) Revoke(ctx context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
	return nil
}
