package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrStoreUnavailable is returned when the backing store cannot be read or written.
var ErrStoreUnavailable = errors.New("credential store unavailable")

// Store persists the [Credentials] of one session.
//
// Load returns an empty pair, not an error, when nothing is stored. Save
// replaces both keys; an empty field removes its key. Clear removes every key
// and is idempotent.
type Store interface {
	Load(ctx context.Context) (Credentials, error)
	Save(ctx context.Context, creds Credentials) error
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process [Store]. The zero value is not usable; call
// [NewMemoryStore].
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore creates an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string, 2)}
}

// Load returns the stored pair.
func (s *MemoryStore) Load(context.Context) (Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Credentials{
		AccessToken:  s.values[KeyAccessToken],
		RefreshToken: s.values[KeyRefreshToken],
	}, nil
}

// Save replaces the stored pair.
func (s *MemoryStore) Save(_ context.Context, creds Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	setOrDelete(s.values, KeyAccessToken, creds.AccessToken)
	setOrDelete(s.values, KeyRefreshToken, creds.RefreshToken)
	return nil
}

// Clear removes every stored key.
func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	clear(s.values)
	return nil
}

// Len reports how many keys are currently stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

func setOrDelete(values map[string]string, key, value string) {
	if value == "" {
		delete(values, key)
		return
	}
	values[key] = value
}

// RedisStore is a Redis-backed [Store] holding one session in a hash at
// "<prefix>:<sessionID>". Every Save renews the key TTL when ttl > 0.
//
//	Performance: Load is 1 HMGET; Save is one MULTI/EXEC (DEL + HSET + PEXPIRE).
type RedisStore struct {
	redis     redis.UniversalClient
	prefix    string
	sessionID string
	ttl       time.Duration
}

// NewRedisStore creates a [RedisStore] for sessionID under prefix.
func NewRedisStore(client redis.UniversalClient, prefix, sessionID string, ttl time.Duration) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("redis client required")
	}
	if sessionID == "" {
		return nil, errors.New("session id required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be >= 0")
	}
	if prefix == "" {
		prefix = "gac"
	}

	return &RedisStore{
		redis:     client,
		prefix:    prefix,
		sessionID: sessionID,
		ttl:       ttl,
	}, nil
}

// Key returns the Redis key that holds this session.
func (s *RedisStore) Key() string {
	return s.prefix + ":" + s.sessionID
}

// Load reads both tokens with a single HMGET.
func (s *RedisStore) Load(ctx context.Context) (Credentials, error) {
	values, err := s.redis.HMGet(ctx, s.Key(), KeyAccessToken, KeyRefreshToken).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Credentials{}, nil
		}
		return Credentials{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	var creds Credentials
	if len(values) == 2 {
		creds.AccessToken, _ = values[0].(string)
		creds.RefreshToken, _ = values[1].(string)
	}
	return creds, nil
}

// Save replaces the session hash atomically.
func (s *RedisStore) Save(ctx context.Context, creds Credentials) error {
	key := s.Key()
	fields := make([]any, 0, 4)
	if creds.AccessToken != "" {
		fields = append(fields, KeyAccessToken, creds.AccessToken)
	}
	if creds.RefreshToken != "" {
		fields = append(fields, KeyRefreshToken, creds.RefreshToken)
	}

	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) == 0 {
			return nil
		}
		pipe.HSet(ctx, key, fields...)
		if s.ttl > 0 {
			pipe.PExpire(ctx, key, s.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Clear deletes the session hash.
func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.Key()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// TTL returns the remaining lifetime of the session key. It is negative when
// the key has no expiry or does not exist, as reported by Redis.
func (s *RedisStore) TTL(ctx context.Context) (time.Duration, error) {
	ttl, err := s.redis.PTTL(ctx, s.Key()).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return ttl, nil
}
