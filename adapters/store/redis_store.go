package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/layer-3/walletauth/core"
	"github.com/layer-3/walletauth/ports"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix namespaces every key written by the service
const DefaultPrefix = "walletauth:"

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store on top of an existing client
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{
		client: client,
		prefix: DefaultPrefix,
	}
}

// NewRedisClient creates a client from opts and checks that the server answers
func NewRedisClient(ctx context.Context, opts *redis.Options) (*redis.Client, error) {
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", errors.Join(core.ErrStoreUnavailable, err))
	}

	return client, nil
}

// Set stores value with expiration
func (s *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		return core.ErrInvalidTTL
	}

	if err := s.client.Set(ctx, s.prefix+key, value, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, errors.Join(core.ErrStoreUnavailable, err))
	}

	return nil
}

// Get retrieves a value by key
func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.Get(ctx, s.prefix+key).Bytes()
	return s.result(key, value, err)
}

// Take retrieves and deletes a value with GETDEL
func (s *RedisStore) Take(ctx context.Context, key string) ([]byte, error) {
	value, err := s.client.GetDel(ctx, s.prefix+key).Bytes()
	return s.result(key, value, err)
}

func (s *RedisStore) result(key string, value []byte, err error) ([]byte, error) {
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, core.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get %s: %w", key, errors.Join(core.ErrStoreUnavailable, err))
	}
	return value, nil
}

// Close closes the Redis connection pool
func (s *RedisStore) Close() error {
	return s.client.Close()
}
