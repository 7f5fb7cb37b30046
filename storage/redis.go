package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/devadigapratham/printd/axis"
	backend "github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "printd:axis:"

// RedisStore keeps axis settings as JSON values in Redis
type RedisStore struct {
	client *backend.Client
	prefix string
}

// RedisOption configures a RedisStore
type RedisOption func(*RedisStore)

// WithPrefix sets the key prefix
func WithPrefix(prefix string) RedisOption {
	return func(s *RedisStore) {
		s.prefix = prefix
	}
}

// NewRedis connects to the server at address
func NewRedis(address, password string, db int, opts ...RedisOption) *RedisStore {
	client := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewRedisFromClient(client, opts...)
}

// NewRedisFromClient creates a store on an existing client
func NewRedisFromClient(client *backend.Client, opts ...RedisOption) *RedisStore {
	store := &RedisStore{
		client: client,
		prefix: defaultRedisPrefix,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

func (s *RedisStore) key(id axis.ID) string {
	return s.prefix + string(id) + ":settings"
}

// Ping checks the connection
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Load returns the stored settings of an axis
func (s *RedisStore) Load(ctx context.Context, id axis.ID) (axis.Settings, error) {
	val, err := s.client.Get(ctx, s.key(id)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return axis.Settings{}, axis.ErrNotStored
		}
		return axis.Settings{}, fmt.Errorf("failed to get from redis: %w", err)
	}
	return decode(id, val)
}

// Save stores the settings of an axis without expiration
func (s *RedisStore) Save(ctx context.Context, id axis.ID, settings axis.Settings) error {
	payload, err := encode(id, settings)
	if err != nil {
		return err
	}
	if err := s.client.Set(ctx, s.key(id), payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return nil
}

// Close closes the client
func (s *RedisStore) Close() error {
	return s.client.Close()
}
