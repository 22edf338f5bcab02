package modelcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang/snappy"
	"github.com/redis/go-redis/v9"
)

// RedisConfig configures the Redis snapshot backend.
type RedisConfig struct {
	URL      string        // Redis URL (e.g., redis://localhost:6379)
	Password string        // Optional password
	DB       int           // Database number (default: 0)
	Key      string        // Snapshot key (default: "cashcast:model")
	TTL      time.Duration // Key expiry, 0 keeps the key until overwritten
}

// RedisBackend stores the snapshot as snappy-compressed JSON under a single key.
type RedisBackend struct {
	client *redis.Client
	key    string
	ttl    time.Duration
}

// NewRedisBackend connects to Redis.
func NewRedisBackend(cfg RedisConfig) (*RedisBackend, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		// Fallback to simple options
		opts = &redis.Options{
			Addr:     cfg.URL,
			Password: cfg.Password,
			DB:       cfg.DB,
		}
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBackendWithClient(client, cfg.Key, cfg.TTL), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client, key string, ttl time.Duration) *RedisBackend {
	if key == "" {
		key = "cashcast:model"
	}
	return &RedisBackend{client: client, key: key, ttl: ttl}
}

func (b *RedisBackend) Get(ctx context.Context) ([]byte, error) {
	raw, err := b.client.Get(ctx, b.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", b.key, err)
	}

	data, err := snappy.Decode(nil, raw)
	if err != nil {
		// Undecodable payloads are handed to Validate, which reports a miss.
		return raw, nil
	}
	return data, nil
}

func (b *RedisBackend) Put(ctx context.Context, data []byte) error {
	if err := b.client.Set(ctx, b.key, snappy.Encode(nil, data), b.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", b.key, err)
	}
	return nil
}

func (b *RedisBackend) Close() error {
	return b.client.Close()
}

// Ping checks the Redis connection.
func (b *RedisBackend) Ping(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}
