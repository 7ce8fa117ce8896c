package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisOptions configures the Redis cache.
type RedisOptions struct {
	Address  string
	Password string
	DB       int
	// Prefix namespaces every key so Clear only touches this cache's entries.
	Prefix string
	// TTL of each entry; zero keeps entries until cleared.
	TTL time.Duration
}

// DefaultRedisOptions targets a local Redis with a one day TTL.
func DefaultRedisOptions() RedisOptions {
	return RedisOptions{
		Address: "localhost:6379",
		Prefix:  "modelchain:",
		TTL:     24 * time.Hour,
	}
}

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client  *redis.Client
	options RedisOptions
	logger  *zap.Logger
}

// NewRedis connects to Redis and verifies the connection with PING.
func NewRedis(ctx context.Context, options RedisOptions, logger *zap.Logger) (*Redis, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client := redis.NewClient(&redis.Options{
		Addr:     options.Address,
		Password: options.Password,
		DB:       options.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", options.Address, err)
	}
	logger.Info("Connected to redis cache",
		zap.String("address", options.Address),
		zap.Int("db", options.DB),
		zap.String("prefix", options.Prefix))
	return NewRedisWithClient(client, options, logger), nil
}

// NewRedisWithClient wraps an existing client without pinging it.
func NewRedisWithClient(client *redis.Client, options RedisOptions, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, options: options, logger: logger}
}

func (r *Redis) key(k string) string { return r.options.Prefix + k }

func (r *Redis) Get(ctx context.Context, key string, out any) (bool, error) {
	data, err := r.client.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("redis get %s: %w", key, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return true, nil
}

func (r *Redis) Set(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s for cache: %w", key, err)
	}
	if err := r.client.Set(ctx, r.key(key), data, r.options.TTL).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Clear deletes every key under the prefix using SCAN, never KEYS.
func (r *Redis) Clear(ctx context.Context) error {
	var (
		cursor  uint64
		deleted int
	)
	for {
		keys, next, err := r.client.Scan(ctx, cursor, r.options.Prefix+"*", 500).Result()
		if err != nil {
			return fmt.Errorf("redis scan: %w", err)
		}
		if len(keys) > 0 {
			if err := r.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("redis del: %w", err)
			}
			deleted += len(keys)
		}
		if next == 0 {
			break
		}
		cursor = next
	}
	r.logger.Info("Cleared redis cache", zap.String("prefix", r.options.Prefix), zap.Int("keys", deleted))
	return nil
}

// Close closes the underlying client.
func (r *Redis) Close() error {
	return r.client.Close()
}
