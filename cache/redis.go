package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"flashsell-engine/logging"
)

// ErrNotInitialized is returned by every operation on a client without a connection
var ErrNotInitialized = errors.New("redis client not initialized")

// RedisClient wraps redis.Client
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a new Redis client
func NewRedisClient(host, port, password string) *RedisClient {
	addr := fmt.Sprintf("%s:%s", host, port)
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0, // use default DB
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Warn().Err(err).Str("addr", addr).Msg("failed to connect to Redis, caching disabled")
		_ = client.Close()
		return nil
	}

	logging.Info().Str("addr", addr).Msg("connected to Redis")
	return &RedisClient{client: client}
}

// NewRedisClientFrom wraps an existing client without pinging it
func NewRedisClientFrom(client *redis.Client) *RedisClient {
	return &RedisClient{client: client}
}

// IsMiss reports whether err means the key does not exist
func IsMiss(err error) bool {
	return errors.Is(err, redis.Nil)
}

// Set stores a value in Redis with expiration
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if r == nil || r.client == nil {
		return ErrNotInitialized
	}

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return r.client.Set(ctx, key, jsonBytes, expiration).Err()
}

// SetNX stores a value only when key does not exist yet. It reports whether
// the value was written.
func (r *RedisClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	if r == nil || r.client == nil {
		return false, ErrNotInitialized
	}

	jsonBytes, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	return r.client.SetNX(ctx, key, jsonBytes, expiration).Result()
}

// Get retrieves a value from Redis
func (r *RedisClient) Get(ctx context.Context, key string, dest interface{}) error {
	if r == nil || r.client == nil {
		return ErrNotInitialized
	}

	val, err := r.client.Get(ctx, key).Result()
	if err != nil {
		return err
	}

	return json.Unmarshal([]byte(val), dest)
}

// Delete removes keys from Redis
func (r *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if r == nil || r.client == nil {
		return ErrNotInitialized
	}
	return r.client.Del(ctx, keys...).Err()
}

// Close closes the Redis connection
func (r *RedisClient) Close() error {
	if r != nil && r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Publish sends a message to a channel
func (r *RedisClient) Publish(ctx context.Context, channel string, message interface{}) error {
	if r == nil || r.client == nil {
		return ErrNotInitialized
	}

	jsonBytes, err := json.Marshal(message)
	if err != nil {
		return err
	}

	return r.client.Publish(ctx, channel, jsonBytes).Err()
}
