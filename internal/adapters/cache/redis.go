// Package cache implements the Cache/KV port against Redis, grounded on
// original_source's RedisClient (connect-with-ping, get/set/delete,
// JSON-transparent values).
package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/deltran/settlement-gateway/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

// Redis implements ports.Cache against a single redis.Client.
type Redis struct {
	client *redis.Client
	logger *slog.Logger
}

// Connect builds a client from opts and verifies connectivity with a ping,
// mirroring RedisClient.connect's "connect then ping" sequence.
func Connect(ctx context.Context, opts *redis.Options, logger *slog.Logger) (*Redis, error) {
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		logger.Error("failed to connect to redis", "addr", opts.Addr, "error", err)
		return nil, err
	}

	logger.Info("connected to redis", "addr", opts.Addr)
	return &Redis{client: client, logger: logger}, nil
}

var _ ports.Cache = (*Redis)(nil)

func (r *Redis) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

// SetNX is the conditional-set the in-flight idempotency marker relies on
// to win a race without locking.
func (r *Redis) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, key, value, ttl).Result()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, key).Err()
}

// GetDel implements ports.Cache's atomic read-and-remove via Redis's GETDEL,
// so a racing duplicate of a single-use read sees a clean miss instead of a
// stale value another caller already consumed.
func (r *Redis) GetDel(ctx context.Context, key string) ([]byte, error) {
	val, err := r.client.GetDel(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

// Ping reports the client's health for the /health handler (§6.1).
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Name identifies this checker in the /health aggregate.
func (r *Redis) Name() string { return "redis" }

// Check implements handler.HealthChecker.
func (r *Redis) Check(ctx context.Context) error { return r.Ping(ctx) }

func (r *Redis) Close() error {
	r.logger.Info("closing redis client")
	return r.client.Close()
}
