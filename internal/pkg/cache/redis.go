package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache is a string key/value cache with per-entry TTL.
// Get reports a miss with ok == false, so an empty string is a valid value.
type Cache interface {
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Delete(ctx context.Context, keys ...string) error

	// Incr bumps the integer counter at key and (re)sets its TTL.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)

	// SetIfUnchanged sets key only while guardKey still holds guardValue
	// (an empty guardValue means guardKey is absent). It reports whether the
	// value was written.
	SetIfUnchanged(ctx context.Context, guardKey, guardValue, key, value string, ttl time.Duration) (bool, error)

	GenerateKey(parts ...string) string
}

var errGuardChanged = errors.New("cache: guard changed")

// RedisCache implements Cache on a Redis server.
type RedisCache struct {
	client      *redis.Client
	serviceName string
}

var _ Cache = (*RedisCache)(nil)

// NewRedisCache returns a cache on the Redis server at addr. Keys are
// namespaced with serviceName.
func NewRedisCache(addr, serviceName string) *RedisCache {
	return &RedisCache{
		client:      redis.NewClient(&redis.Options{Addr: addr}),
		serviceName: serviceName,
	}
}

// Ping checks that the server is reachable.
func (r *RedisCache) Ping(ctx context.Context) error {
	if err := r.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("cache: ping: %w", err)
	}
	return nil
}

// Close releases the client connection pool.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func (r *RedisCache) Set(ctx context.Context, key string, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("cache: set %s: %w", key, err)
	}
	return nil
}

func (r *RedisCache) Get(ctx context.Context, key string) (string, bool, error) {
	value, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}

	if err != nil {
		return "", false, fmt.Errorf("cache: get %s: %w", key, err)
	}

	return value, true, nil
}

func (r *RedisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache: delete: %w", err)
	}
	return nil
}

func (r *RedisCache) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	var incr *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, key)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("cache: incr %s: %w", key, err)
	}
	return incr.Val(), nil
}

// SetIfUnchanged watches guardKey, so a concurrent write to it aborts the
// MULTI/EXEC that sets key.
func (r *RedisCache) SetIfUnchanged(ctx context.Context, guardKey, guardValue, key, value string, ttl time.Duration) (bool, error) {
	err := r.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, guardKey).Result()
		if errors.Is(err, redis.Nil) {
			current = ""
		} else if err != nil {
			return err
		}
		if current != guardValue {
			return errGuardChanged
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, value, ttl)
			return nil
		})
		return err
	}, guardKey)

	if errors.Is(err, errGuardChanged) || errors.Is(err, redis.TxFailedErr) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: guarded set %s: %w", key, err)
	}
	return true, nil
}

func (r *RedisCache) GenerateKey(parts ...string) string {
	return r.serviceName + ":" + strings.Join(parts, ":")
}
