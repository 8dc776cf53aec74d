package circuitbreaker

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisWrapper wraps a Redis client with a circuit breaker. Only the commands
// the orchestrator uses are exposed.
type RedisWrapper struct {
	client *redis.Client
	cb     *CircuitBreaker
	logger *zap.Logger
}

// NewRedisWrapper creates a Redis wrapper with circuit breaker
func NewRedisWrapper(client *redis.Client, logger *zap.Logger) *RedisWrapper {
	if logger == nil {
		logger = zap.NewNop()
	}
	cb := NewCircuitBreaker("redis", GetRedisConfig(), logger)
	GlobalMetricsCollector.RegisterCircuitBreaker("redis", "session-store", cb)
	return &RedisWrapper{client: client, cb: cb, logger: logger}
}

func (rw *RedisWrapper) wrap(ctx context.Context, op func() error) error {
	return rw.cb.Execute(ctx, op)
}

// Ping wraps Redis PING with circuit breaker
func (rw *RedisWrapper) Ping(ctx context.Context) *redis.StatusCmd {
	var result *redis.StatusCmd
	err := rw.wrap(ctx, func() error {
		result = rw.client.Ping(ctx)
		return result.Err()
	})
	if result == nil {
		result = redis.NewStatusCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// Get wraps Redis GET with circuit breaker
func (rw *RedisWrapper) Get(ctx context.Context, key string) *redis.StringCmd {
	var result *redis.StringCmd
	err := rw.wrap(ctx, func() error {
		result = rw.client.Get(ctx, key)
		if err := result.Err(); err != nil && err != redis.Nil {
			return err
		}
		return nil
	})
	if result == nil {
		result = redis.NewStringCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// Set wraps Redis SET with circuit breaker
func (rw *RedisWrapper) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) *redis.StatusCmd {
	var result *redis.StatusCmd
	err := rw.wrap(ctx, func() error {
		result = rw.client.Set(ctx, key, value, ttl)
		return result.Err()
	})
	if result == nil {
		result = redis.NewStatusCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// LPush wraps Redis LPUSH with circuit breaker
func (rw *RedisWrapper) LPush(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	var result *redis.IntCmd
	err := rw.wrap(ctx, func() error {
		result = rw.client.LPush(ctx, key, values...)
		return result.Err()
	})
	if result == nil {
		result = redis.NewIntCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// LTrim wraps Redis LTRIM with circuit breaker
func (rw *RedisWrapper) LTrim(ctx context.Context, key string, start, stop int64) *redis.StatusCmd {
	var result *redis.StatusCmd
	err := rw.wrap(ctx, func() error {
		result = rw.client.LTrim(ctx, key, start, stop)
		return result.Err()
	})
	if result == nil {
		result = redis.NewStatusCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// LRange wraps Redis LRANGE with circuit breaker
func (rw *RedisWrapper) LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd {
	var result *redis.StringSliceCmd
	err := rw.wrap(ctx, func() error {
		result = rw.client.LRange(ctx, key, start, stop)
		return result.Err()
	})
	if result == nil {
		result = redis.NewStringSliceCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// Expire wraps Redis EXPIRE with circuit breaker
func (rw *RedisWrapper) Expire(ctx context.Context, key string, ttl time.Duration) *redis.BoolCmd {
	var result *redis.BoolCmd
	err := rw.wrap(ctx, func() error {
		result = rw.client.Expire(ctx, key, ttl)
		return result.Err()
	})
	if result == nil {
		result = redis.NewBoolCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// Del wraps Redis DEL with circuit breaker
func (rw *RedisWrapper) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	var result *redis.IntCmd
	err := rw.wrap(ctx, func() error {
		result = rw.client.Del(ctx, keys...)
		return result.Err()
	})
	if result == nil {
		result = redis.NewIntCmd(ctx)
		result.SetErr(err)
	}
	return result
}

// Close releases the underlying client.
func (rw *RedisWrapper) Close() error { return rw.client.Close() }
