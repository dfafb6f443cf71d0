package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "storefront:"

// Redis is a small byte cache over go-redis.
type Redis struct {
	rdb *goredis.Client
}

func NewRedis(ctx context.Context, addr string) (*Redis, error) {
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

func key(k string) string {
	return keyPrefix + k
}

// Get reports ok=false on a cache miss.
func (r *Redis) Get(ctx context.Context, k string) ([]byte, bool, error) {
	b, err := r.rdb.Get(ctx, key(k)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return b, true, nil
}

func (r *Redis) Set(ctx context.Context, k string, value []byte, ttl time.Duration) error {
	return r.rdb.Set(ctx, key(k), value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, k string) error {
	return r.rdb.Del(ctx, key(k)).Err()
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
