// dnscheck/redis.go
package dnscheck

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache shares DNS answers between mailcheckd instances.
type RedisCache struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisConfig configures a RedisCache.
type RedisConfig struct {
	// Client is an existing client; the connection fields are ignored when set.
	Client redis.UniversalClient

	Address  string
	Password string
	DB       int

	// KeyPrefix is prepended to every key. Default: "mailcheck:dns:".
	KeyPrefix string

	// DialTimeout defaults to 5 seconds, ReadTimeout and WriteTimeout to 3.
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisCache connects to Redis and pings it once.
func NewRedisCache(ctx context.Context, cfg RedisConfig) (*RedisCache, error) {
	client := cfg.Client
	if client == nil {
		if cfg.Address == "" {
			return nil, errors.New("dnscheck: redis address required")
		}
		opts := &redis.Options{
			Addr:         cfg.Address,
			Password:     cfg.Password,
			DB:           cfg.DB,
			PoolSize:     10,
			DialTimeout:  orDefault(cfg.DialTimeout, 5*time.Second),
			ReadTimeout:  orDefault(cfg.ReadTimeout, 3*time.Second),
			WriteTimeout: orDefault(cfg.WriteTimeout, 3*time.Second),
		}
		client = redis.NewClient(opts)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("dnscheck: redis ping %s: %w", cfg.Address, err)
	}

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "mailcheck:dns:"
	}
	return &RedisCache{client: client, keyPrefix: prefix}, nil
}

// Get implements Cache.
func (r *RedisCache) Get(ctx context.Context, key string) ([]byte, error) {
	b, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	return b, err
}

// Set implements Cache.
func (r *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.keyPrefix+key, value, ttl).Err()
}

// Ping checks the connection; used by the health endpoint.
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the underlying client.
func (r *RedisCache) Close() error {
	return r.client.Close()
}

func orDefault(d, def time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return def
}
