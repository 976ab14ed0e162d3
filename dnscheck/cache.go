// dnscheck/cache.go
package dnscheck

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Cache stores DNS answers between lookups.
type Cache interface {
	// Get returns the stored value, or ErrCacheMiss when the key is absent
	// or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value for ttl. A ttl of 0 never expires.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Close releases any resources held by the cache.
	Close() error
}

var (
	// ErrCacheMiss is returned by Cache.Get for unknown keys.
	ErrCacheMiss = errors.New("dnscheck: cache miss")
	// ErrCacheClosed is returned after Close.
	ErrCacheClosed = errors.New("dnscheck: cache closed")
)

// answer is the cached form of one lookup. An empty Records slice is a
// negative answer.
type answer struct {
	Records []string `json:"records"`
}

func cacheKey(kind, domain string) string {
	return kind + ":" + domain
}

func getAnswer(ctx context.Context, c Cache, key string) ([]string, error) {
	data, err := c.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	var a answer
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if a.Records == nil {
		a.Records = []string{}
	}
	return a.Records, nil
}

func setAnswer(ctx context.Context, c Cache, key string, records []string, ttl time.Duration) error {
	data, err := json.Marshal(answer{Records: records})
	if err != nil {
		return err
	}
	return c.Set(ctx, key, data, ttl)
}
