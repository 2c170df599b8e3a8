// Package redis implements the low-latency cache in front of the durable
// store. It holds point-in-time copies of URL records, the cached listing,
// and the per-code click delta counters that the reconciliation loop merges
// into the durable totals.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortify/internal/cache"
	"github.com/vadimbarashkov/shortify/internal/entity"
)

const urlListKey = "urls:list"

func urlKey(shortCode string) string {
	return "url:" + shortCode
}

func clicksKey(shortCode string) string {
	return "clicks:" + shortCode
}

// Cache wraps a Redis client with the operations the service and the click
// reconciliation loop need. URL records and the listing are stored as JSON
// with a TTL; click counters are plain integers without one, so a counter
// never expires before it is reconciled.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to the Redis instance described by url (redis:// form),
// verifies the connection with a ping and returns a Cache whose record and
// listing entries expire after ttl.
func New(ctx context.Context, url string, ttl time.Duration) (*Cache, error) {
	const op = "cache.redis.New"

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse redis url: %w", op, err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: failed to ping redis: %w", op, err)
	}

	return &Cache{
		client: client,
		ttl:    ttl,
	}, nil
}

func (c *Cache) Close() error {
	return c.client.Close()
}

// GetURL returns the cached record for shortCode, or ErrCacheMiss if the
// key is absent or expired.
func (c *Cache) GetURL(ctx context.Context, shortCode string) (*entity.URL, error) {
	const op = "cache.redis.Cache.GetURL"

	data, err := c.client.Get(ctx, urlKey(shortCode)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, cache.ErrCacheMiss)
		}

		return nil, fmt.Errorf("%s: failed to get url: %w", op, err)
	}

	url := new(entity.URL)
	if err := json.Unmarshal(data, url); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal url: %w", op, err)
	}

	return url, nil
}

func (c *Cache) SetURL(ctx context.Context, url *entity.URL) error {
	const op = "cache.redis.Cache.SetURL"

	data, err := json.Marshal(url)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal url: %w", op, err)
	}

	if err := c.client.Set(ctx, urlKey(url.ShortCode), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set url: %w", op, err)
	}

	return nil
}

// IncrementClicks atomically increments the click delta counter for
// shortCode, initializing it at zero if absent, and returns the new delta.
func (c *Cache) IncrementClicks(ctx context.Context, shortCode string) (int64, error) {
	const op = "cache.redis.Cache.IncrementClicks"

	clicks, err := c.client.Incr(ctx, clicksKey(shortCode)).Result()
	if err != nil {
		return 0, fmt.Errorf("%s: failed to increment clicks: %w", op, err)
	}

	return clicks, nil
}

// ReadAndResetClicks consumes the pending click delta for shortCode in a
// single atomic GETDEL, so an increment racing the reconciliation lands
// either in the returned delta or in a fresh counter, never in both and
// never in neither. An absent counter reads as zero.
func (c *Cache) ReadAndResetClicks(ctx context.Context, shortCode string) (int64, error) {
	const op = "cache.redis.Cache.ReadAndResetClicks"

	clicks, err := c.client.GetDel(ctx, clicksKey(shortCode)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}

		return 0, fmt.Errorf("%s: failed to read and reset clicks: %w", op, err)
	}

	return clicks, nil
}

// AddClicks re-adds delta to the pending counter. The reconciliation loop
// uses it to return a consumed delta after a failed merge into the durable
// store, so the next sweep retries those clicks.
func (c *Cache) AddClicks(ctx context.Context, shortCode string, delta int64) error {
	const op = "cache.redis.Cache.AddClicks"

	if err := c.client.IncrBy(ctx, clicksKey(shortCode), delta).Err(); err != nil {
		return fmt.Errorf("%s: failed to add clicks: %w", op, err)
	}

	return nil
}

// GetURLList returns the cached listing, or ErrCacheMiss if absent.
func (c *Cache) GetURLList(ctx context.Context) ([]*entity.URL, error) {
	const op = "cache.redis.Cache.GetURLList"

	data, err := c.client.Get(ctx, urlListKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, cache.ErrCacheMiss)
		}

		return nil, fmt.Errorf("%s: failed to get url list: %w", op, err)
	}

	var urls []*entity.URL
	if err := json.Unmarshal(data, &urls); err != nil {
		return nil, fmt.Errorf("%s: failed to unmarshal url list: %w", op, err)
	}

	return urls, nil
}

func (c *Cache) SetURLList(ctx context.Context, urls []*entity.URL) error {
	const op = "cache.redis.Cache.SetURLList"

	data, err := json.Marshal(urls)
	if err != nil {
		return fmt.Errorf("%s: failed to marshal url list: %w", op, err)
	}

	if err := c.client.Set(ctx, urlListKey, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("%s: failed to set url list: %w", op, err)
	}

	return nil
}

// InvalidateURLList drops the cached listing. Called on every creation so
// the next listing reflects the new record.
func (c *Cache) InvalidateURLList(ctx context.Context) error {
	const op = "cache.redis.Cache.InvalidateURLList"

	if err := c.client.Del(ctx, urlListKey).Err(); err != nil {
		return fmt.Errorf("%s: failed to invalidate url list: %w", op, err)
	}

	return nil
}
