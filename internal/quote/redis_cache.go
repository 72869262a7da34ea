package quote

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// RedisCache keeps courses in Redis so several storefront instances share
// one view of the rate source.
type RedisCache struct {
	Client *redis.Client
	Prefix string
}

// NewRedisCache connects to addr. The connection is lazy; errors surface on
// first use and are treated as cache misses by Service.
func NewRedisCache(addr, password string, db int) *RedisCache {
	return &RedisCache{
		Client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
		Prefix: "storefront:rate:",
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) (decimal.Decimal, bool, error) {
	v, err := c.Client.Get(ctx, c.Prefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return decimal.Zero, false, nil
	}
	if err != nil {
		return decimal.Zero, false, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, false, err
	}
	return d, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, course decimal.Decimal, ttl time.Duration) error {
	return c.Client.Set(ctx, c.Prefix+key, course.String(), ttl).Err()
}

// Close releases the underlying connection pool.
func (c *RedisCache) Close() error { return c.Client.Close() }
