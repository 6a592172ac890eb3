package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/phuslu/log"

	"TrendScreener/internal/model"
)

// DefaultCacheTTL is how long fetched bars stay in Redis.
const DefaultCacheTTL = 6 * time.Hour

// CachedSource caches another source's bars in Redis. Entries expire after
// TTL; Redis failures fall through to the wrapped source.
type CachedSource struct {
	Source BarSource
	Client *redis.Client
	TTL    time.Duration
	Prefix string
}

// NewCachedSource wraps src with a Redis cache at addr.
func NewCachedSource(src BarSource, addr string, ttl time.Duration) *CachedSource {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &CachedSource{
		Source: src,
		Client: redis.NewClient(&redis.Options{Addr: addr}),
		TTL:    ttl,
		Prefix: "screener:bars",
	}
}

func (c *CachedSource) Name() string { return c.Source.Name() + "+redis" }

func (c *CachedSource) key(symbol string, from, to time.Time) string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", c.Prefix, c.Source.Name(), symbol,
		from.Format(model.DateLayout), to.Format(model.DateLayout))
}

func (c *CachedSource) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	key := c.key(symbol, from, to)

	data, err := c.Client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var bars []model.Bar
		if err := json.Unmarshal(data, &bars); err == nil {
			return bars, nil
		}
		log.Warn().Str("key", key).Msg("discarding corrupt cache entry")
	case !errors.Is(err, redis.Nil):
		log.Warn().Err(err).Str("symbol", symbol).Msg("bar cache read failed")
	}

	bars, err := c.Source.GetBars(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	// empty results are not cached so a later run can pick up new data
	if len(bars) == 0 {
		return bars, nil
	}
	if data, err := json.Marshal(bars); err == nil {
		if err := c.Client.Set(ctx, key, data, c.TTL).Err(); err != nil {
			log.Warn().Err(err).Str("symbol", symbol).Msg("bar cache write failed")
		}
	}
	return bars, nil
}

// Close releases the Redis connection.
func (c *CachedSource) Close() error {
	return c.Client.Close()
}
