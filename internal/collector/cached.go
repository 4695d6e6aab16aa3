package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/cache"
	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Cached decorates a Provider with a TTL cache of whole series. Cache
// failures are logged and fall through to the provider.
type Cached struct {
	next   Provider
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
}

// NewCached wraps next.
func NewCached(next Provider, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Cached {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cached{next: next, cache: c, ttl: ttl, logger: logger}
}

func (c *Cached) Name() string { return c.next.Name() }

type cachedSeries struct {
	Symbol   string     `json:"symbol"`
	Interval string     `json:"interval"`
	Bars     []core.Bar `json:"bars"`
}

func cacheKey(symbol, interval string, limit int) string {
	return fmt.Sprintf("series:%s:%s:%d", symbol, interval, limit)
}

func (c *Cached) FetchSeries(ctx context.Context, symbol, interval string, limit int) (*series.Series, error) {
	key := cacheKey(symbol, interval, limit)

	raw, err := c.cache.Get(ctx, key)
	switch {
	case err == nil:
		var cs cachedSeries
		if err := json.Unmarshal(raw, &cs); err == nil {
			if s, err := series.New(cs.Symbol, cs.Interval, cs.Bars); err == nil {
				return s, nil
			}
		}
		c.logger.Warn("discarding corrupt cache entry", zap.String("key", key))
	case !errors.Is(err, cache.ErrCacheMiss):
		c.logger.Warn("cache read failed", zap.String("key", key), zap.Error(err))
	}

	s, err := c.next.FetchSeries(ctx, symbol, interval, limit)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(cachedSeries{Symbol: s.Symbol(), Interval: s.Interval(), Bars: s.Bars()})
	if err == nil {
		err = c.cache.Set(ctx, key, payload, c.ttl)
	}
	if err != nil {
		c.logger.Warn("cache write failed", zap.String("key", key), zap.Error(err))
	}
	return s, nil
}
