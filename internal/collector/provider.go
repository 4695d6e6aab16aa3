// Package collector defines the market data provider contract and the
// composition helpers around it: symbol normalisation, provider fallback and
// series caching.
package collector

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/newthinker/cryptosignal/internal/core"
	"github.com/newthinker/cryptosignal/internal/series"
)

// Provider fetches OHLCV history for a normalized symbol.
type Provider interface {
	// Name returns the provider identifier (e.g., "binance", "okx")
	Name() string

	// FetchSeries returns up to limit of the most recent bars, oldest first.
	// Unparseable fields fail with core.ErrMalformedData, an empty result
	// with core.ErrNoData.
	FetchSeries(ctx context.Context, symbol, interval string, limit int) (*series.Series, error)
}

// Chain tries providers in order and returns the first success.
type Chain struct {
	providers []Provider
	logger    *zap.Logger
}

// NewChain creates a fallback chain.
func NewChain(providers []Provider, logger *zap.Logger) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{providers: providers, logger: logger}
}

func (c *Chain) Name() string { return "chain" }

// Providers returns the chained providers in order.
func (c *Chain) Providers() []Provider {
	out := make([]Provider, len(c.providers))
	copy(out, c.providers)
	return out
}

func (c *Chain) FetchSeries(ctx context.Context, symbol, interval string, limit int) (*series.Series, error) {
	if len(c.providers) == 0 {
		return nil, core.Errorf(core.ErrConfigMissing, "no market data providers configured")
	}
	var lastErr error
	for _, p := range c.providers {
		s, err := p.FetchSeries(ctx, symbol, interval, limit)
		if err == nil {
			return s, nil
		}
		c.logger.Debug("provider failed, trying next",
			zap.String("provider", p.Name()),
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("all providers failed for %s: %w", symbol, lastErr)
}

// Registry manages named providers
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider under its name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Get retrieves a provider by name
func (r *Registry) Get(name string) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[name]
	return p, ok
}

// Chain builds a fallback chain from names in order. Unknown names fail
// with ErrConfigInvalid.
func (r *Registry) Chain(names []string, logger *zap.Logger) (*Chain, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	providers := make([]Provider, 0, len(names))
	for _, name := range names {
		p, ok := r.providers[name]
		if !ok {
			return nil, core.Errorf(core.ErrConfigInvalid, "unknown provider %q", name)
		}
		providers = append(providers, p)
	}
	return NewChain(providers, logger), nil
}
