package results

import (
	"context"
	"fmt"
	"time"

	"github.com/nssports/sportsbook-engine/pkg/cache"
	"github.com/nssports/sportsbook-engine/pkg/types"
)

// CachedProvider wraps a Provider with caching. Finished results are
// immutable so they get a long TTL; in-progress snapshots stay fresh on a
// short one.
type CachedProvider struct {
	provider    Provider
	cache       cache.Cache
	finishedTTL time.Duration
	liveTTL     time.Duration
}

// NewCachedProvider creates a cached provider.
func NewCachedProvider(provider Provider, c cache.Cache) *CachedProvider {
	return &CachedProvider{
		provider:    provider,
		cache:       c,
		finishedTTL: 24 * time.Hour,
		liveTTL:     15 * time.Second,
	}
}

// GameResult fetches the result for a game, consulting the cache first.
func (p *CachedProvider) GameResult(ctx context.Context, gameID string) (*types.GameResult, error) {
	key := fmt.Sprintf("result:%s", gameID)
	if p.cache != nil {
		if cached, ok := p.cache.Get(key); ok {
			if res, ok := cached.(*types.GameResult); ok {
				CacheHitsTotal.Inc()
				return res, nil
			}
		}
		CacheMissesTotal.Inc()
	}

	res, err := p.provider.GameResult(ctx, gameID)
	if err != nil {
		return nil, err
	}

	if p.cache != nil {
		ttl := p.liveTTL
		if res.Finished() {
			ttl = p.finishedTTL
		}
		p.cache.Set(key, res, ttl)
	}

	return res, nil
}
