// Package citations resolves citation counts for papers. Counts come from a
// chain of providers tried in order; results are cached on disk keyed by the
// paper's filename base so repeated searches don't burn api quota.
package citations

import (
	"context"
	"log/slog"
	"penumbra/penumbra/cache"
	"penumbra/penumbra/papers"
)

// Provider answers citation lookups for a single upstream source. A provider
// that has no answer for a paper (no usable identifier, paper unknown
// upstream) returns nil, nil rather than an error.
type Provider interface {
	Name() string
	CitationCount(ctx context.Context, paper *papers.Paper) (*papers.Citation, error)
}

type Chain struct {
	providers []Provider
	cache     *cache.DataCache[papers.Citation]
}

// NewChain builds a provider chain. The cache is optional; pass nil to
// disable persistent caching.
func NewChain(citationCache *cache.DataCache[papers.Citation], providers ...Provider) *Chain {
	return &Chain{providers: providers, cache: citationCache}
}

// CitationCount asks each provider in order and returns the first answer.
// Provider errors are logged and the chain moves on; the chain itself never
// fails, it just may come back empty.
func (c *Chain) CitationCount(ctx context.Context, paper *papers.Paper) *papers.Citation {
	key := paper.FilenameBase()

	if c.cache != nil {
		if cached := c.cache.Lookup(key); cached != nil {
			return cached
		}
	}

	for _, provider := range c.providers {
		citation, err := provider.CitationCount(ctx, paper)
		if err != nil {
			slog.Error("citation lookup failed", "provider", provider.Name(), "paper", key, "error", err)
			continue
		}
		if citation == nil {
			continue
		}

		if c.cache != nil {
			c.cache.Update(key, *citation)
		}
		return citation
	}

	slog.Info("no citation data found", "paper", key)
	return nil
}
