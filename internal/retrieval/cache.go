package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ariesstack/aries-engine/internal/cache"
	"github.com/ariesstack/aries-engine/internal/models"
)

// CachedStore decorates Store searches with a cache. Keys embed the store's
// mutation generation, so any add, update or delete naturally invalidates
// every cached search without explicit eviction.
type CachedStore struct {
	*Store
	cache cache.Provider
	ttl   time.Duration
}

// NewCachedStore wraps the store. A nil provider degrades to a no-op cache.
func NewCachedStore(store *Store, provider cache.Provider, ttl time.Duration) *CachedStore {
	if provider == nil {
		provider = cache.NoopProvider{}
	}
	return &CachedStore{Store: store, cache: provider, ttl: ttl}
}

// Search serves from cache when possible, falling back to the inner store.
// Cache failures are silent; retrieval must work with the cache down.
func (c *CachedStore) Search(ctx context.Context, query string, limit int) ([]models.ScoredDocument, error) {
	key := cacheSearchKey(c.Generation(), query, limit)
	if data, err := c.cache.Get(ctx, key); err == nil {
		var cached []models.ScoredDocument
		if err := json.Unmarshal(data, &cached); err == nil {
			return cached, nil
		}
	}

	results, err := c.Store.Search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	if c.ttl > 0 && len(results) > 0 {
		if payload, err := json.Marshal(results); err == nil {
			_ = c.cache.Set(ctx, key, payload, c.ttl)
		}
	}
	return results, nil
}

func cacheSearchKey(generation uint64, query string, limit int) string {
	return fmt.Sprintf("retrieval:search:%d:%d:%s", generation, limit, query)
}
