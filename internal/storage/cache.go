package storage

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CachedEmbeddingStore is a read-through LRU decorator for an
// EmbeddingStore. Vectors are immutable once ingested, so entries never
// need invalidation; the LRU bound keeps memory flat on large catalogs.
// Only VectorOf is cached — Nearest results depend on the query vector
// and are not reusable.
type CachedEmbeddingStore struct {
	inner EmbeddingStore
	cache *lru.Cache[int64, []float32]
}

var _ EmbeddingStore = (*CachedEmbeddingStore)(nil)

// NewCachedEmbeddingStore wraps inner with an LRU of the given size.
func NewCachedEmbeddingStore(inner EmbeddingStore, size int) (*CachedEmbeddingStore, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: embedding store is required", ErrInvalidInput)
	}
	cache, err := lru.New[int64, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("storage: create embedding cache: %w", err)
	}
	return &CachedEmbeddingStore{inner: inner, cache: cache}, nil
}

// VectorOf returns the cached vector or loads it from the inner store.
// ErrNotFound is not cached: a game may gain an embedding later.
func (c *CachedEmbeddingStore) VectorOf(ctx context.Context, gameID int64) ([]float32, error) {
	if vec, ok := c.cache.Get(gameID); ok {
		return vec, nil
	}
	vec, err := c.inner.VectorOf(ctx, gameID)
	if err != nil {
		return nil, err
	}
	c.cache.Add(gameID, vec)
	return vec, nil
}

// Nearest delegates to the inner store.
func (c *CachedEmbeddingStore) Nearest(ctx context.Context, vector []float32, k int) ([]Neighbor, error) {
	return c.inner.Nearest(ctx, vector, k)
}

// Dimension delegates to the inner store.
func (c *CachedEmbeddingStore) Dimension(ctx context.Context) (int, string, error) {
	return c.inner.Dimension(ctx)
}

// Len reports the number of cached vectors.
func (c *CachedEmbeddingStore) Len() int { return c.cache.Len() }
