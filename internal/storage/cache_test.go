package storage

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore records how many times each method hits the backend.
type countingStore struct {
	vectors  map[int64][]float32
	vectorOf int
	nearest  int
}

func (c *countingStore) VectorOf(ctx context.Context, gameID int64) ([]float32, error) {
	c.vectorOf++
	vec, ok := c.vectors[gameID]
	if !ok {
		return nil, ErrNotFound
	}
	return vec, nil
}

func (c *countingStore) Nearest(ctx context.Context, vector []float32, k int) ([]Neighbor, error) {
	c.nearest++
	return []Neighbor{}, nil
}

func (c *countingStore) Dimension(ctx context.Context) (int, string, error) {
	return 3, "test-embed-v1", nil
}

func TestCachedEmbeddingStoreReadThrough(t *testing.T) {
	backend := &countingStore{vectors: map[int64][]float32{
		1: {1, 0, 0},
		2: {0, 1, 0},
	}}
	cached, err := NewCachedEmbeddingStore(backend, 8)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		vec, err := cached.VectorOf(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []float32{1, 0, 0}, vec)
	}
	assert.Equal(t, 1, backend.vectorOf)
	assert.Equal(t, 1, cached.Len())
}

func TestCachedEmbeddingStoreDoesNotCacheMisses(t *testing.T) {
	backend := &countingStore{vectors: map[int64][]float32{}}
	cached, err := NewCachedEmbeddingStore(backend, 8)
	require.NoError(t, err)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := cached.VectorOf(ctx, 99)
		assert.True(t, errors.Is(err, ErrNotFound))
	}
	assert.Equal(t, 3, backend.vectorOf)
	assert.Equal(t, 0, cached.Len())
}

func TestCachedEmbeddingStoreEvicts(t *testing.T) {
	backend := &countingStore{vectors: map[int64][]float32{
		1: {1, 0, 0}, 2: {0, 1, 0}, 3: {0, 0, 1},
	}}
	cached, err := NewCachedEmbeddingStore(backend, 2)
	require.NoError(t, err)
	ctx := context.Background()

	for _, id := range []int64{1, 2, 3} {
		_, err := cached.VectorOf(ctx, id)
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cached.Len())

	// 1 was evicted, so this is a second backend hit.
	_, err = cached.VectorOf(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, backend.vectorOf)
}

func TestCachedEmbeddingStoreDelegates(t *testing.T) {
	backend := &countingStore{vectors: map[int64][]float32{}}
	cached, err := NewCachedEmbeddingStore(backend, 2)
	require.NoError(t, err)

	_, err = cached.Nearest(context.Background(), []float32{1}, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, backend.nearest)

	dim, model, err := cached.Dimension(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, dim)
	assert.Equal(t, "test-embed-v1", model)
}

func TestNewCachedEmbeddingStoreValidates(t *testing.T) {
	_, err := NewCachedEmbeddingStore(nil, 8)
	assert.ErrorIs(t, err, ErrInvalidInput)

	backend := &countingStore{vectors: map[int64][]float32{}}
	_, err = NewCachedEmbeddingStore(backend, -1)
	assert.Error(t, err)
}
