package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCosineSimilarity(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0, 1, 0}
	c := []float32{1, 0, 0}
	d := []float32{-1, 0, 0}

	assert.InDelta(t, 0.0, CosineSimilarity(a, b), 1e-9)
	assert.InDelta(t, 1.0, CosineSimilarity(a, c), 1e-9)
	assert.InDelta(t, -1.0, CosineSimilarity(a, d), 1e-9)

	// Symmetry.
	x := []float32{0.3, -0.2, 0.9}
	y := []float32{0.1, 0.4, -0.5}
	assert.InDelta(t, CosineSimilarity(x, y), CosineSimilarity(y, x), 1e-12)

	// Degenerate inputs.
	assert.Equal(t, 0.0, CosineSimilarity(nil, nil))
	assert.Equal(t, 0.0, CosineSimilarity(a, []float32{1, 2}))
	assert.Equal(t, 0.0, CosineSimilarity([]float32{0, 0, 0}, a))
}

func TestNormalizeSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, NormalizeSimilarity(1), 1e-9)
	assert.InDelta(t, 0.5, NormalizeSimilarity(0), 1e-9)
	assert.InDelta(t, 0.0, NormalizeSimilarity(-1), 1e-9)

	// Out-of-range cosines (float noise) are clamped.
	assert.Equal(t, 1.0, NormalizeSimilarity(1.000001))
	assert.Equal(t, 0.0, NormalizeSimilarity(-1.000001))
}
