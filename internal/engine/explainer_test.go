package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletoplab/gamescout/pkg/types"
)

func TestExplainSharedFacets(t *testing.T) {
	m := newFixture()
	e := NewExplainer(m, m, DefaultConfig())

	result := &types.ScoredResult{
		GameID:               6, // Food Chain Magnate
		NormalizedSimilarity: 0.92,
		FacetOverlap: map[types.Facet]float64{
			types.FacetMechanics:  2.0 / 3.0,
			types.FacetCategories: 0.0,
		},
	}

	expl, err := e.Explain(context.Background(), 1, result, similaritySpec(1))
	require.NoError(t, err)

	assert.Equal(t, types.BandVerySimilar, expl.Band)
	require.Len(t, expl.SharedFacets, 1)
	sh := expl.SharedFacets[0]
	assert.Equal(t, types.FacetMechanics, sh.Facet)
	assert.Equal(t, []int64{mechEconomic, mechMarket}, sh.SharedEntities)
	assert.Empty(t, expl.DivergentFacets)
	assert.Contains(t, expl.Summary, "very similar")
	assert.Contains(t, expl.Summary, "shares mechanics")
}

func TestExplainDivergentFacets(t *testing.T) {
	m := newFixture()
	e := NewExplainer(m, m, DefaultConfig())

	max := 0.3
	spec := &types.QuerySpec{
		Scope:        types.ScopeGlobal,
		Intent:       types.IntentDifferentTheme,
		AnchorGameID: 1,
		Constraints: map[types.Facet]types.FacetConstraint{
			types.FacetCategories: {JaccardMax: &max},
		},
	}

	result := &types.ScoredResult{
		GameID:               3, // Great Western Trail
		NormalizedSimilarity: 0.75,
		FacetOverlap: map[types.Facet]float64{
			types.FacetCategories: 0.0,
		},
	}

	expl, err := e.Explain(context.Background(), 1, result, spec)
	require.NoError(t, err)

	assert.Equal(t, types.BandModeratelySimilar, expl.Band)
	require.Len(t, expl.DivergentFacets, 1)
	assert.Equal(t, types.FacetCategories, expl.DivergentFacets[0].Facet)
	assert.Contains(t, expl.Summary, "diverges on categories")
}

func TestExplainNumericDeltas(t *testing.T) {
	m := newFixture()
	e := NewExplainer(m, m, DefaultConfig())

	result := &types.ScoredResult{GameID: 5, NormalizedSimilarity: 0.4}
	expl, err := e.Explain(context.Background(), 1, result, similaritySpec(1))
	require.NoError(t, err)

	require.Len(t, expl.NumericDeltas, 3)

	byAttr := map[string]types.NumericDelta{}
	for _, d := range expl.NumericDeltas {
		byAttr[d.Attribute] = d
	}

	// Azul (45 min, weight 1.8) against Brass (120 min, weight 3.9).
	assert.InDelta(t, -75.0, byAttr["playtime_minutes"].Delta, 1e-9)
	assert.InDelta(t, -2.1, byAttr["weight"].Delta, 1e-9)
	assert.Equal(t, types.BandDissimilar, expl.Band)
}

func TestExplainDeterminism(t *testing.T) {
	m := newFixture()
	e := NewExplainer(m, m, DefaultConfig())

	result := &types.ScoredResult{
		GameID:               2,
		NormalizedSimilarity: 0.95,
		FacetOverlap: map[types.Facet]float64{
			types.FacetMechanics:  1.0,
			types.FacetCategories: 1.0,
		},
	}
	spec := similaritySpec(1)

	first, err := e.Explain(context.Background(), 1, result, spec)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := e.Explain(context.Background(), 1, result, spec)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSimilarityBandBoundaries(t *testing.T) {
	assert.Equal(t, types.BandVerySimilar, similarityBand(0.85))
	assert.Equal(t, types.BandModeratelySimilar, similarityBand(0.84))
	assert.Equal(t, types.BandModeratelySimilar, similarityBand(0.70))
	assert.Equal(t, types.BandSomewhatSimilar, similarityBand(0.69))
	assert.Equal(t, types.BandSomewhatSimilar, similarityBand(0.55))
	assert.Equal(t, types.BandDissimilar, similarityBand(0.54))
}
