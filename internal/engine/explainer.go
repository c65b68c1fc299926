package engine

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/tabletoplab/gamescout/internal/storage"
	"github.com/tabletoplab/gamescout/pkg/types"
)

// Similarity band boundaries over the normalized [0,1] similarity.
// Normalized 0.5 is orthogonal, so everything below bandSomewhat reads
// as unrelated.
const (
	bandVery       = 0.85
	bandModerately = 0.70
	bandSomewhat   = 0.55
)

// Explainer builds the structured justification attached to each
// result: notable facet overlaps, requested divergences, and numeric
// deltas against the anchor. Pure data-to-text template logic — the
// presentation layer outside the core turns it into prose.
type Explainer struct {
	facets  storage.FacetIndex
	catalog storage.GameCatalog
	cfg     Config
}

// NewExplainer creates an explainer.
func NewExplainer(facets storage.FacetIndex, catalog storage.GameCatalog, cfg Config) *Explainer {
	return &Explainer{facets: facets, catalog: catalog, cfg: cfg}
}

// Explain produces the justification for one scored result.
// Deterministic given identical result and spec.
func (e *Explainer) Explain(ctx context.Context, anchorID int64, result *types.ScoredResult, spec *types.QuerySpec) (types.Explanation, error) {
	expl := types.Explanation{
		Band: similarityBand(result.NormalizedSimilarity),
	}

	// Walk facets in canonical order for stable output.
	for _, facet := range types.AllFacets {
		j, scored := result.FacetOverlap[facet]
		if !scored {
			continue
		}

		c := spec.Constraints[facet]
		wantDivergence := c.JaccardMax != nil && c.JaccardMin == nil

		switch {
		case wantDivergence && j <= *c.JaccardMax:
			expl.DivergentFacets = append(expl.DivergentFacets, types.FacetHighlight{
				Facet:   facet,
				Jaccard: j,
			})

		case !wantDivergence && j >= e.cfg.NotableOverlap:
			shared, err := e.sharedEntities(ctx, anchorID, result.GameID, facet)
			if err != nil {
				return types.Explanation{}, err
			}
			expl.SharedFacets = append(expl.SharedFacets, types.FacetHighlight{
				Facet:          facet,
				Jaccard:        j,
				SharedEntities: shared,
			})
		}
	}

	deltas, err := e.numericDeltas(ctx, anchorID, result.GameID)
	if err != nil {
		return types.Explanation{}, err
	}
	expl.NumericDeltas = deltas

	expl.Summary = buildSummary(expl)
	return expl, nil
}

// sharedEntities returns the sorted intersection of the anchor's and
// candidate's entity sets for one facet.
func (e *Explainer) sharedEntities(ctx context.Context, anchorID, candidateID int64, facet types.Facet) ([]int64, error) {
	anchorSet, err := e.facets.FacetsOf(ctx, anchorID, facet)
	if err != nil {
		return nil, fmt.Errorf("%w: facets of anchor %d: %v", ErrProviderUnavailable, anchorID, err)
	}
	candidateSet, err := e.facets.FacetsOf(ctx, candidateID, facet)
	if err != nil {
		return nil, fmt.Errorf("%w: facets of %d: %v", ErrProviderUnavailable, candidateID, err)
	}

	var shared []int64
	for id := range anchorSet {
		if candidateSet.Has(id) {
			shared = append(shared, id)
		}
	}
	sort.Slice(shared, func(i, j int) bool { return shared[i] < shared[j] })
	return shared, nil
}

// numericDeltas compares playtime, weight, and rating between anchor
// and candidate (candidate minus anchor).
func (e *Explainer) numericDeltas(ctx context.Context, anchorID, candidateID int64) ([]types.NumericDelta, error) {
	anchor, err := e.catalog.Lookup(ctx, anchorID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup anchor %d: %v", ErrProviderUnavailable, anchorID, err)
	}
	candidate, err := e.catalog.Lookup(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("%w: lookup %d: %v", ErrProviderUnavailable, candidateID, err)
	}

	return []types.NumericDelta{
		{
			Attribute: "playtime_minutes",
			Anchor:    float64(anchor.PlaytimeMinutes),
			Candidate: float64(candidate.PlaytimeMinutes),
			Delta:     float64(candidate.PlaytimeMinutes - anchor.PlaytimeMinutes),
		},
		{
			Attribute: "weight",
			Anchor:    anchor.Weight,
			Candidate: candidate.Weight,
			Delta:     candidate.Weight - anchor.Weight,
		},
		{
			Attribute: "rating",
			Anchor:    anchor.Rating,
			Candidate: candidate.Rating,
			Delta:     candidate.Rating - anchor.Rating,
		},
	}, nil
}

// similarityBand buckets a normalized similarity for display.
func similarityBand(normalized float64) types.SimilarityBand {
	switch {
	case normalized >= bandVery:
		return types.BandVerySimilar
	case normalized >= bandModerately:
		return types.BandModeratelySimilar
	case normalized >= bandSomewhat:
		return types.BandSomewhatSimilar
	default:
		return types.BandDissimilar
	}
}

// buildSummary renders the compact machine-built reason string.
func buildSummary(expl types.Explanation) string {
	parts := []string{strings.ReplaceAll(string(expl.Band), "_", " ")}

	for _, h := range expl.SharedFacets {
		parts = append(parts, fmt.Sprintf("shares %s (%.2f)", h.Facet, h.Jaccard))
	}
	for _, h := range expl.DivergentFacets {
		parts = append(parts, fmt.Sprintf("diverges on %s (%.2f)", h.Facet, h.Jaccard))
	}

	return strings.Join(parts, "; ")
}
