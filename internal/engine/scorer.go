package engine

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/tabletoplab/gamescout/internal/storage"
	"github.com/tabletoplab/gamescout/pkg/types"
)

// nearestOversample controls how many neighbors beyond topK the scorer
// requests from the index so that constraint filtering and facet
// re-ranking still have enough material to fill a page.
const nearestOversample = 10

// minNearestFetch is the floor on the index fetch size.
const minNearestFetch = 100

// Scorer computes the blended ranking score: normalized embedding
// similarity weighted against facet alignment, with hard constraints
// excluding candidates outright. Soft constraints only shape the score.
type Scorer struct {
	embeddings storage.EmbeddingStore
	facets     storage.FacetIndex
	cfg        Config
}

// NewScorer creates a scorer with the given tunables.
func NewScorer(embeddings storage.EmbeddingStore, facets storage.FacetIndex, cfg Config) *Scorer {
	return &Scorer{embeddings: embeddings, facets: facets, cfg: cfg}
}

// Score ranks the candidates against the anchor and returns at most
// topK results, best first. topK = 0 returns an empty slice; topK
// beyond the surviving candidate count returns everything that
// survived.
//
// For global scope the embedding store's nearest-neighbor index is
// used (an index lookup only pays off over large pools); for
// collection scope the candidate set is small, so vectors are fetched
// and compared pairwise.
//
// Ties within ScoreEpsilon break by higher embedding similarity, then
// lower game ID, so identical inputs always produce identical order.
func (s *Scorer) Score(ctx context.Context, anchorID int64, candidates []int64, spec *types.QuerySpec, topK int) ([]types.ScoredResult, error) {
	if topK == 0 {
		return []types.ScoredResult{}, nil
	}

	anchorVec, err := s.embeddings.VectorOf(ctx, anchorID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, fmt.Errorf("%w: anchor game %d has no embedding", ErrProviderUnavailable, anchorID)
		}
		return nil, fmt.Errorf("%w: anchor vector: %v", ErrProviderUnavailable, err)
	}

	similarities, err := s.candidateSimilarities(ctx, anchorVec, candidates, spec, topK)
	if err != nil {
		return nil, err
	}

	anchorFacets, err := s.anchorFacetSets(ctx, anchorID, spec)
	if err != nil {
		return nil, err
	}

	var results []types.ScoredResult
	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			// Never return a partial ranking on cancellation.
			return nil, err
		}

		cosine, ok := similarities[id]
		if !ok {
			// Not in the index fetch window, or no embedding at all.
			continue
		}

		overlap, pass, err := s.facetOverlap(ctx, id, anchorFacets, spec)
		if err != nil {
			return nil, err
		}
		if !pass {
			continue
		}

		normalized := storage.NormalizeSimilarity(cosine)
		final := s.cfg.EmbeddingWeight*normalized + s.cfg.FacetWeight*s.facetAlignment(overlap, spec)

		results = append(results, types.ScoredResult{
			GameID:               id,
			EmbeddingSimilarity:  cosine,
			NormalizedSimilarity: normalized,
			FacetOverlap:         overlap,
			FinalScore:           final,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if math.Abs(a.FinalScore-b.FinalScore) > s.cfg.ScoreEpsilon {
			return a.FinalScore > b.FinalScore
		}
		if math.Abs(a.EmbeddingSimilarity-b.EmbeddingSimilarity) > s.cfg.ScoreEpsilon {
			return a.EmbeddingSimilarity > b.EmbeddingSimilarity
		}
		return a.GameID < b.GameID
	})

	if topK > 0 && len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// candidateSimilarities returns cosine similarity per candidate ID.
// Global scope goes through the nearest-neighbor index; collection
// scope fetches vectors directly.
func (s *Scorer) candidateSimilarities(ctx context.Context, anchorVec []float32, candidates []int64, spec *types.QuerySpec, topK int) (map[int64]float64, error) {
	sims := make(map[int64]float64, len(candidates))

	if spec.Scope == types.ScopeGlobal {
		fetch := topK * nearestOversample
		if fetch < minNearestFetch {
			fetch = minNearestFetch
		}
		// +1 because the anchor itself usually tops its own neighbors.
		neighbors, err := s.embeddings.Nearest(ctx, anchorVec, fetch+1)
		if err != nil {
			return nil, fmt.Errorf("%w: nearest-neighbor query: %v", ErrProviderUnavailable, err)
		}
		wanted := make(map[int64]struct{}, len(candidates))
		for _, id := range candidates {
			wanted[id] = struct{}{}
		}
		for _, n := range neighbors {
			if _, ok := wanted[n.GameID]; ok {
				sims[n.GameID] = n.Similarity
			}
		}
		return sims, nil
	}

	for _, id := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := s.embeddings.VectorOf(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue // unembedded game, cannot be scored
			}
			return nil, fmt.Errorf("%w: vector of %d: %v", ErrProviderUnavailable, id, err)
		}
		sims[id] = storage.CosineSimilarity(anchorVec, vec)
	}
	return sims, nil
}

// anchorFacetSets prefetches the anchor's entity sets for every facet
// the spec constrains, plus the gameplay facets used for default
// alignment.
func (s *Scorer) anchorFacetSets(ctx context.Context, anchorID int64, spec *types.QuerySpec) (map[types.Facet]types.FacetSet, error) {
	sets := make(map[types.Facet]types.FacetSet)
	for _, facet := range s.scoringFacets(spec) {
		fs, err := s.facets.FacetsOf(ctx, anchorID, facet)
		if err != nil {
			return nil, fmt.Errorf("%w: facets of anchor %d: %v", ErrProviderUnavailable, anchorID, err)
		}
		sets[facet] = fs
	}
	return sets, nil
}

// scoringFacets lists the facets that participate in scoring: the
// constrained ones, or the core gameplay facets (mechanics and
// categories) when the spec carries no facet constraints.
func (s *Scorer) scoringFacets(spec *types.QuerySpec) []types.Facet {
	if len(spec.Constraints) == 0 {
		return []types.Facet{types.FacetMechanics, types.FacetCategories}
	}
	facets := make([]types.Facet, 0, len(spec.Constraints))
	for _, f := range types.AllFacets {
		if _, ok := spec.Constraints[f]; ok {
			facets = append(facets, f)
		}
	}
	return facets
}

// facetOverlap computes the Jaccard per scoring facet and enforces the
// hard constraints: an exceeded JaccardMax (a "must be different"
// requirement) excludes the candidate, as do explicit include/exclude
// entity pins. JaccardMin stays soft and only shapes the score.
func (s *Scorer) facetOverlap(ctx context.Context, candidateID int64, anchorFacets map[types.Facet]types.FacetSet, spec *types.QuerySpec) (map[types.Facet]float64, bool, error) {
	overlap := make(map[types.Facet]float64, len(anchorFacets))

	for facet, anchorSet := range anchorFacets {
		candidateSet, err := s.facets.FacetsOf(ctx, candidateID, facet)
		if err != nil {
			return nil, false, fmt.Errorf("%w: facets of %d: %v", ErrProviderUnavailable, candidateID, err)
		}

		j := anchorSet.Jaccard(candidateSet)
		overlap[facet] = j

		c, constrained := spec.Constraints[facet]
		if !constrained {
			continue
		}
		if c.JaccardMax != nil && j > *c.JaccardMax {
			return nil, false, nil
		}
		for _, id := range c.Exclude {
			if candidateSet.Has(id) {
				return nil, false, nil
			}
		}
		if len(c.Include) > 0 {
			found := false
			for _, id := range c.Include {
				if candidateSet.Has(id) {
					found = true
					break
				}
			}
			if !found {
				return nil, false, nil
			}
		}
	}
	return overlap, true, nil
}

// facetAlignment folds per-facet Jaccard values into a single [0,1]
// alignment term. Similarity-constrained facets reward overlap,
// dissimilarity-constrained facets reward divergence, and an
// unconstrained spec falls back to plain overlap on the gameplay
// facets.
func (s *Scorer) facetAlignment(overlap map[types.Facet]float64, spec *types.QuerySpec) float64 {
	if len(overlap) == 0 {
		return 0
	}

	var sum float64
	var n int
	for _, facet := range types.AllFacets {
		j, ok := overlap[facet]
		if !ok {
			continue
		}
		c := spec.Constraints[facet]
		if c.JaccardMax != nil && c.JaccardMin == nil {
			sum += 1 - j
		} else {
			sum += j
		}
		n++
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
