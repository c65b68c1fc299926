package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/tabletoplab/gamescout/internal/storage"
	"github.com/tabletoplab/gamescout/pkg/types"
)

// Resolver determines the candidate game set for a query spec: the
// whole catalog or the user's collection, minus the anchor, with
// numeric filters applied as a hard pre-filter so the scoring stage
// stays bounded. Deterministic given identical inputs.
type Resolver struct {
	catalog     storage.GameCatalog
	collections storage.CollectionProvider
}

// NewResolver creates a candidate resolver.
func NewResolver(catalog storage.GameCatalog, collections storage.CollectionProvider) *Resolver {
	return &Resolver{catalog: catalog, collections: collections}
}

// Resolve returns the sorted candidate IDs for the spec.
//
// Collection scope with an empty collection returns ErrEmptyCollection.
// A candidate pool that the numeric pre-filter empties out returns
// ErrNoCandidates.
func (r *Resolver) Resolve(ctx context.Context, spec *types.QuerySpec, userID string) ([]int64, error) {
	var pool []int64

	switch spec.Scope {
	case types.ScopeCollection:
		if userID == "" {
			return nil, fmt.Errorf("%w: collection scope needs a user", ErrEmptyCollection)
		}
		owned, err := r.collections.CollectionOf(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("%w: collection lookup: %v", ErrProviderUnavailable, err)
		}
		if len(owned) == 0 {
			return nil, ErrEmptyCollection
		}
		pool = owned

	default:
		ids, err := r.catalog.AllIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: catalog listing: %v", ErrProviderUnavailable, err)
		}
		pool = ids
	}

	// Dedupe, drop the anchor, sort ascending for determinism.
	seen := make(map[int64]struct{}, len(pool))
	candidates := make([]int64, 0, len(pool))
	for _, id := range pool {
		if id == spec.AnchorGameID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		candidates = append(candidates, id)
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i] < candidates[j] })

	candidates, err := r.applyNumericFilters(ctx, spec, candidates)
	if err != nil {
		return nil, err
	}

	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}

// applyNumericFilters drops candidates outside the spec's player-count,
// playtime, and weight ranges. Skips catalog lookups entirely when the
// spec carries no numeric filters.
func (r *Resolver) applyNumericFilters(ctx context.Context, spec *types.QuerySpec, candidates []int64) ([]int64, error) {
	if spec.PlayerCount == nil && spec.Playtime.IsZero() && spec.Weight.IsZero() {
		return candidates, nil
	}

	kept := candidates[:0]
	for _, id := range candidates {
		game, err := r.catalog.Lookup(ctx, id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				// Catalog and candidate pool can drift (e.g. a stale
				// collection entry); skip rather than fail the query.
				continue
			}
			return nil, fmt.Errorf("%w: catalog lookup %d: %v", ErrProviderUnavailable, id, err)
		}

		if spec.PlayerCount != nil && !game.SupportsPlayers(*spec.PlayerCount) {
			continue
		}
		if !spec.Playtime.Contains(float64(game.PlaytimeMinutes)) {
			continue
		}
		if !spec.Weight.Contains(game.Weight) {
			continue
		}
		kept = append(kept, id)
	}
	return kept, nil
}
