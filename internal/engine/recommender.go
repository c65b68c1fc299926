package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/tabletoplab/gamescout/internal/storage"
	"github.com/tabletoplab/gamescout/pkg/types"
)

// RankedResponse is the outcome of one resolve-and-rank invocation:
// the interpreted spec (for caller-side display and debugging) and the
// ordered results.
type RankedResponse struct {
	QuerySpec types.QuerySpec      `json:"query_spec"`
	Results   []types.ScoredResult `json:"results"`

	// Elapsed is how long the resolution took, for activity reporting.
	Elapsed time.Duration `json:"-"`
}

// Recommender orchestrates the full pipeline: interpret → resolve →
// score → explain. It holds no per-request state; concurrent calls
// share only the read-only providers and the tunable config snapshot.
type Recommender struct {
	providers storage.Providers
	rules     *RuleTable

	mu  sync.RWMutex
	cfg Config
}

// NewRecommender wires the pipeline. The embedding store is wrapped in
// a circuit breaker; pass providers straight from the storage layer.
func NewRecommender(providers storage.Providers, rules *RuleTable, cfg Config) (*Recommender, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("engine: invalid config: %w", err)
	}
	if providers.Embeddings == nil || providers.Facets == nil ||
		providers.Collections == nil || providers.Catalog == nil {
		return nil, fmt.Errorf("engine: all four providers are required")
	}
	if rules == nil {
		rules = DefaultRuleTable()
	}

	if _, ok := providers.Embeddings.(*ProviderBreaker); !ok {
		providers.Embeddings = NewProviderBreaker(providers.Embeddings, cfg)
	}

	return &Recommender{providers: providers, rules: rules, cfg: cfg}, nil
}

// Config returns a snapshot of the current tunables.
func (r *Recommender) Config() Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg
}

// UpdateWeights swaps the score-blend weights at runtime. Used by the
// settings service when an operator retunes the blend.
func (r *Recommender) UpdateWeights(embedding, facet float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.cfg
	next.EmbeddingWeight = embedding
	next.FacetWeight = facet
	if err := next.Validate(); err != nil {
		return fmt.Errorf("engine: invalid weights: %w", err)
	}
	r.cfg = next
	return nil
}

// EmbedderState reports the circuit breaker state of the embedding
// provider ("closed", "half-open", "open"), for health reporting.
func (r *Recommender) EmbedderState() string {
	if pb, ok := r.providers.Embeddings.(*ProviderBreaker); ok {
		return pb.State()
	}
	return "closed"
}

// ResolveAndRank resolves the message into a query spec, ranks the
// candidates, and explains the returned page.
//
// topK < 0 requests the configured default; topK = 0 returns the
// interpreted spec with an empty result list.
//
// Typed outcomes: ErrAmbiguousAnchor, ErrEmptyCollection,
// ErrNoCandidates, ErrProviderUnavailable. Cancellation surfaces as
// the context error, never as a partial ranking.
func (r *Recommender) ResolveAndRank(ctx context.Context, message string, convCtx types.Context, userID string, topK int) (*RankedResponse, error) {
	start := time.Now()
	cfg := r.Config()

	if topK < 0 {
		topK = cfg.DefaultTopK
	}

	interpreter := NewInterpreter(r.providers.Catalog, r.rules, cfg)
	spec, err := interpreter.Interpret(ctx, message, convCtx)
	if err != nil {
		return nil, err
	}

	resolver := NewResolver(r.providers.Catalog, r.providers.Collections)
	candidates, err := resolver.Resolve(ctx, spec, userID)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	results := []types.ScoredResult{}
	if topK > 0 {
		scorer := NewScorer(r.providers.Embeddings, r.providers.Facets, cfg)
		results, err = scorer.Score(ctx, spec.AnchorGameID, candidates, spec, topK)
		if err != nil {
			return nil, err
		}
		if len(results) == 0 {
			return nil, ErrNoCandidates
		}

		explainer := NewExplainer(r.providers.Facets, r.providers.Catalog, cfg)
		for i := range results {
			expl, err := explainer.Explain(ctx, spec.AnchorGameID, &results[i], spec)
			if err != nil {
				return nil, err
			}
			results[i].Explanation = expl

			if game, err := r.providers.Catalog.Lookup(ctx, results[i].GameID); err == nil {
				results[i].GameName = game.Name
			} else if !errors.Is(err, storage.ErrNotFound) {
				return nil, fmt.Errorf("%w: lookup %d: %v", ErrProviderUnavailable, results[i].GameID, err)
			}
		}
	}

	elapsed := time.Since(start)
	log.Printf("engine: resolved %q intent=%s scope=%s anchor=%d candidates=%d results=%d in %s",
		truncateForLog(message), spec.Intent, spec.Scope, spec.AnchorGameID,
		len(candidates), len(results), elapsed.Round(time.Millisecond))

	return &RankedResponse{QuerySpec: *spec, Results: results, Elapsed: elapsed}, nil
}

// truncateForLog keeps log lines bounded on long chat messages.
func truncateForLog(s string) string {
	const maxLen = 80
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "…"
}
