// Package engine implements the query-resolution and ranking pipeline:
// free text plus conversational context is interpreted into a structured
// query spec, resolved against the catalog or a user collection, scored
// with a blend of embedding similarity and facet overlap, and explained
// per result. The engine holds no mutable state between calls; each
// request is a pure function of its inputs and the point-in-time
// catalog snapshot.
package engine

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAmbiguousAnchor is returned when the request needs a reference
	// game but none could be resolved from the message or context.
	ErrAmbiguousAnchor = errors.New("could not resolve an anchor game")

	// ErrEmptyCollection is returned for collection-scoped queries when
	// the user owns no games. A typed outcome, not a crash: the caller
	// renders it as "you have no games".
	ErrEmptyCollection = errors.New("user collection is empty")

	// ErrNoCandidates is returned when hard filters eliminate every
	// candidate. Also a typed "no matches" outcome.
	ErrNoCandidates = errors.New("no candidates after filtering")

	// ErrProviderUnavailable wraps faults from the embedding store,
	// catalog, or collection providers. The engine never retries;
	// retry policy belongs to the caller.
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Config holds the tunable scoring and interpretation parameters.
// The defaults are reasonable starting points, not discovered ground
// truth; deployments tune them via environment or the settings service.
type Config struct {
	// EmbeddingWeight and FacetWeight split the blended score between
	// embedding similarity and facet alignment (default 0.6 / 0.4).
	// They must sum to 1.
	EmbeddingWeight float64
	FacetWeight     float64

	// DefaultJaccardMin is the threshold attached to similarity
	// language when no explicit qualifier is present (default 0.5).
	DefaultJaccardMin float64

	// DefaultJaccardMax is the threshold attached to dissimilarity
	// language when no explicit qualifier is present (default 0.5).
	DefaultJaccardMax float64

	// StrictJaccardMax tightens the bound for emphatic dissimilarity
	// ("completely different", default 0.2).
	StrictJaccardMax float64

	// StrictJaccardMin raises the bound for emphatic similarity
	// ("very similar", default 0.7).
	StrictJaccardMin float64

	// NotableOverlap is the Jaccard threshold above which the explainer
	// calls out a facet as shared (default 0.3).
	NotableOverlap float64

	// ScoreEpsilon is the tolerance within which two final scores are
	// considered tied (default 1e-9).
	ScoreEpsilon float64

	// DefaultTopK is the result count when the caller passes none
	// (default 10).
	DefaultTopK int

	// NameMatchMinScore is the minimum fuzzy-match score for a game
	// name extracted from the message to count as the anchor
	// (default 0.6).
	NameMatchMinScore float64

	// BreakerTimeout is how long the provider circuit breaker stays
	// open before probing again (default 30s).
	BreakerTimeout time.Duration

	// BreakerMaxFailures is the consecutive-failure count that trips
	// the provider circuit breaker (default 3).
	BreakerMaxFailures uint32
}

// DefaultConfig returns a Config with the documented defaults.
func DefaultConfig() Config {
	return Config{
		EmbeddingWeight:    0.6,
		FacetWeight:        0.4,
		DefaultJaccardMin:  0.5,
		DefaultJaccardMax:  0.5,
		StrictJaccardMax:   0.2,
		StrictJaccardMin:   0.7,
		NotableOverlap:     0.3,
		ScoreEpsilon:       1e-9,
		DefaultTopK:        10,
		NameMatchMinScore:  0.6,
		BreakerTimeout:     30 * time.Second,
		BreakerMaxFailures: 3,
	}
}

// Validate checks if the config is valid.
func (c *Config) Validate() error {
	const eps = 1e-9

	if c.EmbeddingWeight < 0 || c.FacetWeight < 0 {
		return fmt.Errorf("score weights must be non-negative, got %v/%v",
			c.EmbeddingWeight, c.FacetWeight)
	}
	if sum := c.EmbeddingWeight + c.FacetWeight; sum < 1-eps || sum > 1+eps {
		return fmt.Errorf("score weights must sum to 1, got %v", sum)
	}
	for name, v := range map[string]float64{
		"DefaultJaccardMin": c.DefaultJaccardMin,
		"DefaultJaccardMax": c.DefaultJaccardMax,
		"StrictJaccardMax":  c.StrictJaccardMax,
		"StrictJaccardMin":  c.StrictJaccardMin,
		"NotableOverlap":    c.NotableOverlap,
		"NameMatchMinScore": c.NameMatchMinScore,
	} {
		if v < 0 || v > 1 {
			return fmt.Errorf("%s must be in [0,1], got %v", name, v)
		}
	}
	if c.DefaultTopK < 0 {
		return fmt.Errorf("DefaultTopK must be >= 0, got %d", c.DefaultTopK)
	}
	if c.ScoreEpsilon <= 0 {
		return fmt.Errorf("ScoreEpsilon must be > 0, got %v", c.ScoreEpsilon)
	}
	return nil
}
