package types

// SimilarityBand buckets a normalized embedding similarity into a
// coarse label the presentation layer can render directly.
type SimilarityBand string

const (
	BandVerySimilar       SimilarityBand = "very_similar"
	BandModeratelySimilar SimilarityBand = "moderately_similar"
	BandSomewhatSimilar   SimilarityBand = "somewhat_similar"
	BandDissimilar        SimilarityBand = "dissimilar"
)

// FacetHighlight names a facet dimension the explainer considered
// noteworthy, with the shared (or divergent) entity IDs backing it.
type FacetHighlight struct {
	Facet   Facet   `json:"facet"`
	Jaccard float64 `json:"jaccard"`

	// SharedEntities lists the overlapping entity IDs for shared
	// highlights; empty for divergence highlights.
	SharedEntities []int64 `json:"shared_entities,omitempty"`
}

// NumericDelta reports how a candidate's numeric attribute differs from
// the anchor's (candidate minus anchor).
type NumericDelta struct {
	Attribute string  `json:"attribute"` // "playtime_minutes", "weight", "rating"
	Anchor    float64 `json:"anchor"`
	Candidate float64 `json:"candidate"`
	Delta     float64 `json:"delta"`
}

// Explanation is the structured justification for a single result. It
// is pure data: the presentation layer outside the core turns it into
// prose.
type Explanation struct {
	// Band buckets the embedding similarity for display.
	Band SimilarityBand `json:"band"`

	// SharedFacets lists facets overlapping above the notable threshold.
	SharedFacets []FacetHighlight `json:"shared_facets,omitempty"`

	// DivergentFacets lists facets that diverged when the query asked
	// for dissimilarity on them.
	DivergentFacets []FacetHighlight `json:"divergent_facets,omitempty"`

	// NumericDeltas compares playtime, weight, and rating to the anchor.
	NumericDeltas []NumericDelta `json:"numeric_deltas,omitempty"`

	// Summary is a compact machine-built reason string, e.g.
	// "very similar; shares mechanics (0.67); diverges on categories".
	Summary string `json:"summary"`
}

// ScoredResult is one ranked recommendation. Created once per query and
// discarded after the response is built; callers may archive the whole
// response blob as opaque metadata.
type ScoredResult struct {
	// GameID identifies the recommended game.
	GameID int64 `json:"game_id"`

	// GameName is denormalized for display convenience.
	GameName string `json:"game_name,omitempty"`

	// EmbeddingSimilarity is the raw cosine similarity in [-1,1].
	EmbeddingSimilarity float64 `json:"embedding_similarity"`

	// NormalizedSimilarity rescales cosine into [0,1] for display and
	// for the blended score.
	NormalizedSimilarity float64 `json:"normalized_similarity"`

	// FacetOverlap holds the Jaccard index per constrained facet.
	FacetOverlap map[Facet]float64 `json:"facet_overlap,omitempty"`

	// FinalScore is the blended ranking score in [0,1].
	FinalScore float64 `json:"final_score"`

	// Explanation justifies the ranking in structured form.
	Explanation Explanation `json:"explanation"`
}
