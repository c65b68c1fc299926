package types

import "fmt"

// Scope determines which candidate pool a query draws from.
type Scope string

const (
	// ScopeGlobal draws candidates from the whole catalog.
	ScopeGlobal Scope = "global"

	// ScopeCollection draws candidates from the requesting user's
	// collection only.
	ScopeCollection Scope = "user_collection"
)

// Intent labels the high-level goal the interpreter extracted from the
// message. Intents are free-form labels; the constants below are the
// ones the built-in rule table produces.
type Intent string

const (
	IntentSimilar        Intent = "similar"
	IntentDifferentTheme Intent = "different_theme"
	IntentDifferent      Intent = "different"
	IntentDoINeed        Intent = "do_i_need"
)

// RequiresAnchor reports whether the intent is meaningless without a
// reference game to compare against.
func (i Intent) RequiresAnchor() bool {
	switch i {
	case IntentSimilar, IntentDifferentTheme, IntentDifferent, IntentDoINeed:
		return true
	}
	return false
}

// FacetConstraint is a per-facet similarity or dissimilarity rule.
// JaccardMin expresses "must overlap at least this much" (similarity
// language); JaccardMax expresses "must overlap at most this much"
// (dissimilarity language). Nil means unconstrained on that side.
type FacetConstraint struct {
	JaccardMin *float64 `json:"jaccard_min,omitempty"`
	JaccardMax *float64 `json:"jaccard_max,omitempty"`

	// Include and Exclude pin explicit facet-entity IDs the candidate
	// must (or must not) carry, independent of the Jaccard bounds.
	Include []int64 `json:"include,omitempty"`
	Exclude []int64 `json:"exclude,omitempty"`
}

// IsZero reports whether the constraint places no restriction at all.
func (c FacetConstraint) IsZero() bool {
	return c.JaccardMin == nil && c.JaccardMax == nil &&
		len(c.Include) == 0 && len(c.Exclude) == 0
}

// RangeFilter bounds a numeric game attribute. Nil bounds are open.
type RangeFilter struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether v falls inside the (inclusive) range.
func (r RangeFilter) Contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// IsZero reports whether the filter is unbounded on both sides.
func (r RangeFilter) IsZero() bool { return r.Min == nil && r.Max == nil }

// QuerySpec is the structured, machine-actionable form of a user's
// natural-language request. It is created fresh per request and never
// persisted as authoritative state.
type QuerySpec struct {
	// Scope selects the candidate pool.
	Scope Scope `json:"scope"`

	// AnchorGameID is the reference game, 0 when no anchor resolved.
	AnchorGameID int64 `json:"anchor_game_id,omitempty"`

	// Intent is the classified request goal (default: "similar").
	Intent Intent `json:"intent"`

	// Constraints maps facet dimensions to similarity rules.
	Constraints map[Facet]FacetConstraint `json:"constraints,omitempty"`

	// PlayerCount, when set, keeps only games supporting this count.
	PlayerCount *int `json:"player_count,omitempty"`

	// Playtime bounds the playtime in minutes.
	Playtime RangeFilter `json:"playtime,omitempty"`

	// Weight bounds the complexity rating (1-5 scale).
	Weight RangeFilter `json:"weight,omitempty"`
}

// Validate checks internal consistency of the spec.
func (q *QuerySpec) Validate() error {
	if q.Scope != ScopeGlobal && q.Scope != ScopeCollection {
		return fmt.Errorf("invalid scope %q", q.Scope)
	}
	for facet, c := range q.Constraints {
		if !ValidFacet(facet) {
			return fmt.Errorf("unknown facet %q in constraints", facet)
		}
		if c.JaccardMin != nil && (*c.JaccardMin < 0 || *c.JaccardMin > 1) {
			return fmt.Errorf("facet %q: jaccard_min %v out of [0,1]", facet, *c.JaccardMin)
		}
		if c.JaccardMax != nil && (*c.JaccardMax < 0 || *c.JaccardMax > 1) {
			return fmt.Errorf("facet %q: jaccard_max %v out of [0,1]", facet, *c.JaccardMax)
		}
		if c.JaccardMin != nil && c.JaccardMax != nil && *c.JaccardMin > *c.JaccardMax {
			return fmt.Errorf("facet %q: jaccard_min %v exceeds jaccard_max %v",
				facet, *c.JaccardMin, *c.JaccardMax)
		}
	}
	if q.Intent.RequiresAnchor() && q.AnchorGameID == 0 {
		return fmt.Errorf("intent %q requires an anchor game", q.Intent)
	}
	return nil
}

// Context carries the conversational state the chat-session layer owns
// and persists between turns. It is passed explicitly into every
// interpretation; the engine holds no cross-call state.
type Context struct {
	// LastGameID is the game most recently discussed in the session.
	LastGameID int64 `json:"last_game_id,omitempty"`

	// SelectedGameID is a game the user explicitly picked in the UI.
	// Takes priority over name extraction and LastGameID.
	SelectedGameID int64 `json:"selected_game_id,omitempty"`

	// UseCollection forces collection scope regardless of phrasing.
	UseCollection bool `json:"use_collection,omitempty"`
}
