// Package types defines the shared domain model for GameScout: games,
// facet sets, query specs, and scored results. These types carry no
// behavior beyond set math and validation; all orchestration lives in
// internal/engine.
package types

import (
	"encoding/json"
	"sort"
)

// Facet identifies a categorical attribute dimension of a game.
type Facet string

// The six facet dimensions tracked for every game. Each maps a game to a
// set of facet-entity IDs through a many-to-many join.
const (
	FacetMechanics  Facet = "mechanics"
	FacetCategories Facet = "categories"
	FacetDesigners  Facet = "designers"
	FacetArtists    Facet = "artists"
	FacetPublishers Facet = "publishers"
	FacetFamilies   Facet = "families"
)

// AllFacets lists every facet dimension in canonical order.
// Iteration over this slice (not over a map) keeps output deterministic.
var AllFacets = []Facet{
	FacetMechanics,
	FacetCategories,
	FacetDesigners,
	FacetArtists,
	FacetPublishers,
	FacetFamilies,
}

// ValidFacet reports whether f is one of the known facet dimensions.
func ValidFacet(f Facet) bool {
	for _, known := range AllFacets {
		if f == known {
			return true
		}
	}
	return false
}

// FacetSet is an unordered, deduplicated set of facet-entity IDs.
// The zero value (nil) is a valid empty set.
type FacetSet map[int64]struct{}

// NewFacetSet builds a FacetSet from the given entity IDs.
// Duplicates are collapsed.
func NewFacetSet(ids ...int64) FacetSet {
	s := make(FacetSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Has reports whether the set contains id.
func (s FacetSet) Has(id int64) bool {
	_, ok := s[id]
	return ok
}

// Len returns the number of entities in the set.
func (s FacetSet) Len() int { return len(s) }

// IntersectionCount returns |s ∩ other|.
func (s FacetSet) IntersectionCount(other FacetSet) int {
	// Iterate the smaller set.
	if len(other) < len(s) {
		s, other = other, s
	}
	n := 0
	for id := range s {
		if other.Has(id) {
			n++
		}
	}
	return n
}

// Jaccard returns the Jaccard index |s ∩ other| / |s ∪ other|.
// The Jaccard of two empty sets is defined as 0, not 1, so games that
// merely both lack a facet are never rewarded for it.
func (s FacetSet) Jaccard(other FacetSet) float64 {
	inter := s.IntersectionCount(other)
	union := len(s) + len(other) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Sorted returns the entity IDs in ascending order.
func (s FacetSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// MarshalJSON encodes the set as a sorted JSON array for stable output.
func (s FacetSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Sorted())
}

// UnmarshalJSON decodes a JSON array of entity IDs into the set.
func (s *FacetSet) UnmarshalJSON(data []byte) error {
	var ids []int64
	if err := json.Unmarshal(data, &ids); err != nil {
		return err
	}
	*s = NewFacetSet(ids...)
	return nil
}

// Game represents a single board game in the catalog, including the
// numeric attributes used for filtering and the facet membership sets
// used for overlap scoring. Games are read-only within a query
// resolution; mutation happens only through the offline curation
// pipeline.
type Game struct {
	// ID is the stable integer identifier for the game.
	ID int64 `json:"id"`

	// Name is the display title (e.g., "Brass: Birmingham").
	Name string `json:"name"`

	// YearPublished is the first publication year, 0 when unknown.
	YearPublished int `json:"year_published,omitempty"`

	// MinPlayers and MaxPlayers bound the supported player count.
	MinPlayers int `json:"min_players"`
	MaxPlayers int `json:"max_players"`

	// PlaytimeMinutes is the typical play duration in minutes.
	PlaytimeMinutes int `json:"playtime_minutes"`

	// Rating is the community rating on a 0-10 scale.
	Rating float64 `json:"rating"`

	// Weight is the complexity rating on a 1-5 scale.
	Weight float64 `json:"weight"`

	// Facets maps each facet dimension to the game's entity set.
	// Missing dimensions are treated as empty sets.
	Facets map[Facet]FacetSet `json:"facets,omitempty"`
}

// FacetSetOf returns the game's entity set for the given facet.
// Returns an empty set (never nil-panics) when the dimension is absent.
func (g *Game) FacetSetOf(f Facet) FacetSet {
	if g.Facets == nil {
		return nil
	}
	return g.Facets[f]
}

// SupportsPlayers reports whether the game accommodates n players.
func (g *Game) SupportsPlayers(n int) bool {
	if g.MinPlayers > 0 && n < g.MinPlayers {
		return false
	}
	if g.MaxPlayers > 0 && n > g.MaxPlayers {
		return false
	}
	return true
}

// FacetEntity is a named entity within one facet dimension (a mechanic,
// category, designer, artist, publisher, or family).
type FacetEntity struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Facet Facet  `json:"facet"`
}
