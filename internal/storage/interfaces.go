// Package storage provides the read-only provider interfaces the
// recommendation engine consumes, plus shared option and error types.
//
// The providers are small, focused interfaces that can be implemented
// independently and composed as needed. The engine treats all of them
// as read-only: catalog and embedding writes happen only through the
// offline ingestion pipeline, and collection writes belong to the
// collection-management layer outside this core.
package storage

import (
	"context"

	"github.com/tabletoplab/gamescout/pkg/types"
)

// EmbeddingStore provides dense vector lookup and nearest-neighbor
// search over the game catalog. Vectors within one store share a single
// model and dimension; similarity across model versions is meaningless.
type EmbeddingStore interface {
	// VectorOf returns the embedding vector for a game.
	// Returns ErrNotFound when the game has no embedding.
	VectorOf(ctx context.Context, gameID int64) ([]float32, error)

	// Nearest returns up to k games closest to the query vector by
	// cosine similarity, best first. The anchor itself is included when
	// present in the store; callers exclude it.
	Nearest(ctx context.Context, vector []float32, k int) ([]Neighbor, error)

	// Dimension returns the vector dimension and model name the store
	// was built with.
	Dimension(ctx context.Context) (int, string, error)
}

// FacetIndex maps games to their facet-entity sets and supports fast
// set-overlap computation between two games.
type FacetIndex interface {
	// FacetsOf returns the entity set for one facet dimension of a game.
	// An empty set (not an error) is returned when the game carries no
	// entities for that dimension.
	FacetsOf(ctx context.Context, gameID int64, facet types.Facet) (types.FacetSet, error)
}

// CollectionProvider exposes user collection membership. Owned and
// mutated by the collection-management layer; read-only here.
type CollectionProvider interface {
	// CollectionOf returns the set of game IDs the user owns.
	// An empty slice (not an error) means the user owns nothing.
	CollectionOf(ctx context.Context, userID string) ([]int64, error)
}

// GameCatalog provides game metadata lookup for numeric filtering and
// name matching.
type GameCatalog interface {
	// Lookup returns the metadata for a game.
	// Returns ErrNotFound for unknown IDs.
	Lookup(ctx context.Context, gameID int64) (*types.Game, error)

	// AllIDs returns every game ID in the catalog, ascending.
	AllIDs(ctx context.Context) ([]int64, error)

	// NameIndex returns the id→name mapping for fuzzy name matching.
	// Implementations may cache this; the engine treats it as a
	// point-in-time snapshot.
	NameIndex(ctx context.Context) (map[int64]string, error)
}

// Neighbor is one nearest-neighbor hit: a game ID with its cosine
// similarity to the query vector, in [-1,1].
type Neighbor struct {
	GameID     int64
	Similarity float64
}

// Providers bundles the four read-only collaborators the engine needs.
// Implementations that back all four with one database (the bundled
// sqlite and postgres stores) satisfy the whole bundle with one value.
type Providers struct {
	Embeddings  EmbeddingStore
	Facets      FacetIndex
	Collections CollectionProvider
	Catalog     GameCatalog
}
