// Package sqlite implements all four provider interfaces over a single
// SQLite file: game catalog, facet index, user collections, and an
// embedding store with linear-scan nearest-neighbor search. The linear
// scan is a deliberate choice — this backend targets catalog sizes
// (tens of thousands of games) where a full pass over float32 blobs is
// cheaper than maintaining an ANN index.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/tabletoplab/gamescout/internal/storage"
	"github.com/tabletoplab/gamescout/pkg/types"
)

// Compile-time checks: one store satisfies the whole provider bundle.
var (
	_ storage.EmbeddingStore     = (*Store)(nil)
	_ storage.FacetIndex         = (*Store)(nil)
	_ storage.CollectionProvider = (*Store)(nil)
	_ storage.GameCatalog        = (*Store)(nil)
)

// Store is the SQLite-backed catalog store.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) the database at dsn, configures WAL mode,
// and applies the embedded schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", dsn, err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: apply schema: %w", err)
	}

	return &Store{db: db}, nil
}

// GetDB exposes the underlying connection for handlers that need
// direct queries (stats, activity buckets).
func (s *Store) GetDB() *sql.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// Providers returns the store packaged as the engine's provider bundle.
func (s *Store) Providers() storage.Providers {
	return storage.Providers{
		Embeddings:  s,
		Facets:      s,
		Collections: s,
		Catalog:     s,
	}
}

// ---------------------------------------------------------------------
// GameCatalog
// ---------------------------------------------------------------------

// Lookup returns a game's metadata including its facet sets.
func (s *Store) Lookup(ctx context.Context, gameID int64) (*types.Game, error) {
	const query = `
		SELECT id, name, year_published, min_players, max_players,
		       playtime_minutes, rating, weight
		FROM games WHERE id = ?
	`
	var g types.Game
	err := s.db.QueryRowContext(ctx, query, gameID).Scan(
		&g.ID, &g.Name, &g.YearPublished, &g.MinPlayers, &g.MaxPlayers,
		&g.PlaytimeMinutes, &g.Rating, &g.Weight,
	)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: lookup game %d: %w", gameID, err)
	}

	facets, err := s.allFacetsOf(ctx, gameID)
	if err != nil {
		return nil, err
	}
	g.Facets = facets
	return &g, nil
}

// AllIDs returns every game ID, ascending.
func (s *Store) AllIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM games ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list game ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan game id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// NameIndex returns the id→name snapshot used for fuzzy name matching.
func (s *Store) NameIndex(ctx context.Context) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name FROM games`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: name index: %w", err)
	}
	defer func() { _ = rows.Close() }()

	names := make(map[int64]string)
	for rows.Next() {
		var id int64
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("sqlite: scan name: %w", err)
		}
		names[id] = name
	}
	return names, rows.Err()
}

// ---------------------------------------------------------------------
// FacetIndex
// ---------------------------------------------------------------------

// FacetsOf returns the entity set for one facet dimension of a game.
func (s *Store) FacetsOf(ctx context.Context, gameID int64, facet types.Facet) (types.FacetSet, error) {
	const query = `SELECT entity_id FROM game_facets WHERE game_id = ? AND facet = ?`
	rows, err := s.db.QueryContext(ctx, query, gameID, string(facet))
	if err != nil {
		return nil, fmt.Errorf("sqlite: facets of %d/%s: %w", gameID, facet, err)
	}
	defer func() { _ = rows.Close() }()

	set := types.FacetSet{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan facet entity: %w", err)
		}
		set[id] = struct{}{}
	}
	return set, rows.Err()
}

// allFacetsOf loads every facet dimension of a game in one query.
func (s *Store) allFacetsOf(ctx context.Context, gameID int64) (map[types.Facet]types.FacetSet, error) {
	const query = `SELECT facet, entity_id FROM game_facets WHERE game_id = ?`
	rows, err := s.db.QueryContext(ctx, query, gameID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: facets of %d: %w", gameID, err)
	}
	defer func() { _ = rows.Close() }()

	facets := make(map[types.Facet]types.FacetSet)
	for rows.Next() {
		var facet string
		var id int64
		if err := rows.Scan(&facet, &id); err != nil {
			return nil, fmt.Errorf("sqlite: scan facet row: %w", err)
		}
		f := types.Facet(facet)
		if facets[f] == nil {
			facets[f] = types.FacetSet{}
		}
		facets[f][id] = struct{}{}
	}
	return facets, rows.Err()
}

// ---------------------------------------------------------------------
// CollectionProvider
// ---------------------------------------------------------------------

// CollectionOf returns the game IDs the user owns, ascending.
func (s *Store) CollectionOf(ctx context.Context, userID string) ([]int64, error) {
	const query = `SELECT game_id FROM collections WHERE user_id = ? ORDER BY game_id`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: collection of %s: %w", userID, err)
	}
	defer func() { _ = rows.Close() }()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scan collection row: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ---------------------------------------------------------------------
// EmbeddingStore
// ---------------------------------------------------------------------

// VectorOf returns the embedding vector for a game.
func (s *Store) VectorOf(ctx context.Context, gameID int64) ([]float32, error) {
	const query = `SELECT embedding, dimension FROM embeddings WHERE game_id = ?`
	var blob []byte
	var dimension int
	err := s.db.QueryRowContext(ctx, query, gameID).Scan(&blob, &dimension)
	if err == sql.ErrNoRows {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: vector of %d: %w", gameID, err)
	}
	return deserializeVector(blob, dimension)
}

// Nearest scans every stored embedding and returns the k closest by
// cosine similarity, best first, ties broken by lower game ID.
func (s *Store) Nearest(ctx context.Context, vector []float32, k int) ([]storage.Neighbor, error) {
	if len(vector) == 0 || k <= 0 {
		return []storage.Neighbor{}, nil
	}

	rows, err := s.db.QueryContext(ctx, `SELECT game_id, embedding, dimension FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: nearest scan: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var neighbors []storage.Neighbor
	for rows.Next() {
		var id int64
		var blob []byte
		var dimension int
		if err := rows.Scan(&id, &blob, &dimension); err != nil {
			return nil, fmt.Errorf("sqlite: scan embedding row: %w", err)
		}
		vec, err := deserializeVector(blob, dimension)
		if err != nil {
			return nil, err
		}
		neighbors = append(neighbors, storage.Neighbor{
			GameID:     id,
			Similarity: storage.CosineSimilarity(vector, vec),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: nearest rows: %w", err)
	}

	sort.Slice(neighbors, func(i, j int) bool {
		if neighbors[i].Similarity != neighbors[j].Similarity {
			return neighbors[i].Similarity > neighbors[j].Similarity
		}
		return neighbors[i].GameID < neighbors[j].GameID
	})
	if k < len(neighbors) {
		neighbors = neighbors[:k]
	}
	return neighbors, nil
}

// Dimension returns the dimension and model the store was loaded with.
// Returns ErrNotFound on an empty store.
func (s *Store) Dimension(ctx context.Context) (int, string, error) {
	var dimension int
	var model string
	err := s.db.QueryRowContext(ctx, `SELECT dimension, model FROM embeddings LIMIT 1`).Scan(&dimension, &model)
	if err == sql.ErrNoRows {
		return 0, "", storage.ErrNotFound
	}
	if err != nil {
		return 0, "", fmt.Errorf("sqlite: dimension: %w", err)
	}
	return dimension, model, nil
}

// ---------------------------------------------------------------------
// Ingestion (offline curation pipeline)
// ---------------------------------------------------------------------

// UpsertGame inserts or updates a game and replaces its facet rows.
func (s *Store) UpsertGame(ctx context.Context, game *types.Game) error {
	if game == nil || game.ID == 0 {
		return fmt.Errorf("%w: game with a non-zero ID is required", storage.ErrInvalidInput)
	}
	if game.Name == "" {
		return fmt.Errorf("%w: game name is required", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO games (id, name, year_published, min_players, max_players,
		                   playtime_minutes, rating, weight)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			year_published = excluded.year_published,
			min_players = excluded.min_players,
			max_players = excluded.max_players,
			playtime_minutes = excluded.playtime_minutes,
			rating = excluded.rating,
			weight = excluded.weight,
			updated_at = CURRENT_TIMESTAMP
	`, game.ID, game.Name, game.YearPublished, game.MinPlayers, game.MaxPlayers,
		game.PlaytimeMinutes, game.Rating, game.Weight)
	if err != nil {
		return fmt.Errorf("sqlite: upsert game %d: %w", game.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM game_facets WHERE game_id = ?`, game.ID); err != nil {
		return fmt.Errorf("sqlite: clear facets of %d: %w", game.ID, err)
	}
	for facet, set := range game.Facets {
		for _, entityID := range set.Sorted() {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO game_facets (game_id, facet, entity_id) VALUES (?, ?, ?)`,
				game.ID, string(facet), entityID); err != nil {
				return fmt.Errorf("sqlite: insert facet %s/%d for game %d: %w",
					facet, entityID, game.ID, err)
			}
		}
	}

	return tx.Commit()
}

// UpsertFacetEntity registers a named facet entity.
func (s *Store) UpsertFacetEntity(ctx context.Context, entity types.FacetEntity) error {
	if entity.ID == 0 || entity.Name == "" || !types.ValidFacet(entity.Facet) {
		return fmt.Errorf("%w: facet entity needs id, name, and a known facet", storage.ErrInvalidInput)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO facet_entities (id, facet, name)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET facet = excluded.facet, name = excluded.name
	`, entity.ID, string(entity.Facet), entity.Name)
	if err != nil {
		return fmt.Errorf("sqlite: upsert facet entity %d: %w", entity.ID, err)
	}
	return nil
}

// SetCollection replaces a user's collection with the given game IDs.
func (s *Store) SetCollection(ctx context.Context, userID string, gameIDs []int64) error {
	if userID == "" {
		return fmt.Errorf("%w: user ID is required", storage.ErrInvalidInput)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin collection update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE user_id = ?`, userID); err != nil {
		return fmt.Errorf("sqlite: clear collection of %s: %w", userID, err)
	}
	for _, id := range gameIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO collections (user_id, game_id) VALUES (?, ?)`,
			userID, id); err != nil {
			return fmt.Errorf("sqlite: add game %d to collection of %s: %w", id, userID, err)
		}
	}
	return tx.Commit()
}

// StoreEmbedding stores the vector for a game, validating dimension
// consistency against anything already stored.
func (s *Store) StoreEmbedding(ctx context.Context, gameID int64, vector []float32, model string) error {
	if gameID == 0 {
		return fmt.Errorf("%w: game ID is required", storage.ErrInvalidInput)
	}
	if len(vector) == 0 {
		return fmt.Errorf("%w: embedding vector cannot be empty", storage.ErrInvalidInput)
	}
	if model == "" {
		return fmt.Errorf("%w: model is required", storage.ErrInvalidInput)
	}

	if dim, _, err := s.Dimension(ctx); err == nil && dim != len(vector) {
		return fmt.Errorf("%w: store holds %d-dim vectors, got %d",
			storage.ErrDimensionMismatch, dim, len(vector))
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings (game_id, embedding, dimension, model)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(game_id) DO UPDATE SET
			embedding = excluded.embedding,
			dimension = excluded.dimension,
			model = excluded.model,
			updated_at = CURRENT_TIMESTAMP
	`, gameID, serializeVector(vector), len(vector), model)
	if err != nil {
		return fmt.Errorf("sqlite: store embedding for %d: %w", gameID, err)
	}
	return nil
}

// serializeVector packs a float32 slice as little-endian bytes.
func serializeVector(vector []float32) []byte {
	buf := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// deserializeVector unpacks little-endian bytes into a float32 slice,
// validating against the recorded dimension.
func deserializeVector(buf []byte, dimension int) ([]float32, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("sqlite: invalid dimension %d", dimension)
	}
	if len(buf) != dimension*4 {
		return nil, fmt.Errorf("sqlite: embedding blob size %d does not match dimension %d",
			len(buf), dimension)
	}
	vector := make([]float32, dimension)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
	}
	return vector, nil
}
