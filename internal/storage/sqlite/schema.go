package sqlite

// Schema is the embedded DDL for the single-file catalog store.
// Applied idempotently on open; the offline ingestion pipeline owns
// all writes.
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	id               INTEGER PRIMARY KEY,
	name             TEXT NOT NULL,
	year_published   INTEGER NOT NULL DEFAULT 0,
	min_players      INTEGER NOT NULL DEFAULT 0,
	max_players      INTEGER NOT NULL DEFAULT 0,
	playtime_minutes INTEGER NOT NULL DEFAULT 0,
	rating           REAL NOT NULL DEFAULT 0,
	weight           REAL NOT NULL DEFAULT 0,
	created_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	updated_at       TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_games_name ON games(name);

CREATE TABLE IF NOT EXISTS facet_entities (
	id    INTEGER PRIMARY KEY,
	facet TEXT NOT NULL,
	name  TEXT NOT NULL,
	UNIQUE(facet, name)
);

CREATE TABLE IF NOT EXISTS game_facets (
	game_id   INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	facet     TEXT NOT NULL,
	entity_id INTEGER NOT NULL REFERENCES facet_entities(id) ON DELETE CASCADE,
	PRIMARY KEY (game_id, facet, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_game_facets_entity ON game_facets(facet, entity_id);

CREATE TABLE IF NOT EXISTS collections (
	user_id  TEXT NOT NULL,
	game_id  INTEGER NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (user_id, game_id)
);

CREATE TABLE IF NOT EXISTS embeddings (
	game_id    INTEGER PRIMARY KEY REFERENCES games(id) ON DELETE CASCADE,
	embedding  BLOB NOT NULL,
	dimension  INTEGER NOT NULL,
	model      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`
