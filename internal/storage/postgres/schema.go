package postgres

// Schema is the base DDL, applied idempotently on open. Embeddings are
// stored as little-endian float32 BYTEA so the store works on servers
// without the pgvector extension; the pgvector migration below adds the
// vector column used for accelerated nearest-neighbor search.
const Schema = `
CREATE TABLE IF NOT EXISTS games (
	id               BIGINT PRIMARY KEY,
	name             TEXT NOT NULL,
	year_published   INTEGER NOT NULL DEFAULT 0,
	min_players      INTEGER NOT NULL DEFAULT 0,
	max_players      INTEGER NOT NULL DEFAULT 0,
	playtime_minutes INTEGER NOT NULL DEFAULT 0,
	rating           DOUBLE PRECISION NOT NULL DEFAULT 0,
	weight           DOUBLE PRECISION NOT NULL DEFAULT 0,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	updated_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_games_name ON games(name);

CREATE TABLE IF NOT EXISTS facet_entities (
	id    BIGINT PRIMARY KEY,
	facet TEXT NOT NULL,
	name  TEXT NOT NULL,
	UNIQUE(facet, name)
);

CREATE TABLE IF NOT EXISTS game_facets (
	game_id   BIGINT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	facet     TEXT NOT NULL,
	entity_id BIGINT NOT NULL REFERENCES facet_entities(id) ON DELETE CASCADE,
	PRIMARY KEY (game_id, facet, entity_id)
);

CREATE INDEX IF NOT EXISTS idx_game_facets_entity ON game_facets(facet, entity_id);

CREATE TABLE IF NOT EXISTS collections (
	user_id  TEXT NOT NULL,
	game_id  BIGINT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
	added_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	PRIMARY KEY (user_id, game_id)
);

CREATE TABLE IF NOT EXISTS embeddings (
	game_id    BIGINT PRIMARY KEY REFERENCES games(id) ON DELETE CASCADE,
	embedding  BYTEA NOT NULL,
	dimension  INTEGER NOT NULL,
	model      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS settings (
	key        TEXT PRIMARY KEY,
	value      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
`

// MigrationPgvector adds the native vector column and its cosine index.
// Applied only when the pgvector extension loaded successfully.
//
// IMPORTANT: ivfflat requires at least one row to exist; we guard with a DO block.
const MigrationPgvector = `
ALTER TABLE embeddings ADD COLUMN IF NOT EXISTS embedding_vec vector;

DO $$
BEGIN
  IF EXISTS (SELECT 1 FROM embeddings LIMIT 1)
     AND NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_embeddings_vec_cosine') THEN
      EXECUTE 'CREATE INDEX idx_embeddings_vec_cosine ON embeddings USING ivfflat (embedding_vec vector_cosine_ops) WITH (lists = 100)';
  END IF;
END $$;
`
