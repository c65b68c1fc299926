// gamescout-ingest loads a curated catalog snapshot (games, facet
// entities, embeddings, and user collections) into the configured store.
// The snapshot is produced offline; this tool only writes it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/tabletoplab/gamescout/internal/config"
	"github.com/tabletoplab/gamescout/internal/storage/postgres"
	"github.com/tabletoplab/gamescout/internal/storage/sqlite"
	"github.com/tabletoplab/gamescout/pkg/types"
)

// snapshot is the on-disk catalog format.
type snapshot struct {
	Model         string              `json:"model"`
	FacetEntities []types.FacetEntity `json:"facet_entities"`
	Games         []snapshotGame      `json:"games"`
	Collections   map[string][]int64  `json:"collections,omitempty"`
}

type snapshotGame struct {
	types.Game
	Embedding []float32 `json:"embedding,omitempty"`
}

// catalogWriter is the ingestion surface both stores provide.
type catalogWriter interface {
	UpsertFacetEntity(ctx context.Context, entity types.FacetEntity) error
	UpsertGame(ctx context.Context, game *types.Game) error
	StoreEmbedding(ctx context.Context, gameID int64, vector []float32, model string) error
	SetCollection(ctx context.Context, userID string, gameIDs []int64) error
	Close() error
}

func main() {
	input := flag.String("input", "", "Path to the catalog snapshot JSON (required)")
	flag.Parse()

	if *input == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	data, err := os.ReadFile(*input)
	if err != nil {
		log.Fatalf("Failed to read snapshot: %v", err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		log.Fatalf("Failed to parse snapshot: %v", err)
	}
	if snap.Model == "" {
		log.Fatal("Snapshot is missing the embedding model name")
	}

	var store catalogWriter
	switch cfg.Storage.StorageEngine {
	case "postgres":
		store, err = postgres.Open(cfg.Storage.PostgresDSN)
	case "sqlite":
		store, err = sqlite.Open(cfg.Storage.DataPath + "/gamescout.db")
	default:
		log.Fatalf("Unknown storage engine %q (want sqlite or postgres)", cfg.Storage.StorageEngine)
	}
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()

	for _, entity := range snap.FacetEntities {
		if err := store.UpsertFacetEntity(ctx, entity); err != nil {
			log.Fatalf("Failed to ingest facet entity %d: %v", entity.ID, err)
		}
	}

	embedded := 0
	for i := range snap.Games {
		g := &snap.Games[i]
		if err := store.UpsertGame(ctx, &g.Game); err != nil {
			log.Fatalf("Failed to ingest game %d: %v", g.ID, err)
		}
		if len(g.Embedding) > 0 {
			if err := store.StoreEmbedding(ctx, g.ID, g.Embedding, snap.Model); err != nil {
				log.Fatalf("Failed to ingest embedding for game %d: %v", g.ID, err)
			}
			embedded++
		}
	}

	for userID, gameIDs := range snap.Collections {
		if err := store.SetCollection(ctx, userID, gameIDs); err != nil {
			log.Fatalf("Failed to ingest collection for %s: %v", userID, err)
		}
	}

	log.Printf("Ingested %d facet entities, %d games (%d with embeddings), %d collections",
		len(snap.FacetEntities), len(snap.Games), embedded, len(snap.Collections))
}
