package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tabletoplab/gamescout/internal/backup"
	"github.com/tabletoplab/gamescout/internal/config"
	"github.com/tabletoplab/gamescout/internal/server"
	"github.com/tabletoplab/gamescout/internal/storage/postgres"
	"github.com/tabletoplab/gamescout/internal/storage/sqlite"
)

func main() {
	rulesPath := flag.String("rules", "", "Path to a YAML rule table override")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *rulesPath != "" {
		cfg.Engine.RulesPath = *rulesPath
	}

	// Initialize storage
	var store server.Store
	var closeStore func() error
	switch cfg.Storage.StorageEngine {
	case "postgres":
		if cfg.Storage.PostgresDSN == "" {
			log.Fatal("GAMESCOUT_POSTGRES_DSN is required when the storage engine is postgres")
		}
		pg, err := postgres.Open(cfg.Storage.PostgresDSN)
		if err != nil {
			log.Fatalf("Failed to initialize postgres storage: %v", err)
		}
		store, closeStore = pg, pg.Close
	case "sqlite":
		sq, err := sqlite.Open(cfg.Storage.DataPath + "/gamescout.db")
		if err != nil {
			log.Fatalf("Failed to initialize sqlite storage: %v", err)
		}
		store, closeStore = sq, sq.Close
	default:
		log.Fatalf("Unknown storage engine %q (want sqlite or postgres)", cfg.Storage.StorageEngine)
	}
	defer func() { _ = closeStore() }()

	// Re-read config with persisted tunables from the settings table.
	if dbCfg, err := config.LoadConfigFromDB(store.GetDB()); err == nil {
		cfg.Engine = dbCfg.Engine
		if *rulesPath != "" {
			cfg.Engine.RulesPath = *rulesPath
		}
	} else {
		log.Printf("Warning: failed to load persisted config: %v", err)
	}

	// Setup context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Periodic catalog snapshots (sqlite engine only).
	if cfg.Backup.Enabled && cfg.Storage.StorageEngine == "sqlite" {
		interval, err := time.ParseDuration(cfg.Backup.Interval)
		if err != nil {
			log.Fatalf("Invalid backup interval %q: %v", cfg.Backup.Interval, err)
		}
		svc, err := backup.NewService(backup.Config{
			DBPath:   cfg.Storage.DataPath + "/gamescout.db",
			Dir:      cfg.Backup.Path,
			Interval: interval,
			Keep:     cfg.Backup.Keep,
			Verify:   true,
		})
		if err != nil {
			log.Fatalf("Failed to initialize snapshot service: %v", err)
		}
		go func() {
			if err := svc.Run(ctx); err != nil && err != context.Canceled {
				log.Printf("Snapshot service stopped: %v", err)
			}
		}()
	}

	addr, _, err := server.Start(ctx, cfg, store)
	if err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
	log.Printf("GameScout running at http://%s", addr)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")
	cancel()
	time.Sleep(1 * time.Second) // Give time for connections to close
}
