// Package server provides HTTP server initialization and lifecycle
// management for the GameScout web API.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/tabletoplab/gamescout/internal/config"
	"github.com/tabletoplab/gamescout/internal/engine"
	"github.com/tabletoplab/gamescout/internal/services"
	"github.com/tabletoplab/gamescout/internal/storage"
	"github.com/tabletoplab/gamescout/web/handlers"
)

// Store is what the server needs from a storage backend: the provider
// bundle for the engine plus the raw connection for settings persistence.
type Store interface {
	Providers() storage.Providers
	GetDB() *sql.DB
}

// securityHeadersMiddleware adds security headers to all HTTP responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-XSS-Protection", "1; mode=block")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start initializes and starts the HTTP server.
// Returns the actual address being listened on (useful for testing with
// port 0) and the ActivityHub for wiring event broadcasts, or an error
// when the recommender or listener cannot be set up.
func Start(ctx context.Context, cfg *config.Config, store Store) (string, *handlers.ActivityHub, error) {
	providers := store.Providers()

	// Wrap the embedding provider in a bounded read cache when enabled.
	if cfg.Storage.VectorCacheSize > 0 {
		cached, err := storage.NewCachedEmbeddingStore(providers.Embeddings, cfg.Storage.VectorCacheSize)
		if err != nil {
			return "", nil, fmt.Errorf("server: vector cache: %w", err)
		}
		providers.Embeddings = cached
	}

	// Rule table: embedded defaults unless an override file is configured.
	rules := engine.DefaultRuleTable()
	if cfg.Engine.RulesPath != "" {
		loaded, err := engine.LoadRuleTable(cfg.Engine.RulesPath)
		if err != nil {
			return "", nil, fmt.Errorf("server: load rules from %s: %w", cfg.Engine.RulesPath, err)
		}
		rules = loaded
	}

	engineCfg := engine.DefaultConfig()
	engineCfg.EmbeddingWeight = cfg.Engine.EmbeddingWeight
	engineCfg.FacetWeight = cfg.Engine.FacetWeight
	engineCfg.DefaultTopK = cfg.Engine.DefaultTopK

	recommender, err := engine.NewRecommender(providers, rules, engineCfg)
	if err != nil {
		return "", nil, fmt.Errorf("server: build recommender: %w", err)
	}

	// Restore persisted tuning over the config defaults.
	tuningDefaults := services.Tuning{
		EmbeddingWeight: engineCfg.EmbeddingWeight,
		FacetWeight:     engineCfg.FacetWeight,
	}
	tuningService := services.NewTuningService(store.GetDB(), recommender)
	if err := tuningService.Restore(tuningDefaults); err != nil {
		log.Printf("Warning: failed to restore persisted tuning: %v", err)
	}

	mux := http.NewServeMux()

	// Create WebSocket hub for the live activity feed
	var wsHub *handlers.ActivityHub
	if cfg.Features.EnableActivity {
		wsHub = handlers.NewActivityHub(cfg.Server.Port)
		go wsHub.Run()
	}

	// Create rate limiter (10 req/sec, burst of 20)
	rateLimiter := handlers.NewRateLimiter(10.0, 20)

	recommendHandlers := handlers.NewRecommendHandlers(recommender, providers.Catalog, wsHub)
	tuningHandlers := handlers.NewTuningHandlers(tuningService, tuningDefaults)

	// API routes (require auth in production mode)
	apiMux := http.NewServeMux()
	apiMux.HandleFunc("/api/recommend", recommendHandlers.Recommend)
	apiMux.HandleFunc("/api/games/{id}", recommendHandlers.GetGame)
	apiMux.HandleFunc("/api/tuning", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			tuningHandlers.GetTuning(w, r)
		case http.MethodPut:
			tuningHandlers.PutTuning(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// Health endpoint — no auth required, used by monitoring
	mux.HandleFunc("/api/health", recommendHandlers.Health)

	// Wrap API routes with auth middleware
	mux.Handle("/api/", handlers.RequireAuth(apiMux, cfg))

	// WebSocket endpoint (no auth required - origin validation handles security)
	if wsHub != nil {
		mux.Handle("/ws/activity", wsHub)
	}

	// Static web UI
	if cfg.Features.EnableWebUI {
		basePath := findBasePath()
		fs := http.FileServer(http.Dir(basePath + "/web/static"))
		mux.Handle("/static/", http.StripPrefix("/static/", fs))

		indexPath := basePath + "/web/templates/index.html"
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			http.ServeFile(w, r, indexPath)
		})
	}

	// Wrap entire server with rate limiting, then security headers
	handler := handlers.RateLimitMiddleware(mux, rateLimiter)
	handler = securityHeadersMiddleware(handler)

	// Create server with security timeouts
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("server: listen on %s: %w", addr, err)
	}

	actualAddr := listener.Addr().String()

	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("Server error: %v", err)
		}
	}()

	// Handle graceful shutdown
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
		if wsHub != nil {
			wsHub.Stop()
		}
	}()

	return actualAddr, wsHub, nil
}

// findBasePath returns the base path for the project.
// When running from cmd/gamescout-web, we need to go up two directories.
// When running tests, we may already be in the project root.
func findBasePath() string {
	if _, err := os.Stat("web/templates/index.html"); err == nil {
		return "."
	}
	if _, err := os.Stat("../web/templates/index.html"); err == nil {
		return ".."
	}
	if _, err := os.Stat("../../web/templates/index.html"); err == nil {
		return "../.."
	}
	return "."
}
