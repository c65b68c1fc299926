// Package server_test exercises the HTTP server end to end over an
// in-memory SQLite store.
package server_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletoplab/gamescout/internal/config"
	"github.com/tabletoplab/gamescout/internal/server"
	"github.com/tabletoplab/gamescout/internal/storage/sqlite"
	"github.com/tabletoplab/gamescout/pkg/types"
	"github.com/tabletoplab/gamescout/web/handlers"
)

// startTestServer starts the server on a random port over a seeded
// in-memory store and returns its base URL.
func startTestServer(t *testing.T, cfg *config.Config) string {
	t.Helper()

	if cfg.Server.Host == "" {
		cfg.Server.Host = "127.0.0.1"
	}
	cfg.Server.Port = 0 // random port for tests

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	seedStore(t, store)

	ctx, cancel := context.WithCancel(context.Background())
	addr, _, err := server.Start(ctx, cfg, store)
	require.NoError(t, err)

	t.Cleanup(func() {
		cancel()
		time.Sleep(50 * time.Millisecond)
		_ = store.Close()
	})
	return "http://" + addr
}

func seedStore(t *testing.T, store *sqlite.Store) {
	t.Helper()
	ctx := context.Background()

	entities := []types.FacetEntity{
		{ID: 1, Facet: types.FacetMechanics, Name: "Network Building"},
		{ID: 2, Facet: types.FacetMechanics, Name: "Economic Engine"},
		{ID: 10, Facet: types.FacetCategories, Name: "Industry"},
	}
	for _, e := range entities {
		require.NoError(t, store.UpsertFacetEntity(ctx, e))
	}

	games := []*types.Game{
		{
			ID: 1, Name: "Brass: Birmingham", PlaytimeMinutes: 120, Weight: 3.9,
			Facets: map[types.Facet]types.FacetSet{
				types.FacetMechanics:  types.NewFacetSet(1, 2),
				types.FacetCategories: types.NewFacetSet(10),
			},
		},
		{
			ID: 2, Name: "Brass: Lancashire", PlaytimeMinutes: 120, Weight: 3.8,
			Facets: map[types.Facet]types.FacetSet{
				types.FacetMechanics:  types.NewFacetSet(1, 2),
				types.FacetCategories: types.NewFacetSet(10),
			},
		},
	}
	for _, g := range games {
		require.NoError(t, store.UpsertGame(ctx, g))
	}
	require.NoError(t, store.StoreEmbedding(ctx, 1, []float32{1, 0, 0}, "test-embed-v1"))
	require.NoError(t, store.StoreEmbedding(ctx, 2, []float32{0.98, 0.15, 0}, "test-embed-v1"))
}

func defaultTestConfig() *config.Config {
	cfg, _ := config.LoadConfig()
	cfg.Features.EnableWebUI = false
	return cfg
}

func TestHealthEndpoint(t *testing.T) {
	base := startTestServer(t, defaultTestConfig())

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body["status"])
}

func TestRecommendEndToEnd(t *testing.T) {
	base := startTestServer(t, defaultTestConfig())

	resp, err := http.Post(base+"/api/recommend", "application/json",
		strings.NewReader(`{"message":"games like Brass: Birmingham"}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body handlers.RecommendResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, int64(1), body.Query.AnchorGameID)
	require.NotEmpty(t, body.Results)
	assert.Equal(t, int64(2), body.Results[0].GameID)
}

func TestProductionModeRequiresToken(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Security.SecurityMode = "production"
	cfg.Security.APIToken = "test-token"
	base := startTestServer(t, cfg)

	// No token: rejected.
	resp, err := http.Post(base+"/api/recommend", "application/json",
		strings.NewReader(`{"message":"games like Brass: Birmingham"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	// Health stays open.
	resp, err = http.Get(base + "/api/health")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Correct token: accepted.
	req, err := http.NewRequest(http.MethodPost, base+"/api/recommend",
		strings.NewReader(`{"message":"games like Brass: Birmingham"}`))
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer test-token")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestTuningEndpoint(t *testing.T) {
	base := startTestServer(t, defaultTestConfig())

	req, err := http.NewRequest(http.MethodPut, base+"/api/tuning",
		strings.NewReader(`{"embedding_weight":0.7,"facet_weight":0.3}`))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/api/tuning")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.InDelta(t, 0.7, body["embedding_weight"].(float64), 1e-9)
}

func TestWebUIServesIndexAndStatic(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Features.EnableWebUI = true
	base := startTestServer(t, cfg)

	resp, err := http.Get(base + "/")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Get(base + "/static/style.css")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(base + "/no-such-page")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGracefulShutdown(t *testing.T) {
	cfg := defaultTestConfig()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 0

	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = store.Close() }()

	ctx, cancel := context.WithCancel(context.Background())
	addr, _, err := server.Start(ctx, cfg, store)
	require.NoError(t, err)

	resp, err := http.Get(fmt.Sprintf("http://%s/api/health", addr))
	require.NoError(t, err)
	_ = resp.Body.Close()

	cancel()
	time.Sleep(200 * time.Millisecond)

	_, err = http.Get(fmt.Sprintf("http://%s/api/health", addr))
	assert.Error(t, err)
}
