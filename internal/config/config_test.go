package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tabletoplab/gamescout/internal/storage/sqlite"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7373, cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "sqlite", cfg.Storage.StorageEngine)
	assert.Equal(t, "./data", cfg.Storage.DataPath)
	assert.Equal(t, 4096, cfg.Storage.VectorCacheSize)
	assert.InDelta(t, 0.6, cfg.Engine.EmbeddingWeight, 1e-9)
	assert.InDelta(t, 0.4, cfg.Engine.FacetWeight, 1e-9)
	assert.Equal(t, 10, cfg.Engine.DefaultTopK)
	assert.Equal(t, "development", cfg.Security.SecurityMode)
	assert.True(t, cfg.Features.EnableWebUI)
}

func TestLoadConfigFromEnv(t *testing.T) {
	t.Setenv("GAMESCOUT_PORT", "9000")
	t.Setenv("GAMESCOUT_STORAGE_ENGINE", "postgres")
	t.Setenv("GAMESCOUT_POSTGRES_DSN", "postgres://localhost/gamescout")
	t.Setenv("GAMESCOUT_EMBEDDING_WEIGHT", "0.7")
	t.Setenv("GAMESCOUT_FACET_WEIGHT", "0.3")
	t.Setenv("GAMESCOUT_ENABLE_WEB_UI", "false")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Storage.StorageEngine)
	assert.Equal(t, "postgres://localhost/gamescout", cfg.Storage.PostgresDSN)
	assert.InDelta(t, 0.7, cfg.Engine.EmbeddingWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Engine.FacetWeight, 1e-9)
	assert.False(t, cfg.Features.EnableWebUI)
}

func TestLoadConfigIgnoresMalformedEnv(t *testing.T) {
	t.Setenv("GAMESCOUT_PORT", "not-a-number")
	t.Setenv("GAMESCOUT_EMBEDDING_WEIGHT", "heavy")
	t.Setenv("GAMESCOUT_ENABLE_WEB_UI", "maybe")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 7373, cfg.Server.Port)
	assert.InDelta(t, 0.6, cfg.Engine.EmbeddingWeight, 1e-9)
	assert.True(t, cfg.Features.EnableWebUI)
}

func TestSaveAndLoadConfigFromDB(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg, err := LoadConfig()
	require.NoError(t, err)
	cfg.Engine.EmbeddingWeight = 0.55
	cfg.Engine.FacetWeight = 0.45
	require.NoError(t, cfg.SaveConfig(store.GetDB()))

	loaded, err := LoadConfigFromDB(store.GetDB())
	require.NoError(t, err)
	assert.InDelta(t, 0.55, loaded.Engine.EmbeddingWeight, 1e-9)
	assert.InDelta(t, 0.45, loaded.Engine.FacetWeight, 1e-9)
}

func TestLoadConfigFromDBFallsBackToEnv(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	t.Setenv("GAMESCOUT_EMBEDDING_WEIGHT", "0.8")
	t.Setenv("GAMESCOUT_FACET_WEIGHT", "0.2")

	loaded, err := LoadConfigFromDB(store.GetDB())
	require.NoError(t, err)
	assert.InDelta(t, 0.8, loaded.Engine.EmbeddingWeight, 1e-9)
	assert.InDelta(t, 0.2, loaded.Engine.FacetWeight, 1e-9)
}

func TestLoadConfigFromDBRequiresDB(t *testing.T) {
	_, err := LoadConfigFromDB(nil)
	assert.Error(t, err)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Error(t, cfg.SaveConfig(nil))
}
