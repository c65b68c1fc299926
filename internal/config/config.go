// Package config provides configuration management for GameScout.
// It loads settings from environment variables with the GAMESCOUT_ prefix
// and provides sensible defaults for all configuration options.
//
// Tunable scorer settings (blend weights) are persisted to the settings
// table in the database. LoadConfigFromDB reads from the database first
// and falls back to environment variables. SaveConfig writes the tunables
// back so they survive restarts.
package config

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/tabletoplab/gamescout/internal/storage"
)

// Config holds all configuration settings for the GameScout application.
type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Engine   EngineConfig
	Security SecurityConfig
	Backup   BackupConfig
	Features FeaturesConfig
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port int    // Server port (default: 7373)
	Host string // Server host (default: 127.0.0.1)
}

// StorageConfig contains database and storage configuration.
type StorageConfig struct {
	StorageEngine   string // Storage engine type: sqlite, postgres (default: sqlite)
	DataPath        string // Path to data directory for sqlite (default: ./data)
	PostgresDSN     string // PostgreSQL connection string (used when engine is postgres)
	VectorCacheSize int    // LRU size for the embedding read cache (default: 4096, 0 disables)
}

// EngineConfig contains recommendation engine tunables.
type EngineConfig struct {
	RulesPath       string  // Path to a YAML rule table override (default: embedded rules)
	EmbeddingWeight float64 // Blend weight for embedding similarity (default: 0.6)
	FacetWeight     float64 // Blend weight for facet alignment (default: 0.4)
	DefaultTopK     int     // Result count when the caller does not specify one (default: 10)
}

// SecurityConfig contains security and authentication settings.
type SecurityConfig struct {
	SecurityMode string // Security mode: development, production (default: development)
	APIToken     string // API authentication token
}

// BackupConfig contains catalog snapshot configuration (sqlite only).
type BackupConfig struct {
	Enabled  bool   // Enable periodic snapshots (default: false)
	Interval string // Snapshot interval duration (default: 6h)
	Path     string // Snapshot directory (default: ./backups)
	Keep     int    // Number of snapshots to retain (default: 12)
}

// FeaturesConfig contains feature flags.
type FeaturesConfig struct {
	EnableWebUI    bool // Enable web UI (default: true)
	EnableActivity bool // Enable the websocket activity feed (default: true)
}

// Settings table keys for persisted engine tunables.
const (
	settingEmbeddingWeight = "embedding_weight"
	settingFacetWeight     = "facet_weight"
)

// LoadConfig loads configuration from environment variables with sensible
// defaults. All environment variables use the GAMESCOUT_ prefix. Use
// LoadConfigFromDB to also read persisted engine tunables from the database.
func LoadConfig() (*Config, error) {
	return buildBaseConfig(), nil
}

// LoadConfigFromDB loads configuration from both environment variables and
// the database. Database values take precedence over environment variables
// for the persisted engine tunables; absent keys fall back to env/defaults.
//
// Returns an error if db is nil.
func LoadConfigFromDB(db *sql.DB) (*Config, error) {
	if db == nil {
		return nil, errors.New("config: database connection is required")
	}

	cfg := buildBaseConfig()

	for _, entry := range []struct {
		key  string
		dest *float64
	}{
		{settingEmbeddingWeight, &cfg.Engine.EmbeddingWeight},
		{settingFacetWeight, &cfg.Engine.FacetWeight},
	} {
		value, err := getSetting(db, entry.key)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("config: failed to load %s from database: %w", entry.key, err)
		}
		if value == "" {
			continue
		}
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return nil, fmt.Errorf("config: invalid stored %s %q: %w", entry.key, value, err)
		}
		*entry.dest = f
	}

	return cfg, nil
}

// SaveConfig persists the engine tunables to the settings table using
// upsert semantics, so they survive application restarts.
//
// Returns an error if db is nil.
func (c *Config) SaveConfig(db *sql.DB) error {
	if db == nil {
		return errors.New("config: database connection is required")
	}

	values := map[string]float64{
		settingEmbeddingWeight: c.Engine.EmbeddingWeight,
		settingFacetWeight:     c.Engine.FacetWeight,
	}
	for key, value := range values {
		if err := setSetting(db, key, strconv.FormatFloat(value, 'f', -1, 64)); err != nil {
			return fmt.Errorf("config: failed to save %s: %w", key, err)
		}
	}
	return nil
}

// getSetting retrieves a single setting value by key from the settings table.
// Returns an empty string and sql.ErrNoRows if the key does not exist.
func getSetting(db *sql.DB, key string) (string, error) {
	var value string
	query := storage.Rebind(db, "SELECT value FROM settings WHERE key = ?")
	err := db.QueryRow(query, key).Scan(&value)
	if err != nil {
		return "", err
	}
	return value, nil
}

// setSetting writes a key-value pair to the settings table using upsert semantics.
func setSetting(db *sql.DB, key, value string) error {
	query := storage.Rebind(db, `
		INSERT INTO settings (key, value)
		VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`)
	_, err := db.Exec(query, key, value)
	return err
}

// buildBaseConfig constructs a Config with values from environment variables
// and defaults. This is the shared base for both LoadConfig and LoadConfigFromDB.
func buildBaseConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port: getEnvInt("GAMESCOUT_PORT", 7373),
			Host: getEnv("GAMESCOUT_HOST", "127.0.0.1"),
		},
		Storage: StorageConfig{
			StorageEngine:   getEnv("GAMESCOUT_STORAGE_ENGINE", "sqlite"),
			DataPath:        getEnv("GAMESCOUT_DATA_PATH", "./data"),
			PostgresDSN:     getEnv("GAMESCOUT_POSTGRES_DSN", ""),
			VectorCacheSize: getEnvInt("GAMESCOUT_VECTOR_CACHE_SIZE", 4096),
		},
		Engine: EngineConfig{
			RulesPath:       getEnv("GAMESCOUT_RULES_PATH", ""),
			EmbeddingWeight: getEnvFloat("GAMESCOUT_EMBEDDING_WEIGHT", 0.6),
			FacetWeight:     getEnvFloat("GAMESCOUT_FACET_WEIGHT", 0.4),
			DefaultTopK:     getEnvInt("GAMESCOUT_DEFAULT_TOP_K", 10),
		},
		Security: SecurityConfig{
			SecurityMode: getEnv("GAMESCOUT_SECURITY_MODE", "development"),
			APIToken:     getEnv("GAMESCOUT_API_TOKEN", ""),
		},
		Backup: BackupConfig{
			Enabled:  getEnvBool("GAMESCOUT_BACKUP_ENABLED", false),
			Interval: getEnv("GAMESCOUT_BACKUP_INTERVAL", "6h"),
			Path:     getEnv("GAMESCOUT_BACKUP_PATH", "./backups"),
			Keep:     getEnvInt("GAMESCOUT_BACKUP_KEEP", 12),
		},
		Features: FeaturesConfig{
			EnableWebUI:    getEnvBool("GAMESCOUT_ENABLE_WEB_UI", true),
			EnableActivity: getEnvBool("GAMESCOUT_ENABLE_ACTIVITY", true),
		},
	}
}

// getEnv retrieves a string environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves an integer environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as an integer,
// it returns the default value.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvFloat retrieves a float environment variable or returns a default value.
// If the environment variable exists but cannot be parsed as a float,
// it returns the default value.
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvBool retrieves a boolean environment variable or returns a default value.
// It recognizes "true", "1", "yes" as true and "false", "0", "no" as false (case-insensitive).
// If the environment variable exists but cannot be parsed as a boolean,
// it returns the default value.
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		switch value {
		case "true", "1", "yes", "True", "TRUE", "Yes", "YES":
			return true
		case "false", "0", "no", "False", "FALSE", "No", "NO":
			return false
		}
	}
	return defaultValue
}
