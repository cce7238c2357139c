package config

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docingest/internal/core"
)

func validConfig() *Config {
	return &Config{
		SourceDir:      DefaultSourceDir,
		SourceExt:      DefaultSourceExt,
		Collection:     DefaultCollection,
		Workers:        1,
		DatabaseURL:    "postgres://postgres@db.example.supabase.co:5432/postgres",
		DBPassword:     "db-password",
		EmbedProvider:  "openai",
		EmbedBaseURL:   "http://localhost:8080/v1",
		EmbedModel:     DefaultEmbedModel,
		EmbedDim:       768,
		EmbedBatchSize: 32,
		ChunkMaxTokens: 768,
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("SOURCE_DIR", "")
	t.Setenv("COLLECTION_NAME", "")
	t.Setenv("INGEST_WORKERS", "")
	t.Setenv("CHUNK_MAX_TOKENS", "")
	t.Setenv("CHUNK_MERGE_PEERS", "")
	t.Setenv("EMBED_PROVIDER", "")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	// Empty variables count as set, so only the parsed ones fall back.
	assert.Equal(t, 1, cfg.Workers)
	assert.Equal(t, 768, cfg.ChunkMaxTokens)
	assert.True(t, cfg.ChunkMergePeers)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("SOURCE_DIR", "/srv/articles")
	t.Setenv("SOURCE_EXT", ".markdown")
	t.Setenv("COLLECTION_NAME", "kb")
	t.Setenv("SUPABASE_DB_URL", "postgres://postgres@localhost:5432/postgres")
	t.Setenv("SUPABASE_DB_PASSWORD", "secret")
	t.Setenv("INGEST_ROOTS", "/srv/articles, s3://kb/docs")
	t.Setenv("EMBED_PROVIDER", "Gemini")
	t.Setenv("EMBED_DIM", "1536")
	t.Setenv("INGEST_WORKERS", "4")
	t.Setenv("INGEST_CONTINUE_ON_ERROR", "true")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "/srv/articles", cfg.SourceDir)
	assert.Equal(t, ".markdown", cfg.SourceExt)
	assert.Equal(t, "kb", cfg.Collection)
	assert.Equal(t, "secret", cfg.DBPassword)
	assert.Equal(t, []string{"/srv/articles", "s3://kb/docs"}, cfg.IngestRoots)
	assert.Equal(t, "gemini", cfg.EmbedProvider)
	assert.Equal(t, 1536, cfg.EmbedDim)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.ContinueOnError)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CorsOrigins)
}

func TestLoadConfig_BadNumber(t *testing.T) {
	t.Setenv("EMBED_DIM", "wide")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing url", func(c *Config) { c.DatabaseURL = "" }, false},
		{"missing password", func(c *Config) { c.DBPassword = "" }, false},
		{"password in url", func(c *Config) {
			c.DBPassword = ""
			c.DatabaseURL = "postgres://postgres:pw@localhost:5432/postgres"
		}, true},
		{"gemini without key", func(c *Config) { c.EmbedProvider = "gemini" }, false},
		{"gemini with key", func(c *Config) {
			c.EmbedProvider = "gemini"
			c.EmbedAPIKey = "k"
		}, true},
		{"unknown provider", func(c *Config) { c.EmbedProvider = "fastembed" }, false},
		{"zero dim", func(c *Config) { c.EmbedDim = 0 }, false},
		{"zero max tokens", func(c *Config) { c.ChunkMaxTokens = 0 }, false},
		{"zero workers", func(c *Config) { c.Workers = 0 }, false},
		{"s3 without credentials", func(c *Config) { c.SourceDir = "s3://bucket/articles/" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, core.ErrConfig)
		})
	}
}

func TestLogValue_RedactsSecrets(t *testing.T) {
	cfg := validConfig()
	cfg.DBPassword = "super-secret-db-password"
	cfg.EmbedAPIKey = "super-secret-api-key"

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	logger.Info("config", "cfg", cfg)

	assert.Contains(t, buf.String(), DefaultCollection)
	assert.NotContains(t, buf.String(), "super-secret")
}

func TestValidate_NamesDBPassword(t *testing.T) {
	cfg := validConfig()
	cfg.DBPassword = ""

	err := cfg.Validate()
	require.ErrorIs(t, err, core.ErrConfig)
	assert.Contains(t, err.Error(), "SUPABASE_DB_PASSWORD")
}

func TestSlogLevel(t *testing.T) {
	cfg := validConfig()

	cfg.LogLevel = "debug"
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	cfg.LogLevel = "nonsense"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}
