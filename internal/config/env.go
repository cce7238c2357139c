package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/markdave123-py/docingest/internal/core"
)

const (
	DefaultSourceDir  = "data/articles"
	DefaultSourceExt  = ".md"
	DefaultCollection = "documents_collection"
	DefaultEmbedModel = "sentence-transformers/paraphrase-multilingual-mpnet-base-v2"
)

type Config struct {
	SourceDir       string
	SourceExt       string
	Collection      string
	Workers         int
	ContinueOnError bool
	IngestRoots     []string

	DatabaseURL string
	DBPassword  string
	SslCertPath string

	EmbedProvider  string
	EmbedBaseURL   string
	EmbedAPIKey    string
	EmbedModel     string
	EmbedDim       int
	EmbedBatchSize int

	GenAPIKey string
	GenModel  string

	ChunkTokenizer  string
	ChunkMaxTokens  int
	ChunkMergePeers bool
	UseReadability  bool

	AwsAccessKey string
	AwsSecretKey string
	AwsRegion    string

	Port        string
	JWTSecret   string
	CorsOrigins []string
	LogLevel    string
}

// LoadConfig loads the environment (and an optional .env file) into a Config.
// It does not validate; call Validate once flags have been applied.
func LoadConfig() (*Config, error) {

	_ = godotenv.Load()

	workers, err := getEnvInt("INGEST_WORKERS", 1)
	if err != nil {
		return nil, err
	}
	dim, err := getEnvInt("EMBED_DIM", 768)
	if err != nil {
		return nil, err
	}
	batch, err := getEnvInt("EMBED_BATCH_SIZE", 32)
	if err != nil {
		return nil, err
	}
	maxTokens, err := getEnvInt("CHUNK_MAX_TOKENS", 768)
	if err != nil {
		return nil, err
	}
	mergePeers, err := getEnvBool("CHUNK_MERGE_PEERS", true)
	if err != nil {
		return nil, err
	}
	readability, err := getEnvBool("DOCCONV_READABILITY", false)
	if err != nil {
		return nil, err
	}
	continueOnError, err := getEnvBool("INGEST_CONTINUE_ON_ERROR", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		SourceDir:       getEnv("SOURCE_DIR", DefaultSourceDir),
		SourceExt:       getEnv("SOURCE_EXT", DefaultSourceExt),
		Collection:      getEnv("COLLECTION_NAME", DefaultCollection),
		Workers:         workers,
		ContinueOnError: continueOnError,
		IngestRoots:     splitList(getEnv("INGEST_ROOTS", "")),
		DatabaseURL:     getEnv("SUPABASE_DB_URL", getEnv("DATABASE_URL", "")),
		DBPassword:      getEnv("SUPABASE_DB_PASSWORD", ""),
		SslCertPath:     getEnv("SSL_CERT_PATH", ""),
		EmbedProvider:   strings.ToLower(getEnv("EMBED_PROVIDER", "openai")),
		EmbedBaseURL:    getEnv("EMBED_BASE_URL", "http://localhost:8080/v1"),
		EmbedAPIKey:     getEnv("EMBED_API_KEY", getEnv("GEMINI_API_KEY", "")),
		EmbedModel:      getEnv("EMBED_MODEL", DefaultEmbedModel),
		EmbedDim:        dim,
		EmbedBatchSize:  batch,
		GenAPIKey:       getEnv("GEMINI_API_KEY", ""),
		GenModel:        getEnv("GEN_MODEL", "gemini-1.5-flash"),
		ChunkTokenizer:  getEnv("CHUNK_TOKENIZER", DefaultEmbedModel),
		ChunkMaxTokens:  maxTokens,
		ChunkMergePeers: mergePeers,
		UseReadability:  readability,
		AwsAccessKey:    getEnv("AWS_ACCESS_KEY", ""),
		AwsSecretKey:    getEnv("AWS_SECRET_KEY", ""),
		AwsRegion:       getEnv("AWS_REGION", "us-east-2"),
		Port:            getEnv("PORT", "8080"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		CorsOrigins:     splitList(getEnv("CORS_ORIGINS", "http://localhost:5173")),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

// Validate checks everything the ingestion pipeline needs before any
// connection is opened. Every failure wraps core.ErrConfig.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("%w: SUPABASE_DB_URL not set", core.ErrConfig)
	}
	u, err := url.Parse(c.DatabaseURL)
	if err != nil {
		return fmt.Errorf("%w: invalid SUPABASE_DB_URL", core.ErrConfig)
	}
	if _, hasPassword := u.User.Password(); !hasPassword && c.DBPassword == "" {
		return fmt.Errorf("%w: SUPABASE_DB_PASSWORD not set and SUPABASE_DB_URL has no password", core.ErrConfig)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: COLLECTION_NAME is empty", core.ErrConfig)
	}
	switch c.EmbedProvider {
	case "gemini":
		if c.EmbedAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY not set", core.ErrConfig)
		}
	case "openai":
		if c.EmbedBaseURL == "" {
			return fmt.Errorf("%w: EMBED_BASE_URL not set", core.ErrConfig)
		}
	default:
		return fmt.Errorf("%w: unknown EMBED_PROVIDER %q", core.ErrConfig, c.EmbedProvider)
	}
	if c.EmbedModel == "" {
		return fmt.Errorf("%w: EMBED_MODEL not set", core.ErrConfig)
	}
	if c.EmbedDim <= 0 {
		return fmt.Errorf("%w: EMBED_DIM must be positive", core.ErrConfig)
	}
	if c.ChunkMaxTokens <= 0 {
		return fmt.Errorf("%w: CHUNK_MAX_TOKENS must be positive", core.ErrConfig)
	}
	if c.Workers < 1 {
		return fmt.Errorf("%w: INGEST_WORKERS must be at least 1", core.ErrConfig)
	}
	if strings.HasPrefix(c.SourceDir, "s3://") && (c.AwsAccessKey == "" || c.AwsSecretKey == "") {
		return fmt.Errorf("%w: AWS credentials not set for %s", core.ErrConfig, c.SourceDir)
	}
	return nil
}

// LogValue keeps secrets out of logs.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("source_dir", c.SourceDir),
		slog.String("source_ext", c.SourceExt),
		slog.String("collection", c.Collection),
		slog.Int("workers", c.Workers),
		slog.String("embed_provider", c.EmbedProvider),
		slog.String("embed_model", c.EmbedModel),
		slog.Int("embed_dim", c.EmbedDim),
		slog.String("gen_model", c.GenModel),
		slog.String("chunk_tokenizer", c.ChunkTokenizer),
		slog.Int("chunk_max_tokens", c.ChunkMaxTokens),
		slog.Bool("chunk_merge_peers", c.ChunkMergePeers),
	)
}

// SlogLevel maps LOG_LEVEL onto a slog level, defaulting to info.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q is not an int", core.ErrConfig, key, v)
	}
	return n, nil
}

func getEnvBool(key string, def bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q is not a bool", core.ErrConfig, key, v)
	}
	return b, nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
