package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/core"
	db "github.com/markdave123-py/docingest/internal/core/database"
	"github.com/markdave123-py/docingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/docingest/internal/core/llm"
	objectclient "github.com/markdave123-py/docingest/internal/core/object-client"
	"github.com/markdave123-py/docingest/internal/services"
)

// App holds the wired ingestion and retrieval components.
type App struct {
	Config *config.Config
	Store  db.VectorStore
	Runner *ingestion_engine.BatchRunner
	Search *services.SearchService
	Answer *services.AnswerService

	closers []io.Closer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := slog.Default().With("component", "app")
	logger.Info("starting", "config", cfg)

	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	a := &App{Config: cfg}

	embedder, closer, err := llm.NewEmbedder(appCtx, cfg)
	if err != nil {
		return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
	}
	a.closers = append(a.closers, closer)

	store, err := db.NewVectorStore(appCtx, cfg, embedder)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Store = store
	a.closers = append(a.closers, store)
	logger.Info("vector store ready")

	var objects core.ObjectClient
	if strings.HasPrefix(cfg.SourceDir, "s3://") || cfg.AwsAccessKey != "" {
		s3c, err := objectclient.NewS3Client(appCtx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		objects = s3c
	}

	tok, err := ingestion_engine.NewTokenizer(cfg.ChunkTokenizer)
	if err != nil {
		a.Close()
		return nil, err
	}
	chunker, err := ingestion_engine.NewHybridChunker(tok, ingestion_engine.ChunkerConfig{
		MaxTokens:  cfg.ChunkMaxTokens,
		MergePeers: cfg.ChunkMergePeers,
	})
	if err != nil {
		a.Close()
		return nil, err
	}

	source := ingestion_engine.NewFileSource(objects)
	reader := ingestion_engine.NewFileReader(source, cfg.UseReadability)
	ingestor, err := ingestion_engine.NewDocumentIngestor(reader, chunker, store, cfg.Collection)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Runner = ingestion_engine.NewBatchRunner(source, ingestor,
		ingestion_engine.WithWorkers(cfg.Workers),
		ingestion_engine.WithContinueOnError(cfg.ContinueOnError),
	)

	a.Search = services.NewSearchService(embedder, store, cfg.Collection)
	if cfg.GenAPIKey != "" {
		gen, err := llm.NewGeminiAnswerer(appCtx, cfg.GenAPIKey, cfg.GenModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the answer generator: %w", err)
		}
		a.closers = append(a.closers, gen)
		a.Answer = services.NewAnswerService(a.Search, gen)
	}

	return a, nil
}

// Ingest runs one batch over location.
func (a *App) Ingest(ctx context.Context, location, ext string) (*ingestion_engine.BatchReport, error) {
	return a.Runner.Run(ctx, location, ext)
}

// Migrate creates the configured collection if it is missing.
func (a *App) Migrate(ctx context.Context) error {
	return a.Store.EnsureCollection(ctx, a.Config.Collection, a.Config.EmbedDim)
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	a.closers = nil
}
