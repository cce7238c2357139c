package ingestion_engine

import (
	"log/slog"

	"github.com/google/uuid"

	"github.com/markdave123-py/docingest/internal/core"
)

// DocumentIngestor turns one source file into records in a collection:
//
// reader:     converts the file into a structured document.
// chunker:    splits the document into token-bounded chunks.
// store:      embeds and persists records (one batch per file).
// collection: target collection name.
// newID:      record identifier generator (UUIDv4 by default).
type DocumentIngestor struct {
	reader     core.DocumentReader
	chunker    core.Chunker
	store      core.VectorStore
	collection string
	newID      func() string
	logger     *slog.Logger
}

// Option configures a DocumentIngestor.
type Option func(*DocumentIngestor)

// WithIDGenerator replaces the record identifier generator. Identifiers must
// be unique within a collection.
func WithIDGenerator(gen func() string) Option {
	return func(i *DocumentIngestor) {
		i.newID = gen
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *DocumentIngestor) {
		i.logger = logger
	}
}

func defaultIngestor() *DocumentIngestor {
	return &DocumentIngestor{
		newID:  uuid.NewString,
		logger: slog.Default().With("component", "ingestor"),
	}
}
