package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/docingest/internal/models"
)

// Ingestor ingests a single source file and reports how many records it wrote.
type Ingestor interface {
	Ingest(ctx context.Context, file models.SourceFile) (int, error)
}

var _ Ingestor = (*DocumentIngestor)(nil)
