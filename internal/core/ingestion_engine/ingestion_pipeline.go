package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
)

// NewDocumentIngestor wires the ingestion collaborators together.
func NewDocumentIngestor(reader core.DocumentReader, chunker core.Chunker, store core.VectorStore, collection string, opts ...Option) (*DocumentIngestor, error) {
	if reader == nil || chunker == nil || store == nil {
		return nil, fmt.Errorf("%w: ingestor needs a reader, a chunker and a store", core.ErrConfig)
	}
	if collection == "" {
		return nil, fmt.Errorf("%w: ingestor needs a collection name", core.ErrConfig)
	}

	i := defaultIngestor()
	i.reader = reader
	i.chunker = chunker
	i.store = store
	i.collection = collection
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// Collection returns the collection records are written to.
func (i *DocumentIngestor) Collection() string { return i.collection }

// Read converts the file into a structured document.
func (i *DocumentIngestor) Read(ctx context.Context, file models.SourceFile) (*models.Document, error) {
	return i.reader.Convert(ctx, file)
}

// Chunk splits the document into a single-pass, document-ordered chunk sequence.
func (i *DocumentIngestor) Chunk(ctx context.Context, doc *models.Document) (iter.Seq[models.Chunk], error) {
	return i.chunker.Chunk(ctx, doc)
}

// ToRecord wraps a chunk with a fresh identifier and its provenance.
func (i *DocumentIngestor) ToRecord(doc *models.Document, ch models.Chunk) models.Record {
	return models.Record{
		ID:   i.newID(),
		Text: ch.Text,
		Metadata: map[string]any{
			"source":      doc.Source.Path,
			"title":       doc.Title,
			"position":    ch.Position,
			"token_count": ch.TokenCount,
		},
	}
}

// Ingest reads, chunks and stores one file, returning the number of records
// written. All records go to the store in a single AddRecords call. The first
// failure is returned as an *core.IngestError; nothing is retried.
func (i *DocumentIngestor) Ingest(ctx context.Context, file models.SourceFile) (int, error) {
	start := time.Now()

	doc, err := i.Read(ctx, file)
	if err != nil {
		return 0, &core.IngestError{Path: file.Path, Stage: core.StageRead, Err: err}
	}

	chunks, err := i.Chunk(ctx, doc)
	if err != nil {
		return 0, &core.IngestError{Path: file.Path, Stage: core.StageChunk, Err: err}
	}

	var records []models.Record
	for ch := range chunks {
		records = append(records, i.ToRecord(doc, ch))
	}
	if err := ctx.Err(); err != nil {
		return 0, &core.IngestError{Path: file.Path, Stage: core.StageChunk, Err: err}
	}

	if len(records) == 0 {
		i.logger.Info("no chunks produced, nothing stored", "path", file.Path)
		return 0, nil
	}

	if err := i.store.AddRecords(ctx, i.collection, records); err != nil {
		if core.Kind(err) == nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %w", core.ErrStore, err)
		}
		return 0, &core.IngestError{Path: file.Path, Stage: core.StageStore, Err: err}
	}

	i.logger.Info("ingested file",
		"path", file.Path,
		"collection", i.collection,
		"records", len(records),
		"elapsed", time.Since(start).Round(time.Millisecond))
	return len(records), nil
}
