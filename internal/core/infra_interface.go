package core

import (
	"context"
	"io"

	"github.com/markdave123-py/docingest/internal/models"
)

// VectorStore persists records into named collections and answers similarity
// queries. It abstracts Postgres/pgvector so higher layers never depend on a
// specific database.
type VectorStore interface {
	// AddRecords embeds every record lacking a vector and appends all of them
	// to the collection in one batch.
	AddRecords(ctx context.Context, collection string, records []models.Record) error
	Search(ctx context.Context, collection string, queryVec []float32, limit int) ([]models.SearchResult, error)
}

// ObjectClient defines the object storage operations used to read source documents.
// It's abstract so you can replace AWS with MinIO, GCP, etc. easily.
type ObjectClient interface {
	ListObjects(ctx context.Context, bucket, prefix string) ([]string, error)
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// SourceLister enumerates the direct children of a location whose names end
// with ext, sorted by name.
type SourceLister interface {
	List(ctx context.Context, location, ext string) ([]models.SourceFile, error)
}

// SourceOpener opens a source file's content for reading.
type SourceOpener interface {
	Open(ctx context.Context, file models.SourceFile) (io.ReadCloser, error)
}
