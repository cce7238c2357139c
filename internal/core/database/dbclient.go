package db

import (
	"context"

	"github.com/markdave123-py/docingest/internal/core"
)

// VectorStore is the Postgres/pgvector vector store. Beyond core.VectorStore it
// can bootstrap and inspect collections.
type VectorStore interface {
	core.VectorStore

	EnsureCollection(ctx context.Context, collection string, dim int) error
	Count(ctx context.Context, collection string) (int, error)

	Close() error
}
