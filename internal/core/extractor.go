package core

import (
	"context"
	"iter"

	"github.com/markdave123-py/docingest/internal/models"
)

// DocumentReader converts a source file into a structured document.
type DocumentReader interface {
	// Convert fails with ErrIO when the file cannot be read and ErrFormat when
	// its content cannot be converted.
	Convert(ctx context.Context, file models.SourceFile) (*models.Document, error)
}

// Chunker splits a document into token-bounded chunks in document order.
type Chunker interface {
	// Chunk returns a finite single-pass sequence of chunks.
	Chunk(ctx context.Context, doc *models.Document) (iter.Seq[models.Chunk], error)
}

// Tokenizer counts tokens the way the chunker budgets them.
type Tokenizer interface {
	Name() string
	Count(text string) int
}
