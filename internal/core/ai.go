package core

import (
	"context"

	"github.com/markdave123-py/docingest/internal/models"
)

// EmbeddingProvider maps texts to dense vectors. The result has one vector per
// input text, in input order.
type EmbeddingProvider interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// AnswerGenerator writes an answer to question using only the given passages,
// citing the records it drew on by ID.
type AnswerGenerator interface {
	Answer(ctx context.Context, question string, passages []models.SearchResult) (*models.Answer, error)
}
