package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/markdave123-py/docingest/internal/core"
)

// OpenAIEmbedder embeds through any OpenAI-compatible embeddings endpoint
// (OpenAI itself, or a local server hosting a sentence-transformers model).
type OpenAIEmbedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

func NewOpenAIEmbedder(baseURL, apiKey, model string, batchSize int) (*OpenAIEmbedder, error) {
	if baseURL == "" || model == "" {
		return nil, fmt.Errorf("%w: openai embedder needs a base url and a model", core.ErrConfig)
	}
	if apiKey == "" {
		// Local OpenAI-compatible servers accept any token.
		apiKey = "none"
	}

	client, err := openai.New(
		openai.WithBaseURL(baseURL),
		openai.WithToken(apiKey),
		openai.WithEmbeddingModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: openai client: %v", core.ErrEmbedding, err)
	}

	opts := []embeddings.Option{embeddings.WithStripNewLines(true)}
	if batchSize > 0 {
		opts = append(opts, embeddings.WithBatchSize(batchSize))
	}
	embedder, err := embeddings.NewEmbedder(client, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: openai embedder: %v", core.ErrEmbedding, err)
	}

	return &OpenAIEmbedder{
		embedder: embedder,
		model:    model,
		logger:   slog.Default().With("component", "openai-embedder"),
	}, nil
}

func (e *OpenAIEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	e.logger.Debug("generating embeddings for texts", "count", len(texts), "model", e.model)

	vecs, err := e.embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, fmt.Errorf("%w: %v", core.ErrEmbedding, err)
	}
	if len(vecs) != len(texts) {
		return nil, fmt.Errorf("%w: embed size mismatch: got %d want %d", core.ErrEmbedding, len(vecs), len(texts))
	}
	return vecs, nil
}

var _ core.EmbeddingProvider = (*OpenAIEmbedder)(nil)
