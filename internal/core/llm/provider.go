package llm

import (
	"context"
	"fmt"
	"io"

	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/core"
)

// NewEmbedder builds the embedding provider named by cfg.EmbedProvider. The
// returned closer releases the provider's client.
func NewEmbedder(ctx context.Context, cfg *config.Config) (core.EmbeddingProvider, io.Closer, error) {
	switch cfg.EmbedProvider {
	case "gemini":
		g, err := NewGeminiEmbedder(ctx, cfg.EmbedAPIKey, cfg.EmbedModel)
		if err != nil {
			return nil, nil, err
		}
		return g, g, nil
	case "openai":
		o, err := NewOpenAIEmbedder(cfg.EmbedBaseURL, cfg.EmbedAPIKey, cfg.EmbedModel, cfg.EmbedBatchSize)
		if err != nil {
			return nil, nil, err
		}
		return o, noopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("%w: unknown embedding provider %q", core.ErrConfig, cfg.EmbedProvider)
	}
}

type noopCloser struct{}

func (noopCloser) Close() error { return nil }
