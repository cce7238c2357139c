package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
)

const (
	DefaultTopK = 5
	MaxTopK     = 50
)

// SearchService answers similarity queries against one collection.
type SearchService struct {
	embedder   core.EmbeddingProvider
	store      core.VectorStore
	collection string
	logger     *slog.Logger
}

func NewSearchService(emb core.EmbeddingProvider, store core.VectorStore, collection string) *SearchService {
	return &SearchService{
		embedder:   emb,
		store:      store,
		collection: collection,
		logger:     slog.Default().With("component", "search"),
	}
}

// Search embeds query and returns up to k records, closest first. k outside
// [1, MaxTopK] falls back to DefaultTopK or is capped.
func (s *SearchService) Search(ctx context.Context, query string, k int) ([]models.SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: empty query", core.ErrFormat)
	}
	switch {
	case k <= 0:
		k = DefaultTopK
	case k > MaxTopK:
		k = MaxTopK
	}

	vecs, err := s.embedder.EmbedTexts(ctx, []string{query})
	if err != nil {
		if core.Kind(err) != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: embed query: %w", core.ErrEmbedding, err)
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("%w: got %d vectors for one query", core.ErrEmbedding, len(vecs))
	}

	results, err := s.store.Search(ctx, s.collection, vecs[0], k)
	if err != nil {
		if core.Kind(err) != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", core.ErrStore, err)
	}
	s.logger.Debug("search done", "collection", s.collection, "k", k, "hits", len(results))
	return results, nil
}
