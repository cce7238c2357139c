package services

import (
	"context"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
)

// AnswerService runs retrieval followed by grounded generation.
type AnswerService struct {
	search *SearchService
	gen    core.AnswerGenerator
}

func NewAnswerService(search *SearchService, gen core.AnswerGenerator) *AnswerService {
	return &AnswerService{search: search, gen: gen}
}

// Ask retrieves the k closest records and has the generator answer from them.
func (s *AnswerService) Ask(ctx context.Context, question string, k int) (*models.Answer, error) {
	hits, err := s.search.Search(ctx, question, k)
	if err != nil {
		return nil, err
	}
	return s.gen.Answer(ctx, question, hits)
}
