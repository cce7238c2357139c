package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/markdave123-py/docingest/internal/models"
)

type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]models.SearchResult, error)
}

type Asker interface {
	Ask(ctx context.Context, question string, k int) (*models.Answer, error)
}

type SearchHandler struct {
	search Searcher
	asker  Asker
	logger *slog.Logger
}

// NewSearchHandler builds the query handlers. asker may be nil, in which case
// Ask reports the feature as unavailable.
func NewSearchHandler(search Searcher, asker Asker) *SearchHandler {
	return &SearchHandler{
		search: search,
		asker:  asker,
		logger: slog.Default().With("component", "http"),
	}
}

type queryRequest struct {
	Query string `json:"query"`
	K     int    `json:"k"`
}

type searchResponse struct {
	Results []models.SearchResult `json:"results"`
}

func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if !decode(w, r, &req) {
		return
	}

	results, err := h.search.Search(r.Context(), req.Query, req.K)
	if err != nil {
		h.logger.Error("search failed", "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	if results == nil {
		results = []models.SearchResult{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Results: results})
}

func (h *SearchHandler) Ask(w http.ResponseWriter, r *http.Request) {
	if h.asker == nil {
		writeError(w, http.StatusNotImplemented, "answer generation is not configured")
		return
	}
	var req queryRequest
	if !decode(w, r, &req) {
		return
	}

	ans, err := h.asker.Ask(r.Context(), req.Query, req.K)
	if err != nil {
		h.logger.Error("ask failed", "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, ans)
}
