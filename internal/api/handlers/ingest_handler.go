package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"path"
	"path/filepath"
	"strings"

	middleware "github.com/markdave123-py/docingest/internal/api/middlewares"
	"github.com/markdave123-py/docingest/internal/core/ingestion_engine"
)

type Runner interface {
	Run(ctx context.Context, location, ext string) (*ingestion_engine.BatchReport, error)
}

type IngestHandler struct {
	runner     Runner
	defaultLoc string
	defaultExt string
	roots      []string
	logger     *slog.Logger
}

// NewIngestHandler serves batch ingestion. Requests may only name the default
// location or a location under one of allowedRoots.
func NewIngestHandler(runner Runner, defaultLocation, defaultExt string, allowedRoots ...string) *IngestHandler {
	return &IngestHandler{
		runner:     runner,
		defaultLoc: defaultLocation,
		defaultExt: defaultExt,
		roots:      append([]string{defaultLocation}, allowedRoots...),
		logger:     slog.Default().With("component", "http"),
	}
}

// allowed reports whether location is one of the roots or lies beneath one.
func (h *IngestHandler) allowed(location string) bool {
	for _, root := range h.roots {
		if root != "" && within(root, location) {
			return true
		}
	}
	return false
}

func within(root, location string) bool {
	const scheme = "s3://"
	rootS3, locS3 := strings.HasPrefix(root, scheme), strings.HasPrefix(location, scheme)
	if rootS3 != locS3 {
		return false
	}
	if rootS3 {
		r := path.Clean("/" + strings.TrimPrefix(root, scheme))
		l := path.Clean("/" + strings.TrimPrefix(location, scheme))
		return l == r || strings.HasPrefix(l, strings.TrimSuffix(r, "/")+"/")
	}

	r, err := filepath.Abs(root)
	if err != nil {
		return false
	}
	l, err := filepath.Abs(location)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(r, l)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

type ingestRequest struct {
	Location string `json:"location"`
	Ext      string `json:"ext"`
}

type failure struct {
	Path  string `json:"path"`
	Error string `json:"error"`
}

type ingestResponse struct {
	Files    []string  `json:"files"`
	Ingested int       `json:"ingested"`
	Records  int       `json:"records"`
	Failures []failure `json:"failures"`
	Error    string    `json:"error,omitempty"`
}

// Ingest runs a batch synchronously. An empty body ingests the configured
// source directory; any other location must sit under an allowed root.
func (h *IngestHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	if req.Location == "" {
		req.Location = h.defaultLoc
	}
	if req.Ext == "" {
		req.Ext = h.defaultExt
	}

	logger := h.logger
	if sub, ok := middleware.Subject(r.Context()); ok {
		logger = logger.With("subject", sub)
	}
	if !h.allowed(req.Location) {
		logger.Warn("ingest location rejected", "location", req.Location)
		writeError(w, http.StatusBadRequest, "location is outside the allowed ingest roots")
		return
	}
	logger.Info("ingest requested", "location", req.Location, "ext", req.Ext)

	report, err := h.runner.Run(r.Context(), req.Location, req.Ext)
	if report == nil {
		logger.Error("batch failed to start", "location", req.Location, "err", err)
		writeError(w, statusFor(err), err.Error())
		return
	}

	resp := ingestResponse{Files: report.Files, Ingested: report.Ingested, Records: report.Records, Failures: []failure{}}
	if resp.Files == nil {
		resp.Files = []string{}
	}
	for _, f := range report.Failures {
		resp.Failures = append(resp.Failures, failure{Path: f.Path, Error: f.Err.Error()})
	}

	status := http.StatusOK
	switch {
	case errors.Is(err, ingestion_engine.ErrBatchPartial):
		status = http.StatusMultiStatus
		resp.Error = err.Error()
	case err != nil:
		status = statusFor(err)
		resp.Error = err.Error()
	}
	writeJSON(w, status, resp)
}
