package ingestion_engine

import (
	"context"
	"errors"
	"iter"
	"slices"
	"strings"
	"sync"

	"github.com/markdave123-py/docingest/internal/models"
)

// fakeReader returns a document whose body is the file name.
type fakeReader struct {
	err error
}

func (r *fakeReader) Convert(_ context.Context, file models.SourceFile) (*models.Document, error) {
	if r.err != nil {
		return nil, r.err
	}
	return &models.Document{Source: file, Title: file.Name, Format: FormatText, Body: file.Name}, nil
}

// fakeChunker yields a fixed list of chunk texts for every document.
type fakeChunker struct {
	texts []string
	err   error
}

func (c *fakeChunker) Chunk(_ context.Context, _ *models.Document) (iter.Seq[models.Chunk], error) {
	if c.err != nil {
		return nil, c.err
	}
	return func(yield func(models.Chunk) bool) {
		for i, t := range c.texts {
			if !yield(models.Chunk{Position: i, Text: t, TokenCount: len(strings.Fields(t))}) {
				return
			}
		}
	}, nil
}

// fakeStore records every AddRecords call.
type fakeStore struct {
	mu    sync.Mutex
	calls [][]models.Record
	colls []string
	err   error
}

func (s *fakeStore) AddRecords(_ context.Context, collection string, records []models.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, slices.Clone(records))
	s.colls = append(s.colls, collection)
	return s.err
}

func (s *fakeStore) Search(context.Context, string, []float32, int) ([]models.SearchResult, error) {
	return nil, errors.New("not implemented")
}

func (s *fakeStore) all() []models.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Record
	for _, c := range s.calls {
		out = append(out, c...)
	}
	return out
}

// fakeIngestor records which files it was asked to ingest.
type fakeIngestor struct {
	mu      sync.Mutex
	paths   []string
	perFile int
	failOn  map[string]error
}

func (f *fakeIngestor) Ingest(_ context.Context, file models.SourceFile) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.paths = append(f.paths, file.Path)
	if err, ok := f.failOn[file.Name]; ok {
		return 0, err
	}
	return f.perFile, nil
}

func (f *fakeIngestor) names() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.paths))
	for i, p := range f.paths {
		out[i] = NewSourceFile(p).Name
	}
	return out
}

// fakeObjects is an in-memory object store keyed by bucket/key.
type fakeObjects struct {
	objects map[string][]byte
	listErr error
}

func (o *fakeObjects) ListObjects(_ context.Context, bucket, prefix string) ([]string, error) {
	if o.listErr != nil {
		return nil, o.listErr
	}
	var keys []string
	for k := range o.objects {
		b, key, _ := strings.Cut(k, "/")
		if b != bucket || !strings.HasPrefix(key, prefix) {
			continue
		}
		if strings.Contains(strings.TrimPrefix(key, prefix), "/") {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (o *fakeObjects) GetFile(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := o.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("no such key")
	}
	return data, nil
}
