package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"code.sajari.com/docconv"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
)

// Document formats produced by FileReader.
const (
	FormatMarkdown  = "markdown"
	FormatText      = "text"
	FormatConverted = "converted"
)

var _ core.DocumentReader = (*FileReader)(nil)

// FileReader implements core.DocumentReader. Markdown and plain text are kept
// as-is so the chunker can see their structure; every other format is turned
// into text by sajari/docconv.
type FileReader struct {
	opener         core.SourceOpener
	useReadability bool
	logger         *slog.Logger
}

func NewFileReader(opener core.SourceOpener, useReadability bool) *FileReader {
	return &FileReader{
		opener:         opener,
		useReadability: useReadability,
		logger:         slog.Default().With("component", "document-reader"),
	}
}

// Convert reads the file through the opener and builds its structured document.
func (r *FileReader) Convert(ctx context.Context, file models.SourceFile) (*models.Document, error) {
	rc, err := r.opener.Open(ctx, file)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", core.ErrIO, file.Path, err)
	}

	doc := &models.Document{Source: file}

	switch strings.ToLower(file.Ext) {
	case ".md", ".markdown":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: %s is not valid UTF-8", core.ErrFormat, file.Path)
		}
		doc.Format = FormatMarkdown
		doc.Body = string(data)
		doc.Title = markdownTitle(doc.Body, file.Name)
	case ".txt":
		if !utf8.Valid(data) {
			return nil, fmt.Errorf("%w: %s is not valid UTF-8", core.ErrFormat, file.Path)
		}
		doc.Format = FormatText
		doc.Body = string(data)
		doc.Title = titleFromName(file.Name)
	default:
		mimeType := docconv.MimeTypeByExtension(file.Name)
		res, err := docconv.Convert(bytes.NewReader(data), mimeType, r.useReadability)
		if err != nil {
			r.logger.Warn("docconv: extraction failed", "path", file.Path, "mime", mimeType, "err", err)
			return nil, fmt.Errorf("%w: convert %s (%s): %v", core.ErrFormat, file.Path, mimeType, err)
		}
		doc.Format = FormatConverted
		doc.Body = res.Body
		doc.Meta = res.Meta
		doc.Title = res.Meta["Title"]
		if doc.Title == "" {
			doc.Title = titleFromName(file.Name)
		}
	}

	if strings.TrimSpace(doc.Body) == "" {
		r.logger.Warn("extracted empty text", "path", file.Path, "format", doc.Format)
	}
	return doc, nil
}

// markdownTitle returns the first level-one heading, falling back to the file name.
func markdownTitle(content, name string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return titleFromName(name)
}

func titleFromName(name string) string {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	base = strings.ReplaceAll(base, "_", " ")
	return strings.ReplaceAll(base, "-", " ")
}
