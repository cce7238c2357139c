package ingestion_engine

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docingest/internal/core"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileReader_Markdown(t *testing.T) {
	path := writeFile(t, "rag-intro.md", []byte("Intro line\n\n# Retrieval Augmented Generation\n\nBody text.\n"))
	reader := NewFileReader(NewFileSource(nil), false)

	doc, err := reader.Convert(context.Background(), NewSourceFile(path))
	require.NoError(t, err)

	assert.Equal(t, FormatMarkdown, doc.Format)
	assert.Equal(t, "Retrieval Augmented Generation", doc.Title)
	assert.Contains(t, doc.Body, "# Retrieval Augmented Generation", "markdown structure is kept for the chunker")
	assert.Equal(t, path, doc.Source.Path)
}

func TestFileReader_MarkdownTitleFallsBackToName(t *testing.T) {
	path := writeFile(t, "vector_search-basics.md", []byte("## Only a subheading\n"))

	doc, err := NewFileReader(NewFileSource(nil), false).Convert(context.Background(), NewSourceFile(path))
	require.NoError(t, err)

	assert.Equal(t, "vector search basics", doc.Title)
}

func TestFileReader_PlainText(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("just some notes"))

	doc, err := NewFileReader(NewFileSource(nil), false).Convert(context.Background(), NewSourceFile(path))
	require.NoError(t, err)

	assert.Equal(t, FormatText, doc.Format)
	assert.Equal(t, "just some notes", doc.Body)
	assert.Equal(t, "notes", doc.Title)
}

func TestFileReader_HTMLThroughDocconv(t *testing.T) {
	path := writeFile(t, "page.html", []byte("<html><head><title>Page</title></head><body><p>Hello from html</p></body></html>"))

	doc, err := NewFileReader(NewFileSource(nil), false).Convert(context.Background(), NewSourceFile(path))
	require.NoError(t, err)

	assert.Equal(t, FormatConverted, doc.Format)
	assert.Contains(t, doc.Body, "Hello from html")
}

func TestFileReader_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.md")

	_, err := NewFileReader(NewFileSource(nil), false).Convert(context.Background(), NewSourceFile(missing))

	assert.ErrorIs(t, err, core.ErrIO)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestFileReader_InvalidUTF8(t *testing.T) {
	path := writeFile(t, "binary.md", []byte{0xff, 0xfe, 0xfd})

	_, err := NewFileReader(NewFileSource(nil), false).Convert(context.Background(), NewSourceFile(path))

	assert.ErrorIs(t, err, core.ErrFormat)
}

func TestFileReader_ObjectStorage(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{
		"kb/articles/remote.md": []byte("# Remote\n\nfrom s3\n"),
	}}
	reader := NewFileReader(NewFileSource(objects), false)

	doc, err := reader.Convert(context.Background(), NewSourceFile("s3://kb/articles/remote.md"))
	require.NoError(t, err)

	assert.Equal(t, "Remote", doc.Title)
	assert.Contains(t, doc.Body, "from s3")
}
