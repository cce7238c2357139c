package ingestion_engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docingest/internal/core"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		in, bucket, key string
	}{
		{"s3://kb/articles/a.md", "kb", "articles/a.md"},
		{"s3://kb/", "kb", ""},
		{"s3://kb", "kb", ""},
	}
	for _, tt := range tests {
		bucket, key := parseS3URI(tt.in)
		assert.Equal(t, tt.bucket, bucket, tt.in)
		assert.Equal(t, tt.key, key, tt.in)
	}
}

func TestNewSourceFile(t *testing.T) {
	local := NewSourceFile("data/articles/intro.md")
	assert.Equal(t, "intro.md", local.Name)
	assert.Equal(t, ".md", local.Ext)

	remote := NewSourceFile("s3://kb/articles/report.pdf")
	assert.Equal(t, "report.pdf", remote.Name)
	assert.Equal(t, ".pdf", remote.Ext)
}

func TestFileSource_ListObjects(t *testing.T) {
	objects := &fakeObjects{objects: map[string][]byte{
		"kb/articles/b.md":      nil,
		"kb/articles/a.md":      nil,
		"kb/articles/c.txt":     nil,
		"kb/articles/deep/d.md": nil,
		"kb/other/e.md":         nil,
		"another/articles/f.md": nil,
	}}

	files, err := NewFileSource(objects).List(context.Background(), "s3://kb/articles", ".md")
	require.NoError(t, err)

	var paths []string
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	assert.Equal(t, []string{"s3://kb/articles/a.md", "s3://kb/articles/b.md"}, paths)
}

func TestFileSource_ObjectStorageErrors(t *testing.T) {
	_, err := NewFileSource(nil).List(context.Background(), "s3://kb/articles", ".md")
	assert.ErrorIs(t, err, core.ErrIO)

	_, err = NewFileSource(nil).Open(context.Background(), NewSourceFile("s3://kb/a.md"))
	assert.ErrorIs(t, err, core.ErrIO)

	objects := &fakeObjects{listErr: errors.New("access denied")}
	_, err = NewFileSource(objects).List(context.Background(), "s3://kb/articles", ".md")
	assert.ErrorIs(t, err, core.ErrIO)

	_, err = NewFileSource(&fakeObjects{}).Open(context.Background(), NewSourceFile("s3://kb/missing.md"))
	assert.ErrorIs(t, err, core.ErrIO)
}
