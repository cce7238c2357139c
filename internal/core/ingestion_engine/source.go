package ingestion_engine

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
)

const s3Scheme = "s3://"

var (
	_ core.SourceLister = (*FileSource)(nil)
	_ core.SourceOpener = (*FileSource)(nil)
)

// FileSource lists and opens source documents on the local filesystem or, for
// s3://bucket/prefix locations, in object storage. Listings never recurse.
type FileSource struct {
	obj core.ObjectClient
}

// NewFileSource builds a source. obj may be nil when only local directories are used.
func NewFileSource(obj core.ObjectClient) *FileSource {
	return &FileSource{obj: obj}
}

// List returns the direct children of location whose names end with ext,
// sorted by name.
func (s *FileSource) List(ctx context.Context, location, ext string) ([]models.SourceFile, error) {
	var (
		files []models.SourceFile
		err   error
	)
	if strings.HasPrefix(location, s3Scheme) {
		files, err = s.listObjects(ctx, location, ext)
	} else {
		files, err = listDir(location, ext)
	}
	if err != nil {
		return nil, err
	}

	slices.SortFunc(files, func(a, b models.SourceFile) int { return strings.Compare(a.Path, b.Path) })
	return files, nil
}

// Open returns the file's content.
func (s *FileSource) Open(ctx context.Context, file models.SourceFile) (io.ReadCloser, error) {
	if strings.HasPrefix(file.Path, s3Scheme) {
		if s.obj == nil {
			return nil, fmt.Errorf("%w: no object storage configured for %s", core.ErrIO, file.Path)
		}
		bucket, key := parseS3URI(file.Path)
		data, err := s.obj.GetFile(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrIO, err)
		}
		return io.NopCloser(bytes.NewReader(data)), nil
	}

	f, err := os.Open(file.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	return f, nil
}

func listDir(dir, ext string) ([]models.SourceFile, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %w", core.ErrIO, dir, err)
	}

	var out []models.SourceFile
	for _, e := range entries {
		if !strings.HasSuffix(e.Name(), ext) {
			continue
		}
		if e.IsDir() {
			continue
		}
		if e.Type()&fs.ModeSymlink != 0 {
			// Follow the link; a dangling or directory target is skipped.
			info, err := os.Stat(filepath.Join(dir, e.Name()))
			if err != nil || info.IsDir() {
				continue
			}
		}
		out = append(out, NewSourceFile(filepath.Join(dir, e.Name())))
	}
	return out, nil
}

func (s *FileSource) listObjects(ctx context.Context, location, ext string) ([]models.SourceFile, error) {
	if s.obj == nil {
		return nil, fmt.Errorf("%w: no object storage configured for %s", core.ErrIO, location)
	}
	bucket, prefix := parseS3URI(location)
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	keys, err := s.obj.ListObjects(ctx, bucket, prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: list %s: %v", core.ErrIO, location, err)
	}

	var out []models.SourceFile
	for _, key := range keys {
		if strings.HasSuffix(key, "/") || !strings.HasSuffix(key, ext) {
			continue
		}
		out = append(out, NewSourceFile(s3Scheme+bucket+"/"+key))
	}
	return out, nil
}

// NewSourceFile describes the file at p, a local path or s3:// URI.
func NewSourceFile(p string) models.SourceFile {
	name := filepath.Base(p)
	if strings.HasPrefix(p, s3Scheme) {
		name = path.Base(p)
	}
	return models.SourceFile{Path: p, Name: name, Ext: filepath.Ext(name)}
}

// parseS3URI splits s3://bucket/key into its bucket and key.
func parseS3URI(u string) (bucket, key string) {
	rest := strings.TrimPrefix(u, s3Scheme)
	bucket, key, _ = strings.Cut(rest, "/")
	return bucket, key
}
