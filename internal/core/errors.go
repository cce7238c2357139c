package core

import (
	"errors"
	"fmt"
)

// Failure kinds. Adapters wrap their errors with one of these so callers can
// classify a failure with errors.Is.
var (
	ErrIO        = errors.New("io error")
	ErrFormat    = errors.New("format error")
	ErrEmbedding = errors.New("embedding error")
	ErrStore     = errors.New("store error")
	ErrConfig    = errors.New("config error")
)

// Stage names the ingestion step that failed.
type Stage string

const (
	StageRead  Stage = "read"
	StageChunk Stage = "chunk"
	StageStore Stage = "store"
)

// IngestError reports the first failure of a single file's ingestion.
type IngestError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *IngestError) Error() string {
	return fmt.Sprintf("ingest %s: %s: %v", e.Path, e.Stage, e.Err)
}

func (e *IngestError) Unwrap() error { return e.Err }

// Kind returns the failure kind wrapped by err, or nil when err carries none.
func Kind(err error) error {
	for _, k := range []error{ErrIO, ErrFormat, ErrEmbedding, ErrStore, ErrConfig} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}
