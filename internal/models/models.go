package models

// SourceFile is a document discovered by the batch runner.
type SourceFile struct {
	Path string `json:"path"` // local path or s3://bucket/key
	Name string `json:"name"`
	Ext  string `json:"ext"`
}

// Document is the structured form of a source file, produced by the document reader.
type Document struct {
	Source SourceFile        `json:"source"`
	Title  string            `json:"title"`
	Format string            `json:"format"` // markdown | text | converted
	Body   string            `json:"body"`
	Meta   map[string]string `json:"meta,omitempty"`
}

// Chunk is a token-bounded span of a document's text.
type Chunk struct {
	Position   int    `json:"position"`
	Text       string `json:"text"`
	TokenCount int    `json:"token_count"`
}

// Record is the unit persisted to a collection.
type Record struct {
	ID        string         `db:"id" json:"id"`
	Text      string         `db:"content" json:"text"`
	Metadata  map[string]any `db:"metadata" json:"metadata,omitempty"`
	Embedding []float32      `db:"embedding" json:"-"` // filled by the vector store on insert
}

// SearchResult is a record returned by a similarity query.
type SearchResult struct {
	Record
	Similarity float64 `json:"similarity"`
}

// Answer is a generated reply grounded on retrieved records. Citations holds
// the IDs of the records the reply refers to, in order of first mention.
type Answer struct {
	Text      string         `json:"answer"`
	Citations []string       `json:"citations"`
	Sources   []SearchResult `json:"sources"`
}
