package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
)

var _ VectorStore = (*PgVectorStore)(nil)

// PgVectorStore stores records in a Postgres table with a pgvector column,
// the layout Supabase uses for its documents tables.
type PgVectorStore struct {
	db        *sql.DB
	embedder  core.EmbeddingProvider
	dim       int
	batchSize int
	logger    *slog.Logger
}

func NewVectorStore(ctx context.Context, cfg *config.Config, embedder core.EmbeddingProvider) (*PgVectorStore, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: vector store configuration is nil", core.ErrConfig)
	}
	if embedder == nil {
		return nil, fmt.Errorf("%w: vector store needs an embedding provider", core.ErrConfig)
	}
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("%w: ssl cert not accessible at %q: %w", core.ErrConfig, cfg.SslCertPath, err)
		}
	}

	dsn, err := buildDSN(cfg.DatabaseURL, cfg.DBPassword, cfg.SslCertPath)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: open db: %w", core.ErrStore, err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: ping db: %w", core.ErrStore, err)
	}

	return newStore(db, embedder, cfg.EmbedDim, cfg.EmbedBatchSize), nil
}

func newStore(db *sql.DB, embedder core.EmbeddingProvider, dim, batchSize int) *PgVectorStore {
	if batchSize <= 0 {
		batchSize = 32
	}
	return &PgVectorStore{
		db:        db,
		embedder:  embedder,
		dim:       dim,
		batchSize: batchSize,
		logger:    slog.Default().With("component", "vector-store"),
	}
}

func (s *PgVectorStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// buildDSN injects the database password unless the URL already carries one,
// and pins the CA when a cert path is given.
func buildDSN(rawURL, password, sslCertPath string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("%w: SUPABASE_DB_URL is empty", core.ErrConfig)
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		// the parse error can echo the URL, credentials included
		return "", fmt.Errorf("%w: SUPABASE_DB_URL is not a valid postgres URL", core.ErrConfig)
	}

	_, hasPassword := u.User.Password()
	if !hasPassword {
		if password == "" {
			return "", fmt.Errorf("%w: SUPABASE_DB_PASSWORD is empty and SUPABASE_DB_URL has no password", core.ErrConfig)
		}
		user := "postgres"
		if u.User != nil && u.User.Username() != "" {
			user = u.User.Username()
		}
		u.User = url.UserPassword(user, password)
	}

	if sslCertPath != "" {
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", sslCertPath)
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

// tableIdent turns a collection name, optionally schema-qualified, into a
// quoted identifier safe to splice into SQL.
func tableIdent(collection string) (string, error) {
	collection = strings.TrimSpace(collection)
	if collection == "" {
		return "", fmt.Errorf("%w: collection name is empty", core.ErrConfig)
	}
	parts := strings.Split(collection, ".")
	if len(parts) > 2 {
		return "", fmt.Errorf("%w: invalid collection name %q", core.ErrConfig, collection)
	}
	for _, p := range parts {
		if p == "" {
			return "", fmt.Errorf("%w: invalid collection name %q", core.ErrConfig, collection)
		}
	}
	return pgx.Identifier(parts).Sanitize(), nil
}

// embedMissing fills in the vector of every record that lacks one and checks
// the dimension of all of them.
func (s *PgVectorStore) embedMissing(ctx context.Context, records []models.Record) error {
	var idx []int
	for i := range records {
		if records[i].Embedding == nil {
			idx = append(idx, i)
		}
	}

	for start := 0; start < len(idx); start += s.batchSize {
		end := min(start+s.batchSize, len(idx))
		texts := make([]string, 0, end-start)
		for _, i := range idx[start:end] {
			texts = append(texts, records[i].Text)
		}

		vecs, err := s.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			if core.Kind(err) != nil {
				return err
			}
			return fmt.Errorf("%w: %w", core.ErrEmbedding, err)
		}
		if len(vecs) != len(texts) {
			return fmt.Errorf("%w: got %d vectors for %d texts", core.ErrEmbedding, len(vecs), len(texts))
		}
		for j, i := range idx[start:end] {
			records[i].Embedding = vecs[j]
		}
	}

	if s.dim <= 0 {
		return nil
	}
	for i := range records {
		if got := len(records[i].Embedding); got != s.dim {
			return fmt.Errorf("%w: record %s has dimension %d, collection expects %d",
				core.ErrEmbedding, records[i].ID, got, s.dim)
		}
	}
	return nil
}

// AddRecords embeds what needs embedding and inserts all records in a single
// transaction. Either every row lands or none does.
func (s *PgVectorStore) AddRecords(ctx context.Context, collection string, records []models.Record) error {
	if len(records) == 0 {
		return nil
	}
	table, err := tableIdent(collection)
	if err != nil {
		return err
	}

	if err := s.embedMissing(ctx, records); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", core.ErrStore, err)
	}

	q := fmt.Sprintf(`INSERT INTO %s (id, content, metadata, embedding) VALUES ($1, $2, $3, $4)`, table)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: prepare insert: %w", core.ErrStore, err)
	}
	defer stmt.Close()

	for i := range records {
		r := &records[i]
		meta, err := json.Marshal(r.Metadata)
		if err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: encode metadata for %s: %w", core.ErrStore, r.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, r.ID, r.Text, meta, pgvector.NewVector(r.Embedding)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("%w: insert %s: %w", core.ErrStore, r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", core.ErrStore, err)
	}
	s.logger.Debug("records inserted", "collection", collection, "count", len(records))
	return nil
}

// Search returns the limit records closest to queryVec by cosine distance.
func (s *PgVectorStore) Search(ctx context.Context, collection string, queryVec []float32, limit int) ([]models.SearchResult, error) {
	table, err := tableIdent(collection)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	if s.dim > 0 && len(queryVec) != s.dim {
		return nil, fmt.Errorf("%w: query has dimension %d, collection expects %d", core.ErrEmbedding, len(queryVec), s.dim)
	}

	q := fmt.Sprintf(`
		SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM %s
		ORDER BY embedding <=> $1
		LIMIT $2
	`, table)

	rows, err := s.db.QueryContext(ctx, q, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, fmt.Errorf("%w: search: %w", core.ErrStore, err)
	}
	defer rows.Close()

	var out []models.SearchResult
	for rows.Next() {
		var (
			res  models.SearchResult
			meta []byte
		)
		if err := rows.Scan(&res.ID, &res.Text, &meta, &res.Similarity); err != nil {
			return nil, fmt.Errorf("%w: scan: %w", core.ErrStore, err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &res.Metadata); err != nil {
				return nil, fmt.Errorf("%w: decode metadata of %s: %w", core.ErrStore, res.ID, err)
			}
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrStore, err)
	}
	return out, nil
}

func (s *PgVectorStore) Count(ctx context.Context, collection string) (int, error) {
	table, err := tableIdent(collection)
	if err != nil {
		return 0, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT count(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: count: %w", core.ErrStore, err)
	}
	return n, nil
}
