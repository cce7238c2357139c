package db

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/markdave123-py/docingest/internal/core"
)

//go:embed scripts/initdb.sql
var bootstrapFS embed.FS

var initTmpl = template.Must(template.ParseFS(bootstrapFS, "scripts/initdb.sql"))

type initParams struct {
	Table string
	Index string
	Dim   int
}

// EnsureCollection creates the vector extension and the collection table when
// the table does not exist yet. An existing table is left untouched.
func (s *PgVectorStore) EnsureCollection(ctx context.Context, collection string, dim int) error {
	ctxBoot, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	script, err := renderInitSQL(collection, dim)
	if err != nil {
		return err
	}

	var exists bool
	err = s.db.QueryRowContext(ctxBoot, `SELECT to_regclass($1) IS NOT NULL`, collection).Scan(&exists)
	if err != nil {
		return fmt.Errorf("%w: collection check failed: %w", core.ErrStore, err)
	}
	if exists {
		s.logger.Info("collection already exists", "collection", collection)
		return nil
	}

	if err := runBootstrap(ctxBoot, s.db, script); err != nil {
		return err
	}
	s.logger.Info("collection created", "collection", collection, "dim", dim)
	return nil
}

func renderInitSQL(collection string, dim int) (string, error) {
	if dim <= 0 {
		return "", fmt.Errorf("%w: embedding dimension must be positive, got %d", core.ErrConfig, dim)
	}
	table, err := tableIdent(collection)
	if err != nil {
		return "", err
	}
	name := collection[strings.LastIndex(collection, ".")+1:]

	var buf bytes.Buffer
	err = initTmpl.Execute(&buf, initParams{
		Table: table,
		Index: pgx.Identifier{name + "_embedding_idx"}.Sanitize(),
		Dim:   dim,
	})
	if err != nil {
		return "", fmt.Errorf("%w: render initdb.sql: %w", core.ErrConfig, err)
	}
	return buf.String(), nil
}

func runBootstrap(ctx context.Context, db *sql.DB, script string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %w", core.ErrStore, err)
	}
	if _, err := tx.ExecContext(ctx, script); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("%w: exec bootstrap: %w", core.ErrStore, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit bootstrap: %w", core.ErrStore, err)
	}
	return nil
}
