package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/docingest/internal/app"
	"github.com/markdave123-py/docingest/internal/config"
	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/core/ingestion_engine"
	"github.com/markdave123-py/docingest/internal/models"
)

type countingIngestor struct {
	mu    sync.Mutex
	paths []string
	fail  string
}

func (c *countingIngestor) Ingest(_ context.Context, f models.SourceFile) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paths = append(c.paths, f.Name)
	if f.Name == c.fail {
		return 0, &core.IngestError{Path: f.Path, Stage: core.StageStore, Err: core.ErrStore}
	}
	return 2, nil
}

func resetFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		for _, fs := range []*pflag.FlagSet{c.Flags(), c.PersistentFlags()} {
			fs.VisitAll(func(f *pflag.Flag) {
				_ = f.Value.Set(f.DefValue)
				f.Changed = false
			})
		}
	}
}

// execute runs the root command with a fake app whose runner uses ing.
func execute(t *testing.T, ing *countingIngestor, args ...string) (string, *config.Config, error) {
	t.Helper()

	var got *config.Config
	orig := newApp
	newApp = func(_ context.Context, c *config.Config) (*app.App, error) {
		got = c
		return &app.App{
			Config: c,
			Runner: ingestion_engine.NewBatchRunner(ingestion_engine.NewFileSource(nil), ing,
				ingestion_engine.WithWorkers(c.Workers),
				ingestion_engine.WithContinueOnError(c.ContinueOnError)),
		}, nil
	}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		newApp = orig
		rootCmd.SetArgs(nil)
		resetFlags(rootCmd, searchCmd, askCmd)
	})

	err := rootCmd.ExecuteContext(context.Background())
	return buf.String(), got, err
}

func writeArticles(t *testing.T, names ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, n := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, n), []byte("# "+n), 0o644))
	}
	return dir
}

func TestRootCmd_IngestsDirectory(t *testing.T) {
	dir := writeArticles(t, "a.md", "b.md", "c.txt")
	ing := &countingIngestor{}

	out, _, err := execute(t, ing, dir)
	require.NoError(t, err)

	assert.Equal(t, []string{"a.md", "b.md"}, ing.paths)
	assert.Contains(t, out, "2 file(s), 4 record(s) written")
}

func TestRootCmd_FlagsOverrideConfig(t *testing.T) {
	dir := writeArticles(t, "a.md", "notes.txt")
	ing := &countingIngestor{}

	_, got, err := execute(t, ing, dir, "--ext", ".txt", "-w", "3", "--collection", "kb_docs", "--continue-on-error")
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, ".txt", got.SourceExt)
	assert.Equal(t, 3, got.Workers)
	assert.Equal(t, "kb_docs", got.Collection)
	assert.True(t, got.ContinueOnError)
	assert.Equal(t, []string{"notes.txt"}, ing.paths)
}

func TestRootCmd_FailureReturnsError(t *testing.T) {
	dir := writeArticles(t, "a.md", "b.md", "c.md")
	ing := &countingIngestor{fail: "b.md"}

	out, _, err := execute(t, ing, dir)

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrStore)
	assert.Equal(t, []string{"a.md", "b.md"}, ing.paths)
	assert.Contains(t, out, "1 file(s), 2 record(s) written, 1 skipped, 1 failed")
	assert.NotContains(t, out, "3 file(s)")
}

func TestRootCmd_ContinueOnErrorReportsPartial(t *testing.T) {
	dir := writeArticles(t, "a.md", "b.md", "c.md")
	ing := &countingIngestor{fail: "b.md"}

	out, _, err := execute(t, ing, dir, "--continue-on-error")

	assert.ErrorIs(t, err, ingestion_engine.ErrBatchPartial)
	assert.Contains(t, out, "1 failed")
}

func TestRootCmd_TooManyArgs(t *testing.T) {
	_, _, err := execute(t, &countingIngestor{}, "a", "b")
	assert.Error(t, err)
}

func TestRootCmd_MissingDatabaseURL(t *testing.T) {
	t.Setenv("SUPABASE_DB_URL", "")
	t.Setenv("DATABASE_URL", "")

	rootCmd.SetArgs([]string{t.TempDir()})
	rootCmd.SetOut(new(bytes.Buffer))
	t.Cleanup(func() { rootCmd.SetArgs(nil) })

	err := rootCmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, core.ErrConfig)
}

func TestSubcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"search", "ask", "serve", "migrate"} {
		assert.True(t, names[want], want)
	}

	flag := searchCmd.Flags().Lookup("limit")
	require.NotNil(t, flag)
	assert.Equal(t, "n", flag.Shorthand)
	assert.Equal(t, "5", flag.DefValue)
}

func TestSearchCmd_RequiresQuery(t *testing.T) {
	_, _, err := execute(t, &countingIngestor{}, "search")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "a b c", snippet("a\n\nb   c", 10))
	assert.Equal(t, "héll...", snippet("héllo world", 4))
}
