package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/docingest/internal/app"
	"github.com/markdave123-py/docingest/internal/config"
)

var cfg *config.Config

// newApp is swapped in tests.
var newApp = app.NewApp

var (
	collectionName string
	ingestExt      string
	ingestWorkers  int
	ingestContinue bool
)

var rootCmd = &cobra.Command{
	Use:   "docingest [dir]",
	Short: "Ingest documents into a vector collection",
	Long: `Reads every matching file directly under a directory (or an s3://bucket/prefix),
splits it into token-bounded chunks, embeds them and appends them to a pgvector
collection. Without arguments SOURCE_DIR is ingested.`,
	Args:              cobra.MaximumNArgs(1),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	RunE:              runIngest,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&collectionName, "collection", "c", config.DefaultCollection, "target collection (table) name")
	rootCmd.Flags().StringVar(&ingestExt, "ext", config.DefaultSourceExt, "only ingest files ending with this suffix")
	rootCmd.Flags().IntVarP(&ingestWorkers, "workers", "w", 1, "files ingested concurrently")
	rootCmd.Flags().BoolVar(&ingestContinue, "continue-on-error", false, "keep going after a failed file and report every failure")
}

// setup loads the configuration, lets explicitly set flags override it and
// installs the process logger.
func setup(cmd *cobra.Command, _ []string) error {
	loaded, err := config.LoadConfig()
	if err != nil {
		return err
	}
	applyFlags(cmd, loaded)
	cfg = loaded

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()})))
	return nil
}

func applyFlags(cmd *cobra.Command, c *config.Config) {
	if f := cmd.Flag("collection"); f != nil && f.Changed {
		c.Collection = collectionName
	}
	if f := cmd.Flag("ext"); f != nil && f.Changed {
		c.SourceExt = ingestExt
	}
	if f := cmd.Flag("workers"); f != nil && f.Changed {
		c.Workers = ingestWorkers
	}
	if f := cmd.Flag("continue-on-error"); f != nil && f.Changed {
		c.ContinueOnError = ingestContinue
	}
}

func runIngest(cmd *cobra.Command, args []string) error {
	location := cfg.SourceDir
	if len(args) == 1 {
		location = args[0]
	}

	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.Ingest(cmd.Context(), location, cfg.SourceExt)
	if report != nil {
		fmt.Fprintln(cmd.OutOrStdout(), report.Summary())
	}
	return err
}
