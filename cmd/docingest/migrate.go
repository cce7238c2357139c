package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the vector extension and the collection table",
	Long: `Creates the pgvector extension and the collection table (id, content, metadata,
embedding vector(EMBED_DIM)) with a cosine HNSW index. An existing table is left as is.`,
	Args: cobra.NoArgs,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(cmd.Context()); err != nil {
		return err
	}
	n, err := a.Store.Count(cmd.Context(), cfg.Collection)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "collection %s ready (%d record(s))\n", cfg.Collection, n)
	return nil
}
