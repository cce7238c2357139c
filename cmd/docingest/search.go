package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/docingest/internal/core"
	"github.com/markdave123-py/docingest/internal/models"
	"github.com/markdave123-py/docingest/internal/services"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the collection by semantic similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from the collection with a Gemini model",
	Long: `Retrieves the closest chunks for the question and asks the generation model
(GEN_MODEL, using GEMINI_API_KEY) to answer from them only. The IDs of the
records the answer cites are printed after it.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	for _, c := range []*cobra.Command{searchCmd, askCmd} {
		c.Flags().IntVarP(&searchLimit, "limit", "n", services.DefaultTopK, "maximum number of results")
		c.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
		rootCmd.AddCommand(c)
	}
}

func runSearch(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	results, err := a.Search.Search(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, results)
	}
	outputResults(cmd, results)
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.Answer == nil {
		return fmt.Errorf("%w: GEMINI_API_KEY not set", core.ErrConfig)
	}
	ans, err := a.Answer.Ask(cmd.Context(), args[0], searchLimit)
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd, ans)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s\n\n", ans.Text)
	if len(ans.Citations) > 0 {
		fmt.Fprintf(out, "Cited: %s\n\n", strings.Join(ans.Citations, ", "))
	}
	outputResults(cmd, ans.Sources)
	return nil
}

func outputJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func outputResults(cmd *cobra.Command, results []models.SearchResult) {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintln(out, "No results found.")
		return
	}

	for i := range results {
		r := &results[i]
		title, _ := r.Metadata["title"].(string)
		if title == "" {
			title = r.ID
		}
		fmt.Fprintf(out, "  [%d] %s (%.3f)\n", i+1, title, r.Similarity)
		if src, ok := r.Metadata["source"].(string); ok {
			fmt.Fprintf(out, "      Source: %s\n", src)
		}
		fmt.Fprintf(out, "      %s\n", snippet(r.Text, 160))
	}
}

func snippet(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}
