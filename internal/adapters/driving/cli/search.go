package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/veldt-labs/mediatheque/internal/core/domain"
)

var (
	searchLimit  int
	searchRerank bool
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search the video library",
	Long: `Performs hybrid search over the indexed library. Free terms are
matched semantically; tag:, vision: and path: filters prune the results.
Comma-separated sub-queries are averaged into one retrieval vector.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "re-score results with the cross-encoder")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if searchService == nil || indexService == nil {
		return errors.New("search service not configured")
	}

	ctx := context.Background()

	// The vector index lives in process memory, so a one-shot command
	// has to build it before querying.
	if err := indexService.Rebuild(ctx); err != nil {
		return fmt.Errorf("building index: %w", err)
	}

	results, err := searchService.Search(ctx, args[0], searchLimit, searchRerank)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, results)
	}
	return outputSearchTable(cmd, results)
}

func outputSearchJSON(cmd *cobra.Command, results []domain.Video) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.Video) error {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		v := &results[i]
		title := v.SearchPath
		if title == "" {
			title = v.Filename
		}
		cmd.Printf("  [%d] %s (%s)\n", i+1, title, formatDuration(v.Duration))
		if meta := v.FilenameMetadata; meta != nil && meta.SceneName != "" {
			cmd.Printf("      %s\n", meta.SceneName)
		}
		if tags := v.VisualTags(); len(tags) > 0 {
			cmd.Printf("      Tags: %v\n", tags)
		}
		cmd.Println()
	}
	return nil
}

func formatDuration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	return d.String()
}
