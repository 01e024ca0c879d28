package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mvp-joe/luadox/internal/config"
	"github.com/mvp-joe/luadox/internal/search"
)

var searchLimit int

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the documented entities",
	Long: `Search builds the documentation in memory and runs a full-text
query over every documented module, class, function, and field.

The query uses bleve query string syntax, so phrases ("connect timeout"),
field scoping (name:Animal), wildcards, and fuzzy matching all work.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 15, "maximum number of results")
}

func runSearch(cmd *cobra.Command, args []string) error {
	rootDir, err := resolveProjectDir()
	if err != nil {
		return err
	}
	cfg, err := config.LoadConfigFromDir(rootDir)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := newLogger()

	res, err := runPipeline(rootDir, cfg, logger, false)
	if err != nil {
		return err
	}

	ctx := context.Background()
	ix, err := search.NewIndex(ctx, res)
	if err != nil {
		return err
	}
	defer ix.Close()

	results, err := ix.Search(ctx, strings.Join(args, " "), searchLimit)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("no matches")
		return nil
	}
	for _, r := range results {
		fmt.Printf("%-10s %-40s %s\n", r.Kind, r.Name, r.File)
		for _, h := range r.Highlights {
			fmt.Printf("           %s\n", h)
		}
	}
	return nil
}
