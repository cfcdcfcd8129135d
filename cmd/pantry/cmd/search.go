package cmd

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/output"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	start      int
	size       int
	recipeDir  string
	jsonOutput bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the recipe directory",
		Long: `Index the recipe directory and run a single search against it.

Unprefixed words match recipe titles. Field prefixes narrow the search:
  category:Breakfast   recipes filed under a category
  tag:quick            recipes carrying a tag
  title:"french toast" a phrase in the title
  ingredients:egg      a word in the ingredient list
  directions:whisk     a word in the directions
A leading '+' requires a term, '-' excludes it.`,
		Example: `  pantry search pancakes
  pantry search "category:Breakfast tag:quick"
  pantry search soup --size 5 --start 5
  pantry search "ingredients:chickpea" --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd.Context(), cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVar(&opts.start, "start", 0, "Index of the first result to show")
	cmd.Flags().IntVarP(&opts.size, "size", "n", 0, "Number of results to show (default from config)")
	cmd.Flags().StringVar(&opts.recipeDir, "recipe-dir", "", "Recipe directory (overrides config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	if opts.start < 0 || opts.size < 0 {
		return errors.ValidationError("--start and --size must not be negative", nil)
	}

	cfg, dir, err := resolve(opts.recipeDir)
	if err != nil {
		return err
	}
	size := opts.size
	if size == 0 {
		size = cfg.Server.PageSize
	}

	index, err := openIndex(cfg, dir, nil)
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	if err := index.ReindexAll(ctx); err != nil {
		return err
	}

	slog.Debug("search_started", slog.String("query", query), slog.Int("start", opts.start), slog.Int("size", size))
	res, err := index.Search(ctx, query, opts.start, size)
	if err != nil {
		return err
	}
	slog.Debug("search_complete", slog.Uint64("total", res.Total), slog.Int("returned", len(res.Documents)))

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}

	output.New(cmd.OutOrStdout()).SearchResults(query, opts.start, res)
	return nil
}
