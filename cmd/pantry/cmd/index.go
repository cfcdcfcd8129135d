package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pantry/internal/config"
	"github.com/Aman-CERP/pantry/internal/output"
	"github.com/Aman-CERP/pantry/internal/search"
)

type indexOptions struct {
	recipeDir  string
	jsonOutput bool
}

// indexStats summarizes a completed reindex.
type indexStats struct {
	RecipeDir  string         `json:"recipe_dir"`
	Recipes    uint64         `json:"recipes"`
	Categories map[string]int `json:"categories"`
	Tags       map[string]int `json:"tags"`
	Took       string         `json:"took"`
}

func newIndexCmd() *cobra.Command {
	var opts indexOptions

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Index the recipe directory once and report what was found",
		Long: `Walk the recipe directory, parse every recipe and build a fresh index,
then print how many recipes, categories and tags it holds.

Files that fail to parse are skipped and logged. Nothing is written
to disk: the server builds its own index when it starts.`,
		Example: `  pantry index
  pantry index --recipe-dir ~/recipes --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runIndex(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.recipeDir, "recipe-dir", "", "Recipe directory (overrides config)")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runIndex(ctx context.Context, cmd *cobra.Command, opts indexOptions) error {
	cfg, dir, err := resolve(opts.recipeDir)
	if err != nil {
		return err
	}

	index, err := openIndex(cfg, dir, nil)
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	began := time.Now()
	if err := index.ReindexAll(ctx); err != nil {
		return err
	}
	took := time.Since(began)

	res, err := index.Search(ctx, "", 0, 0)
	if err != nil {
		return err
	}
	slog.Info("index_complete",
		slog.String("recipe_dir", dir),
		slog.Uint64("recipes", res.Total),
		slog.Duration("took", took))

	stats := indexStats{
		RecipeDir:  dir,
		Recipes:    res.Total,
		Categories: res.Categories,
		Tags:       res.Tags,
		Took:       took.Round(time.Millisecond).String(),
	}

	if opts.jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	}

	out := output.New(cmd.OutOrStdout())
	out.Successf("Indexed %d recipes", stats.Recipes)
	out.KeyValue("Directory", stats.RecipeDir)
	out.KeyValue("Categories", len(stats.Categories))
	out.KeyValue("Tags", len(stats.Tags))
	out.KeyValue("Took", stats.Took)
	return nil
}

// resolve loads the configuration, applies a --recipe-dir override and
// returns the absolute recipe directory.
func resolve(recipeDir string) (*config.Config, string, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, "", err
	}
	if recipeDir != "" {
		cfg.Index.RecipeDir = recipeDir
	}
	dir, err := cfg.ResolveRecipeDir()
	if err != nil {
		return nil, "", err
	}
	return cfg, dir, nil
}

// openIndex starts an empty index over dir. A nil reg leaves the index
// metrics unregistered.
func openIndex(cfg *config.Config, dir string, reg prometheus.Registerer) (*search.AsyncIndex, error) {
	var metrics *search.Metrics
	if reg != nil {
		metrics = search.NewMetrics(reg)
	}

	ix, err := search.NewIndexer(search.IndexerConfig{
		RecipeDir:    dir,
		ParseWorkers: cfg.Index.ParseWorkers,
		CacheSize:    cfg.Index.CacheSize,
		Metrics:      metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	return search.Start(ix, search.Options{
		RequestTimeout: cfg.Index.RequestTimeout,
		Metrics:        metrics,
	}), nil
}
