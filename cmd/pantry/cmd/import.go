package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/importer"
	"github.com/Aman-CERP/pantry/internal/output"
)

type importOptions struct {
	save         bool
	force        bool
	recipeDir    string
	ignoreRobots bool
}

func newImportCmd() *cobra.Command {
	var opts importOptions

	cmd := &cobra.Command{
		Use:   "import <url>",
		Short: "Import a recipe from a web page",
		Long: `Fetch a recipe page, read the schema.org recipe it embeds and print it.

With --save the recipe is written as markdown to
<recipe-dir>/Imported/<slug>.md, where a running server picks it up.
The site's robots.txt is honored unless --ignore-robots is given.`,
		Example: `  pantry import https://www.example.com/recipes/pancakes
  pantry import https://www.example.com/recipes/pancakes --save`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), cmd, args[0], opts)
		},
	}

	cmd.Flags().BoolVar(&opts.save, "save", false, "Save the recipe into the recipe directory")
	cmd.Flags().BoolVar(&opts.force, "force", false, "Overwrite an existing file when saving")
	cmd.Flags().StringVar(&opts.recipeDir, "recipe-dir", "", "Recipe directory (overrides config)")
	cmd.Flags().BoolVar(&opts.ignoreRobots, "ignore-robots", false, "Fetch even if robots.txt disallows it")

	return cmd
}

func runImport(ctx context.Context, cmd *cobra.Command, rawURL string, opts importOptions) error {
	importOpts := importer.DefaultOptions()
	importOpts.IgnoreRobots = opts.ignoreRobots

	imported, err := importer.New(importOpts).Import(ctx, rawURL)
	if err != nil {
		return err
	}

	out := output.New(cmd.OutOrStdout())
	if !opts.save {
		out.Recipe(imported.Recipe())
		return nil
	}

	_, dir, err := resolve(opts.recipeDir)
	if err != nil {
		return err
	}
	slug := imported.Metadata.Slug()
	if slug == "" {
		return errors.New(errors.ErrCodeImportFailed, "imported recipe has no title", nil).
			WithDetail("url", rawURL)
	}
	path := filepath.Join(dir, importer.Category, slug+".md")

	if _, err := os.Stat(path); err == nil && !opts.force {
		return errors.New(errors.ErrCodeInvalidInput, "recipe file already exists", nil).
			WithDetail("path", path).
			WithSuggestion("Use --force to overwrite it")
	}

	doc, err := imported.Document()
	if err != nil {
		return errors.InternalError("failed to encode recipe", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.IOError("failed to create directory", err).WithDetail("path", filepath.Dir(path))
	}
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		return errors.IOError("failed to write recipe", err).WithDetail("path", path)
	}

	out.Successf("Saved %s", imported.Metadata.Title)
	out.KeyValue("Path", path)
	return nil
}
