package mcp

import (
	"github.com/Aman-CERP/pantry/internal/recipe"
)

// SearchRecipesInput defines the input schema for the search_recipes tool.
type SearchRecipesInput struct {
	Query string `json:"query" jsonschema:"pantry query: words match titles; prefixes tag:, category:, ingredient:, step:, source:, site:; +term required, -term excluded"`
	Start int    `json:"start,omitempty" jsonschema:"offset of the first result, default 0"`
	Size  int    `json:"size,omitempty" jsonschema:"number of results, default 10, at most 50"`
}

// SearchRecipesOutput defines the output schema for the search_recipes tool.
type SearchRecipesOutput struct {
	Total      uint64         `json:"total" jsonschema:"number of recipes matching the query"`
	Recipes    []RecipeBrief  `json:"recipes" jsonschema:"the requested page of matches"`
	Categories map[string]int `json:"categories" jsonschema:"match counts per category over all matches"`
	Tags       map[string]int `json:"tags" jsonschema:"match counts per tag over all matches"`
}

// RecipeBrief is a search hit.
type RecipeBrief struct {
	Slug        string   `json:"slug" jsonschema:"identifier accepted by get_recipe"`
	Title       string   `json:"title"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags,omitempty"`
	Description string   `json:"description,omitempty"`
}

// GetRecipeInput defines the input schema for the get_recipe tool.
type GetRecipeInput struct {
	Slug string `json:"slug" jsonschema:"recipe slug as returned by search_recipes"`
}

// RecipeOutput defines the output schema for the get_recipe tool.
type RecipeOutput struct {
	Slug        string         `json:"slug"`
	Title       string         `json:"title"`
	Category    string         `json:"category"`
	Tags        []string       `json:"tags,omitempty"`
	Sources     []SourceOutput `json:"sources,omitempty"`
	Description string         `json:"description,omitempty"`
	Ingredients string         `json:"ingredients,omitempty" jsonschema:"one ingredient per line; section names precede their items"`
	Directions  string         `json:"directions,omitempty" jsonschema:"one step per line; section names precede their steps"`
}

// SourceOutput is a recipe source.
type SourceOutput struct {
	Name        string `json:"name"`
	Attribution string `json:"attribution,omitempty"`
	Link        string `json:"link,omitempty"`
}

// ReindexInput defines the input schema for the reindex tool.
type ReindexInput struct {
	Paths []string `json:"paths,omitempty" jsonschema:"recipe files relative to the recipe directory; empty rebuilds the whole index"`
}

// ReindexOutput defines the output schema for the reindex tool.
type ReindexOutput struct {
	Scope string `json:"scope" jsonschema:"all or paths"`
	Paths int    `json:"paths"`
}

func toBrief(r recipe.Recipe) RecipeBrief {
	title, _ := r.Title()
	category, _ := r.Category()
	slug, _ := r.Slug()
	return RecipeBrief{
		Slug:        slug,
		Title:       title,
		Category:    category,
		Tags:        r.Tags(),
		Description: r.Description(),
	}
}

func toRecipeOutput(r recipe.Recipe) RecipeOutput {
	b := toBrief(r)
	fields := r.Extract()
	out := RecipeOutput{
		Slug:        b.Slug,
		Title:       b.Title,
		Category:    b.Category,
		Tags:        b.Tags,
		Description: fields.Description,
		Ingredients: fields.Ingredients,
		Directions:  fields.Directions,
	}
	for _, s := range r.Sources() {
		out.Sources = append(out.Sources, SourceOutput{
			Name:        s.Name(),
			Attribution: s.Attribution(),
			Link:        s.Link(),
		})
	}
	return out
}
