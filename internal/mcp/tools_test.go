package mcp

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/pantry/internal/recipe"
	"github.com/Aman-CERP/pantry/internal/search"
)

func TestSearchRecipesTool_ReturnsBriefsAndFacets(t *testing.T) {
	// Given: an index answering with one recipe
	var gotQuery string
	var gotStart, gotSize int
	index := &MockIndex{SearchFn: func(_ context.Context, q string, start, size int) (search.Result, error) {
		gotQuery, gotStart, gotSize = q, start, size
		return search.Result{
			Total:      1,
			Documents:  []recipe.Recipe{recipe.Parse(chiliText)},
			Categories: map[string]int{"Mains": 1},
			Tags:       map[string]int{"spicy": 1, "batch": 1},
		}, nil
	}}
	s := newTestServer(t, index)

	// When: calling search_recipes
	got, err := s.CallTool(context.Background(), "search_recipes", map[string]any{
		"query": "tag:spicy",
		"start": float64(0),
	})

	// Then: the query is passed through with the default page size
	require.NoError(t, err)
	assert.Equal(t, "tag:spicy", gotQuery)
	assert.Equal(t, 0, gotStart)
	assert.Equal(t, defaultPageSize, gotSize)

	out := got.(SearchRecipesOutput)
	assert.Equal(t, uint64(1), out.Total)
	require.Len(t, out.Recipes, 1)
	assert.Equal(t, RecipeBrief{
		Slug:        "best-chili",
		Title:       "Best Chili",
		Category:    "Mains",
		Tags:        []string{"batch", "spicy"},
		Description: "Smoky and rich.\n\nFeeds a crowd.",
	}, out.Recipes[0])
	assert.Equal(t, map[string]int{"Mains": 1}, out.Categories)
}

func TestSearchRecipesTool_SizeClamping(t *testing.T) {
	tests := []struct {
		name string
		size any
		want int
	}{
		{"omitted", nil, defaultPageSize},
		{"zero", float64(0), defaultPageSize},
		{"within range", float64(25), 25},
		{"above max", float64(500), maxPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotSize int
			index := &MockIndex{SearchFn: func(_ context.Context, _ string, _, size int) (search.Result, error) {
				gotSize = size
				return search.Result{}, nil
			}}
			s := newTestServer(t, index)

			args := map[string]any{"query": "soup"}
			if tt.size != nil {
				args["size"] = tt.size
			}
			_, err := s.CallTool(context.Background(), "search_recipes", args)

			require.NoError(t, err)
			assert.Equal(t, tt.want, gotSize)
		})
	}
}

func TestSearchRecipesTool_EmptyQueryMatchesAll(t *testing.T) {
	var called bool
	index := &MockIndex{SearchFn: func(_ context.Context, q string, _, _ int) (search.Result, error) {
		called = true
		assert.Empty(t, q)
		return search.Result{}, nil
	}}
	s := newTestServer(t, index)

	got, err := s.CallTool(context.Background(), "search_recipes", map[string]any{})

	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, got.(SearchRecipesOutput).Recipes)
	assert.NotNil(t, got.(SearchRecipesOutput).Recipes)
}

func TestSearchRecipesTool_StartOutOfRange(t *testing.T) {
	for _, start := range []float64{-1, 1 << 40} {
		called := false
		s := newTestServer(t, &MockIndex{SearchFn: func(context.Context, string, int, int) (search.Result, error) {
			called = true
			return search.Result{}, nil
		}})

		_, err := s.CallTool(context.Background(), "search_recipes", map[string]any{"query": "a", "start": start})

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr, start)
		assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code, start)
		assert.False(t, called, "the index is never asked")
	}
}

func TestSearchRecipesTool_WrongArgumentType(t *testing.T) {
	s := newTestServer(t, &MockIndex{})

	_, err := s.CallTool(context.Background(), "search_recipes", map[string]any{"query": 42})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code)
}

func TestSearchRecipesTool_IndexShuttingDown(t *testing.T) {
	s := newTestServer(t, &MockIndex{Err: search.ErrShuttingDown})

	_, err := s.CallTool(context.Background(), "search_recipes", map[string]any{"query": "a"})

	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, ErrCodeIndexUnavailable, mcpErr.Code)
}

func TestGetRecipeTool(t *testing.T) {
	// Given: an index holding the chili recipe
	index := &MockIndex{Recipes: map[string]recipe.Recipe{"best-chili": recipe.Parse(chiliText)}}
	s := newTestServer(t, index)

	// When: fetching it by slug
	got, err := s.CallTool(context.Background(), "get_recipe", map[string]any{"slug": "best-chili"})

	// Then: all extracted fields and sources are present
	require.NoError(t, err)
	out := got.(RecipeOutput)
	assert.Equal(t, "Best Chili", out.Title)
	assert.Equal(t, "Mains", out.Category)
	assert.Equal(t, "1 lb beef\n2 cans beans", out.Ingredients)
	assert.Equal(t, "brown\nBrown the beef.\n\nsimmer\nAdd beans.", out.Directions)
	require.Len(t, out.Sources, 1)
	assert.Equal(t, "The Chili Book", out.Sources[0].Name)
	assert.Equal(t, "Ann Cook", out.Sources[0].Attribution)
	assert.Contains(t, out.Sources[0].Link, "google.com")
}

func TestGetRecipeTool_Errors(t *testing.T) {
	tests := []struct {
		name  string
		index *MockIndex
		args  map[string]any
		code  int
	}{
		{"missing slug", &MockIndex{}, map[string]any{}, ErrCodeInvalidParams},
		{"blank slug", &MockIndex{}, map[string]any{"slug": "  "}, ErrCodeInvalidParams},
		{"unknown slug", &MockIndex{Recipes: map[string]recipe.Recipe{}}, map[string]any{"slug": "nope"}, ErrCodeRecipeNotFound},
		{"protocol violation", &MockIndex{Err: search.ErrProtocol}, map[string]any{"slug": "x"}, ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, tt.index)

			_, err := s.CallTool(context.Background(), "get_recipe", tt.args)

			var mcpErr *MCPError
			require.ErrorAs(t, err, &mcpErr)
			assert.Equal(t, tt.code, mcpErr.Code)
		})
	}
}

func TestReindexTool_AllWhenNoPaths(t *testing.T) {
	index := &MockIndex{}
	s := newTestServer(t, index)

	got, err := s.CallTool(context.Background(), "reindex", map[string]any{})

	require.NoError(t, err)
	assert.Equal(t, ReindexOutput{Scope: "all"}, got)
	assert.Equal(t, 1, index.ReindexedAll)
	assert.Empty(t, index.ReindexedSome)
}

func TestReindexTool_ResolvesRelativePaths(t *testing.T) {
	index := &MockIndex{}
	s := newTestServer(t, index)

	got, err := s.CallTool(context.Background(), "reindex", map[string]any{
		"paths": []any{"Mains/chili.md", "soup.md"},
	})

	require.NoError(t, err)
	assert.Equal(t, ReindexOutput{Scope: "paths", Paths: 2}, got)
	require.Len(t, index.ReindexedSome, 1)
	assert.Equal(t, []string{
		filepath.Join("/recipes", "Mains", "chili.md"),
		filepath.Join("/recipes", "soup.md"),
	}, index.ReindexedSome[0])
}

func TestReindexTool_RejectsEscapingPaths(t *testing.T) {
	index := &MockIndex{}
	s := newTestServer(t, index)

	for _, p := range []string{"../secret.md", "/etc/passwd", "a/../../b.md", "C:\\x.md"} {
		_, err := s.CallTool(context.Background(), "reindex", map[string]any{"paths": []any{p}})

		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr, p)
		assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code, p)
	}
	assert.Empty(t, index.ReindexedSome)
}

func TestReindexTool_RejectsSkippedPaths(t *testing.T) {
	index := &MockIndex{}
	s := newTestServer(t, index)

	for _, p := range []string{"_drafts/secret.md", ".hidden/soup.md", "Mains/.soup.md.swp", "."} {
		// When: asking to index a path the full reindex never visits
		_, err := s.CallTool(context.Background(), "reindex", map[string]any{"paths": []any{p}})

		// Then: it is refused and nothing reaches the index
		var mcpErr *MCPError
		require.ErrorAs(t, err, &mcpErr, p)
		assert.Equal(t, ErrCodeInvalidParams, mcpErr.Code, p)
	}
	assert.Empty(t, index.ReindexedSome)
}

func TestIsValidPath(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"soup.md", true},
		{"Mains/chili.md", true},
		{"a/./b.md", true},
		{"", false},
		{"..", false},
		{"../x.md", false},
		{"/abs.md", false},
		{"D:/x.md", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, isValidPath(tt.path), tt.path)
	}
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, clampLimit(0, 10, 1, 50))
	assert.Equal(t, 10, clampLimit(-5, 10, 1, 50))
	assert.Equal(t, 7, clampLimit(7, 10, 1, 50))
	assert.Equal(t, 50, clampLimit(99, 10, 1, 50))
}
