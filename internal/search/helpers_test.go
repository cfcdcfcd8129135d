package search

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/pantry/internal/recipe"
)

type fixture struct {
	title    string
	category string
	tags     []string
	sources  string
	body     string
}

func (f fixture) text() string {
	var sb strings.Builder
	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", f.title)
	fmt.Fprintf(&sb, "category: %s\n", f.category)
	if len(f.tags) > 0 {
		fmt.Fprintf(&sb, "tags: [%s]\n", strings.Join(f.tags, ", "))
	}
	if f.sources != "" {
		sb.WriteString("sources:\n" + f.sources)
	}
	sb.WriteString("---\n")
	body := f.body
	if body == "" {
		body = "A recipe.\n\n## Ingredients\n\n- salt\n\n## Directions\n\n- Cook it.\n"
	}
	sb.WriteString(body)
	return sb.String()
}

func writeRecipe(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestIndexer(t *testing.T, dir string) *Indexer {
	t.Helper()
	ix, err := NewIndexer(IndexerConfig{RecipeDir: dir, ParseWorkers: 2, CacheSize: 16})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

// do runs req directly on the indexer and fails the test on error.
func do(t *testing.T, ix *Indexer, req Request) Response {
	t.Helper()
	resp := ix.Handle(context.Background(), req)
	require.NoError(t, resp.Err)
	require.Equal(t, req.Kind.Expects(), resp.Kind)
	return resp
}

func searchAll(t *testing.T, ix *Indexer, q string) Result {
	t.Helper()
	return do(t, ix, Request{Kind: RequestSearch, Query: q, Start: 0, Size: 100}).Result
}

func titles(docs []recipe.Recipe) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		title, ok := d.Title()
		if !ok {
			title = "<untitled>"
		}
		out = append(out, title)
	}
	return out
}
