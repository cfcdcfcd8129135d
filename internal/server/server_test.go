package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/importer"
	"github.com/Aman-CERP/pantry/internal/recipe"
	"github.com/Aman-CERP/pantry/internal/search"
)

func TestIndex_RedirectsToSearch(t *testing.T) {
	h := newTestServer(t, newFakeIndex(), nil).Handler()

	res, _ := do(t, h, http.MethodGet, "/")

	assert.Equal(t, http.StatusTemporaryRedirect, res.StatusCode)
	assert.Equal(t, "/search", res.Header.Get("Location"))
}

func TestSearch_NoQueryRendersEmptyPage(t *testing.T) {
	// Given an index that would answer
	index := newFakeIndex()
	index.result = search.Result{Total: 1, Documents: []recipe.Recipe{recipe.Parse(toastText)}}
	h := newTestServer(t, index, nil).Handler()

	// When the search page is opened without a query
	res, body := do(t, h, http.MethodGet, "/search")

	// Then the page renders without asking the index
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, res.Header.Get("Content-Type"), "text/html")
	assert.Contains(t, body, `name="query"`)
	assert.NotContains(t, body, "French Toast")
	assert.Empty(t, index.searches)
}

func TestSearch_RendersResultsAndFacets(t *testing.T) {
	// Given two matches in different categories
	index := newFakeIndex()
	index.result = search.Result{
		Total:      2,
		Documents:  []recipe.Recipe{recipe.Parse(toastText), recipe.Parse(soupText)},
		Categories: map[string]int{"Breakfast": 1, "Soups": 1},
		Tags:       map[string]int{"quick": 2},
	}
	h := newTestServer(t, index, nil).Handler()

	// When searching
	res, body := do(t, h, http.MethodGet, "/search?query=tag:quick")

	// Then both recipes link to their pages
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `href="/recipe/french-toast"`)
	assert.Contains(t, body, `href="/recipe/tomato-soup"`)
	assert.Contains(t, body, "Eggy bread.")

	// And the category facet is shown, the single-valued tag facet is not
	assert.Contains(t, body, "Categories")
	assert.NotContains(t, body, "<summary>Tags</summary>")

	// And the default page size was used
	call := index.lastSearch(t)
	assert.Equal(t, searchCall{"tag:quick", 0, 10}, call)
}

func TestSearch_PassesPagination(t *testing.T) {
	index := newFakeIndex()
	index.result = search.Result{Total: 30}
	h := newTestServer(t, index, nil).Handler()

	res, body := do(t, h, http.MethodGet, "/search?query=soup&start=10&size=5")

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, searchCall{"soup", 10, 5}, index.lastSearch(t))
	assert.Contains(t, body, `rel="prev"`)
	assert.Contains(t, body, `rel="next"`)
	assert.Contains(t, body, "No recipes found.")
}

func TestSearch_ErrorStatuses(t *testing.T) {
	tests := []struct {
		name   string
		target string
		err    error
		want   int
	}{
		{"bad start", "/search?query=a&start=x", nil, http.StatusBadRequest},
		{"negative size", "/search?query=a&size=-1", nil, http.StatusBadRequest},
		{"start past uint32", "/search?query=a&start=9223372036854775807", nil, http.StatusBadRequest},
		{"size past uint32", "/search?query=a&size=4294967296", nil, http.StatusBadRequest},
		{"shutting down", "/search?query=a", search.ErrShuttingDown, http.StatusServiceUnavailable},
		{"protocol violation", "/search?query=a", search.ErrProtocol, http.StatusInternalServerError},
		{"timeout", "/search?query=a", errors.New(errors.ErrCodeIndexTimeout, "timed out", nil), http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			index := newFakeIndex()
			index.err = tt.err
			h := newTestServer(t, index, nil).Handler()

			res, body := do(t, h, http.MethodGet, tt.target)

			assert.Equal(t, tt.want, res.StatusCode)
			assert.Contains(t, body, "<h1>")
		})
	}
}

func TestRecipe_RendersPage(t *testing.T) {
	// Given an indexed recipe
	index := newFakeIndex()
	index.add(toastText)
	h := newTestServer(t, index, nil).Handler()

	// When its page is requested
	res, body := do(t, h, http.MethodGet, "/recipe/french-toast")

	// Then the rendered body is embedded unescaped
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "<h1>French Toast</h1>")
	assert.Contains(t, body, `<h2 id="ingredients">`)
	assert.Contains(t, body, "<li>eggs</li>")

	// And the metadata links back into search
	assert.Contains(t, body, `href="https://example.com/toast"`)
	assert.Contains(t, body, "Example Kitchen")
	assert.Contains(t, body, "#sweet")
	assert.Contains(t, body, "/search?query=category%3ABreakfast")
	assert.Contains(t, body, "list-checker.js")
}

func TestRecipe_UnknownSlugIsNotFound(t *testing.T) {
	h := newTestServer(t, newFakeIndex(), nil).Handler()

	res, body := do(t, h, http.MethodGet, "/recipe/nope")

	assert.Equal(t, http.StatusNotFound, res.StatusCode)
	assert.Contains(t, body, "Content not found!")
}

func TestImport(t *testing.T) {
	imported := importer.Imported{
		Metadata: recipe.MetaData{Title: "Remote Chili", Category: importer.Category},
		Markdown: "Spicy.\n\n## Ingredients\n\n- beans\n",
	}

	t.Run("renders the remote recipe", func(t *testing.T) {
		imp := &fakeImporter{imported: imported}
		h := newTestServer(t, newFakeIndex(), imp).Handler()

		res, body := do(t, h, http.MethodGet, "/recipe?url=https%3A%2F%2Fchili.example%2Fbest")

		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Equal(t, []string{"https://chili.example/best"}, imp.urls)
		assert.Contains(t, body, "<h1>Remote Chili</h1>")
		assert.Contains(t, body, "<li>beans</li>")
	})

	t.Run("missing url", func(t *testing.T) {
		h := newTestServer(t, newFakeIndex(), &fakeImporter{}).Handler()
		res, _ := do(t, h, http.MethodGet, "/recipe")
		assert.Equal(t, http.StatusBadRequest, res.StatusCode)
	})

	t.Run("no recipe on page", func(t *testing.T) {
		imp := &fakeImporter{err: errors.New(errors.ErrCodeNotFound, "no recipe", nil)}
		h := newTestServer(t, newFakeIndex(), imp).Handler()
		res, _ := do(t, h, http.MethodGet, "/recipe?url=https://a.example/")
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})

	t.Run("remote unreachable", func(t *testing.T) {
		imp := &fakeImporter{err: errors.New(errors.ErrCodeNetworkUnavailable, "refused", nil)}
		h := newTestServer(t, newFakeIndex(), imp).Handler()
		res, _ := do(t, h, http.MethodGet, "/recipe?url=https://a.example/")
		assert.Equal(t, http.StatusBadGateway, res.StatusCode)
	})

	t.Run("disabled", func(t *testing.T) {
		h := newTestServer(t, newFakeIndex(), nil).Handler()
		res, _ := do(t, h, http.MethodGet, "/recipe?url=https://a.example/")
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
	})
}

func TestAPISearch_ReturnsJSON(t *testing.T) {
	index := newFakeIndex()
	index.result = search.Result{
		Total:      1,
		Documents:  []recipe.Recipe{recipe.Parse(soupText)},
		Categories: map[string]int{"Soups": 1},
		Tags:       map[string]int{"quick": 1},
	}
	h := newTestServer(t, index, nil).Handler()

	res, body := do(t, h, http.MethodGet, "/api/search?query=soup&size=3")

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))

	var got struct {
		Documents []struct {
			Metadata struct {
				Title string `json:"title"`
			} `json:"metadata"`
		} `json:"documents"`
		Categories map[string]int `json:"categories"`
		Total      int            `json:"total"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	require.Len(t, got.Documents, 1)
	assert.Equal(t, "Tomato Soup", got.Documents[0].Metadata.Title)
	assert.Equal(t, map[string]int{"Soups": 1}, got.Categories)
	assert.Equal(t, 1, got.Total)
	assert.Equal(t, searchCall{"soup", 0, 3}, index.lastSearch(t))
}

func TestAPISearch_EmptyResultHasEmptyList(t *testing.T) {
	h := newTestServer(t, newFakeIndex(), nil).Handler()

	_, body := do(t, h, http.MethodGet, "/api/search?query=nothing")

	assert.Contains(t, body, `"documents":[]`)
}

func TestAPIRecipe(t *testing.T) {
	index := newFakeIndex()
	index.add(toastText)
	h := newTestServer(t, index, nil).Handler()

	t.Run("found", func(t *testing.T) {
		res, body := do(t, h, http.MethodGet, "/api/recipes/french-toast")
		require.Equal(t, http.StatusOK, res.StatusCode)
		assert.Contains(t, body, `"title":"French Toast"`)
		assert.Contains(t, body, `"url":"https://example.com/toast"`)
	})

	t.Run("not found carries the error code", func(t *testing.T) {
		res, body := do(t, h, http.MethodGet, "/api/recipes/missing")
		require.Equal(t, http.StatusNotFound, res.StatusCode)

		var got struct {
			Error struct {
				Code    string            `json:"code"`
				Details map[string]string `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal([]byte(body), &got))
		assert.Equal(t, errors.ErrCodeNotFound, got.Error.Code)
		assert.Equal(t, "missing", got.Error.Details["slug"])
	})
}

func TestAPIReindex(t *testing.T) {
	index := newFakeIndex()
	h := newTestServer(t, index, nil).Handler()

	res, _ := do(t, h, http.MethodPost, "/api/reindex")
	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, 1, index.reindexed)

	res, _ = do(t, h, http.MethodGet, "/api/reindex")
	assert.Equal(t, http.StatusMethodNotAllowed, res.StatusCode)
	assert.Equal(t, 1, index.reindexed)
}

func TestAPIReindex_ShuttingDown(t *testing.T) {
	index := newFakeIndex()
	index.err = search.ErrShuttingDown
	h := newTestServer(t, index, nil).Handler()

	res, body := do(t, h, http.MethodPost, "/api/reindex")

	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Contains(t, body, errors.ErrCodeShuttingDown)
}

func TestAssets(t *testing.T) {
	h := newTestServer(t, newFakeIndex(), nil).Handler()

	tests := []struct {
		path   string
		status int
		ctype  string
	}{
		{"/assets/js/theme-switcher.js", http.StatusOK, "javascript"},
		{"/assets/js/list-checker.js", http.StatusOK, "javascript"},
		{"/assets/css/pantry.css", http.StatusOK, "text/css"},
		{"/assets/js/missing.js", http.StatusNotFound, ""},
		{"/assets/js", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res, _ := do(t, h, http.MethodGet, tt.path)
			assert.Equal(t, tt.status, res.StatusCode)
			if tt.ctype != "" {
				assert.Contains(t, res.Header.Get("Content-Type"), tt.ctype)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	index := newFakeIndex()
	h := newTestServer(t, index, nil).Handler()

	res, _ := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, res.StatusCode)

	close(index.done)
	res, body := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
	assert.Contains(t, body, "shutting_down")
}

func TestMetrics_CountsRequests(t *testing.T) {
	h := newTestServer(t, newFakeIndex(), nil).Handler()

	do(t, h, http.MethodGet, "/recipe/a")
	do(t, h, http.MethodGet, "/recipe/b")
	res, body := do(t, h, http.MethodGet, "/metrics")

	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, `pantry_http_requests_total{method="GET",route="/recipe/{slug}",status="404"} 2`)
}

func TestRequestID(t *testing.T) {
	h := newTestServer(t, newFakeIndex(), nil).Handler()

	t.Run("assigned when absent", func(t *testing.T) {
		res, _ := do(t, h, http.MethodGet, "/healthz")
		_, err := uuid.Parse(res.Header.Get(RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("echoed when valid", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, id)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
	})

	t.Run("replaced when malformed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
		req.Header.Set(RequestIDHeader, "<script>")
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.NotEqual(t, "<script>", rec.Header().Get(RequestIDHeader))
	})
}

func TestServer_WithAsyncIndex(t *testing.T) {
	// Given a recipe tree indexed by a running actor
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "Breakfast"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Breakfast", "toast.md"), []byte(toastText), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "soup.md"), []byte(soupText), 0o644))

	ix, err := search.NewIndexer(search.IndexerConfig{RecipeDir: dir, ParseWorkers: 2})
	require.NoError(t, err)
	index := search.Start(ix, search.Options{})
	t.Cleanup(func() { _ = index.Close() })
	require.NoError(t, index.ReindexAll(t.Context()))

	h := newTestServer(t, index, nil).Handler()

	// When searching by tag
	res, body := do(t, h, http.MethodGet, "/search?query=tag:quick")

	// Then both recipes are listed with a category facet
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "French Toast")
	assert.Contains(t, body, "Tomato Soup")
	assert.Contains(t, body, "Categories")

	// And each recipe page resolves by slug
	res, body = do(t, h, http.MethodGet, "/recipe/tomato-soup")
	require.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, body, "Warm and red.")

	// And closing the index turns requests into 503s
	require.NoError(t, index.Close())
	res, _ = do(t, h, http.MethodGet, "/recipe/tomato-soup")
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)
}
