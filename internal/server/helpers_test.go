package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/pantry/internal/importer"
	"github.com/Aman-CERP/pantry/internal/recipe"
	"github.com/Aman-CERP/pantry/internal/search"
)

const toastText = `---
title: French Toast
category: Breakfast
tags: [sweet, quick]
sources:
  - name: Example Kitchen
    url: https://example.com/toast
---
Eggy bread.

## Ingredients

- bread
- eggs

## Directions

- Soak the bread.
- Fry it.
`

const soupText = `---
title: Tomato Soup
category: Soups
tags: [quick]
---
Warm and red.
`

// fakeIndex records calls and answers from canned values.
type fakeIndex struct {
	mu sync.Mutex

	result  search.Result
	recipes map[string]recipe.Recipe
	err     error
	done    chan struct{}

	searches  []searchCall
	reindexed int
}

type searchCall struct {
	query       string
	start, size int
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		recipes: map[string]recipe.Recipe{},
		done:    make(chan struct{}),
	}
}

func (f *fakeIndex) add(text string) recipe.Recipe {
	r := recipe.Parse(text)
	slug, _ := r.Slug()
	f.recipes[slug] = r
	return r
}

func (f *fakeIndex) Search(_ context.Context, query string, start, size int) (search.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searches = append(f.searches, searchCall{query, start, size})
	if f.err != nil {
		return search.Result{}, f.err
	}
	return f.result, nil
}

func (f *fakeIndex) Recipe(_ context.Context, slug string) (recipe.Recipe, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return recipe.Recipe{}, false, f.err
	}
	r, ok := f.recipes[slug]
	return r, ok, nil
}

func (f *fakeIndex) ReindexAll(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reindexed++
	return f.err
}

func (f *fakeIndex) Done() <-chan struct{} { return f.done }

func (f *fakeIndex) lastSearch(t *testing.T) searchCall {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.searches)
	return f.searches[len(f.searches)-1]
}

type fakeImporter struct {
	imported importer.Imported
	err      error
	urls     []string
}

func (f *fakeImporter) Import(_ context.Context, rawURL string) (importer.Imported, error) {
	f.urls = append(f.urls, rawURL)
	return f.imported, f.err
}

func newTestServer(t *testing.T, index Index, imp Importer) *Server {
	t.Helper()
	s, err := New(index, imp, Options{PageSize: 10})
	require.NoError(t, err)
	return s
}

// do sends a request through the full middleware chain.
func do(t *testing.T, h http.Handler, method, target string) (*http.Response, string) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	res := rec.Result()
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, string(body)
}
