package search

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"runtime"
	"slices"

	"github.com/blevesearch/bleve/v2"
	bsearch "github.com/blevesearch/bleve/v2/search"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/recipe"
)

// IndexerConfig configures an Indexer.
type IndexerConfig struct {
	// RecipeDir is the root of the recipe tree.
	RecipeDir string

	// ParseWorkers bounds concurrent file parsing during ReindexAll.
	// Zero means GOMAXPROCS.
	ParseWorkers int

	// CacheSize is the number of search results kept between mutations.
	// Zero disables the cache.
	CacheSize int

	Metrics *Metrics
}

type cacheKey struct {
	query       string
	start, size int
}

// Indexer owns the bleve index. It is not safe for concurrent use: exactly
// one goroutine, the worker started by Start, may call Handle.
type Indexer struct {
	root    string
	index   bleve.Index
	workers int
	metrics *Metrics

	categories *FacetCollector
	tags       *FacetCollector

	// cache is purged on every mutation, so it never serves stale results.
	cache *lru.Cache[cacheKey, Result]

	// known tracks indexed paths so ReindexAll can drop files that vanished.
	known map[string]struct{}
}

// NewIndexer creates an Indexer over an empty in-memory index.
func NewIndexer(cfg IndexerConfig) (*Indexer, error) {
	idx, err := bleve.NewMemOnly(newIndexMapping())
	if err != nil {
		return nil, errors.New(errors.ErrCodeIndexFailed, "failed to create index", err)
	}

	workers := cfg.ParseWorkers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	ix := &Indexer{
		root:       cfg.RecipeDir,
		index:      idx,
		workers:    workers,
		metrics:    cfg.Metrics,
		categories: NewFacetCollector(""),
		tags:       NewFacetCollector(TagSeparator),
		known:      make(map[string]struct{}),
	}

	if cfg.CacheSize > 0 {
		cache, err := lru.New[cacheKey, Result](cfg.CacheSize)
		if err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("failed to create result cache: %w", err)
		}
		ix.cache = cache
	}

	return ix, nil
}

// Handle executes one request and produces its response.
func (ix *Indexer) Handle(ctx context.Context, req Request) Response {
	switch req.Kind {
	case RequestReindexAll:
		return Response{Kind: ResponseReindexed, Err: ix.reindexAll(ctx)}
	case RequestReindexSome:
		return Response{Kind: ResponseReindexed, Err: ix.reindexSome(req.Paths)}
	case RequestRemove:
		return Response{Kind: ResponseRemoved, Err: ix.remove(req.Paths)}
	case RequestSearch:
		res, err := ix.search(ctx, req.Query, req.Start, req.Size, ix.categories, ix.tags)
		return Response{Kind: ResponseSearched, Result: res, Err: err}
	default:
		return Response{Err: errors.New(errors.ErrCodeProtocolViolation,
			fmt.Sprintf("unknown request %s", req.Kind), nil)}
	}
}

// Close releases the index.
func (ix *Indexer) Close() error {
	return ix.index.Close()
}

func (ix *Indexer) reindexAll(ctx context.Context) error {
	var paths []string
	err := recipe.Walk(ix.root, func(path string) error {
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return errors.New(errors.ErrCodeRecipeDirMissing, "cannot walk recipe directory", err).
			WithDetail("path", ix.root)
	}

	// Parsing is the slow part and touches no shared state; only the
	// batch below writes to the index.
	loaded := make([]*recipe.Recipe, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(ix.workers)
	for i, path := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := recipe.Load(path)
			if err != nil {
				ix.metrics.parseFailure()
				slog.Warn("recipe_skipped",
					slog.String("path", path),
					slog.String("error", err.Error()))
				return nil
			}
			loaded[i] = &r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	batch := ix.index.NewBatch()
	walked := make(map[string]struct{}, len(paths))
	for i, path := range paths {
		walked[path] = struct{}{}
		if loaded[i] == nil {
			continue
		}
		if err := ix.addToBatch(batch, path, *loaded[i]); err != nil {
			return err
		}
	}
	for path := range ix.known {
		if _, ok := walked[path]; !ok {
			batch.Delete(DocumentKey(path))
		}
	}

	if err := ix.index.Batch(batch); err != nil {
		return errors.New(errors.ErrCodeIndexFailed, "failed to apply reindex batch", err)
	}

	// A file that fails to load keeps its previous document, so it stays
	// tracked until it vanishes from the tree.
	known := make(map[string]struct{}, len(paths))
	for i, path := range paths {
		_, wasKnown := ix.known[path]
		if loaded[i] != nil || wasKnown {
			known[path] = struct{}{}
		}
	}
	ix.known = known
	ix.mutated()

	slog.Info("reindexed_all",
		slog.String("root", ix.root),
		slog.Int("files", len(paths)),
		slog.Int("indexed", len(ix.known)))
	return nil
}

func (ix *Indexer) reindexSome(paths []string) error {
	batch := ix.index.NewBatch()
	var indexed []string
	for _, path := range paths {
		r, err := recipe.Load(path)
		if err != nil {
			slog.Debug("recipe_not_loaded",
				slog.String("path", path),
				slog.String("error", err.Error()))
			continue
		}
		if err := ix.addToBatch(batch, path, r); err != nil {
			return err
		}
		indexed = append(indexed, path)
	}
	if batch.Size() == 0 {
		return nil
	}

	if err := ix.index.Batch(batch); err != nil {
		return errors.New(errors.ErrCodeIndexFailed, "failed to apply reindex batch", err)
	}
	for _, path := range indexed {
		ix.known[path] = struct{}{}
	}
	ix.mutated()
	return nil
}

func (ix *Indexer) remove(paths []string) error {
	if len(paths) == 0 {
		return nil
	}

	batch := ix.index.NewBatch()
	for _, path := range paths {
		batch.Delete(DocumentKey(path))
	}
	if err := ix.index.Batch(batch); err != nil {
		return errors.New(errors.ErrCodeIndexFailed, "failed to apply delete batch", err)
	}
	for _, path := range paths {
		delete(ix.known, path)
	}
	ix.mutated()
	return nil
}

func (ix *Indexer) addToBatch(batch *bleve.Batch, path string, r recipe.Recipe) error {
	doc, err := newDocument(path, r)
	if err != nil {
		return errors.New(errors.ErrCodeIndexFailed, "failed to build document", err).
			WithDetail("path", path)
	}
	if err := batch.Index(DocumentKey(path), doc); err != nil {
		return errors.New(errors.ErrCodeIndexFailed, "failed to index document", err).
			WithDetail("path", path)
	}
	return nil
}

func (ix *Indexer) mutated() {
	if ix.cache != nil {
		ix.cache.Purge()
	}
	if n, err := ix.index.DocCount(); err == nil {
		ix.metrics.setDocuments(n)
	}
}

// search runs q and fills the two collectors from the facet pass over
// every match, then decodes the requested page of payloads.
func (ix *Indexer) search(ctx context.Context, q string, start, size int, categories, tags *FacetCollector) (Result, error) {
	key := cacheKey{query: q, start: start, size: size}
	if ix.cache != nil {
		if res, ok := ix.cache.Get(key); ok {
			ix.metrics.cacheHit()
			return cloneResult(res), nil
		}
	}

	categories.Reset()
	tags.Reset()

	count, err := ix.index.DocCount()
	if err != nil {
		return Result{}, errors.New(errors.ErrCodeSearchFailed, "failed to count documents", err)
	}
	facetSize := max(int(count), 1)

	req := bleve.NewSearchRequestOptions(Translate(q), size, start, false)
	req.Fields = []string{FieldPayload}
	req.SortBy([]string{"-_score", "_id"})
	req.AddFacet(SlotCategory, bleve.NewFacetRequest(SlotCategory, facetSize))
	req.AddFacet(SlotTags, bleve.NewFacetRequest(SlotTags, facetSize))

	sr, err := ix.index.SearchInContext(ctx, req)
	if err != nil {
		return Result{}, errors.New(errors.ErrCodeSearchFailed, "search failed", err).
			WithDetail("query", q)
	}

	observeFacet(sr.Facets[SlotCategory], categories)
	observeFacet(sr.Facets[SlotTags], tags)

	docs := make([]recipe.Recipe, 0, len(sr.Hits))
	for _, hit := range sr.Hits {
		payload, _ := hit.Fields[FieldPayload].(string)
		var r recipe.Recipe
		if err := json.Unmarshal([]byte(payload), &r); err != nil {
			slog.Warn("payload_decode_failed",
				slog.String("id", hit.ID),
				slog.String("error", err.Error()))
			continue
		}
		docs = append(docs, r)
	}

	res := Result{
		Documents:  docs,
		Categories: categories.Facets(),
		Tags:       tags.Facets(),
		Total:      sr.Total,
	}
	if ix.cache != nil {
		ix.cache.Add(key, cloneResult(res))
	}
	return res, nil
}

func observeFacet(fr *bsearch.FacetResult, c *FacetCollector) {
	if fr == nil || fr.Terms == nil {
		return
	}
	for _, tf := range fr.Terms.Terms() {
		c.Observe(tf.Term, tf.Count)
	}
}

func cloneResult(r Result) Result {
	return Result{
		Documents:  slices.Clone(r.Documents),
		Categories: maps.Clone(r.Categories),
		Tags:       maps.Clone(r.Tags),
		Total:      r.Total,
	}
}
