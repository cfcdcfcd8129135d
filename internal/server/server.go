// Package server is the HTTP front end: HTML search and recipe pages, a
// small JSON API over the same index, embedded static assets, health and
// Prometheus metrics.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Aman-CERP/pantry/internal/config"
	"github.com/Aman-CERP/pantry/internal/importer"
	"github.com/Aman-CERP/pantry/internal/recipe"
	"github.com/Aman-CERP/pantry/internal/search"
)

// Index is the part of the search index the server needs.
// *search.AsyncIndex satisfies it.
type Index interface {
	Search(ctx context.Context, query string, start, size int) (search.Result, error)
	Recipe(ctx context.Context, slug string) (recipe.Recipe, bool, error)
	ReindexAll(ctx context.Context) error
	Done() <-chan struct{}
}

// Importer fetches remote recipe pages. *importer.Importer satisfies it.
type Importer interface {
	Import(ctx context.Context, rawURL string) (importer.Imported, error)
}

// Options configures the server.
type Options struct {
	// PageSize is used when a search does not ask for one.
	PageSize int
	// RequestTimeout bounds each request's context. Zero disables it.
	RequestTimeout time.Duration
	// Registry receives the HTTP collectors and backs /metrics.
	// Nil uses a private registry.
	Registry *prometheus.Registry
	Logger   *slog.Logger
}

// Server serves the pantry web interface.
type Server struct {
	index    Index
	importer Importer
	pages    *pages
	opts     Options
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *Metrics
}

// New builds a Server. imp may be nil, which disables /recipe?url=.
func New(index Index, imp Importer, opts Options) (*Server, error) {
	p, err := parsePages()
	if err != nil {
		return nil, err
	}
	if opts.PageSize <= 0 {
		opts.PageSize = config.DefaultPageSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	return &Server{
		index:    index,
		importer: imp,
		pages:    p,
		opts:     opts,
		logger:   logger,
		registry: reg,
		metrics:  NewMetrics(reg),
	}, nil
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /search", s.handleSearch)
	mux.HandleFunc("GET /recipe", s.handleImport)
	mux.HandleFunc("GET /recipe/{slug}", s.handleRecipe)

	mux.HandleFunc("GET /api/search", s.handleAPISearch)
	mux.HandleFunc("GET /api/recipes/{slug}", s.handleAPIRecipe)
	mux.HandleFunc("POST /api/reindex", s.handleAPIReindex)

	mux.HandleFunc("GET /assets/{file...}", handleAsset)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("GET /healthz", s.handleHealth)

	// Applied inside-out: the request ID is assigned first.
	var chain http.Handler = mux
	chain = Timeout(s.opts.RequestTimeout)(chain)
	chain = Instrument(s.metrics)(chain)
	chain = AccessLog(s.logger)(chain)
	chain = RequestID(chain)
	return chain
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", slog.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != http.ErrServerClosed {
		return err
	}
	return nil
}
