package cmd

import (
	"context"
	stderrors "errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/Aman-CERP/pantry/internal/config"
	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/importer"
	"github.com/Aman-CERP/pantry/internal/lockfile"
	"github.com/Aman-CERP/pantry/internal/logging"
	"github.com/Aman-CERP/pantry/internal/mcp"
	"github.com/Aman-CERP/pantry/internal/search"
	"github.com/Aman-CERP/pantry/internal/server"
	"github.com/Aman-CERP/pantry/internal/watcher"
)

type serveOptions struct {
	listenOn  string
	recipeDir string
	mcp       bool
	noWatch   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the recipe index over HTTP",
		Long: `Index the recipe directory and serve it over HTTP.

The recipe directory is watched, so edits show up in search results
without a restart. Only one server may use a recipe directory at a time.

With --mcp, pantry also speaks the Model Context Protocol on stdin and
stdout, and exits when the client disconnects. Nothing else is written
to stdout in that mode.`,
		Example: `  pantry serve
  pantry serve --listen-on 0.0.0.0:8080 --recipe-dir ~/recipes
  pantry serve --mcp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.listenOn, "listen-on", "", "Address to listen on (default from config, 127.0.0.1:3000)")
	cmd.Flags().StringVar(&opts.recipeDir, "recipe-dir", "", "Recipe directory (overrides config)")
	cmd.Flags().BoolVar(&opts.mcp, "mcp", false, "Also serve MCP over stdio")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not watch the recipe directory for changes")

	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if opts.listenOn != "" {
		cfg.Server.ListenOn = opts.listenOn
	}
	if opts.recipeDir != "" {
		cfg.Index.RecipeDir = opts.recipeDir
	}
	if opts.noWatch {
		cfg.Watch.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	dir, err := cfg.ResolveRecipeDir()
	if err != nil {
		return err
	}

	if !debugMode {
		cleanup, err := logging.Install(logging.Config{
			Level:     cfg.Logging.Level,
			FilePath:  cfg.Logging.File,
			MaxSizeMB: cfg.Logging.MaxSizeMB,
			MaxFiles:  cfg.Logging.MaxFiles,
			Stderr:    !opts.mcp,
		})
		if err != nil {
			return err
		}
		defer cleanup()
	}

	lock := lockfile.ForRecipeDir(lockfile.DefaultDir(), dir)
	if err := lock.TryLock(); err != nil {
		return err
	}
	defer func() { _ = lock.Unlock() }()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.New(errors.ErrCodeRecipeDirMissing, "failed to create recipe directory", err).
			WithDetail("path", dir)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	index, err := openIndex(cfg, dir, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := index.Close(); err != nil {
			slog.Warn("index_close_failed", slog.String("error", err.Error()))
		}
	}()

	slog.Info("serve_starting",
		slog.String("recipe_dir", dir),
		slog.String("listen_on", cfg.Server.ListenOn),
		slog.Bool("watch", cfg.Watch.Enabled),
		slog.Bool("mcp", opts.mcp))

	g, ctx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		if err := startWatching(ctx, g, cfg, dir, index); err != nil {
			return err
		}
	} else if err := index.ReindexAll(ctx); err != nil {
		logReindexFailure(err)
	}

	srv, err := server.New(index, importer.New(importer.DefaultOptions()), server.Options{
		PageSize:       cfg.Server.PageSize,
		RequestTimeout: cfg.Server.WriteTimeout,
		Registry:       reg,
	})
	if err != nil {
		return err
	}
	g.Go(func() error {
		return srv.ListenAndServe(ctx, cfg.Server.ListenOn, cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)
	})

	if opts.mcp {
		mcpSrv, err := mcp.NewServer(index, dir)
		if err != nil {
			return err
		}
		g.Go(func() error {
			// The client closing stdio ends the whole server. Serve has
			// already logged how the session ended.
			defer cancel()
			_ = mcpSrv.Serve(ctx, "stdio")
			return nil
		})
	}

	err = g.Wait()
	if stderrors.Is(err, context.Canceled) {
		err = nil
	}
	slog.Info("serve_stopped")
	return err
}

// startWatching runs the watcher and the reloader under g. The initial
// reindex waits until the watch set is in place, so a change made while
// the directory is being indexed is not lost.
func startWatching(ctx context.Context, g *errgroup.Group, cfg *config.Config, dir string, index *search.AsyncIndex) error {
	w, err := watcher.NewHybridWatcher(watcher.Options{
		PollInterval: cfg.Watch.PollInterval,
		ForcePolling: cfg.Watch.ForcePolling,
	})
	if err != nil {
		return err
	}

	g.Go(func() error {
		if err := w.Start(ctx, dir); err != nil && !stderrors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		for err := range w.Errors() {
			slog.Warn("watcher_error", slog.String("error", err.Error()))
		}
		return nil
	})

	g.Go(func() error {
		select {
		case <-w.Ready():
		case <-ctx.Done():
			return nil
		}
		slog.Info("watcher_ready", slog.String("mode", w.Mode()))

		if err := index.ReindexAll(ctx); err != nil {
			logReindexFailure(err)
		}

		err := watcher.NewReloader(index).Run(ctx, w.Events())
		if stderrors.Is(err, context.Canceled) || errors.GetCode(err) == errors.ErrCodeShuttingDown {
			return nil
		}
		return err
	})
	return nil
}

func logReindexFailure(err error) {
	attrs := append([]any{slog.String("op", "reindex_all")}, errors.LogAttrs(err)...)
	slog.Error("initial_reindex_failed", attrs...)
}
