package watcher

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/Aman-CERP/pantry/internal/recipe"
)

// HybridWatcher implements the Watcher interface using fsnotify as the primary
// watching mechanism with polling as a fallback.
type HybridWatcher struct {
	fsWatcher   *fsnotify.Watcher
	pollWatcher *PollingWatcher
	useFsnotify bool

	events chan Event
	errors chan error
	stopCh chan struct{}
	ready  chan struct{}

	rootPath string
	opts     Options

	// dirs and files are what fsnotify mode knows to exist, so that a
	// removed or renamed directory can be expanded into per-file events.
	dirs  map[string]struct{}
	files map[string]struct{}

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

var _ Watcher = (*HybridWatcher)(nil)

// NewHybridWatcher creates a new hybrid watcher with the given options.
// Attempts to use fsnotify first, falls back to polling if it fails.
func NewHybridWatcher(opts Options) (*HybridWatcher, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	opts = opts.WithDefaults()

	h := &HybridWatcher{
		events: make(chan Event, opts.EventBufferSize),
		errors: make(chan error, 10),
		stopCh: make(chan struct{}),
		ready:  make(chan struct{}),
		opts:   opts,
		dirs:   make(map[string]struct{}),
		files:  make(map[string]struct{}),
	}

	if !opts.ForcePolling {
		fsw, err := fsnotify.NewWatcher()
		if err == nil {
			h.fsWatcher = fsw
			h.useFsnotify = true
			return h, nil
		}
		slog.Warn("fsnotify_unavailable",
			slog.String("error", err.Error()),
			slog.String("fallback", "polling"))
	}

	h.pollWatcher = NewPollingWatcher(opts.PollInterval, opts.EventBufferSize)
	return h, nil
}

// Start watches root until Stop is called or ctx is done. It blocks.
func (h *HybridWatcher) Start(ctx context.Context, root string) error {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}

	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.started = true
	h.rootPath = absPath
	h.mu.Unlock()
	defer h.closeChannels()

	if h.useFsnotify {
		return h.startFsnotify(ctx)
	}
	return h.startPolling(ctx)
}

// Ready is closed once the initial watch set is in place.
func (h *HybridWatcher) Ready() <-chan struct{} {
	return h.ready
}

func (h *HybridWatcher) startFsnotify(ctx context.Context) error {
	if err := h.addRecursive(h.rootPath, false); err != nil {
		return fmt.Errorf("add directories to watcher: %w", err)
	}
	close(h.ready)

	for {
		select {
		case <-ctx.Done():
			_ = h.Stop()
			return ctx.Err()
		case <-h.stopCh:
			return nil
		case event, ok := <-h.fsWatcher.Events:
			if !ok {
				return nil
			}
			h.handleFsnotifyEvent(event)
		case err, ok := <-h.fsWatcher.Errors:
			if !ok {
				return nil
			}
			h.emitError(err)
		}
	}
}

func (h *HybridWatcher) startPolling(ctx context.Context) error {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		events, errs := h.pollWatcher.Events(), h.pollWatcher.Errors()
		for events != nil || errs != nil {
			select {
			case ev, ok := <-events:
				if !ok {
					events = nil
					continue
				}
				h.emit(ev)
			case err, ok := <-errs:
				if !ok {
					errs = nil
					continue
				}
				h.emitError(err)
			}
		}
	}()

	go func() {
		select {
		case <-h.pollWatcher.Ready():
			close(h.ready)
		case <-h.stopCh:
		}
	}()

	err := h.pollWatcher.Start(ctx, h.rootPath)
	_ = h.pollWatcher.Stop()
	wg.Wait()
	return err
}

// handleFsnotifyEvent classifies one fsnotify event.
func (h *HybridWatcher) handleFsnotifyEvent(event fsnotify.Event) {
	path := event.Name
	if !recipe.Eligible(h.rootPath, path) {
		return
	}

	switch {
	case event.Has(fsnotify.Create):
		info, err := os.Stat(path)
		if err != nil {
			return // gone again already; its Remove follows
		}
		if info.IsDir() {
			// Files may land in a new directory before it is watched.
			_ = h.addRecursive(path, true)
			return
		}
		h.files[path] = struct{}{}
		h.emit(Update(path))

	case event.Has(fsnotify.Write):
		if _, isDir := h.dirs[path]; isDir {
			return
		}
		h.files[path] = struct{}{}
		h.emit(Update(path))

	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		// A rename reports the old name; the new name arrives as a Create.
		if _, isDir := h.dirs[path]; isDir {
			h.forgetDir(path)
			return
		}
		delete(h.files, path)
		h.emit(Remove(path))
	}
}

// addRecursive watches dir and every non-hidden directory below it. When
// announce is set, files found on the way are reported as Updates.
func (h *HybridWatcher) addRecursive(dir string, announce bool) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil // Skip entries we can't access
		}
		if path != h.rootPath && recipe.Hidden(d.Name()) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if !d.IsDir() {
			h.files[path] = struct{}{}
			if announce {
				h.emit(Update(path))
			}
			return nil
		}

		if err := h.fsWatcher.Add(path); err != nil {
			if path == h.rootPath {
				return err
			}
			h.emitError(fmt.Errorf("watch %s: %w", path, err))
			return filepath.SkipDir
		}
		h.dirs[path] = struct{}{}
		return nil
	})
}

// forgetDir drops a vanished directory and reports every file known below it.
func (h *HybridWatcher) forgetDir(dir string) {
	prefix := dir + string(filepath.Separator)
	for d := range h.dirs {
		if d == dir || strings.HasPrefix(d, prefix) {
			delete(h.dirs, d)
		}
	}

	var gone []string
	for f := range h.files {
		if strings.HasPrefix(f, prefix) {
			gone = append(gone, f)
		}
	}
	slices.Sort(gone)
	for _, f := range gone {
		delete(h.files, f)
		h.emit(Remove(f))
	}
}

// emit delivers ev unless the watcher is stopping. It blocks rather than
// drop: every change must reach the index.
func (h *HybridWatcher) emit(ev Event) {
	select {
	case h.events <- ev:
	case <-h.stopCh:
	}
}

// emitError sends an error to the error channel, dropping it if nobody listens.
func (h *HybridWatcher) emitError(err error) {
	select {
	case h.errors <- err:
	default:
		slog.Warn("watcher_error", slog.String("error", err.Error()))
	}
}

func (h *HybridWatcher) closeChannels() {
	h.closeOnce.Do(func() {
		close(h.events)
		close(h.errors)
	})
}

// Stop stops the watcher and releases resources.
func (h *HybridWatcher) Stop() error {
	h.mu.Lock()
	if h.stopped {
		h.mu.Unlock()
		return nil
	}
	h.stopped = true
	started := h.started
	close(h.stopCh)
	h.mu.Unlock()

	if h.fsWatcher != nil {
		_ = h.fsWatcher.Close()
	}
	if h.pollWatcher != nil {
		_ = h.pollWatcher.Stop()
	}
	if !started {
		h.closeChannels()
	}
	return nil
}

// Events returns the channel of classified events.
func (h *HybridWatcher) Events() <-chan Event {
	return h.events
}

// Errors returns the channel of errors.
func (h *HybridWatcher) Errors() <-chan error {
	return h.errors
}

// Mode returns the type of watcher being used ("fsnotify" or "polling").
func (h *HybridWatcher) Mode() string {
	if h.useFsnotify {
		return "fsnotify"
	}
	return "polling"
}

// RootPath returns the root path being watched.
func (h *HybridWatcher) RootPath() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.rootPath
}
