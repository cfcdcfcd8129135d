// Package watcher turns file system changes under the recipe directory into
// a stream of Update and Remove events, and feeds them to the index.
//
// The package implements a hybrid watching strategy:
//   - Primary: fsnotify for efficient event-based watching
//   - Fallback: Polling for environments where fsnotify fails (network mounts, Docker volumes)
//
// Classification:
//   - a created or written file is an Update
//   - a removed file is a Remove
//   - a rename is a Remove of the old path followed by an Update of the new one
//   - directory events, chmod and anything under a hidden or underscore path are dropped
//
// Events are never merged or reordered; the Reloader applies them one at a time.
//
// Usage:
//
//	w, err := watcher.NewHybridWatcher(watcher.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	defer w.Stop()
//
//	go func() { _ = w.Start(ctx, recipeDir) }()
//	return watcher.NewReloader(index).Run(ctx, w.Events())
package watcher
