package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/Aman-CERP/pantry/internal/recipe"
)

// PollingWatcher watches for file changes by periodically scanning the directory.
// Used as a fallback when fsnotify is not available or fails.
type PollingWatcher struct {
	interval  time.Duration
	fileState map[string]fileSnapshot
	events    chan Event
	errors    chan error
	stopCh    chan struct{}
	ready     chan struct{}
	rootPath  string

	mu        sync.Mutex
	started   bool
	stopped   bool
	closeOnce sync.Once
}

type fileSnapshot struct {
	modTime time.Time
	size    int64
}

// NewPollingWatcher creates a new polling watcher with the given interval.
func NewPollingWatcher(interval time.Duration, bufferSize int) *PollingWatcher {
	return &PollingWatcher{
		interval:  interval,
		fileState: make(map[string]fileSnapshot),
		events:    make(chan Event, bufferSize),
		errors:    make(chan error, 10),
		stopCh:    make(chan struct{}),
		ready:     make(chan struct{}),
	}
}

// Start begins watching the given directory by polling. It blocks until
// Stop is called or ctx is done.
func (p *PollingWatcher) Start(ctx context.Context, path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve absolute path: %w", err)
	}

	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.started = true
	p.rootPath = absPath
	p.mu.Unlock()
	defer p.closeChannels()

	// Initial scan to establish baseline
	state, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("perform initial scan: %w", err)
	}
	p.fileState = state
	close(p.ready)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			_ = p.Stop()
			return ctx.Err()
		case <-p.stopCh:
			return nil
		case <-ticker.C:
			if err := p.detectChanges(); err != nil {
				select {
				case p.errors <- err:
				default:
				}
			}
		}
	}
}

// Ready is closed once the baseline scan is complete.
func (p *PollingWatcher) Ready() <-chan struct{} {
	return p.ready
}

// Stop stops the polling watcher.
func (p *PollingWatcher) Stop() error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	started := p.started
	close(p.stopCh)
	p.mu.Unlock()

	if !started {
		p.closeChannels()
	}
	return nil
}

func (p *PollingWatcher) closeChannels() {
	p.closeOnce.Do(func() {
		close(p.events)
		close(p.errors)
	})
}

// Events returns the channel of file events.
func (p *PollingWatcher) Events() <-chan Event {
	return p.events
}

// Errors returns the channel of errors.
func (p *PollingWatcher) Errors() <-chan error {
	return p.errors
}

// snapshot walks the directory and records the state of every eligible file.
func (p *PollingWatcher) snapshot() (map[string]fileSnapshot, error) {
	state := make(map[string]fileSnapshot)
	err := recipe.Walk(p.rootPath, func(path string) error {
		info, err := statFile(path)
		if err != nil {
			return nil // Skip files we can't access
		}
		state[path] = info
		return nil
	})
	return state, err
}

// detectChanges compares current state with previous state and emits events.
// Only the Start goroutine touches fileState.
func (p *PollingWatcher) detectChanges() error {
	current, err := p.snapshot()
	if err != nil {
		return fmt.Errorf("walk directory for changes: %w", err)
	}

	var updated, removed []string
	for path, snap := range current {
		prev, exists := p.fileState[path]
		if !exists || !prev.modTime.Equal(snap.modTime) || prev.size != snap.size {
			updated = append(updated, path)
		}
	}
	for path := range p.fileState {
		if _, exists := current[path]; !exists {
			removed = append(removed, path)
		}
	}
	p.fileState = current

	slices.Sort(removed)
	slices.Sort(updated)
	for _, path := range removed {
		if !p.emit(Remove(path)) {
			return nil
		}
	}
	for _, path := range updated {
		if !p.emit(Update(path)) {
			return nil
		}
	}
	return nil
}

// emit blocks until ev is taken or the watcher stops.
func (p *PollingWatcher) emit(ev Event) bool {
	select {
	case p.events <- ev:
		return true
	case <-p.stopCh:
		return false
	}
}

func statFile(path string) (fileSnapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return fileSnapshot{}, err
	}
	return fileSnapshot{modTime: info.ModTime(), size: info.Size()}, nil
}
