package watcher

import (
	"context"
	"fmt"
	"time"
)

// Kind is what the index should do about a path.
type Kind int

const (
	// KindUpdate means the file was created or changed and should be reindexed.
	KindUpdate Kind = iota
	// KindRemove means the file is gone and should be dropped from the index.
	KindRemove
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindUpdate:
		return "UPDATE"
	case KindRemove:
		return "REMOVE"
	default:
		return "UNKNOWN"
	}
}

// Event is a classified change to one recipe file.
type Event struct {
	Kind Kind
	// Path is absolute, in the same form the recipe walk produces.
	Path string
}

// Update returns an Update event for path.
func Update(path string) Event { return Event{Kind: KindUpdate, Path: path} }

// Remove returns a Remove event for path.
func Remove(path string) Event { return Event{Kind: KindRemove, Path: path} }

func (e Event) String() string {
	return e.Kind.String() + " " + e.Path
}

// Watcher defines the interface for file system watching.
type Watcher interface {
	// Start watches root recursively until Stop is called or ctx is done.
	Start(ctx context.Context, root string) error

	// Stop stops the watcher and closes its channels. Safe to call multiple times.
	Stop() error

	// Events returns the event stream, closed when the watcher stops.
	Events() <-chan Event

	// Errors returns non-fatal watcher errors, closed when the watcher stops.
	Errors() <-chan error
}

// Options configures the watcher behavior.
type Options struct {
	// PollInterval is the interval for polling mode (fallback).
	// Default: 5s
	PollInterval time.Duration

	// EventBufferSize is the size of the event channel buffer.
	// Default: 256
	EventBufferSize int

	// ForcePolling skips fsnotify entirely.
	ForcePolling bool
}

// DefaultOptions returns the default watcher options.
func DefaultOptions() Options {
	return Options{
		PollInterval:    5 * time.Second,
		EventBufferSize: 256,
	}
}

// Validate validates the options and returns an error if invalid.
func (o Options) Validate() error {
	if o.PollInterval < 0 {
		return fmt.Errorf("poll interval must not be negative, got %s", o.PollInterval)
	}
	if o.EventBufferSize < 0 {
		return fmt.Errorf("event buffer size must not be negative, got %d", o.EventBufferSize)
	}
	return nil
}

// WithDefaults returns options with defaults applied for zero values.
func (o Options) WithDefaults() Options {
	defaults := DefaultOptions()
	if o.PollInterval == 0 {
		o.PollInterval = defaults.PollInterval
	}
	if o.EventBufferSize == 0 {
		o.EventBufferSize = defaults.EventBufferSize
	}
	return o
}
