package watcher

import (
	"context"
	"log/slog"
	"time"

	"github.com/Aman-CERP/pantry/internal/errors"
)

// Index is the part of the search index the reloader drives.
type Index interface {
	ReindexSome(ctx context.Context, paths []string) error
	Remove(ctx context.Context, paths []string) error
}

// Reloader applies watcher events to an Index, one call per event, in the
// order the events arrive.
type Reloader struct {
	index Index

	// Attempts bounds how often a retryable failure is tried.
	Attempts int
	// Backoff is the pause before the first retry; it doubles each time.
	Backoff time.Duration
}

// NewReloader returns a Reloader for index.
func NewReloader(index Index) *Reloader {
	return &Reloader{
		index:    index,
		Attempts: 3,
		Backoff:  100 * time.Millisecond,
	}
}

// Run consumes events until the channel closes, ctx is done, or the index
// shuts down. Other index errors are logged and the event is dropped.
func (r *Reloader) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := r.Handle(ctx, ev); err != nil {
				if errors.GetCode(err) == errors.ErrCodeShuttingDown {
					slog.Info("reloader_stopped", slog.String("reason", "index shutting down"))
					return err
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				attrs := append([]any{slog.String("event", ev.String())}, errors.LogAttrs(err)...)
				slog.Warn("reload_failed", attrs...)
			}
		}
	}
}

// Handle applies a single event.
func (r *Reloader) Handle(ctx context.Context, ev Event) error {
	backoff := r.Backoff
	var err error
	for attempt := 1; ; attempt++ {
		err = r.apply(ctx, ev)
		if err == nil || !errors.IsRetryable(err) || attempt >= r.Attempts {
			break
		}
		slog.Debug("reload_retry",
			slog.String("event", ev.String()),
			slog.Int("attempt", attempt))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if err == nil {
		slog.Debug("reloaded", slog.String("event", ev.String()))
	}
	return err
}

func (r *Reloader) apply(ctx context.Context, ev Event) error {
	paths := []string{ev.Path}
	switch ev.Kind {
	case KindUpdate:
		return r.index.ReindexSome(ctx, paths)
	case KindRemove:
		return r.index.Remove(ctx, paths)
	default:
		return errors.New(errors.ErrCodeInvalidInput, "unknown event kind "+ev.Kind.String(), nil)
	}
}
