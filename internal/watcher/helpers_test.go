package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const eventTimeout = 3 * time.Second

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// startWatcher runs w on root and waits until its watches are in place.
func startWatcher(t *testing.T, w *HybridWatcher, root string) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Start(ctx, root)
	}()
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
		<-done
	})

	select {
	case <-w.Ready():
	case <-time.After(eventTimeout):
		t.Fatal("watcher never became ready")
	}
}

// waitFor reads events until one equals want, returning everything read
// on the way including want.
func waitFor(t *testing.T, events <-chan Event, want Event) []Event {
	t.Helper()
	var seen []Event
	deadline := time.After(eventTimeout)
	for {
		select {
		case ev, ok := <-events:
			require.True(t, ok, "events closed before %s; saw %v", want, seen)
			seen = append(seen, ev)
			if ev == want {
				return seen
			}
		case <-deadline:
			t.Fatalf("timeout waiting for %s; saw %v", want, seen)
		}
	}
}

func indexOf(events []Event, want Event) int {
	for i, ev := range events {
		if ev == want {
			return i
		}
	}
	return -1
}
