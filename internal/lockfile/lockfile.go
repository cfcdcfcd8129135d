// Package lockfile keeps two pantry servers from watching the same recipe
// directory at once.
package lockfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gofrs/flock"

	"github.com/Aman-CERP/pantry/internal/errors"
)

// Lock is a cross-process lock on a recipe directory, held through an
// flock on a file in the state directory.
type Lock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// DefaultDir is $XDG_STATE_HOME/pantry/locks, or ~/.local/state/pantry/locks.
func DefaultDir() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pantry", "locks")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "pantry", "locks")
	}
	return filepath.Join(home, ".local", "state", "pantry", "locks")
}

// ForRecipeDir returns the lock for recipeDir, with its file in lockDir.
// The file name is derived from the absolute recipe directory path.
func ForRecipeDir(lockDir, recipeDir string) *Lock {
	abs, err := filepath.Abs(recipeDir)
	if err != nil {
		abs = recipeDir
	}
	sum := sha256.Sum256([]byte(filepath.Clean(abs)))
	path := filepath.Join(lockDir, "serve-"+hex.EncodeToString(sum[:6])+".lock")
	return &Lock{path: path, flock: flock.New(path)}
}

// TryLock acquires the lock without blocking. When another process holds
// it, the error has code ErrCodeLocked and names that process if known.
func (l *Lock) TryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return errors.New(errors.ErrCodeFilePermission, "failed to create lock directory", err).
			WithDetail("path", filepath.Dir(l.path))
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return errors.New(errors.ErrCodeFilePermission, "failed to acquire lock", err).
			WithDetail("path", l.path)
	}
	if !acquired {
		e := errors.New(errors.ErrCodeLocked, "another pantry server is using this recipe directory", nil).
			WithDetail("lock", l.path).
			WithSuggestion("Stop the other server or point this one at a different --recipe-dir.")
		if pid, ok := l.Owner(); ok {
			e = e.WithDetail("pid", strconv.Itoa(pid))
		}
		return e
	}

	l.locked = true
	// The pid is informational; a failed write does not release the lock.
	_ = os.WriteFile(l.path, []byte(strconv.Itoa(os.Getpid())+"\n"), 0o644)
	return nil
}

// Owner returns the pid recorded by the current holder.
func (l *Lock) Owner() (int, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// Unlock releases the lock. It's safe to call Unlock multiple times or on
// an unlocked Lock.
func (l *Lock) Unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}

// Path returns the path to the lock file.
func (l *Lock) Path() string {
	return l.path
}

// IsLocked returns true if the lock is currently held.
func (l *Lock) IsLocked() bool {
	return l.locked
}
