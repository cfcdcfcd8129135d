package logging

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultLogDir(t *testing.T) {
	t.Setenv("XDG_STATE_HOME", "/state")
	if got, want := DefaultLogDir(), "/state/pantry/logs"; got != want {
		t.Errorf("DefaultLogDir() = %s, want %s", got, want)
	}

	t.Setenv("XDG_STATE_HOME", "")
	t.Setenv("HOME", "/home/cook")
	if got, want := DefaultLogDir(), "/home/cook/.local/state/pantry/logs"; got != want {
		t.Errorf("DefaultLogDir() = %s, want %s", got, want)
	}
}

func TestDefaultLogPath(t *testing.T) {
	if filepath.Base(DefaultLogPath()) != "server.log" {
		t.Errorf("DefaultLogPath should end with server.log, got: %s", DefaultLogPath())
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Level != "info" {
		t.Errorf("expected level 'info', got: %s", cfg.Level)
	}
	if cfg.MaxSizeMB != 10 || cfg.MaxFiles != 5 {
		t.Errorf("unexpected rotation defaults: %d MB, %d files", cfg.MaxSizeMB, cfg.MaxFiles)
	}
	if !cfg.Stderr {
		t.Error("expected Stderr to be true")
	}
	if DebugConfig().Level != "debug" {
		t.Errorf("expected debug level, got: %s", DebugConfig().Level)
	}
}

func TestSetup(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")

	logger, cleanup, err := Setup(Config{Level: "debug", FilePath: logPath, MaxSizeMB: 1, MaxFiles: 3})
	if err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	logger.Debug("recipe_indexed", slog.String("path", "soup.md"))
	cleanup()

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file was not created: %v", err)
	}
	if !strings.Contains(string(data), `"msg":"recipe_indexed"`) || !strings.Contains(string(data), `"path":"soup.md"`) {
		t.Errorf("unexpected log content: %s", data)
	}
}

func TestInstall_Console(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cleanup, err := Install(Config{Level: "warn", Stderr: true})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	defer cleanup()

	if slog.Default().Enabled(context.Background(), slog.LevelInfo) {
		t.Error("info should be disabled at warn level")
	}
	if !slog.Default().Enabled(context.Background(), slog.LevelWarn) {
		t.Error("warn should be enabled at warn level")
	}
}

func TestInstall_Silent(t *testing.T) {
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	cleanup, err := Install(Config{Level: "debug"})
	if err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	defer cleanup()

	if slog.Default().Enabled(context.Background(), slog.LevelError) {
		t.Error("a logger without file or stderr should discard everything")
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	Console(&buf, "info").Info("served", slog.Int("status", 200))

	if !strings.Contains(buf.String(), "msg=served status=200") {
		t.Errorf("unexpected console output: %q", buf.String())
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "DEBUG"},
		{"DEBUG", "DEBUG"},
		{"info", "INFO"},
		{"warn", "WARN"},
		{"warning", "WARN"},
		{"error", "ERROR"},
		{"unknown", "INFO"}, // defaults to info
	}

	for _, tc := range tests {
		if level := LevelFromString(tc.input); level.String() != tc.expected {
			t.Errorf("LevelFromString(%q) = %s, want %s", tc.input, level.String(), tc.expected)
		}
	}
}

func TestFindLogFile(t *testing.T) {
	if _, err := FindLogFile("/nonexistent/path/to/log.log"); err == nil {
		t.Error("expected error for nonexistent file")
	}

	logPath := filepath.Join(t.TempDir(), "test.log")
	if err := os.WriteFile(logPath, []byte("test"), 0o644); err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}
	found, err := FindLogFile(logPath)
	if err != nil || found != logPath {
		t.Errorf("FindLogFile(%s) = %s, %v", logPath, found, err)
	}

	t.Setenv("XDG_STATE_HOME", t.TempDir())
	if _, err := FindLogFile(""); err == nil {
		t.Error("expected error when the default log does not exist")
	}
}

func TestRotatingWriter_Rotation(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(logPath, 1, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	defer func() { _ = w.Close() }()
	w.SetSyncEach(false)

	// Each write is half the limit, so every second write rotates.
	chunk := bytes.Repeat([]byte("x"), 512*1024)
	for i := range 7 {
		if _, err := w.Write(chunk); err != nil {
			t.Fatalf("write %d failed: %v", i, err)
		}
	}

	for _, name := range []string{"server.log", "server.log.1", "server.log.2"} {
		if _, err := os.Stat(filepath.Join(filepath.Dir(logPath), name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
	if _, err := os.Stat(logPath + ".3"); !os.IsNotExist(err) {
		t.Errorf("expected only 2 rotated files to be kept")
	}
}

func TestRotatingWriter_AppendsToExisting(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "server.log")
	if err := os.WriteFile(logPath, []byte("old\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := NewRotatingWriter(logPath, 1, 1)
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	_, _ = w.Write([]byte("new\n"))
	if err := w.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Errorf("second Close failed: %v", err)
	}
	if _, err := w.Write([]byte("late\n")); err == nil {
		t.Error("expected write after close to fail")
	}

	data, _ := os.ReadFile(logPath)
	if string(data) != "old\nnew\n" {
		t.Errorf("unexpected content: %q", data)
	}
}

func TestRotatingWriter_ConcurrentWrites(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(logPath, 10, 2)
	if err != nil {
		t.Fatalf("NewRotatingWriter failed: %v", err)
	}
	defer func() { _ = w.Close() }()

	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range 50 {
				_, _ = fmt.Fprintf(w, "goroutine %d line %d\n", g, i)
			}
		}()
	}
	wg.Wait()

	data, _ := os.ReadFile(logPath)
	if lines := strings.Count(string(data), "\n"); lines != 400 {
		t.Errorf("expected 400 lines, got %d", lines)
	}
}

const sampleLog = `{"time":"2026-03-01T10:00:00.000Z","level":"DEBUG","msg":"reloaded","event":"UPDATE /r/a.md"}
{"time":"2026-03-01T10:00:01.000Z","level":"INFO","msg":"reindexed_all","documents":12}
not json at all
{"time":"2026-03-01T10:00:02.000Z","level":"ERROR","msg":"reload_failed","error_code":"ERR_505_INDEX_FAILED"}
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.log")
	if err := os.WriteFile(path, []byte(sampleLog), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestViewer_Tail(t *testing.T) {
	path := writeSample(t)
	v := NewViewer(ViewerConfig{NoColor: true}, &bytes.Buffer{})

	entries, err := v.Tail(path, 2)
	if err != nil {
		t.Fatalf("Tail failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].IsValid || entries[0].Raw != "not json at all" {
		t.Errorf("expected the raw line first, got %+v", entries[0])
	}
	if entries[1].Msg != "reload_failed" {
		t.Errorf("expected reload_failed, got %s", entries[1].Msg)
	}

	if _, err := v.Tail(filepath.Join(t.TempDir(), "missing.log"), 10); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestViewer_Filters(t *testing.T) {
	path := writeSample(t)

	tests := []struct {
		name string
		cfg  ViewerConfig
		want []string
	}{
		{"level", ViewerConfig{Level: "info"}, []string{"reindexed_all", "reload_failed"}},
		{"pattern", ViewerConfig{Pattern: regexp.MustCompile(`/r/a\.md`)}, []string{"reloaded"}},
		{"both", ViewerConfig{Level: "error", Pattern: regexp.MustCompile(`ERR_505`)}, []string{"reload_failed"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.cfg.NoColor = true
			entries, err := NewViewer(tc.cfg, &bytes.Buffer{}).Tail(path, 100)
			if err != nil {
				t.Fatalf("Tail failed: %v", err)
			}
			var got []string
			for _, e := range entries {
				if e.IsValid {
					got = append(got, e.Msg)
				}
			}
			if strings.Join(got, ",") != strings.Join(tc.want, ",") {
				t.Errorf("got %v, want %v", got, tc.want)
			}
		})
	}
}

func TestViewer_FormatEntry(t *testing.T) {
	var buf bytes.Buffer
	v := NewViewer(ViewerConfig{NoColor: true}, &buf)

	entry := parseLine(`{"time":"2026-03-01T10:00:01.5Z","level":"INFO","msg":"served","status":200,"path":"/search"}`)
	v.Print([]LogEntry{entry, parseLine("plain")})

	want := "10:00:01.500 INFO  served path=/search status=200\nplain\n"
	if buf.String() != want {
		t.Errorf("got %q, want %q", buf.String(), want)
	}
}

func TestViewer_Follow(t *testing.T) {
	path := writeSample(t)
	v := NewViewer(ViewerConfig{Level: "warn", NoColor: true}, &bytes.Buffer{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	entries := make(chan LogEntry, 4)
	done := make(chan error, 1)
	go func() { done <- v.Follow(ctx, path, entries) }()

	// Existing lines are skipped; give Follow a moment to seek to the end.
	time.Sleep(150 * time.Millisecond)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	_, _ = f.WriteString(`{"time":"2026-03-01T10:00:03Z","level":"INFO","msg":"quiet"}` + "\n")
	_, _ = f.WriteString(`{"time":"2026-03-01T10:00:04Z","level":"WARN","msg":"loud"}` + "\n")
	_ = f.Close()

	select {
	case e := <-entries:
		if e.Msg != "loud" {
			t.Errorf("expected the warn entry, got %s", e.Msg)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timeout waiting for followed entry")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Follow returned %v", err)
	}
}
