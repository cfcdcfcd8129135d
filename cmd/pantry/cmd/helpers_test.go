package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// isolate points every user directory at a fresh temp dir and clears the
// PANTRY_* environment, returning the fake home.
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(home, "data"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(home, "state"))
	t.Setenv("NO_COLOR", "1")
	for _, key := range []string{"PANTRY_ADDRESS", "PANTRY_RECIPE_DIR", "PANTRY_LOG_LEVEL", "PANTRY_PAGE_SIZE"} {
		t.Setenv(key, "")
	}
	return home
}

// run executes the root command with args and returns what it wrote to
// stdout.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	return runContext(t, context.Background(), args...)
}

func runContext(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	stdout := &bytes.Buffer{}
	cmd.SetOut(stdout)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return stdout.String(), err
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// seedRecipes writes a small recipe tree and returns its root.
func seedRecipes(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "pancakes.md"), `---
title: Buttermilk Pancakes
category: Breakfast
tags: [sweet, quick]
---
Fluffy and light.

## Ingredients

- 2 eggs
- flour

## Directions

- Whisk.
- Fry in butter.
`)
	writeFile(t, filepath.Join(dir, "dinner", "chili.md"), `---
title: Texas Chili
category: Dinner
tags: [spicy]
---
Simmer for hours.

## Ingredients

- beef

## Directions

- Brown the beef.
`)
	writeFile(t, filepath.Join(dir, "_drafts", "secret.md"), "---\ntitle: Secret Sauce\ncategory: Sauce\n---\nHidden.\n")
	return dir
}
