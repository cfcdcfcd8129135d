package recipe

import (
	"io/fs"
	"path/filepath"
	"strings"
)

// Hidden reports whether a file or directory name is excluded from the
// recipe tree. Names starting with '.' or '_' are drafts, partials or
// editor litter.
func Hidden(name string) bool {
	return strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")
}

// Eligible reports whether path, found under root, belongs to the recipe
// tree: no component of its path relative to root may be hidden.
func Eligible(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return false
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		if Hidden(part) {
			return false
		}
	}
	return true
}

// Walk calls fn for every recipe file under root, in lexical order.
// Hidden directories are not descended into. Unreadable entries are skipped.
func Walk(root string, fn func(path string) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if Hidden(d.Name()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		return fn(path)
	})
}

// LoadAll walks root and parses every recipe file. Files that fail to load
// are passed to onError, if given, and otherwise skipped.
func LoadAll(root string, onError func(path string, err error)) (map[string]Recipe, error) {
	out := make(map[string]Recipe)
	err := Walk(root, func(path string) error {
		r, err := Load(path)
		if err != nil {
			if onError != nil {
				onError(path, err)
			}
			return nil
		}
		out[path] = r
		return nil
	})
	return out, err
}
