// Package recipe is the in-memory model of a recipe file: its front matter,
// its rendered body, and the facts extracted from both for indexing.
package recipe

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/adrg/frontmatter"
	"github.com/gosimple/slug"
	"gopkg.in/yaml.v3"

	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/markdown"
)

// yamlFormat decodes front matter with yaml.v3 so Sources can use node decoding.
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// MetaData is the front matter of a recipe file.
type MetaData struct {
	Title    string   `json:"title"`
	Category string   `json:"category"`
	Sources  Sources  `json:"sources"`
	Tags     []string `json:"tags"`
}

// Slug is the URL-safe form of the title. Titles that slugify identically
// share a slug; the most recently indexed one wins lookups.
func (m *MetaData) Slug() string {
	return Slugify(m.Title)
}

// Recipe is a parsed recipe file. It is never mutated; a changed file is
// parsed again from scratch.
type Recipe struct {
	Metadata *MetaData `json:"metadata"`
	// Contents is the rendered HTML body.
	Contents string `json:"contents"`
}

// frontMatter mirrors MetaData with presence tracking for required keys.
type frontMatter struct {
	Title    *string  `yaml:"title"`
	Category *string  `yaml:"category"`
	Sources  Sources  `yaml:"sources"`
	Tags     []string `yaml:"tags"`
}

func (f frontMatter) metadata() (*MetaData, error) {
	if f.Title == nil {
		return nil, fmt.Errorf("missing title")
	}
	if f.Category == nil {
		return nil, fmt.Errorf("missing category")
	}
	return &MetaData{
		Title:    *f.Title,
		Category: *f.Category,
		Sources:  f.Sources,
		Tags:     normalizeTags(f.Tags),
	}, nil
}

// normalizeTags sorts and deduplicates, giving tags set semantics.
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := slices.Clone(tags)
	slices.Sort(out)
	return slices.Compact(out)
}

// Parse splits text into front matter and a markdown body and renders the
// body. Text without valid front matter has no metadata and is rendered whole.
func Parse(text string) Recipe {
	var fm frontMatter
	body, err := frontmatter.MustParse(strings.NewReader(text), &fm, yamlFormat)
	if err != nil {
		return Recipe{Contents: markdown.Render(text)}
	}

	md, err := fm.metadata()
	if err != nil {
		return Recipe{Contents: markdown.Render(text)}
	}

	return Recipe{Metadata: md, Contents: markdown.Render(string(body))}
}

// New renders a markdown body under metadata that is already known.
func New(md *MetaData, body string) Recipe {
	return Recipe{Metadata: md, Contents: markdown.Render(body)}
}

// Document writes md as front matter followed by body, in the form Parse reads.
func Document(md MetaData, body string) (string, error) {
	fm := struct {
		Title    string   `yaml:"title"`
		Category string   `yaml:"category"`
		Sources  Sources  `yaml:"sources,omitempty"`
		Tags     []string `yaml:"tags,omitempty"`
	}{md.Title, md.Category, md.Sources, md.Tags}

	head, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("encode front matter: %w", err)
	}
	var sb strings.Builder
	sb.WriteString("---\n")
	sb.Write(head)
	sb.WriteString("---\n")
	sb.WriteString(body)
	return sb.String(), nil
}

// Load reads and parses the recipe file at path. Files that are not valid
// UTF-8 are rejected.
func Load(path string) (Recipe, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Recipe{}, errors.New(errors.ErrCodeFileNotFound, "cannot read recipe", err).
			WithDetail("path", path)
	}
	if !utf8.Valid(data) {
		return Recipe{}, errors.New(errors.ErrCodeFileCorrupt, "recipe is not valid UTF-8", nil).
			WithDetail("path", path)
	}
	return Parse(string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))), nil
}

// Title returns the title, if the recipe has metadata.
func (r Recipe) Title() (string, bool) {
	if r.Metadata == nil {
		return "", false
	}
	return r.Metadata.Title, true
}

// Category returns the category, if the recipe has metadata.
func (r Recipe) Category() (string, bool) {
	if r.Metadata == nil {
		return "", false
	}
	return r.Metadata.Category, true
}

// Slug returns the derived slug, if the recipe has metadata.
func (r Recipe) Slug() (string, bool) {
	if r.Metadata == nil {
		return "", false
	}
	return r.Metadata.Slug(), true
}

func (r Recipe) Sources() Sources {
	if r.Metadata == nil {
		return nil
	}
	return r.Metadata.Sources
}

func (r Recipe) Tags() []string {
	if r.Metadata == nil {
		return nil
	}
	return r.Metadata.Tags
}

// Slugify lowercases, transliterates and hyphenates s.
func Slugify(s string) string {
	return slug.Make(s)
}
