package server

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"maps"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/Aman-CERP/pantry/internal/recipe"
	"github.com/Aman-CERP/pantry/internal/search"
)

//go:embed templates/*.html
var templateFS embed.FS

// pages holds one parsed template set per page, each sharing the layout.
type pages struct {
	search *template.Template
	recipe *template.Template
	errors *template.Template
}

func parsePages() (*pages, error) {
	parse := func(page string) (*template.Template, error) {
		t, err := template.ParseFS(templateFS,
			"templates/_layout.html",
			"templates/_search_bar.html",
			"templates/"+page,
		)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", page, err)
		}
		return t, nil
	}

	var (
		p   pages
		err error
	)
	if p.search, err = parse("search.html"); err != nil {
		return nil, err
	}
	if p.recipe, err = parse("recipe.html"); err != nil {
		return nil, err
	}
	if p.errors, err = parse("error.html"); err != nil {
		return nil, err
	}
	return &p, nil
}

// render executes the layout into a buffer first so a template failure
// still produces a clean 500.
func render(w http.ResponseWriter, t *template.Template, status int, data any) error {
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
	return nil
}

// Facet is one category or tag with its match count and a link narrowing
// the current query to it.
type Facet struct {
	Name  string
	Count int
	Href  string
}

// documentView is a search hit as the result list shows it.
type documentView struct {
	Slug        string
	Title       string
	Category    string
	Description string
}

// searchPage is the data behind search.html.
type searchPage struct {
	Query      string
	Searched   bool
	Total      uint64
	Documents  []documentView
	Categories []Facet
	Tags       []Facet
	Prev, Next string
}

func (p searchPage) HasManyCategories() bool { return len(p.Categories) > 1 }
func (p searchPage) HasManyTags() bool       { return len(p.Tags) > 1 }

// IsFilterable reports whether the facet sidebar has anything to offer.
func (p searchPage) IsFilterable() bool {
	return p.HasManyCategories() || p.HasManyTags()
}

func newSearchPage(query string, start, size int, res search.Result) searchPage {
	p := searchPage{
		Query:      query,
		Searched:   true,
		Total:      res.Total,
		Categories: facets(query, "category", res.Categories),
		Tags:       facets(query, "tag", res.Tags),
	}
	for _, doc := range res.Documents {
		title, _ := doc.Title()
		category, _ := doc.Category()
		slug, _ := doc.Slug()
		p.Documents = append(p.Documents, documentView{
			Slug:        slug,
			Title:       title,
			Category:    category,
			Description: doc.Description(),
		})
	}
	if start > 0 {
		p.Prev = pageHref(query, max(start-size, 0), size)
	}
	if size > 0 && uint64(start+size) < res.Total {
		p.Next = pageHref(query, start+size, size)
	}
	return p
}

// facets orders counts by descending count, then name.
func facets(query, field string, counts map[string]int) []Facet {
	names := slices.Sorted(maps.Keys(counts))
	slices.SortStableFunc(names, func(a, b string) int {
		return counts[b] - counts[a]
	})
	out := make([]Facet, 0, len(names))
	for _, name := range names {
		out = append(out, Facet{
			Name:  name,
			Count: counts[name],
			Href:  pageHref(narrow(query, field, name), 0, 0),
		})
	}
	return out
}

// narrow appends a field filter to query.
func narrow(query, field, value string) string {
	filter := fieldTerm(field, value)
	if strings.TrimSpace(query) == "" {
		return filter
	}
	return strings.TrimSpace(query) + " " + filter
}

func fieldTerm(field, value string) string {
	if strings.ContainsAny(value, " \t\"") {
		return field + ":" + strconv.Quote(value)
	}
	return field + ":" + value
}

func pageHref(query string, start, size int) string {
	v := url.Values{}
	v.Set("query", query)
	if start > 0 {
		v.Set("start", strconv.Itoa(start))
	}
	if size > 0 {
		v.Set("size", strconv.Itoa(size))
	}
	return "/search?" + v.Encode()
}

// tagView links a tag to a search for it.
type tagView struct {
	Name string
	Href string
}

// recipePage is the data behind recipe.html.
type recipePage struct {
	Query         string
	Title         string
	Category      string
	CategoryHref  string
	Tags          []tagView
	Sources       recipe.Sources
	Contents      template.HTML
}

func newRecipePage(r recipe.Recipe) recipePage {
	title, ok := r.Title()
	if !ok {
		title = "Unknown"
	}
	category, _ := r.Category()
	p := recipePage{
		Title:         title,
		Category:      category,
		CategoryHref:  pageHref(fieldTerm("category", category), 0, 0),
		Sources:       r.Sources(),
		// Rendered by goldmark without raw HTML passthrough.
		Contents: template.HTML(r.Contents),
	}
	for _, tag := range r.Tags() {
		p.Tags = append(p.Tags, tagView{Name: tag, Href: pageHref(fieldTerm("tag", tag), 0, 0)})
	}
	return p
}

// errorPage is the data behind error.html.
type errorPage struct {
	Query   string
	Status  int
	Message string
}
