// Package importer turns a recipe web page into a pantry recipe by reading
// the schema.org Recipe the page embeds as JSON-LD.
package importer

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/temoto/robotstxt"

	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/recipe"
)

// Category is the category every imported recipe is filed under.
const Category = "Imported"

// Options configures an Importer.
type Options struct {
	Timeout   time.Duration
	UserAgent string
	// MaxBodyBytes caps how much of a page is read.
	MaxBodyBytes int64
	// IgnoreRobots skips the robots.txt check.
	IgnoreRobots bool
	// Client overrides the HTTP client; Timeout is ignored when it is set.
	Client *http.Client
}

// DefaultOptions returns the default importer options.
func DefaultOptions() Options {
	return Options{
		Timeout:      15 * time.Second,
		UserAgent:    "pantry/1.0 (+recipe import)",
		MaxBodyBytes: 8 << 20,
	}
}

// Importer fetches and converts recipe pages.
type Importer struct {
	client  *http.Client
	opts    Options
	robotUA string
}

// New creates an Importer. Zero option fields take their defaults.
func New(opts Options) *Importer {
	defaults := DefaultOptions()
	if opts.Timeout <= 0 {
		opts.Timeout = defaults.Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaults.UserAgent
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaults.MaxBodyBytes
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}
	robotUA, _, _ := strings.Cut(opts.UserAgent, "/")
	return &Importer{client: client, opts: opts, robotUA: robotUA}
}

// Imported is a converted recipe page.
type Imported struct {
	Metadata recipe.MetaData
	// Markdown is the recipe body, without front matter.
	Markdown string
}

// Recipe renders the import as a recipe.
func (im Imported) Recipe() recipe.Recipe {
	md := im.Metadata
	return recipe.New(&md, im.Markdown)
}

// Document returns the import as recipe file text, ready to be saved in the
// recipe directory.
func (im Imported) Document() (string, error) {
	return recipe.Document(im.Metadata, im.Markdown)
}

// Import fetches rawURL and converts the first schema.org Recipe on it.
func (i *Importer) Import(ctx context.Context, rawURL string) (Imported, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Imported{}, errors.New(errors.ErrCodeInvalidInput, "import needs an absolute http(s) URL", err).
			WithDetail("url", rawURL)
	}

	if !i.opts.IgnoreRobots && !i.allowed(ctx, u) {
		return Imported{}, errors.New(errors.ErrCodeImportFailed, "robots.txt disallows fetching this page", nil).
			WithDetail("url", rawURL)
	}

	body, err := i.get(ctx, u.String())
	if err != nil {
		return Imported{}, err
	}
	defer func() { _ = body.Close() }()

	found, err := FindRecipes(io.LimitReader(body, i.opts.MaxBodyBytes))
	if err != nil {
		return Imported{}, errors.New(errors.ErrCodeImportFailed, "cannot parse page", err).
			WithDetail("url", rawURL)
	}
	if len(found) == 0 {
		return Imported{}, errors.New(errors.ErrCodeNotFound, "no recipe found on page", nil).
			WithDetail("url", rawURL)
	}

	slog.Info("recipe_imported",
		slog.String("url", rawURL),
		slog.String("title", found[0].Name))
	return Convert(found[0], u), nil
}

// get issues a GET and returns the body of a 200 response.
func (i *Importer) get(ctx context.Context, target string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.New(errors.ErrCodeInvalidInput, "cannot build request", err)
	}
	req.Header.Set("User-Agent", i.opts.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, networkError(err).WithDetail("url", target)
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		code := errors.ErrCodeImportFailed
		if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
			code = errors.ErrCodeNotFound
		}
		return nil, errors.New(code, fmt.Sprintf("remote page answered %d", resp.StatusCode), nil).
			WithDetail("url", target)
	}
	return resp.Body, nil
}

// allowed consults the site's robots.txt. A missing or unreadable
// robots.txt allows everything.
func (i *Importer) allowed(ctx context.Context, u *url.URL) bool {
	robotsURL := url.URL{Scheme: u.Scheme, Host: u.Host, Path: "/robots.txt"}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, robotsURL.String(), nil)
	if err != nil {
		return true
	}
	req.Header.Set("User-Agent", i.opts.UserAgent)

	resp, err := i.client.Do(req)
	if err != nil {
		slog.Debug("robots_unavailable", slog.String("host", u.Host), slog.String("error", err.Error()))
		return true
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return true
	}
	robots, err := robotstxt.FromStatusAndBytes(resp.StatusCode, data)
	if err != nil {
		return true
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return robots.TestAgent(path, i.robotUA)
}

func networkError(err error) *errors.PantryError {
	var netErr net.Error
	if stderrors.Is(err, context.DeadlineExceeded) || (stderrors.As(err, &netErr) && netErr.Timeout()) {
		return errors.New(errors.ErrCodeNetworkTimeout, "remote page timed out", err)
	}
	return errors.New(errors.ErrCodeNetworkUnavailable, "cannot reach remote page", err)
}

// Convert builds the pantry form of s, crediting the page at source.
func Convert(s Schema, source *url.URL) Imported {
	var sb strings.Builder

	if s.Description != "" {
		sb.WriteString(s.Description)
		sb.WriteString("\n\n")
	}

	for _, t := range []struct{ label, iso string }{
		{"Prep Time", s.PrepTime},
		{"Cook Time", s.CookTime},
		{"Total Time", s.TotalTime},
	} {
		if human := HumanDuration(t.iso); human != "" {
			fmt.Fprintf(&sb, "**%s:** %s\n\n", t.label, human)
		}
	}

	if len(s.Ingredients) > 0 {
		sb.WriteString("## Ingredients\n\n")
		writeList(&sb, s.Ingredients)
		sb.WriteString("\n")
	}

	if len(s.Sections) > 0 {
		sb.WriteString("## Directions\n\n")
		grouped := len(s.Sections) > 1 || s.Sections[0].Name != ""
		for n, sec := range s.Sections {
			if grouped {
				name := sec.Name
				if name == "" {
					name = fmt.Sprintf("Part %d", n+1)
				}
				fmt.Fprintf(&sb, "### %s\n\n", name)
			}
			writeList(&sb, sec.Steps)
			sb.WriteString("\n")
		}
	}

	md := recipe.MetaData{Title: s.Name, Category: Category}
	if source != nil {
		md.Sources = recipe.Sources{recipe.Web{Label: source.Hostname(), URL: source}}
	}
	return Imported{Metadata: md, Markdown: sb.String()}
}

func writeList(sb *strings.Builder, items []string) {
	for _, item := range items {
		sb.WriteString("- ")
		sb.WriteString(item)
		sb.WriteString("\n")
	}
}
