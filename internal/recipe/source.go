package recipe

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"

	"gopkg.in/yaml.v3"
)

// Source is where a recipe came from. It is either a Book or a Web page;
// the set is closed, so callers can switch exhaustively on the two types.
type Source interface {
	// Name is the book title or the page name.
	Name() string
	// Attribution is the book author or the page URL.
	Attribution() string
	// Link is a URL a reader can follow to find the source.
	Link() string
	// Domain is the host of a web source. Books and IP hosts have none.
	Domain() (string, bool)

	isSource()
}

// Book is a printed source.
type Book struct {
	Title  string `json:"title" yaml:"title"`
	Author string `json:"author" yaml:"author"`
}

// Web is an online source.
type Web struct {
	Label string   `json:"name" yaml:"name"`
	URL   *url.URL `json:"-" yaml:"-"`
}

func (b Book) Name() string        { return b.Title }
func (b Book) Attribution() string { return b.Author }
func (Book) Domain() (string, bool) {
	return "", false
}

// Link points at a book search for the title and author.
func (b Book) Link() string {
	q := url.Values{}
	q.Set("tbm", "bks")
	q.Set("q", fmt.Sprintf(`intitle:"%s" AND inauthor:"%s"`, b.Title, b.Author))
	return "https://www.google.com/search?" + q.Encode()
}

func (Book) isSource() {}

func (w Web) Name() string { return w.Label }

func (w Web) Attribution() string {
	if w.URL == nil {
		return ""
	}
	return w.URL.String()
}

func (w Web) Link() string { return w.Attribution() }

func (w Web) Domain() (string, bool) {
	if w.URL == nil {
		return "", false
	}
	host := w.URL.Hostname()
	if host == "" || net.ParseIP(host) != nil {
		return "", false
	}
	return host, true
}

func (Web) isSource() {}

// Sources is the ordered source list of a recipe. It encodes untagged:
// a book is {title, author}, a web page is {name, url}.
type Sources []Source

// rawSource is the union of both shapes, used to tell them apart.
type rawSource struct {
	Title  *string `json:"title,omitempty" yaml:"title,omitempty"`
	Author *string `json:"author,omitempty" yaml:"author,omitempty"`
	Name   *string `json:"name,omitempty" yaml:"name,omitempty"`
	URL    *string `json:"url,omitempty" yaml:"url,omitempty"`
}

func (r rawSource) source() (Source, error) {
	switch {
	case r.Title != nil && r.Author != nil:
		return Book{Title: *r.Title, Author: *r.Author}, nil
	case r.Name != nil && r.URL != nil:
		u, err := url.Parse(*r.URL)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", *r.Name, err)
		}
		if !u.IsAbs() {
			return nil, fmt.Errorf("source %q: url %q is not absolute", *r.Name, *r.URL)
		}
		return Web{Label: *r.Name, URL: u}, nil
	default:
		return nil, fmt.Errorf("source must have either title and author or name and url")
	}
}

func toRaw(s Source) rawSource {
	switch v := s.(type) {
	case Book:
		return rawSource{Title: &v.Title, Author: &v.Author}
	case Web:
		link := v.Attribution()
		return rawSource{Name: &v.Label, URL: &link}
	default:
		panic(fmt.Sprintf("recipe: unknown source type %T", s))
	}
}

func fromRaw(raws []rawSource) (Sources, error) {
	out := make(Sources, 0, len(raws))
	for _, r := range raws {
		s, err := r.source()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// UnmarshalYAML decodes a list of untagged sources.
func (s *Sources) UnmarshalYAML(node *yaml.Node) error {
	var raws []rawSource
	if err := node.Decode(&raws); err != nil {
		return err
	}
	out, err := fromRaw(raws)
	if err != nil {
		return err
	}
	*s = out
	return nil
}

// MarshalYAML encodes sources in their untagged shape.
func (s Sources) MarshalYAML() (any, error) {
	return s.raw(), nil
}

// MarshalJSON encodes sources in their untagged shape.
func (s Sources) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.raw())
}

func (s Sources) raw() []rawSource {
	raws := make([]rawSource, 0, len(s))
	for _, src := range s {
		raws = append(raws, toRaw(src))
	}
	return raws
}

// UnmarshalJSON decodes sources from their untagged shape.
func (s *Sources) UnmarshalJSON(data []byte) error {
	var raws []rawSource
	if err := json.Unmarshal(data, &raws); err != nil {
		return err
	}
	out, err := fromRaw(raws)
	if err != nil {
		return err
	}
	*s = out
	return nil
}
