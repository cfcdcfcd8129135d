package recipe

import (
	"iter"
	"slices"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Fields are the plain-text facts pulled out of a rendered body.
type Fields struct {
	Description string
	Ingredients string
	Directions  string
	// HasIngredients and HasDirections are false when the body has no such list.
	HasIngredients bool
	HasDirections  bool
}

// Extract parses the rendered body once and pulls out every indexed field.
func (r Recipe) Extract() Fields {
	doc, err := html.Parse(strings.NewReader(r.Contents))
	if err != nil {
		return Fields{}
	}

	var f Fields
	f.Description = description(doc)
	f.Ingredients, f.HasIngredients = listField(doc, "ingredients")
	f.Directions, f.HasDirections = listField(doc, "directions")
	return f
}

// Description is the text of every paragraph, separated by blank lines.
func (r Recipe) Description() string { return r.Extract().Description }

// Ingredients is the ingredient list as text.
func (r Recipe) Ingredients() (string, bool) {
	f := r.Extract()
	return f.Ingredients, f.HasIngredients
}

// Directions is the direction list as text.
func (r Recipe) Directions() (string, bool) {
	f := r.Extract()
	return f.Directions, f.HasDirections
}

func description(doc *html.Node) string {
	var paras []string
	for p := range elements(doc) {
		if p.DataAtom == atom.P {
			paras = append(paras, text(p))
		}
	}
	return strings.Join(paras, "\n\n")
}

// listField reads a list in one of two layouts. Sectioned: every h3 whose
// class names the field, followed by a ul; the h3 id is the section name.
// Unified: a single h2 with the field as its id, followed by a ul.
func listField(doc *html.Node, field string) (string, bool) {
	if sections := sectionedList(doc, field); len(sections) > 0 {
		names := make([]string, 0, len(sections))
		for name := range sections {
			names = append(names, name)
		}
		slices.Sort(names)

		parts := make([]string, 0, len(names))
		for _, name := range names {
			parts = append(parts, name+"\n"+strings.Join(sections[name], "\n"))
		}
		return strings.Join(parts, "\n\n"), true
	}

	if items, ok := unifiedList(doc, field); ok {
		return strings.Join(items, "\n"), true
	}
	return "", false
}

func sectionedList(doc *html.Node, class string) map[string][]string {
	sections := make(map[string][]string)
	for h := range elements(doc) {
		if h.DataAtom != atom.H3 || !hasClass(h, class) {
			continue
		}
		list := nextElement(h)
		if list == nil || list.DataAtom != atom.Ul {
			continue
		}
		var items []string
		for li := range elements(list) {
			if li.DataAtom == atom.Li {
				items = append(items, text(li))
			}
		}
		sections[attr(h, "id")] = items
	}
	return sections
}

func unifiedList(doc *html.Node, id string) ([]string, bool) {
	for h := range elements(doc) {
		if h.DataAtom != atom.H2 || attr(h, "id") != id {
			continue
		}
		list := nextElement(h)
		if list == nil || list.DataAtom != atom.Ul {
			continue
		}
		var items []string
		for li := range elements(list) {
			if li.DataAtom == atom.Li {
				items = append(items, trimmedText(li))
			}
		}
		return items, true
	}
	return nil, false
}

// elements yields n and every element below it in document order.
func elements(n *html.Node) iter.Seq[*html.Node] {
	return func(yield func(*html.Node) bool) {
		var walk func(*html.Node) bool
		walk = func(n *html.Node) bool {
			if n.Type == html.ElementNode && !yield(n) {
				return false
			}
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if !walk(c) {
					return false
				}
			}
			return true
		}
		walk(n)
	}
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

func text(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// trimmedText is the text of n with runs of whitespace collapsed.
func trimmedText(n *html.Node) string {
	return strings.Join(strings.Fields(text(n)), " ")
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasClass(n *html.Node, class string) bool {
	return slices.Contains(strings.Fields(attr(n, "class")), class)
}
