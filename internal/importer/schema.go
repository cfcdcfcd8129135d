package importer

import (
	"encoding/json"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Schema is the part of a schema.org Recipe an import uses.
type Schema struct {
	Name        string
	Description string
	PrepTime    string
	CookTime    string
	TotalTime   string
	Ingredients []string
	// Sections holds the directions. An unnamed single section means the
	// page did not group its steps.
	Sections []Section
}

// Section is a named group of direction steps.
type Section struct {
	Name  string
	Steps []string
}

// FindRecipes returns every schema.org Recipe embedded as JSON-LD in the
// HTML document read from r, in document order. Malformed JSON-LD blocks
// are skipped.
func FindRecipes(r io.Reader) ([]Schema, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var out []Schema
	for n := range doc.Descendants() {
		if n.Type != html.ElementNode || n.DataAtom != atom.Script || !isJSONLD(n) {
			continue
		}
		var raw any
		if err := json.Unmarshal([]byte(textOf(n)), &raw); err != nil {
			continue
		}
		collect(raw, &out)
	}
	return out, nil
}

func isJSONLD(n *html.Node) bool {
	for _, a := range n.Attr {
		if a.Key == "type" {
			return strings.EqualFold(strings.TrimSpace(a.Val), "application/ld+json")
		}
	}
	return false
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
	}
	return sb.String()
}

// collect walks top-level arrays and @graph lists looking for Recipe nodes.
func collect(v any, out *[]Schema) {
	switch v := v.(type) {
	case []any:
		for _, item := range v {
			collect(item, out)
		}
	case map[string]any:
		if hasType(v, "Recipe") {
			if s, ok := toSchema(v); ok {
				*out = append(*out, s)
			}
			return
		}
		if graph, ok := v["@graph"]; ok {
			collect(graph, out)
		}
	}
}

func hasType(obj map[string]any, want string) bool {
	for _, t := range texts(obj["@type"]) {
		if t == want || strings.HasSuffix(t, "/"+want) {
			return true
		}
	}
	return false
}

func toSchema(obj map[string]any) (Schema, bool) {
	s := Schema{
		Name:        clean(str(obj["name"])),
		Description: clean(str(obj["description"])),
		PrepTime:    str(obj["prepTime"]),
		CookTime:    str(obj["cookTime"]),
		TotalTime:   str(obj["totalTime"]),
	}
	if s.Name == "" {
		return Schema{}, false
	}

	ingredients := obj["recipeIngredient"]
	if ingredients == nil {
		ingredients = obj["ingredients"]
	}
	for _, i := range texts(ingredients) {
		if i = clean(i); i != "" {
			s.Ingredients = append(s.Ingredients, i)
		}
	}

	s.Sections = instructions(obj["recipeInstructions"])
	return s, true
}

// instructions flattens the shapes recipeInstructions takes in the wild:
// a text blob, a list of strings, HowToSteps, or HowToSections of steps.
func instructions(v any) []Section {
	var loose Section
	var named []Section

	var addStep func(sec *Section, v any)
	addStep = func(sec *Section, v any) {
		switch v := v.(type) {
		case string:
			for _, line := range strings.Split(v, "\n") {
				if line = clean(line); line != "" {
					sec.Steps = append(sec.Steps, line)
				}
			}
		case []any:
			for _, item := range v {
				addStep(sec, item)
			}
		case map[string]any:
			if hasType(v, "HowToSection") {
				inner := Section{Name: clean(str(v["name"]))}
				addStep(&inner, v["itemListElement"])
				if len(inner.Steps) > 0 {
					named = append(named, inner)
				}
				return
			}
			if text := str(v["text"]); text != "" {
				addStep(sec, text)
			} else if list, ok := v["itemListElement"]; ok {
				addStep(sec, list)
			} else {
				addStep(sec, str(v["name"]))
			}
		}
	}
	addStep(&loose, v)

	if len(loose.Steps) > 0 {
		named = append([]Section{loose}, named...)
	}
	return named
}

// str reads a JSON-LD value that should be text. Lists yield their first
// entry and value objects their @value.
func str(v any) string {
	switch v := v.(type) {
	case string:
		return v
	case []any:
		if len(v) > 0 {
			return str(v[0])
		}
	case map[string]any:
		if s, ok := v["@value"]; ok {
			return str(s)
		}
	}
	return ""
}

// texts reads a JSON-LD value that may be one string or a list of them.
func texts(v any) []string {
	switch v := v.(type) {
	case string:
		return []string{v}
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s := str(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// clean drops any markup in s and collapses whitespace.
func clean(s string) string {
	if strings.ContainsAny(s, "<&") {
		if nodes, err := html.ParseFragment(strings.NewReader(s), &html.Node{
			Type: html.ElementNode, Data: "div", DataAtom: atom.Div,
		}); err == nil {
			var sb strings.Builder
			for _, n := range nodes {
				for d := range n.Descendants() {
					if d.Type == html.TextNode {
						sb.WriteString(d.Data)
					}
				}
				if n.Type == html.TextNode {
					sb.WriteString(n.Data)
				}
			}
			s = sb.String()
		}
	}
	return strings.Join(strings.Fields(s), " ")
}
