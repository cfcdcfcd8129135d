// Package markdown renders recipe bodies to HTML.
//
// Every heading is tagged with an id (the slug of its text) and a class
// listing the ids of the headings it is nested under. A "### Sauce" below
// "## Ingredients" renders as <h3 id="sauce" class="ingredients">, which is
// how sectioned ingredient and direction lists are found again later.
package markdown

import (
	"bytes"
	"html"
	"strings"

	"github.com/gosimple/slug"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Renderer converts markdown to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// New creates a Renderer with heading tagging enabled.
func New() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithParserOptions(
				parser.WithASTTransformers(util.Prioritized(headingTagger{}, 100)),
			),
		),
	}
}

// Render converts src to HTML.
func (r *Renderer) Render(src string) string {
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(src), &buf); err != nil {
		// Convert only fails when the writer does; keep the text readable.
		return "<pre>" + html.EscapeString(src) + "</pre>"
	}
	return buf.String()
}

var defaultRenderer = New()

// Render converts src to HTML with the default Renderer.
func Render(src string) string {
	return defaultRenderer.Render(src)
}

// headingTagger sets id and class attributes on every heading.
// State lives in Transform, so one tagger serves concurrent documents.
type headingTagger struct{}

type openHeading struct {
	level int
	id    string
}

func (headingTagger) Transform(doc *ast.Document, reader text.Reader, _ parser.Context) {
	source := reader.Source()
	var stack []openHeading

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		h, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}

		for len(stack) > 0 && stack[len(stack)-1].level >= h.Level {
			stack = stack[:len(stack)-1]
		}

		id := slug.Make(plainText(h, source))
		classes := make([]string, len(stack))
		for i, open := range stack {
			classes[i] = open.id
		}

		h.SetAttributeString("id", []byte(id))
		h.SetAttributeString("class", []byte(strings.Join(classes, " ")))
		stack = append(stack, openHeading{level: h.Level, id: id})

		return ast.WalkSkipChildren, nil
	})
}

// plainText concatenates the text segments below n.
func plainText(n ast.Node, source []byte) string {
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}
