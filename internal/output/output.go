// Package output formats CLI output, in colour when writing to a terminal.
package output

import (
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strings"

	"github.com/mattn/go-isatty"

	"github.com/Aman-CERP/pantry/internal/recipe"
	"github.com/Aman-CERP/pantry/internal/search"
)

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	styles   Styles
	useColor bool
}

// New creates a Writer that colours its output when out is a terminal and
// NO_COLOR is unset.
func New(out io.Writer) *Writer {
	return NewWithColor(out, ShouldUseColor(out))
}

// NewWithColor creates a Writer with colour forced on or off.
func NewWithColor(out io.Writer, useColor bool) *Writer {
	styles := NoColorStyles()
	if useColor {
		styles = DefaultStyles()
	}
	return &Writer{out: out, styles: styles, useColor: useColor}
}

// ShouldUseColor reports whether w is a terminal that accepts colour.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.styles.Success.Render("✓"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status(w.styles.Warning.Render("!"), msg)
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status(w.styles.Error.Render("✗"), msg)
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Header prints a bold section header.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.styles.Header.Render(msg))
}

// KeyValue prints an aligned label and value.
func (w *Writer) KeyValue(key string, value any) {
	_, _ = fmt.Fprintf(w.out, "  %s %v\n", w.styles.Label.Render(fmt.Sprintf("%-14s", key+":")), value)
}

// Code prints a block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// SearchResults prints a page of results followed by the facet counts.
func (w *Writer) SearchResults(query string, start int, res search.Result) {
	if res.Total == 0 {
		_, _ = fmt.Fprintf(w.out, "No recipes found for %q\n", query)
		return
	}

	noun := "recipes"
	if res.Total == 1 {
		noun = "recipe"
	}
	summary := fmt.Sprintf("%d %s", res.Total, noun)
	if n := len(res.Documents); n > 0 && uint64(n) < res.Total {
		summary += fmt.Sprintf(", showing %d-%d", start+1, start+n)
	}
	w.Header(summary)
	w.Newline()

	for i, doc := range res.Documents {
		title, _ := doc.Title()
		slug, _ := doc.Slug()
		category, _ := doc.Category()
		_, _ = fmt.Fprintf(w.out, "%3d. %s %s\n", start+i+1,
			w.styles.Title.Render(title),
			w.styles.Dim.Render("("+slug+")"))
		line := "     " + w.styles.Label.Render(category)
		if tags := doc.Tags(); len(tags) > 0 {
			line += " " + w.tags(tags)
		}
		_, _ = fmt.Fprintln(w.out, line)
	}

	w.Newline()
	w.counts("Categories", res.Categories)
	w.counts("Tags", res.Tags)
}

// Recipe prints a recipe's metadata and extracted text.
func (w *Writer) Recipe(r recipe.Recipe) {
	title, ok := r.Title()
	if !ok {
		title = "Unknown"
	}
	category, _ := r.Category()

	_, _ = fmt.Fprintln(w.out, w.styles.Title.Render(title))
	w.KeyValue("Category", category)
	if tags := r.Tags(); len(tags) > 0 {
		w.KeyValue("Tags", w.tags(tags))
	}
	for _, s := range r.Sources() {
		source := s.Name()
		if a := s.Attribution(); a != "" {
			source += " (" + a + ")"
		}
		w.KeyValue("Source", source)
	}

	fields := r.Extract()
	if fields.Description != "" {
		w.Newline()
		_, _ = fmt.Fprintln(w.out, fields.Description)
	}
	if fields.HasIngredients {
		w.Newline()
		w.Header("Ingredients")
		_, _ = fmt.Fprintln(w.out, fields.Ingredients)
	}
	if fields.HasDirections {
		w.Newline()
		w.Header("Directions")
		_, _ = fmt.Fprintln(w.out, fields.Directions)
	}
}

func (w *Writer) tags(tags []string) string {
	parts := make([]string, len(tags))
	for i, t := range tags {
		parts[i] = w.styles.Tag.Render("#" + t)
	}
	return strings.Join(parts, " ")
}

func (w *Writer) counts(label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := slices.Sorted(maps.Keys(counts))
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s %d", n, counts[n])
	}
	_, _ = fmt.Fprintf(w.out, "%s %s\n", w.styles.Label.Render(label+":"), strings.Join(parts, ", "))
}
