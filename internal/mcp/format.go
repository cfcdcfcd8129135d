package mcp

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// FormatSearchResults formats a page of search results as markdown.
func FormatSearchResults(query string, out SearchRecipesOutput, start int) string {
	if out.Total == 0 {
		return fmt.Sprintf("No recipes found for \"%s\"", query)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "## Recipes for \"%s\"\n\n", query)
	fmt.Fprintf(&sb, "Found %d recipe", out.Total)
	if out.Total != 1 {
		sb.WriteString("s")
	}
	if len(out.Recipes) > 0 && uint64(len(out.Recipes)) < out.Total {
		fmt.Fprintf(&sb, ", showing %d-%d", start+1, start+len(out.Recipes))
	}
	sb.WriteString("\n\n")

	for i, r := range out.Recipes {
		fmt.Fprintf(&sb, "### %d. %s\n", start+i+1, r.Title)
		fmt.Fprintf(&sb, "**Slug:** `%s` · **Category:** %s", r.Slug, r.Category)
		if len(r.Tags) > 0 {
			fmt.Fprintf(&sb, " · **Tags:** %s", strings.Join(r.Tags, ", "))
		}
		sb.WriteString("\n\n")
		if r.Description != "" {
			sb.WriteString(firstParagraph(r.Description))
			sb.WriteString("\n\n")
		}
	}

	writeCounts(&sb, "Categories", out.Categories)
	writeCounts(&sb, "Tags", out.Tags)
	return sb.String()
}

// FormatRecipe formats a recipe as markdown.
func FormatRecipe(r RecipeOutput) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", r.Title)
	fmt.Fprintf(&sb, "**Category:** %s\n", r.Category)
	if len(r.Tags) > 0 {
		fmt.Fprintf(&sb, "**Tags:** %s\n", strings.Join(r.Tags, ", "))
	}
	for _, s := range r.Sources {
		switch {
		case s.Attribution != "" && s.Link != "":
			fmt.Fprintf(&sb, "**Source:** [%s](%s) (%s)\n", s.Name, s.Link, s.Attribution)
		case s.Link != "":
			fmt.Fprintf(&sb, "**Source:** [%s](%s)\n", s.Name, s.Link)
		default:
			fmt.Fprintf(&sb, "**Source:** %s\n", s.Name)
		}
	}
	sb.WriteString("\n")

	if r.Description != "" {
		sb.WriteString(r.Description)
		sb.WriteString("\n\n")
	}
	if r.Ingredients != "" {
		sb.WriteString("## Ingredients\n\n")
		writeLines(&sb, r.Ingredients)
	}
	if r.Directions != "" {
		sb.WriteString("## Directions\n\n")
		writeLines(&sb, r.Directions)
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

// writeLines copies extracted list text one item per line, keeping the
// blank lines that separate named sections.
func writeLines(sb *strings.Builder, text string) {
	sb.WriteString(strings.TrimSpace(text))
	sb.WriteString("\n\n")
}

func writeCounts(sb *strings.Builder, label string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	names := slices.Sorted(maps.Keys(counts))
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s (%d)", n, counts[n])
	}
	fmt.Fprintf(sb, "**%s:** %s\n", label, strings.Join(parts, ", "))
}

func firstParagraph(s string) string {
	if i := strings.Index(s, "\n\n"); i >= 0 {
		return s[:i]
	}
	return s
}

// clampLimit ensures limit is within bounds.
func clampLimit(limit, defaultVal, min, max int) int {
	if limit <= 0 {
		return defaultVal
	}
	if limit < min {
		return min
	}
	if limit > max {
		return max
	}
	return limit
}
