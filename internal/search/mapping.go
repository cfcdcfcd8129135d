package search

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/Aman-CERP/pantry/internal/recipe"
)

// Index fields. Text fields are stemmed with the English analyzer; the
// rest are boolean terms matched verbatim.
const (
	FieldID          = "id"          // I: document key
	FieldSlug        = "slug"        // Q: boolean
	FieldText        = "text"        // unprefixed title
	FieldTitle       = "title"       // S:
	FieldCategory    = "category"    // XC: boolean
	FieldSource      = "source"      // XS:
	FieldSite        = "site"        // XD: boolean
	FieldTag         = "tag"         // XT: boolean
	FieldDescription = "description" // D:
	FieldIngredients = "ingredients" // XI:
	FieldDirections  = "directions"  // XP:

	// FieldPayload holds the serialized recipe. Stored, never indexed.
	FieldPayload = "payload"

	// Facet slots. Slot 1 holds the category, slot 2 the comma-joined tags.
	SlotCategory = "slot_category"
	SlotTags     = "slot_tags"
)

// TagSeparator joins tags in the tag slot.
const TagSeparator = ","

// DocumentKey is the replace and delete key for the recipe file at path.
func DocumentKey(path string) string {
	return "I:" + path
}

func newIndexMapping() *mapping.IndexMappingImpl {
	text := bleve.NewTextFieldMapping()
	text.Analyzer = en.AnalyzerName
	text.Store = false
	text.IncludeInAll = false

	exact := bleve.NewKeywordFieldMapping()
	exact.Analyzer = keyword.Name
	exact.Store = false
	exact.IncludeInAll = false

	slot := bleve.NewKeywordFieldMapping()
	slot.Analyzer = keyword.Name
	slot.Store = false
	slot.IncludeInAll = false
	slot.DocValues = true

	payload := bleve.NewTextFieldMapping()
	payload.Index = false
	payload.Store = true
	payload.IncludeInAll = false
	payload.IncludeTermVectors = false
	payload.DocValues = false

	doc := bleve.NewDocumentStaticMapping()
	for _, f := range []string{FieldText, FieldTitle, FieldSource, FieldDescription, FieldIngredients, FieldDirections} {
		doc.AddFieldMappingsAt(f, text)
	}
	for _, f := range []string{FieldID, FieldSlug, FieldCategory, FieldSite, FieldTag} {
		doc.AddFieldMappingsAt(f, exact)
	}
	doc.AddFieldMappingsAt(SlotCategory, slot)
	doc.AddFieldMappingsAt(SlotTags, slot)
	doc.AddFieldMappingsAt(FieldPayload, payload)

	im := bleve.NewIndexMapping()
	im.DefaultMapping = doc
	im.DefaultAnalyzer = en.AnalyzerName
	im.DefaultField = FieldText
	return im
}

// newDocument derives the indexed form of a recipe. A recipe without
// metadata only gets its key, body fields and payload.
func newDocument(path string, r recipe.Recipe) (map[string]any, error) {
	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("encode payload for %s: %w", path, err)
	}

	fields := r.Extract()
	doc := map[string]any{
		FieldID:          path,
		FieldDescription: fields.Description,
		FieldPayload:     string(payload),
	}
	if fields.HasIngredients {
		doc[FieldIngredients] = fields.Ingredients
	}
	if fields.HasDirections {
		doc[FieldDirections] = fields.Directions
	}

	md := r.Metadata
	if md == nil {
		return doc, nil
	}

	doc[FieldSlug] = md.Slug()
	doc[FieldText] = md.Title
	doc[FieldTitle] = md.Title
	doc[FieldCategory] = md.Category
	doc[SlotCategory] = md.Category

	var names, sites []string
	for _, src := range md.Sources {
		names = append(names, src.Name())
		if domain, ok := src.Domain(); ok {
			sites = append(sites, domain)
		}
	}
	if len(names) > 0 {
		doc[FieldSource] = names
	}
	if len(sites) > 0 {
		doc[FieldSite] = sites
	}

	if len(md.Tags) > 0 {
		doc[FieldTag] = md.Tags
		doc[SlotTags] = strings.Join(md.Tags, TagSeparator)
	}

	return doc, nil
}
