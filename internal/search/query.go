package search

import (
	"strings"
	"unicode"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindBoolean
)

type fieldSpec struct {
	field string
	kind  fieldKind
}

// prefixes maps the field keywords users type to index fields.
var prefixes = map[string]fieldSpec{
	"description": {FieldDescription, kindText},
	"desc":        {FieldDescription, kindText},
	"ingredient":  {FieldIngredients, kindText},
	"ingredients": {FieldIngredients, kindText},
	"step":        {FieldDirections, kindText},
	"steps":       {FieldDirections, kindText},
	"direction":   {FieldDirections, kindText},
	"directions":  {FieldDirections, kindText},
	"name":        {FieldTitle, kindText},
	"title":       {FieldTitle, kindText},
	"source":      {FieldSource, kindText},
	"category":    {FieldCategory, kindBoolean},
	"tag":         {FieldTag, kindBoolean},
	"slug":        {FieldSlug, kindBoolean},
	"site":        {FieldSite, kindBoolean},
}

type modifier int

const (
	optional modifier = iota
	required
	excluded
)

type term struct {
	spec   fieldSpec
	value  string
	phrase bool
	mod    modifier
}

// Translate parses a user query into a bleve query.
//
// Terms are whitespace separated and may be quoted. A term may carry a field
// prefix ("tag:quick", "title:\"french toast\""), a leading '+' (required) or
// '-' (excluded). AND, OR and NOT are accepted between terms. Unprefixed
// terms match the title. Text terms are OR-ed and ranked; boolean terms
// filter, OR-ed within a field and AND-ed across fields. A query with no
// positive terms matches every document.
func Translate(q string) query.Query {
	terms := tokenize(q)

	var (
		musts, shoulds, mustNots []query.Query
		filterFields             []string
		filters                  = make(map[string][]query.Query)
	)

	for _, t := range terms {
		var clause query.Query
		switch t.spec.kind {
		case kindBoolean:
			tq := bleve.NewTermQuery(t.value)
			tq.SetField(t.spec.field)
			clause = tq
		default:
			if t.phrase {
				pq := bleve.NewMatchPhraseQuery(t.value)
				pq.SetField(t.spec.field)
				clause = pq
			} else {
				mq := bleve.NewMatchQuery(t.value)
				mq.SetField(t.spec.field)
				clause = mq
			}
		}

		switch {
		case t.mod == excluded:
			mustNots = append(mustNots, clause)
		case t.spec.kind == kindBoolean:
			if _, seen := filters[t.spec.field]; !seen {
				filterFields = append(filterFields, t.spec.field)
			}
			filters[t.spec.field] = append(filters[t.spec.field], clause)
		case t.mod == required:
			musts = append(musts, clause)
		default:
			shoulds = append(shoulds, clause)
		}
	}

	for _, f := range filterFields {
		if group := filters[f]; len(group) == 1 {
			musts = append(musts, group[0])
		} else {
			musts = append(musts, bleve.NewDisjunctionQuery(group...))
		}
	}

	bq := bleve.NewBooleanQuery()
	switch {
	case len(shoulds) > 0 && !hasRequiredText(terms):
		// At least one optional text term has to match.
		bq.AddMust(bleve.NewDisjunctionQuery(shoulds...))
	case len(shoulds) > 0:
		bq.AddShould(shoulds...)
	}
	if len(musts) > 0 {
		bq.AddMust(musts...)
	}
	if bq.Must == nil {
		bq.AddMust(bleve.NewMatchAllQuery())
	}
	if len(mustNots) > 0 {
		bq.AddMustNot(mustNots...)
	}
	return bq
}

func hasRequiredText(terms []term) bool {
	for _, t := range terms {
		if t.mod == required && t.spec.kind == kindText {
			return true
		}
	}
	return false
}

var defaultSpec = fieldSpec{FieldText, kindText}

// tokenize splits q into terms. It never fails: stray quotes and unknown
// prefixes degrade to plain text.
func tokenize(q string) []term {
	var (
		terms   []term
		pending = optional
		rs      = []rune(q)
		i       = 0
	)

	for i < len(rs) {
		for i < len(rs) && unicode.IsSpace(rs[i]) {
			i++
		}
		if i >= len(rs) {
			break
		}

		mod := pending
		pending = optional
		switch rs[i] {
		case '+':
			mod = required
			i++
		case '-':
			mod = excluded
			i++
		}

		t := term{spec: defaultSpec, mod: mod}

		if i < len(rs) && rs[i] == '"' {
			t.value, i = readQuoted(rs, i+1)
			t.phrase = true
		} else {
			start := i
			for i < len(rs) && !unicode.IsSpace(rs[i]) && rs[i] != ':' && rs[i] != '"' {
				i++
			}
			word := string(rs[start:i])

			if spec, ok := prefixes[strings.ToLower(word)]; ok && i < len(rs) && rs[i] == ':' {
				t.spec = spec
				i++
				if i < len(rs) && rs[i] == '"' {
					t.value, i = readQuoted(rs, i+1)
					t.phrase = true
				} else {
					vstart := i
					for i < len(rs) && !unicode.IsSpace(rs[i]) {
						i++
					}
					t.value = string(rs[vstart:i])
				}
			} else {
				for i < len(rs) && !unicode.IsSpace(rs[i]) {
					i++
				}
				t.value = string(rs[start:i])
			}
		}

		if t.value == "" {
			continue
		}

		if mod == optional && !t.phrase && t.spec == defaultSpec {
			switch t.value {
			case "AND":
				if n := len(terms); n > 0 && terms[n-1].mod == optional {
					terms[n-1].mod = required
				}
				pending = required
				continue
			case "OR":
				continue
			case "NOT":
				pending = excluded
				continue
			}
		}

		terms = append(terms, t)
	}

	return terms
}

// readQuoted reads up to the closing quote, or the end of input.
func readQuoted(rs []rune, i int) (string, int) {
	start := i
	for i < len(rs) && rs[i] != '"' {
		i++
	}
	value := strings.TrimSpace(string(rs[start:i]))
	if i < len(rs) {
		i++
	}
	return value, i
}
