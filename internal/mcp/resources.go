package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	recipeURIPrefix = "recipe://"
	facetsURI       = "pantry://facets"
)

// FacetsOutput is the JSON body of the facets resource.
type FacetsOutput struct {
	Recipes    uint64         `json:"recipes"`
	Categories map[string]int `json:"categories"`
	Tags       map[string]int `json:"tags"`
}

func (s *Server) registerResources() {
	s.mcp.AddResourceTemplate(
		&mcp.ResourceTemplate{
			Name:        "recipe",
			URITemplate: recipeURIPrefix + "{slug}",
			Description: "A recipe as markdown, addressed by slug",
			MIMEType:    "text/markdown",
		},
		s.handleReadRecipe,
	)
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "facets",
			URI:         facetsURI,
			Description: "Every category and tag in the collection with recipe counts",
			MIMEType:    "application/json",
		},
		s.handleReadFacets,
	)
}

func (s *Server) handleReadRecipe(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	slug, ok := strings.CutPrefix(uri, recipeURIPrefix)
	if !ok || slug == "" {
		return nil, mcp.ResourceNotFoundError(uri)
	}
	out, err := s.getRecipe(ctx, GetRecipeInput{Slug: slug})
	if err != nil {
		if MapError(err).Code == ErrCodeRecipeNotFound {
			return nil, mcp.ResourceNotFoundError(uri)
		}
		return nil, err
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: uri, MIMEType: "text/markdown", Text: FormatRecipe(out)},
		},
	}, nil
}

// handleReadFacets runs an empty query, which matches every recipe, and
// asks for no documents.
func (s *Server) handleReadFacets(ctx context.Context, _ *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	res, err := s.index.Search(ctx, "", 0, 0)
	if err != nil {
		return nil, MapError(err)
	}
	content, err := json.MarshalIndent(FacetsOutput{
		Recipes:    res.Total,
		Categories: res.Categories,
		Tags:       res.Tags,
	}, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{URI: facetsURI, MIMEType: "application/json", Text: string(content)},
		},
	}, nil
}
