package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"path/filepath"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/pantry/internal/recipe"
	"github.com/Aman-CERP/pantry/internal/search"
	"github.com/Aman-CERP/pantry/pkg/version"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

// Index is the part of the search index the MCP tools use.
// *search.AsyncIndex satisfies it.
type Index interface {
	Search(ctx context.Context, query string, start, size int) (search.Result, error)
	Recipe(ctx context.Context, slug string) (recipe.Recipe, bool, error)
	ReindexAll(ctx context.Context) error
	ReindexSome(ctx context.Context, paths []string) error
}

// Server is the MCP server for pantry.
type Server struct {
	mcp       *mcp.Server
	index     Index
	recipeDir string
	logger    *slog.Logger
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        "search_recipes",
		Description: "Search the recipe collection. Words match recipe titles; use tag:, category:, ingredient:, step:, source: and site: to search other fields. Returns a page of matches with category and tag counts over all matches.",
	},
	{
		Name:        "get_recipe",
		Description: "Fetch one recipe by slug, with its description, ingredients, directions and sources.",
	},
	{
		Name:        "reindex",
		Description: "Reload recipe files from disk. Pass paths relative to the recipe directory to reload only those files; omit them to rebuild the whole index.",
	},
}

// NewServer creates a new MCP server. recipeDir anchors the relative paths
// accepted by the reindex tool.
func NewServer(index Index, recipeDir string) (*Server, error) {
	if index == nil {
		return nil, fmt.Errorf("search index is required")
	}

	s := &Server{
		index:     index,
		recipeDir: recipeDir,
		logger:    slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "pantry",
			Version: version.Short(),
		},
		nil,
	)

	s.registerTools()
	s.registerResources()
	return s, nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return tools
}

// CallTool invokes a tool by name with JSON-style arguments, the way a
// client request would arrive.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case "search_recipes":
		var in SearchRecipesInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.searchRecipes(ctx, in)
	case "get_recipe":
		var in GetRecipeInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.getRecipe(ctx, in)
	case "reindex":
		var in ReindexInput
		if err := decodeArgs(args, &in); err != nil {
			return nil, err
		}
		return s.reindex(ctx, in)
	default:
		return nil, NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewInvalidParamsError(fmt.Sprintf("invalid arguments: %v", err))
	}
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[0].Name, Description: tools[0].Description}, s.mcpSearchRecipesHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[1].Name, Description: tools[1].Description}, s.mcpGetRecipeHandler)
	mcp.AddTool(s.mcp, &mcp.Tool{Name: tools[2].Name, Description: tools[2].Description}, s.mcpReindexHandler)
	s.logger.Debug("MCP tools registered", slog.Int("count", len(tools)))
}

func (s *Server) searchRecipes(ctx context.Context, in SearchRecipesInput) (SearchRecipesOutput, error) {
	if in.Start < 0 || uint64(in.Start) > math.MaxUint32 {
		return SearchRecipesOutput{}, NewInvalidParamsError("start must be between 0 and 4294967295")
	}
	size := clampLimit(in.Size, defaultPageSize, 1, maxPageSize)

	start := time.Now()
	requestID := generateRequestID()
	s.logger.Info("search_recipes started",
		slog.String("request_id", requestID),
		slog.String("query", in.Query),
		slog.Int("start", in.Start),
		slog.Int("size", size))

	res, err := s.index.Search(ctx, in.Query, in.Start, size)
	if err != nil {
		s.logger.Error("search_recipes failed",
			slog.String("request_id", requestID),
			slog.Duration("duration", time.Since(start)),
			slog.String("error", err.Error()))
		return SearchRecipesOutput{}, MapError(err)
	}

	out := SearchRecipesOutput{
		Total:      res.Total,
		Recipes:    make([]RecipeBrief, 0, len(res.Documents)),
		Categories: res.Categories,
		Tags:       res.Tags,
	}
	for _, doc := range res.Documents {
		out.Recipes = append(out.Recipes, toBrief(doc))
	}

	s.logger.Info("search_recipes completed",
		slog.String("request_id", requestID),
		slog.Duration("duration", time.Since(start)),
		slog.Int("result_count", len(out.Recipes)))
	return out, nil
}

func (s *Server) getRecipe(ctx context.Context, in GetRecipeInput) (RecipeOutput, error) {
	slug := strings.TrimSpace(in.Slug)
	if slug == "" {
		return RecipeOutput{}, NewInvalidParamsError("slug parameter is required")
	}
	r, ok, err := s.index.Recipe(ctx, slug)
	if err != nil {
		return RecipeOutput{}, MapError(err)
	}
	if !ok {
		return RecipeOutput{}, NewRecipeNotFoundError(slug)
	}
	return toRecipeOutput(r), nil
}

func (s *Server) reindex(ctx context.Context, in ReindexInput) (ReindexOutput, error) {
	if len(in.Paths) == 0 {
		s.logger.Info("reindex requested", slog.String("scope", "all"))
		if err := s.index.ReindexAll(ctx); err != nil {
			return ReindexOutput{}, MapError(err)
		}
		return ReindexOutput{Scope: "all"}, nil
	}

	paths := make([]string, 0, len(in.Paths))
	for _, p := range in.Paths {
		if !isValidPath(p) {
			return ReindexOutput{}, NewInvalidParamsError(fmt.Sprintf("invalid path: %s", p))
		}
		joined := filepath.Join(s.recipeDir, filepath.FromSlash(p))
		if !recipe.Eligible(s.recipeDir, joined) {
			return ReindexOutput{}, NewInvalidParamsError(fmt.Sprintf("not a recipe path: %s", p))
		}
		paths = append(paths, joined)
	}
	s.logger.Info("reindex requested",
		slog.String("scope", "paths"),
		slog.Int("paths", len(paths)))
	if err := s.index.ReindexSome(ctx, paths); err != nil {
		return ReindexOutput{}, MapError(err)
	}
	return ReindexOutput{Scope: "paths", Paths: len(paths)}, nil
}

func (s *Server) mcpSearchRecipesHandler(ctx context.Context, _ *mcp.CallToolRequest, in SearchRecipesInput) (
	*mcp.CallToolResult,
	SearchRecipesOutput,
	error,
) {
	out, err := s.searchRecipes(ctx, in)
	if err != nil {
		return nil, SearchRecipesOutput{}, err
	}
	return textResult(FormatSearchResults(in.Query, out, in.Start)), out, nil
}

func (s *Server) mcpGetRecipeHandler(ctx context.Context, _ *mcp.CallToolRequest, in GetRecipeInput) (
	*mcp.CallToolResult,
	RecipeOutput,
	error,
) {
	out, err := s.getRecipe(ctx, in)
	if err != nil {
		return nil, RecipeOutput{}, err
	}
	return textResult(FormatRecipe(out)), out, nil
}

func (s *Server) mcpReindexHandler(ctx context.Context, _ *mcp.CallToolRequest, in ReindexInput) (
	*mcp.CallToolResult,
	ReindexOutput,
	error,
) {
	out, err := s.reindex(ctx, in)
	if err != nil {
		return nil, ReindexOutput{}, err
	}
	return nil, out, nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Serve starts the server with the specified transport.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("Starting MCP server", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && err != context.Canceled {
			s.logger.Error("MCP server stopped with error",
				slog.String("error", err.Error()))
		} else {
			s.logger.Info("MCP server stopped gracefully")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// isValidPath accepts only relative paths that stay inside the recipe
// directory.
func isValidPath(path string) bool {
	if path == "" {
		return false
	}
	if filepath.IsAbs(path) || strings.HasPrefix(path, "/") {
		return false
	}
	// Windows drive letters
	if len(path) >= 2 && path[1] == ':' {
		return false
	}
	cleaned := filepath.Clean(filepath.FromSlash(path))
	for _, part := range strings.Split(cleaned, string(filepath.Separator)) {
		if part == ".." {
			return false
		}
	}
	return true
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
