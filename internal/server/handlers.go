package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Aman-CERP/pantry/internal/errors"
	"github.com/Aman-CERP/pantry/internal/recipe"
	"github.com/Aman-CERP/pantry/internal/search"
)

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/search", http.StatusTemporaryRedirect)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("query") {
		s.renderPage(w, r, s.pages.search, http.StatusOK, searchPage{})
		return
	}

	query := q.Get("query")
	start, size, err := s.page(q.Get("start"), q.Get("size"))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	res, err := s.index.Search(r.Context(), query, start, size)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderPage(w, r, s.pages.search, http.StatusOK, newSearchPage(query, start, size, res))
}

func (s *Server) handleRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderPage(w, r, s.pages.recipe, http.StatusOK, newRecipePage(rec))
}

// handleImport renders a remote recipe without adding it to the index.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	if s.importer == nil {
		s.pageError(w, r, errors.New(errors.ErrCodeNotFound, "recipe import is disabled", nil))
		return
	}
	raw := r.URL.Query().Get("url")
	if raw == "" {
		s.pageError(w, r, errors.New(errors.ErrCodeInvalidInput, "missing url parameter", nil))
		return
	}
	imported, err := s.importer.Import(r.Context(), raw)
	if err != nil {
		s.pageError(w, r, err)
		return
	}
	s.renderPage(w, r, s.pages.recipe, http.StatusOK, newRecipePage(imported.Recipe()))
}

func (s *Server) handleAPISearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, size, err := s.page(q.Get("start"), q.Get("size"))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	res, err := s.index.Search(r.Context(), q.Get("query"), start, size)
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	if res.Documents == nil {
		res.Documents = []recipe.Recipe{}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleAPIRecipe(w http.ResponseWriter, r *http.Request) {
	rec, err := s.lookup(r.Context(), r.PathValue("slug"))
	if err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleAPIReindex(w http.ResponseWriter, r *http.Request) {
	if err := s.index.ReindexAll(r.Context()); err != nil {
		s.apiError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reindexed"})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	select {
	case <-s.index.Done():
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "shutting_down"})
	default:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func (s *Server) lookup(ctx context.Context, slug string) (recipe.Recipe, error) {
	rec, ok, err := s.index.Recipe(ctx, slug)
	if err != nil {
		return recipe.Recipe{}, err
	}
	if !ok {
		return recipe.Recipe{}, errors.New(errors.ErrCodeNotFound, "recipe not found", nil).
			WithDetail("slug", slug)
	}
	return rec, nil
}

// page parses the pagination parameters, defaulting start to 0 and size to
// the configured page size. Both must fit in a uint32.
func (s *Server) page(rawStart, rawSize string) (int, int, error) {
	start, size := 0, s.opts.PageSize
	if rawStart != "" {
		n, err := strconv.ParseUint(rawStart, 10, 32)
		if err != nil {
			return 0, 0, errors.New(errors.ErrCodeInvalidInput, "start must be a non-negative integer", err).
				WithDetail("start", rawStart)
		}
		start = int(n)
	}
	if rawSize != "" {
		n, err := strconv.ParseUint(rawSize, 10, 32)
		if err != nil {
			return 0, 0, errors.New(errors.ErrCodeInvalidInput, "size must be a non-negative integer", err).
				WithDetail("size", rawSize)
		}
		size = int(n)
	}
	return start, size, nil
}

// statusFor maps an error to the HTTP status and the message shown to users.
func statusFor(err error) (int, string) {
	if stderrors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, "The request took too long."
	}
	switch errors.GetCode(err) {
	case errors.ErrCodeNotFound:
		return http.StatusNotFound, "Content not found!"
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidQuery:
		return http.StatusBadRequest, "Bad request."
	case errors.ErrCodeShuttingDown, errors.ErrCodeIndexTimeout:
		return http.StatusServiceUnavailable, "Search index is unavailable!"
	case errors.ErrCodeNetworkTimeout:
		return http.StatusGatewayTimeout, "Remote recipe could not be fetched."
	case errors.ErrCodeNetworkUnavailable, errors.ErrCodeImportFailed:
		return http.StatusBadGateway, "Remote recipe could not be fetched."
	default:
		return http.StatusInternalServerError, "Something went wrong."
	}
}

func (s *Server) logFailure(r *http.Request, status int, err error) {
	if status < http.StatusInternalServerError {
		return
	}
	attrs := append([]any{
		slog.String("path", r.URL.Path),
		slog.String("request_id", RequestIDFrom(r.Context())),
	}, errors.LogAttrs(err)...)
	s.logger.Warn("request failed", attrs...)
}

func (s *Server) pageError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	s.logFailure(r, status, err)
	s.renderPage(w, r, s.pages.errors, status, errorPage{
		Query:   r.URL.Query().Get("query"),
		Status:  status,
		Message: msg,
	})
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, t *template.Template, status int, data any) {
	if err := render(w, t, status, data); err != nil {
		s.logger.Error("render failed",
			slog.String("template", t.Name()),
			slog.String("request_id", RequestIDFrom(r.Context())),
			slog.String("error", err.Error()))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (s *Server) apiError(w http.ResponseWriter, r *http.Request, err error) {
	status, _ := statusFor(err)
	s.logFailure(r, status, err)

	pe, ok := errors.As(err)
	if !ok {
		code := errors.ErrCodeInternal
		if status == http.StatusGatewayTimeout {
			code = errors.ErrCodeIndexTimeout
		}
		pe = errors.Wrap(code, err)
	}
	body, ferr := errors.FormatJSON(pe)
	if ferr != nil {
		http.Error(w, http.StatusText(status), status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":`))
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("}\n"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if err := enc.Encode(v); err != nil {
		slog.Warn("encode response", slog.String("error", err.Error()))
	}
}

var _ Index = (*search.AsyncIndex)(nil)
