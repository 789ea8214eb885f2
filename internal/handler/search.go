package handler

import (
	"log/slog"
	"net/http"
	"strings"

	kb "knowledgestack/internal/domain/models/knowledge"
	kbSvc "knowledgestack/internal/domain/services/knowledge"
	"knowledgestack/internal/httputil"
)

// SearchHandler handles unified search requests
type SearchHandler struct {
	service kbSvc.SearchService
	logger  *slog.Logger
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(service kbSvc.SearchService, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service: service,
		logger:  logger,
	}
}

// Search runs a query across documents, collections, departments and tags
// GET /api/search?q=&kind=document,tag
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	var kinds []kb.SearchResultKind
	if raw := query.Get("kind"); raw != "" {
		for _, k := range strings.Split(raw, ",") {
			if k = strings.TrimSpace(k); k != "" {
				kinds = append(kinds, kb.SearchResultKind(k))
			}
		}
	}

	results, err := h.service.Search(r.Context(), actor, query.Get("q"), kinds)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"query":   strings.TrimSpace(query.Get("q")),
		"results": results,
	})
}
