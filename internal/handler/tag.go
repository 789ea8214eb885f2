package handler

import (
	"log/slog"
	"net/http"

	kbSvc "knowledgestack/internal/domain/services/knowledge"
	"knowledgestack/internal/httputil"
)

// TagHandler handles manual tag requests
type TagHandler struct {
	service kbSvc.TagService
	logger  *slog.Logger
}

// NewTagHandler creates a new tag handler
func NewTagHandler(service kbSvc.TagService, logger *slog.Logger) *TagHandler {
	return &TagHandler{
		service: service,
		logger:  logger,
	}
}

func validTarget(w http.ResponseWriter, target *kbSvc.TagTargetInput) bool {
	if target == nil || target.TargetID == "" {
		return true
	}
	return validIDs(w, "target_id", []string{target.TargetID})
}

// CreateTag creates a manual tag
// POST /api/tags
func (h *TagHandler) CreateTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req kbSvc.CreateTagRequest
	if !parseBody(w, r, &req) {
		return
	}
	if !validTarget(w, req.Target) {
		return
	}

	tag, err := h.service.CreateTag(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, tag)
}

// ListTags lists tags, optionally of one target kind
// GET /api/tags?kind=
func (h *TagHandler) ListTags(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	tags, err := h.service.ListTags(r.Context(), actor, r.URL.Query().Get("kind"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tags)
}

// GetTag retrieves a tag
// GET /api/tags/{id}
func (h *TagHandler) GetTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	tag, err := h.service.GetTag(r.Context(), actor, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tag)
}

// UpdateTag edits a manual tag
// PATCH /api/tags/{id}
func (h *TagHandler) UpdateTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req kbSvc.UpdateTagRequest
	if !parseBody(w, r, &req) {
		return
	}
	if !validTarget(w, req.Target) {
		return
	}

	tag, err := h.service.UpdateTag(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tag)
}

// DeleteTag deletes a manual tag; structural tags answer 409
// DELETE /api/tags/{id}
func (h *TagHandler) DeleteTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteTag(r.Context(), actor, id); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}
