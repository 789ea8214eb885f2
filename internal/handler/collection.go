package handler

import (
	"log/slog"
	"net/http"

	kbSvc "knowledgestack/internal/domain/services/knowledge"
	"knowledgestack/internal/httputil"
)

// CollectionHandler handles collection HTTP requests
type CollectionHandler struct {
	service kbSvc.CollectionService
	logger  *slog.Logger
}

// NewCollectionHandler creates a new collection handler
func NewCollectionHandler(service kbSvc.CollectionService, logger *slog.Logger) *CollectionHandler {
	return &CollectionHandler{
		service: service,
		logger:  logger,
	}
}

// updateCollectionBody is the wire form of a collection PATCH. parent_id
// is tri-state: absent leaves the parent alone, null moves to root.
type updateCollectionBody struct {
	Name          *string                 `json:"name"`
	Slug          *string                 `json:"slug"`
	Description   *string                 `json:"description"`
	ParentID      httputil.OptionalString `json:"parent_id"`
	Position      *int                    `json:"position"`
	Everyone      *bool                   `json:"everyone"`
	DepartmentIDs *[]string               `json:"department_ids"`
}

func (b *updateCollectionBody) request() *kbSvc.UpdateCollectionRequest {
	return &kbSvc.UpdateCollectionRequest{
		Name:          b.Name,
		Slug:          b.Slug,
		Description:   b.Description,
		ParentID:      b.ParentID.Value,
		SetParent:     b.ParentID.Present,
		Position:      b.Position,
		Everyone:      b.Everyone,
		DepartmentIDs: b.DepartmentIDs,
	}
}

type collectionMemberBody struct {
	CollectionID string `json:"collection_id"`
	DocumentID   string `json:"document_id"`
}

// CreateCollection creates a collection
// POST /api/collections
func (h *CollectionHandler) CreateCollection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req kbSvc.CreateCollectionRequest
	if !parseBody(w, r, &req) {
		return
	}
	if !validOptionalID(w, "parent_id", req.ParentID) || !validIDs(w, "department_ids", req.DepartmentIDs) {
		return
	}

	col, err := h.service.CreateCollection(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, col)
}

// ListCollections lists visible collections by (position, name)
// GET /api/collections
func (h *CollectionHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	cols, err := h.service.ListCollections(r.Context(), actor)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, cols)
}

// GetCollection retrieves a collection by slug
// GET /api/collections/{slug}
func (h *CollectionHandler) GetCollection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	col, err := h.service.GetCollection(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, col)
}

// UpdateCollection applies a partial update, including re-parenting
// PATCH /api/collections/{slug}
func (h *CollectionHandler) UpdateCollection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body updateCollectionBody
	if !parseBody(w, r, &body) {
		return
	}
	if !validOptionalID(w, "parent_id", body.ParentID.Value) {
		return
	}
	if body.DepartmentIDs != nil && !validIDs(w, "department_ids", *body.DepartmentIDs) {
		return
	}

	col, err := h.service.UpdateCollection(r.Context(), actor, r.PathValue("slug"), body.request())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, col)
}

// DeleteCollection deletes a collection and its structural tag
// DELETE /api/collections/{slug}
func (h *CollectionHandler) DeleteCollection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteCollection(r.Context(), actor, r.PathValue("slug")); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// AddSubcollection re-parents a collection under this one
// POST /api/collections/{slug}/subcollections
func (h *CollectionHandler) AddSubcollection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body collectionMemberBody
	if !parseBody(w, r, &body) {
		return
	}
	childID, ok := bodyID(w, body.CollectionID, "collection_id")
	if !ok {
		return
	}

	col, err := h.service.AddSubcollection(r.Context(), actor, r.PathValue("slug"), childID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, col)
}

// RemoveSubcollection moves a child collection to the root
// DELETE /api/collections/{slug}/subcollections/{id}
func (h *CollectionHandler) RemoveSubcollection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	childID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	col, err := h.service.RemoveSubcollection(r.Context(), actor, r.PathValue("slug"), childID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, col)
}

// AddDocument adds a document to the collection
// POST /api/collections/{slug}/documents
func (h *CollectionHandler) AddDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var body collectionMemberBody
	if !parseBody(w, r, &body) {
		return
	}
	docID, ok := bodyID(w, body.DocumentID, "document_id")
	if !ok {
		return
	}

	col, err := h.service.AddDocument(r.Context(), actor, r.PathValue("slug"), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, col)
}

// RemoveDocument removes a document from the collection
// DELETE /api/collections/{slug}/documents/{id}
func (h *CollectionHandler) RemoveDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	docID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	col, err := h.service.RemoveDocument(r.Context(), actor, r.PathValue("slug"), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, col)
}

// ListDocuments lists the collection's visible documents
// GET /api/collections/{slug}/documents
func (h *CollectionHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	docs, err := h.service.ListDocuments(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// Candidates lists documents and collections that may be added
// GET /api/collections/{slug}/candidates
func (h *CollectionHandler) Candidates(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	candidates, err := h.service.Candidates(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, candidates)
}

// Ancestors returns the breadcrumb path, root first
// GET /api/collections/{slug}/ancestors
func (h *CollectionHandler) Ancestors(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	ancestors, err := h.service.Ancestors(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, ancestors)
}
