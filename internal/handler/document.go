package handler

import (
	"log/slog"
	"net/http"

	kbSvc "knowledgestack/internal/domain/services/knowledge"
	"knowledgestack/internal/httputil"
)

// DocumentHandler handles document, section, link and version requests
type DocumentHandler struct {
	service kbSvc.DocumentService
	logger  *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(service kbSvc.DocumentService, logger *slog.Logger) *DocumentHandler {
	return &DocumentHandler{
		service: service,
		logger:  logger,
	}
}

// CreateDocument creates a document with optional sections and links
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req kbSvc.CreateDocumentRequest
	if !parseBody(w, r, &req) {
		return
	}
	if !validIDs(w, "department_ids", req.DepartmentIDs) {
		return
	}

	doc, err := h.service.CreateDocument(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// ListDocuments lists visible documents
// GET /api/documents?status=&department=&created_by=
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	req := &kbSvc.ListDocumentsRequest{
		Status:         query.Get("status"),
		DepartmentSlug: query.Get("department"),
		CreatedBy:      query.Get("created_by"),
	}
	if req.CreatedBy != "" && !validIDs(w, "created_by", []string{req.CreatedBy}) {
		return
	}

	docs, err := h.service.ListDocuments(r.Context(), actor, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// GetDocument retrieves a document with its sections, links and tags
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	doc, err := h.service.GetDocument(r.Context(), actor, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// UpdateDocument applies a partial update
// PATCH /api/documents/{id}
func (h *DocumentHandler) UpdateDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req kbSvc.UpdateDocumentRequest
	if !parseBody(w, r, &req) {
		return
	}
	if req.DepartmentIDs != nil && !validIDs(w, "department_ids", *req.DepartmentIDs) {
		return
	}

	doc, err := h.service.UpdateDocument(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DeleteDocument deletes a document
// DELETE /api/documents/{id}
func (h *DocumentHandler) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteDocument(r.Context(), actor, id); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// SetTags replaces the document's department and manual tags
// POST /api/documents/{id}/tags
func (h *DocumentHandler) SetTags(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req kbSvc.SetTagsRequest
	if !parseBody(w, r, &req) {
		return
	}
	if !validIDs(w, "tag_ids", req.TagIDs) {
		return
	}

	doc, err := h.service.SetTags(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// DetachTag removes one manual tag; structural tags answer 409
// DELETE /api/documents/{id}/tags/{tagId}
func (h *DocumentHandler) DetachTag(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	tagID, ok := pathID(w, r, "tagId")
	if !ok {
		return
	}

	doc, err := h.service.DetachTag(r.Context(), actor, id, tagID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// SetCollections replaces the document's collection membership
// POST /api/documents/{id}/collections
func (h *DocumentHandler) SetCollections(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req kbSvc.SetCollectionsRequest
	if !parseBody(w, r, &req) {
		return
	}
	if !validIDs(w, "collection_ids", req.CollectionIDs) {
		return
	}

	doc, err := h.service.SetCollections(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// AddSection appends a section
// POST /api/documents/{id}/sections
func (h *DocumentHandler) AddSection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req kbSvc.SectionInput
	if !parseBody(w, r, &req) {
		return
	}

	section, err := h.service.AddSection(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, section)
}

// UpdateSection edits a section's header or body
// PATCH /api/documents/{id}/sections/{sectionId}
func (h *DocumentHandler) UpdateSection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sectionID, ok := pathID(w, r, "sectionId")
	if !ok {
		return
	}

	var req kbSvc.UpdateSectionRequest
	if !parseBody(w, r, &req) {
		return
	}

	section, err := h.service.UpdateSection(r.Context(), actor, id, sectionID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, section)
}

// DeleteSection deletes a section
// DELETE /api/documents/{id}/sections/{sectionId}
func (h *DocumentHandler) DeleteSection(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sectionID, ok := pathID(w, r, "sectionId")
	if !ok {
		return
	}

	if err := h.service.DeleteSection(r.Context(), actor, id, sectionID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// ReorderSections reorders sections; unknown ids are ignored
// POST /api/documents/{id}/sections/reorder
func (h *DocumentHandler) ReorderSections(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req kbSvc.ReorderSectionsRequest
	if !parseBody(w, r, &req) {
		return
	}
	if !validIDs(w, "section_ids", req.SectionIDs) {
		return
	}

	sections, err := h.service.ReorderSections(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, sections)
}

// UploadSectionImage attaches an image to a section
// POST /api/documents/{id}/sections/{sectionId}/image
func (h *DocumentHandler) UploadSectionImage(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	sectionID, ok := pathID(w, r, "sectionId")
	if !ok {
		return
	}

	upload, done, ok := parseUpload(w, r)
	if !ok {
		return
	}
	defer done()

	section, err := h.service.UploadSectionImage(r.Context(), actor, id, sectionID, upload)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, section)
}

// AddLink appends a resource link
// POST /api/documents/{id}/links
func (h *DocumentHandler) AddLink(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req kbSvc.LinkInput
	if !parseBody(w, r, &req) {
		return
	}

	link, err := h.service.AddLink(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, link)
}

// UpdateLink edits a resource link
// PATCH /api/documents/{id}/links/{linkId}
func (h *DocumentHandler) UpdateLink(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	linkID, ok := pathID(w, r, "linkId")
	if !ok {
		return
	}

	var req kbSvc.UpdateLinkRequest
	if !parseBody(w, r, &req) {
		return
	}

	link, err := h.service.UpdateLink(r.Context(), actor, id, linkID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, link)
}

// DeleteLink deletes a resource link
// DELETE /api/documents/{id}/links/{linkId}
func (h *DocumentHandler) DeleteLink(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	linkID, ok := pathID(w, r, "linkId")
	if !ok {
		return
	}

	if err := h.service.DeleteLink(r.Context(), actor, id, linkID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

// ListVersions lists the document's snapshots, newest first
// GET /api/documents/{id}/versions
func (h *DocumentHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	versions, err := h.service.ListVersions(r.Context(), actor, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}
