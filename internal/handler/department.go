package handler

import (
	"log/slog"
	"net/http"

	kbSvc "knowledgestack/internal/domain/services/knowledge"
	"knowledgestack/internal/httputil"
)

// DepartmentHandler handles department HTTP requests
type DepartmentHandler struct {
	service kbSvc.DepartmentService
	logger  *slog.Logger
}

// NewDepartmentHandler creates a new department handler
func NewDepartmentHandler(service kbSvc.DepartmentService, logger *slog.Logger) *DepartmentHandler {
	return &DepartmentHandler{
		service: service,
		logger:  logger,
	}
}

// CreateDepartment creates a department and its structural tag
// POST /api/departments
func (h *DepartmentHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req kbSvc.CreateDepartmentRequest
	if !parseBody(w, r, &req) {
		return
	}

	dept, err := h.service.CreateDepartment(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, dept)
}

// ListDepartments lists the org's departments
// GET /api/departments
func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	depts, err := h.service.ListDepartments(r.Context(), actor)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, depts)
}

// GetDepartment retrieves a department by slug
// GET /api/departments/{slug}
func (h *DepartmentHandler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	dept, err := h.service.GetDepartment(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, dept)
}

// UpdateDepartment renames or re-describes a department
// PATCH /api/departments/{slug}
func (h *DepartmentHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req kbSvc.UpdateDepartmentRequest
	if !parseBody(w, r, &req) {
		return
	}

	dept, err := h.service.UpdateDepartment(r.Context(), actor, r.PathValue("slug"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, dept)
}

// ListMembers lists the profiles of a department's members
// GET /api/departments/{slug}/members
func (h *DepartmentHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	members, err := h.service.ListMembers(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, members)
}

// ChangeMember adds or removes a member
// POST /api/departments/{slug}/members
func (h *DepartmentHandler) ChangeMember(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req kbSvc.ChangeMemberRequest
	if !parseBody(w, r, &req) {
		return
	}
	userID, ok := bodyID(w, req.UserID, "user_id")
	if !ok {
		return
	}
	req.UserID = userID

	members, err := h.service.ChangeMember(r.Context(), actor, r.PathValue("slug"), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, members)
}

// ListDocuments lists visible documents in the department
// GET /api/departments/{slug}/documents
func (h *DepartmentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
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

// ListCollections lists visible collections in the department
// GET /api/departments/{slug}/collections
func (h *DepartmentHandler) ListCollections(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	cols, err := h.service.ListCollections(r.Context(), actor, r.PathValue("slug"))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, cols)
}
