package handler

import (
	"log/slog"
	"net/http"

	kbSvc "knowledgestack/internal/domain/services/knowledge"
	"knowledgestack/internal/httputil"
)

// TileHandler handles homepage tile requests
type TileHandler struct {
	service kbSvc.TileService
	logger  *slog.Logger
}

// NewTileHandler creates a new tile handler
func NewTileHandler(service kbSvc.TileService, logger *slog.Logger) *TileHandler {
	return &TileHandler{
		service: service,
		logger:  logger,
	}
}

func validTileTargets(w http.ResponseWriter, req *kbSvc.TileRequest) bool {
	return validOptionalID(w, "document_id", req.DocumentID) &&
		validOptionalID(w, "department_id", req.DepartmentID) &&
		validOptionalID(w, "collection_id", req.CollectionID)
}

// ListActive returns the active tiles as client views
// GET /api/tiles
func (h *TileHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	tiles, err := h.service.ListActive(r.Context(), actor)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tiles)
}

// ListAll returns every tile for the admin screen
// GET /api/tiles/all
func (h *TileHandler) ListAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	tiles, err := h.service.ListAll(r.Context(), actor)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tiles)
}

// CreateTile creates a tile
// POST /api/tiles
func (h *TileHandler) CreateTile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req kbSvc.TileRequest
	if !parseBody(w, r, &req) {
		return
	}
	if !validTileTargets(w, &req) {
		return
	}

	tile, err := h.service.CreateTile(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, tile)
}

// UpdateTile replaces every field of a tile
// PUT /api/tiles/{id}
func (h *TileHandler) UpdateTile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req kbSvc.TileRequest
	if !parseBody(w, r, &req) {
		return
	}
	if !validTileTargets(w, &req) {
		return
	}

	tile, err := h.service.UpdateTile(r.Context(), actor, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, tile)
}

// DeleteTile deletes a tile
// DELETE /api/tiles/{id}
func (h *TileHandler) DeleteTile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteTile(r.Context(), actor, id); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}
