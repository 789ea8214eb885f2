package handler

import (
	"log/slog"
	"net/http"

	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/services"
	"knowledgestack/internal/httputil"
)

// ProfileHandler handles per-org user profile requests
type ProfileHandler struct {
	service services.ProfileService
	logger  *slog.Logger
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(service services.ProfileService, logger *slog.Logger) *ProfileHandler {
	return &ProfileHandler{
		service: service,
		logger:  logger,
	}
}

// GetMyProfile returns the actor's profile
// GET /api/profiles/me
func (h *ProfileHandler) GetMyProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), actor, "")
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, profile)
}

// GetProfile returns another member's profile
// GET /api/profiles/{userId}
func (h *ProfileHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}
	userID, ok := pathID(w, r, "userId")
	if !ok {
		return
	}

	profile, err := h.service.GetProfile(r.Context(), actor, userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, profile)
}

// UpdateMyProfile edits the actor's preferred names and job title
// PATCH /api/profiles/me
func (h *ProfileHandler) UpdateMyProfile(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	var req models.UpdateProfileRequest
	if !parseBody(w, r, &req) {
		return
	}

	profile, err := h.service.UpdateProfile(r.Context(), actor, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, profile)
}

// UploadAvatar replaces the actor's avatar image
// POST /api/profiles/me/avatar
func (h *ProfileHandler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	upload, done, ok := parseUpload(w, r)
	if !ok {
		return
	}
	defer done()

	profile, err := h.service.UploadAvatar(r.Context(), actor, upload)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, profile)
}
