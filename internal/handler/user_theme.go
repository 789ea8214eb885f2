package handler

import (
	"log/slog"
	"net/http"

	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/services"
	"knowledgestack/internal/httputil"
)

// UserThemeHandler handles user theme HTTP requests
type UserThemeHandler struct {
	service services.UserThemeService
	logger  *slog.Logger
}

// NewUserThemeHandler creates a new user theme handler
func NewUserThemeHandler(service services.UserThemeService, logger *slog.Logger) *UserThemeHandler {
	return &UserThemeHandler{
		service: service,
		logger:  logger,
	}
}

// GetTheme retrieves the user's theme; users without one get the default
// GET /api/users/me/theme
func (h *UserThemeHandler) GetTheme(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	theme, err := h.service.GetTheme(r.Context(), userID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, theme)
}

// UpdateTheme changes the mode and merges custom colors
// PATCH /api/users/me/theme
func (h *UserThemeHandler) UpdateTheme(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateThemeRequest
	if !parseBody(w, r, &req) {
		return
	}

	theme, err := h.service.UpdateTheme(r.Context(), userID, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, theme)
}
