package handler

import (
	"log/slog"
	"net/http"
	"time"

	"knowledgestack/internal/domain/services"
	"knowledgestack/internal/httputil"
)

// AuthHandler handles login, refresh and logout
type AuthHandler struct {
	auth    services.AuthService
	cookies httputil.CookieConfig
	logger  *slog.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(auth services.AuthService, cookies httputil.CookieConfig, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		auth:    auth,
		cookies: cookies,
		logger:  logger,
	}
}

type sessionResponse struct {
	UserID          string    `json:"user_id"`
	AccessToken     string    `json:"access_token"`
	AccessExpiresAt time.Time `json:"access_expires_at"`
}

func (h *AuthHandler) respondSession(w http.ResponseWriter, sess *services.Session) {
	httputil.SetSessionCookies(w, h.cookies, sess)
	httputil.RespondJSON(w, http.StatusOK, sessionResponse{
		UserID:          sess.UserID,
		AccessToken:     sess.AccessToken,
		AccessExpiresAt: sess.AccessExpiresAt,
	})
}

// Login checks a username or email and password and sets session cookies
// POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req services.LoginRequest
	if !parseBody(w, r, &req) {
		return
	}

	sess, err := h.auth.Login(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondSession(w, sess)
}

// Refresh rotates the refresh token
// POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	token := httputil.CookieValue(r, httputil.RefreshCookie)
	if token == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "refresh token required")
		return
	}

	sess, err := h.auth.Refresh(r.Context(), token)
	if err != nil {
		httputil.ClearSessionCookies(w, h.cookies)
		handleError(w, err)
		return
	}

	h.respondSession(w, sess)
}

// Logout revokes the refresh token and clears both cookies
// POST /api/auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token := httputil.CookieValue(r, httputil.RefreshCookie); token != "" {
		if err := h.auth.Logout(r.Context(), token); err != nil {
			h.logger.Warn("logout failed", "error", err)
		}
	}

	httputil.ClearSessionCookies(w, h.cookies)
	httputil.RespondNoContent(w)
}

// Me describes the current user within the request's organization
// GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := requireActor(w, r)
	if !ok {
		return
	}

	me, err := h.auth.Me(r.Context(), actor)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, me)
}
