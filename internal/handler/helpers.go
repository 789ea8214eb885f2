package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/services"
	"knowledgestack/internal/httputil"

	"github.com/google/uuid"
)

// handleError converts domain errors to HTTP responses. Errors carrying a
// kind expose it as a "kind" member so clients can place the message.
func handleError(w http.ResponseWriter, err error) {
	var kinded domain.KindedError
	var conflictErr *domain.ConflictError

	switch {
	case errors.As(err, &kinded):
		status := kinded.StatusCode()
		detail := err.Error()
		if status >= http.StatusInternalServerError {
			slog.Error("request failed", "kind", kinded.Kind(), "error", err)
			detail = "internal server error"
		}
		httputil.RespondErrorWithExtras(w, status, detail, map[string]interface{}{
			"kind": kinded.Kind(),
		})
	case errors.As(err, &conflictErr):
		extras := map[string]interface{}{"resource_type": conflictErr.ResourceType}
		if conflictErr.ResourceID != "" {
			extras["resource_id"] = conflictErr.ResourceID
		}
		httputil.RespondErrorWithExtras(w, http.StatusConflict, conflictErr.Error(), extras)
	case errors.Is(err, domain.ErrValidation):
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		httputil.RespondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrUnauthorized):
		httputil.RespondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		httputil.RespondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, domain.ErrConflict):
		httputil.RespondError(w, http.StatusConflict, err.Error())
	default:
		slog.Error("request failed", "error", err)
		httputil.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// requireActor returns the request's actor, answering 401 for anonymous
// requests and 400 when no organization was named.
func requireActor(w http.ResponseWriter, r *http.Request) (*models.Actor, bool) {
	if actor := httputil.GetActor(r); actor != nil {
		return actor, true
	}
	if httputil.GetUserID(r) == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return nil, false
	}
	httputil.RespondError(w, http.StatusBadRequest, "organization is required")
	return nil, false
}

// requireUser returns the authenticated user's id or answers 401
func requireUser(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := httputil.GetUserID(r)
	if userID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}

// pathID parses a UUID path value. A malformed id names nothing that can
// exist, so it is answered like an unknown one: 404.
func pathID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id, err := uuid.Parse(r.PathValue(name))
	if err != nil {
		httputil.RespondError(w, http.StatusNotFound, name+" not found")
		return "", false
	}
	return id.String(), true
}

// bodyID parses the UUID of the single resource a request acts on, such as
// the document added to a collection; malformed ids get 404 like pathID
func bodyID(w http.ResponseWriter, value, field string) (string, bool) {
	id, err := uuid.Parse(value)
	if err != nil {
		httputil.RespondError(w, http.StatusNotFound, field+" not found")
		return "", false
	}
	return id.String(), true
}

// parseBody decodes JSON, answering 400 on failure
func parseBody(w http.ResponseWriter, r *http.Request, dest interface{}) bool {
	if err := httputil.ParseJSON(w, r, dest); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

// parseUpload reads the "file" multipart field, answering 400 on failure
func parseUpload(w http.ResponseWriter, r *http.Request) (*services.Upload, func(), bool) {
	upload, done, err := httputil.ParseUpload(w, r, "file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return nil, nil, false
	}
	return upload, done, true
}

// validIDs checks that every id is a UUID, answering 400 otherwise
func validIDs(w http.ResponseWriter, field string, ids []string) bool {
	for _, id := range ids {
		if _, err := uuid.Parse(id); err != nil {
			httputil.RespondError(w, http.StatusBadRequest, "invalid "+field+": "+id)
			return false
		}
	}
	return true
}

// validOptionalID accepts nil or a UUID
func validOptionalID(w http.ResponseWriter, field string, id *string) bool {
	if id == nil {
		return true
	}
	return validIDs(w, field, []string{*id})
}
