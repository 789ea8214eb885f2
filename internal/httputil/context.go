package httputil

import (
	"context"
	"net/http"

	"knowledgestack/internal/domain/models"
)

// Context key type to avoid collisions
type contextKey string

const (
	userIDKey contextKey = "userID"
	orgKey    contextKey = "org"
	actorKey  contextKey = "actor"
)

// WithUserID adds the authenticated user's id to the request context
func WithUserID(r *http.Request, userID string) *http.Request {
	ctx := context.WithValue(r.Context(), userIDKey, userID)
	return r.WithContext(ctx)
}

// GetUserID retrieves userID from context, returns empty string if not found
func GetUserID(r *http.Request) string {
	userID, _ := r.Context().Value(userIDKey).(string)
	return userID
}

// WithOrg adds the resolved organization to the request context
func WithOrg(r *http.Request, org *models.Organization) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), orgKey, org))
}

// GetOrg returns the request's organization, or nil
func GetOrg(r *http.Request) *models.Organization {
	org, _ := r.Context().Value(orgKey).(*models.Organization)
	return org
}

// WithActor adds the resolved actor to the request context
func WithActor(r *http.Request, actor *models.Actor) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), actorKey, actor))
}

// GetActor returns the request's actor, or nil for anonymous requests
func GetActor(r *http.Request) *models.Actor {
	actor, _ := r.Context().Value(actorKey).(*models.Actor)
	return actor
}
