package auth

import (
	"fmt"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/services"
)

// RoleAuthorizer implements ResourceAuthorizer from the actor's org role.
// Department visibility is checked separately by the content services.
type RoleAuthorizer struct{}

// NewRoleAuthorizer creates a new role-based authorizer
func NewRoleAuthorizer() services.ResourceAuthorizer {
	return &RoleAuthorizer{}
}

// CanRead requires any membership in the actor's org
func (a *RoleAuthorizer) CanRead(actor *models.Actor) error {
	if actor == nil || actor.UserID == "" {
		return &domain.UnauthorizedError{Message: "authentication required"}
	}
	if actor.OrgID == "" || !actor.Role.IsValid() {
		return fmt.Errorf("not a member of this organization: %w", domain.ErrForbidden)
	}
	return nil
}

// CanWrite requires the admin or editor role
func (a *RoleAuthorizer) CanWrite(actor *models.Actor) error {
	if err := a.CanRead(actor); err != nil {
		return err
	}
	if !actor.Role.CanWrite() {
		return &domain.ForbiddenError{Message: fmt.Sprintf("role %s cannot modify content", actor.Role)}
	}
	return nil
}

// CanAdmin requires the admin role
func (a *RoleAuthorizer) CanAdmin(actor *models.Actor) error {
	if err := a.CanRead(actor); err != nil {
		return err
	}
	if actor.Role != models.RoleAdmin {
		return &domain.ForbiddenError{Message: "admin role required"}
	}
	return nil
}
