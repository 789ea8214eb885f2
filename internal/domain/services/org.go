package services

import (
	"context"

	"knowledgestack/internal/domain/models"
)

// CreateOrganizationRequest represents a request to create an organization
type CreateOrganizationRequest struct {
	Name         string  `json:"name"`
	Slug         *string `json:"slug,omitempty"`
	BrandPrimary string  `json:"brand_primary"`
}

// CreateUserRequest represents a request to create a user
type CreateUserRequest struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
	Password    string `json:"password"`
}

// OrgService manages organizations, users and memberships, and resolves
// the actor for a request.
type OrgService interface {
	CreateOrganization(ctx context.Context, req *CreateOrganizationRequest) (*models.Organization, error)

	GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error)

	ListOrganizations(ctx context.Context) ([]models.Organization, error)

	CreateUser(ctx context.Context, req *CreateUserRequest) (*models.User, error)

	// GrantRole creates or changes a membership. login is a username or email.
	GrantRole(ctx context.Context, orgSlug, login string, role models.Role) (*models.Membership, error)

	// ResolveActor loads the user's membership and departments in org.
	// A user without membership gets ErrForbidden.
	ResolveActor(ctx context.Context, org *models.Organization, userID string) (*models.Actor, error)
}
