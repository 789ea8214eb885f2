package repositories

import (
	"context"

	"knowledgestack/internal/domain/models"
)

// OrganizationRepository defines data access operations for organizations
type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error

	GetByID(ctx context.Context, id string) (*models.Organization, error)

	// GetBySlug resolves the org named by a subdomain, header or query param
	GetBySlug(ctx context.Context, slug string) (*models.Organization, error)

	List(ctx context.Context) ([]models.Organization, error)
}

// MembershipRepository defines data access operations for org memberships
type MembershipRepository interface {
	// Get returns the user's membership in org, or ErrNotFound
	Get(ctx context.Context, orgID, userID string) (*models.Membership, error)

	// Upsert creates a membership or changes its role
	Upsert(ctx context.Context, membership *models.Membership) error
}
