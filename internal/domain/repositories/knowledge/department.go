package knowledge

import (
	"context"

	models "knowledgestack/internal/domain/models/knowledge"
)

// DepartmentRepository defines data access operations for departments
type DepartmentRepository interface {
	Create(ctx context.Context, dept *models.Department) error

	GetByID(ctx context.Context, id, orgID string) (*models.Department, error)

	GetBySlug(ctx context.Context, orgID, slug string) (*models.Department, error)

	// List returns all departments in the org ordered by name
	List(ctx context.Context, orgID string) ([]models.Department, error)

	// ListByIDs returns the departments among ids that exist in the org
	ListByIDs(ctx context.Context, orgID string, ids []string) ([]models.Department, error)

	// Update saves name and description; the slug never changes
	Update(ctx context.Context, dept *models.Department) error

	AddMember(ctx context.Context, departmentID, userID string) error

	RemoveMember(ctx context.Context, departmentID, userID string) error

	// ListIDsForUser returns the ids of departments in org the user belongs to
	ListIDsForUser(ctx context.Context, orgID, userID string) ([]string, error)
}
