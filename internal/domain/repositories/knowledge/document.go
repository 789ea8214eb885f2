package knowledge

import (
	"context"

	models "knowledgestack/internal/domain/models/knowledge"
)

// DocumentRepository defines data access operations for documents.
// Loaded documents carry DepartmentIDs and CollectionIDs.
type DocumentRepository interface {
	Create(ctx context.Context, doc *models.Document) error

	GetByID(ctx context.Context, id, orgID string) (*models.Document, error)

	// List returns documents matching filter, most recently updated first
	List(ctx context.Context, orgID string, filter models.DocumentFilter) ([]models.Document, error)

	ListByIDs(ctx context.Context, orgID string, ids []string) ([]models.Document, error)

	// Update saves title, slug, status and everyone
	Update(ctx context.Context, doc *models.Document) error

	Delete(ctx context.Context, id, orgID string) error

	// SetDepartments replaces the document's department set
	SetDepartments(ctx context.Context, documentID string, departmentIDs []string) error

	// Touch bumps updated_at
	Touch(ctx context.Context, documentID string) error
}

// SectionRepository defines data access operations for document sections
type SectionRepository interface {
	Create(ctx context.Context, section *models.Section) error

	GetByID(ctx context.Context, id, documentID string) (*models.Section, error)

	// ListByDocument returns sections ordered by (order, id)
	ListByDocument(ctx context.Context, documentID string) ([]models.Section, error)

	Update(ctx context.Context, section *models.Section) error

	Delete(ctx context.Context, id, documentID string) error

	// SetOrder writes order = index for each id in orderedIDs
	SetOrder(ctx context.Context, documentID string, orderedIDs []string) error
}

// LinkRepository defines data access operations for resource links
type LinkRepository interface {
	Create(ctx context.Context, link *models.ResourceLink) error

	GetByID(ctx context.Context, id, documentID string) (*models.ResourceLink, error)

	// ListByDocument returns links ordered by (order, id)
	ListByDocument(ctx context.Context, documentID string) ([]models.ResourceLink, error)

	Update(ctx context.Context, link *models.ResourceLink) error

	Delete(ctx context.Context, id, documentID string) error

	// SetOrder writes order = index for each id in orderedIDs
	SetOrder(ctx context.Context, documentID string, orderedIDs []string) error
}

// VersionRepository stores document snapshots
type VersionRepository interface {
	Create(ctx context.Context, version *models.DocumentVersion) error

	// ListByDocument returns snapshots newest first
	ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error)
}
