package knowledge

import (
	"context"

	models "knowledgestack/internal/domain/models/knowledge"
)

// CollectionRepository defines data access operations for collections,
// their department sets, and the collection/document membership relation.
type CollectionRepository interface {
	Create(ctx context.Context, col *models.Collection) error

	// GetByID loads the collection with DepartmentIDs populated
	GetByID(ctx context.Context, id, orgID string) (*models.Collection, error)

	GetBySlug(ctx context.Context, orgID, slug string) (*models.Collection, error)

	// List returns all collections in the org ordered by position, name
	List(ctx context.Context, orgID string) ([]models.Collection, error)

	ListByIDs(ctx context.Context, orgID string, ids []string) ([]models.Collection, error)

	// ListChildren lists immediate subcollections; nil parentID lists roots
	ListChildren(ctx context.Context, orgID string, parentID *string) ([]models.Collection, error)

	// Update saves scalar fields and the parent pointer
	Update(ctx context.Context, col *models.Collection) error

	Delete(ctx context.Context, id, orgID string) error

	// SetDepartments replaces the collection's department set
	SetDepartments(ctx context.Context, collectionID string, departmentIDs []string) error

	// AddDocument adds a membership edge; adding an existing edge is a no-op
	AddDocument(ctx context.Context, collectionID, documentID string) error

	// RemoveDocument removes a membership edge; removing a missing edge is a no-op
	RemoveDocument(ctx context.Context, collectionID, documentID string) error

	// ListDocumentIDs returns the documents in a collection
	ListDocumentIDs(ctx context.Context, collectionID string) ([]string, error)

	// ListIDsForDocument returns the collections containing a document
	ListIDsForDocument(ctx context.Context, documentID string) ([]string, error)
}
