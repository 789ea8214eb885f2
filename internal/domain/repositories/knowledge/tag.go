package knowledge

import (
	"context"

	models "knowledgestack/internal/domain/models/knowledge"
)

// TagRepository defines data access operations for tags and their
// attachment to documents and collections.
type TagRepository interface {
	Create(ctx context.Context, tag *models.Tag) error

	GetByID(ctx context.Context, id, orgID string) (*models.Tag, error)

	// List returns the org's tags ordered by name; empty kind lists all
	List(ctx context.Context, orgID string, kind models.TargetKind) ([]models.Tag, error)

	ListByIDs(ctx context.Context, orgID string, ids []string) ([]models.Tag, error)

	// FindByTarget returns the tag keyed by (kind, target id), or ErrNotFound
	FindByTarget(ctx context.Context, orgID string, target models.TagTarget) (*models.Tag, error)

	// Update saves name, slug, description and target
	Update(ctx context.Context, tag *models.Tag) error

	Delete(ctx context.Context, id, orgID string) error

	// ListAttached returns the tags attached to owner ordered by name
	ListAttached(ctx context.Context, owner models.TagOwner) ([]models.Tag, error)

	// Attach is a no-op if the tag is already attached
	Attach(ctx context.Context, owner models.TagOwner, tagID string) error

	// Detach is a no-op if the tag is not attached
	Detach(ctx context.Context, owner models.TagOwner, tagID string) error

	// DetachEverywhere removes the tag from every owner
	DetachEverywhere(ctx context.Context, tagID string) error
}
