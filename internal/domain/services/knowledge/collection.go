package knowledge

import (
	"context"

	"knowledgestack/internal/domain/models"
	kb "knowledgestack/internal/domain/models/knowledge"
)

// CreateCollectionRequest represents a request to create a collection
type CreateCollectionRequest struct {
	Name          string   `json:"name"`
	Slug          *string  `json:"slug,omitempty"` // Derived from name when omitted
	Description   string   `json:"description"`
	ParentID      *string  `json:"parent_id,omitempty"`
	Position      int      `json:"position"`
	Everyone      *bool    `json:"everyone,omitempty"` // Default true
	DepartmentIDs []string `json:"department_ids"`
}

// UpdateCollectionRequest represents a partial collection update.
// SetParent distinguishes "move to root" (true, ParentID nil) from "leave
// the parent alone" (false).
type UpdateCollectionRequest struct {
	Name          *string   `json:"name,omitempty"`
	Slug          *string   `json:"slug,omitempty"`
	Description   *string   `json:"description,omitempty"`
	ParentID      *string   `json:"parent_id,omitempty"`
	SetParent     bool      `json:"-"`
	Position      *int      `json:"position,omitempty"`
	Everyone      *bool     `json:"everyone,omitempty"`
	DepartmentIDs *[]string `json:"department_ids,omitempty"`
}

// CollectionService defines business logic operations for collections
type CollectionService interface {
	CreateCollection(ctx context.Context, actor *models.Actor, req *CreateCollectionRequest) (*kb.Collection, error)

	ListCollections(ctx context.Context, actor *models.Actor) ([]kb.Collection, error)

	// GetCollection returns the collection with tags, documents and subcollections
	GetCollection(ctx context.Context, actor *models.Actor, slug string) (*kb.Collection, error)

	UpdateCollection(ctx context.Context, actor *models.Actor, slug string, req *UpdateCollectionRequest) (*kb.Collection, error)

	// DeleteCollection moves children to root, removes document memberships
	// and deletes the collection's structural tag
	DeleteCollection(ctx context.Context, actor *models.Actor, slug string) error

	// AddSubcollection re-parents childID under the collection
	AddSubcollection(ctx context.Context, actor *models.Actor, slug, childID string) (*kb.Collection, error)

	// RemoveSubcollection moves childID to root
	RemoveSubcollection(ctx context.Context, actor *models.Actor, slug, childID string) (*kb.Collection, error)

	AddDocument(ctx context.Context, actor *models.Actor, slug, documentID string) (*kb.Collection, error)

	RemoveDocument(ctx context.Context, actor *models.Actor, slug, documentID string) (*kb.Collection, error)

	// ListDocuments returns the collection's documents visible to actor
	ListDocuments(ctx context.Context, actor *models.Actor, slug string) ([]kb.Document, error)

	// Candidates returns what may be offered in the "add to collection" picker
	Candidates(ctx context.Context, actor *models.Actor, slug string) (*kb.CollectionCandidates, error)

	// Ancestors returns the breadcrumb chain from the root down
	Ancestors(ctx context.Context, actor *models.Actor, slug string) ([]kb.Collection, error)
}
