package knowledge

import (
	"context"

	"knowledgestack/internal/domain/models"
	kb "knowledgestack/internal/domain/models/knowledge"
	"knowledgestack/internal/domain/services"
)

// SectionInput is a section supplied on document create
type SectionInput struct {
	Header string `json:"header"`
	BodyMD string `json:"body_md"`
}

// LinkInput is a resource link supplied on document create or add
type LinkInput struct {
	Title string `json:"title"`
	URL   string `json:"url"`
	Note  string `json:"note"`
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	Title         string         `json:"title"`
	Status        *string        `json:"status,omitempty"`   // Default draft
	Everyone      *bool          `json:"everyone,omitempty"` // Default true
	DepartmentIDs []string       `json:"department_ids"`
	Sections      []SectionInput `json:"sections"`
	Links         []LinkInput    `json:"links"`
}

// UpdateDocumentRequest represents a partial document update
type UpdateDocumentRequest struct {
	Title         *string   `json:"title,omitempty"`
	Status        *string   `json:"status,omitempty"`
	Everyone      *bool     `json:"everyone,omitempty"`
	DepartmentIDs *[]string `json:"department_ids,omitempty"`
}

// SetTagsRequest replaces a document's department and manual tags
type SetTagsRequest struct {
	TagIDs []string `json:"tag_ids"`
}

// SetCollectionsRequest replaces a document's collection membership
type SetCollectionsRequest struct {
	CollectionIDs []string `json:"collection_ids"`
}

// UpdateSectionRequest represents a partial section update
type UpdateSectionRequest struct {
	Header *string `json:"header,omitempty"`
	BodyMD *string `json:"body_md,omitempty"`
}

// ReorderSectionsRequest lists section ids in their new order
type ReorderSectionsRequest struct {
	SectionIDs []string `json:"section_ids"`
}

// UpdateLinkRequest represents a partial resource link update
type UpdateLinkRequest struct {
	Title *string `json:"title,omitempty"`
	URL   *string `json:"url,omitempty"`
	Note  *string `json:"note,omitempty"`
}

// ListDocumentsRequest filters a document listing. DepartmentSlug is
// resolved to an id by the service.
type ListDocumentsRequest struct {
	Status         string
	DepartmentSlug string
	CreatedBy      string
}

// DocumentService handles document business logic
type DocumentService interface {
	CreateDocument(ctx context.Context, actor *models.Actor, req *CreateDocumentRequest) (*kb.Document, error)

	// GetDocument returns the document with tags, sections and links.
	// Documents hidden from actor are reported as not found.
	GetDocument(ctx context.Context, actor *models.Actor, id string) (*kb.Document, error)

	ListDocuments(ctx context.Context, actor *models.Actor, req *ListDocumentsRequest) ([]kb.Document, error)

	UpdateDocument(ctx context.Context, actor *models.Actor, id string, req *UpdateDocumentRequest) (*kb.Document, error)

	DeleteDocument(ctx context.Context, actor *models.Actor, id string) error

	SetTags(ctx context.Context, actor *models.Actor, id string, req *SetTagsRequest) (*kb.Document, error)

	// DetachTag removes a manual tag; structural tags are rejected
	DetachTag(ctx context.Context, actor *models.Actor, id, tagID string) (*kb.Document, error)

	SetCollections(ctx context.Context, actor *models.Actor, id string, req *SetCollectionsRequest) (*kb.Document, error)

	AddSection(ctx context.Context, actor *models.Actor, id string, req *SectionInput) (*kb.Section, error)

	UpdateSection(ctx context.Context, actor *models.Actor, id, sectionID string, req *UpdateSectionRequest) (*kb.Section, error)

	DeleteSection(ctx context.Context, actor *models.Actor, id, sectionID string) error

	ReorderSections(ctx context.Context, actor *models.Actor, id string, req *ReorderSectionsRequest) ([]kb.Section, error)

	// UploadSectionImage stores an image and attaches it to the section,
	// replacing any previous one
	UploadSectionImage(ctx context.Context, actor *models.Actor, id, sectionID string, upload *services.Upload) (*kb.Section, error)

	AddLink(ctx context.Context, actor *models.Actor, id string, req *LinkInput) (*kb.ResourceLink, error)

	UpdateLink(ctx context.Context, actor *models.Actor, id, linkID string, req *UpdateLinkRequest) (*kb.ResourceLink, error)

	DeleteLink(ctx context.Context, actor *models.Actor, id, linkID string) error

	ListVersions(ctx context.Context, actor *models.Actor, id string) ([]kb.DocumentVersion, error)
}
