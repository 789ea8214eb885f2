package knowledge

import "time"

// DocumentStatus is the publication state of a document.
type DocumentStatus string

const (
	StatusDraft     DocumentStatus = "draft"
	StatusPublished DocumentStatus = "published"
	StatusArchived  DocumentStatus = "archived"
)

// IsValid reports whether s is a known status.
func (s DocumentStatus) IsValid() bool {
	switch s {
	case StatusDraft, StatusPublished, StatusArchived:
		return true
	}
	return false
}

type Document struct {
	ID            string         `json:"id" db:"id"`
	OrgID         string         `json:"org_id" db:"org_id"`
	Title         string         `json:"title" db:"title"`
	Slug          string         `json:"slug" db:"slug"`
	Status        DocumentStatus `json:"status" db:"status"`
	Everyone      bool           `json:"everyone" db:"everyone"`
	DepartmentIDs []string       `json:"department_ids"`
	CollectionIDs []string       `json:"collection_ids"`
	CreatedBy     *string        `json:"created_by" db:"created_by"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at" db:"updated_at"`

	// Populated on detail reads
	Tags      []Tag          `json:"tags,omitempty"`
	Sections  []Section      `json:"sections,omitempty"`
	Links     []ResourceLink `json:"links,omitempty"`
	WordCount int            `json:"word_count"`
}

// Visibility returns the document's restriction state.
func (d *Document) Visibility() Visibility {
	return Visibility{Everyone: d.Everyone, DepartmentIDs: d.DepartmentIDs}
}

// DocumentFilter narrows document listings. Empty fields are ignored.
type DocumentFilter struct {
	Status       DocumentStatus
	DepartmentID string
	CollectionID string
	CreatedBy    string
}

// Section is an ordered block of a document body.
type Section struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"document_id" db:"document_id"`
	Order      int       `json:"order" db:"position"`
	Header     string    `json:"header" db:"header"`
	BodyMD     string    `json:"body_md" db:"body_md"`
	ImageKey   *string   `json:"-" db:"image_key"`
	ImageURL   *string   `json:"image_url"` // Computed from ImageKey
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ResourceLink is an external reference attached to a document.
type ResourceLink struct {
	ID         string `json:"id" db:"id"`
	DocumentID string `json:"document_id" db:"document_id"`
	Order      int    `json:"order" db:"position"`
	Title      string `json:"title" db:"title"`
	URL        string `json:"url" db:"url"`
	Note       string `json:"note" db:"note"`
}

// DocumentVersion is a snapshot of a document's metadata and memberships.
type DocumentVersion struct {
	ID            string         `json:"id" db:"id"`
	DocumentID    string         `json:"document_id" db:"document_id"`
	OrgID         string         `json:"org_id" db:"org_id"`
	CreatedBy     *string        `json:"created_by" db:"created_by"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	Title         string         `json:"title" db:"title"`
	Status        DocumentStatus `json:"status" db:"status"`
	Everyone      bool           `json:"everyone" db:"everyone"`
	TagIDs        []string       `json:"tag_ids" db:"tag_ids"`
	CollectionIDs []string       `json:"collection_ids" db:"collection_ids"`
	DepartmentIDs []string       `json:"department_ids" db:"department_ids"`
}
