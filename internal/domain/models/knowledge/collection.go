package knowledge

import "time"

type Collection struct {
	ID            string    `json:"id" db:"id"`
	OrgID         string    `json:"org_id" db:"org_id"`
	ParentID      *string   `json:"parent_id" db:"parent_id"` // NULL = root
	Name          string    `json:"name" db:"name"`
	Slug          string    `json:"slug" db:"slug"`
	Description   string    `json:"description" db:"description"`
	Position      int       `json:"position" db:"position"`
	Everyone      bool      `json:"everyone" db:"everyone"`
	DepartmentIDs []string  `json:"department_ids"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`

	// Populated on detail reads
	Tags             []Tag    `json:"tags,omitempty"`
	DocumentIDs      []string `json:"document_ids,omitempty"`
	SubcollectionIDs []string `json:"subcollection_ids,omitempty"`
}

// Visibility returns the collection's restriction state.
func (c *Collection) Visibility() Visibility {
	return Visibility{Everyone: c.Everyone, DepartmentIDs: c.DepartmentIDs}
}

// CollectionCandidates are the entities eligible to be added to a collection.
type CollectionCandidates struct {
	Documents   []Document   `json:"documents"`
	Collections []Collection `json:"collections"`
}
