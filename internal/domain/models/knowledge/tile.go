package knowledge

// TileKind is the kind of navigation tile.
type TileKind string

const (
	TileDocument   TileKind = "document"
	TileDepartment TileKind = "department"
	TileCollection TileKind = "collection"
	TileURL        TileKind = "url"

	// TileExternal is how url tiles are reported to clients
	TileExternal TileKind = "external"
)

// IsValid reports whether k can be stored.
func (k TileKind) IsValid() bool {
	switch k {
	case TileDocument, TileDepartment, TileCollection, TileURL:
		return true
	}
	return false
}

// Tile is a homepage navigation entry.
type Tile struct {
	ID           string   `json:"id" db:"id"`
	OrgID        string   `json:"org_id" db:"org_id"`
	Title        string   `json:"title" db:"title"`
	Kind         TileKind `json:"kind" db:"kind"`
	Order        int      `json:"order" db:"position"`
	IsActive     bool     `json:"is_active" db:"is_active"`
	DocumentID   *string  `json:"document_id" db:"document_id"`
	DepartmentID *string  `json:"department_id" db:"department_id"`
	CollectionID *string  `json:"collection_id" db:"collection_id"`
	Href         string   `json:"href" db:"href"`
	Description  string   `json:"description" db:"description"`
	Icon         string   `json:"icon" db:"icon"`

	// Resolved by join, not stored
	DepartmentSlug *string `json:"-"`
	CollectionSlug *string `json:"-"`
}

// TileView is the client-facing shape of an active tile.
type TileView struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	Kind           TileKind `json:"kind"`
	Description    string   `json:"description"`
	Icon           string   `json:"icon,omitempty"`
	Href           string   `json:"href,omitempty"`
	DocumentID     string   `json:"documentId,omitempty"`
	DepartmentSlug string   `json:"departmentSlug,omitempty"`
	CollectionSlug string   `json:"collectionSlug,omitempty"`
}
