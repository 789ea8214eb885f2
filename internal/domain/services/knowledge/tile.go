package knowledge

import (
	"context"

	"knowledgestack/internal/domain/models"
	kb "knowledgestack/internal/domain/models/knowledge"
)

// TileRequest creates a tile or replaces all of its fields
type TileRequest struct {
	Title        string  `json:"title"`
	Kind         string  `json:"kind"`
	Order        int     `json:"order"`
	IsActive     *bool   `json:"is_active,omitempty"` // Default true
	DocumentID   *string `json:"document_id,omitempty"`
	DepartmentID *string `json:"department_id,omitempty"`
	CollectionID *string `json:"collection_id,omitempty"`
	Href         string  `json:"href"`
	Description  string  `json:"description"`
	Icon         string  `json:"icon"`
}

// TileService defines business logic operations for homepage tiles
type TileService interface {
	// ListActive returns the active tiles as client views, skipping tiles
	// whose target no longer exists
	ListActive(ctx context.Context, actor *models.Actor) ([]kb.TileView, error)

	ListAll(ctx context.Context, actor *models.Actor) ([]kb.Tile, error)

	CreateTile(ctx context.Context, actor *models.Actor, req *TileRequest) (*kb.Tile, error)

	UpdateTile(ctx context.Context, actor *models.Actor, id string, req *TileRequest) (*kb.Tile, error)

	DeleteTile(ctx context.Context, actor *models.Actor, id string) error
}
