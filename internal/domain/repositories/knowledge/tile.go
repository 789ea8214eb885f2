package knowledge

import (
	"context"

	models "knowledgestack/internal/domain/models/knowledge"
)

// TileRepository defines data access operations for homepage tiles.
// Loaded tiles carry the department and collection slugs of their targets.
type TileRepository interface {
	Create(ctx context.Context, tile *models.Tile) error

	GetByID(ctx context.Context, id, orgID string) (*models.Tile, error)

	// List returns tiles ordered by (order, id); activeOnly skips inactive ones
	List(ctx context.Context, orgID string, activeOnly bool) ([]models.Tile, error)

	Update(ctx context.Context, tile *models.Tile) error

	Delete(ctx context.Context, id, orgID string) error
}
