package knowledge

import (
	"context"
	"fmt"

	"knowledgestack/internal/domain"
	models "knowledgestack/internal/domain/models/knowledge"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresTileRepository implements the TileRepository interface
type PostgresTileRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewTileRepository creates a new tile repository
func NewTileRepository(config *postgres.RepositoryConfig) kbRepo.TileRepository {
	return &PostgresTileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// selectFrom joins department and collection slugs onto tiles
func (r *PostgresTileRepository) selectFrom() string {
	return fmt.Sprintf(`
		SELECT t.id, t.org_id, t.title, t.kind, t.position, t.is_active,
			t.document_id::text, t.department_id::text, t.collection_id::text,
			t.href, t.description, t.icon, d.slug, c.slug
		FROM %s t
		LEFT JOIN %s d ON d.id = t.department_id
		LEFT JOIN %s c ON c.id = t.collection_id
	`, r.tables.Tiles, r.tables.Departments, r.tables.Collections)
}

func scanTile(row interface{ Scan(...any) error }, t *models.Tile) error {
	return row.Scan(
		&t.ID,
		&t.OrgID,
		&t.Title,
		&t.Kind,
		&t.Order,
		&t.IsActive,
		&t.DocumentID,
		&t.DepartmentID,
		&t.CollectionID,
		&t.Href,
		&t.Description,
		&t.Icon,
		&t.DepartmentSlug,
		&t.CollectionSlug,
	)
}

func (r *PostgresTileRepository) Create(ctx context.Context, tile *models.Tile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (org_id, title, kind, position, is_active, document_id, department_id, collection_id,
			href, description, icon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, r.tables.Tiles)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		tile.OrgID,
		tile.Title,
		tile.Kind,
		tile.Order,
		tile.IsActive,
		tile.DocumentID,
		tile.DepartmentID,
		tile.CollectionID,
		tile.Href,
		tile.Description,
		tile.Icon,
	).Scan(&tile.ID)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("%w: tile target does not exist", domain.ErrValidation)
		}
		return fmt.Errorf("create tile: %w", err)
	}

	return nil
}

func (r *PostgresTileRepository) GetByID(ctx context.Context, id, orgID string) (*models.Tile, error) {
	query := r.selectFrom() + ` WHERE t.id = $1 AND t.org_id = $2`

	var tile models.Tile
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanTile(executor.QueryRow(ctx, query, id, orgID), &tile); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("tile %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tile: %w", err)
	}
	return &tile, nil
}

// List returns tiles ordered by (order, id)
func (r *PostgresTileRepository) List(ctx context.Context, orgID string, activeOnly bool) ([]models.Tile, error) {
	query := r.selectFrom() + `
		WHERE t.org_id = $1 AND (NOT $2 OR t.is_active)
		ORDER BY t.position, t.id
	`

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, orgID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list tiles: %w", err)
	}
	defer rows.Close()

	tiles := []models.Tile{}
	for rows.Next() {
		var t models.Tile
		if err := scanTile(rows, &t); err != nil {
			return nil, fmt.Errorf("scan tile: %w", err)
		}
		tiles = append(tiles, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tiles: %w", err)
	}

	return tiles, nil
}

func (r *PostgresTileRepository) Update(ctx context.Context, tile *models.Tile) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, kind = $2, position = $3, is_active = $4, document_id = $5, department_id = $6,
			collection_id = $7, href = $8, description = $9, icon = $10
		WHERE id = $11 AND org_id = $12
	`, r.tables.Tiles)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		tile.Title,
		tile.Kind,
		tile.Order,
		tile.IsActive,
		tile.DocumentID,
		tile.DepartmentID,
		tile.CollectionID,
		tile.Href,
		tile.Description,
		tile.Icon,
		tile.ID,
		tile.OrgID,
	)
	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("%w: tile target does not exist", domain.ErrValidation)
		}
		return fmt.Errorf("update tile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tile %s: %w", tile.ID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresTileRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND org_id = $2`, r.tables.Tiles)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, orgID)
	if err != nil {
		return fmt.Errorf("delete tile: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tile %s: %w", id, domain.ErrNotFound)
	}

	return nil
}
