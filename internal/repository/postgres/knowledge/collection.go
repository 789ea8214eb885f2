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

// PostgresCollectionRepository implements the CollectionRepository interface
type PostgresCollectionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(config *postgres.RepositoryConfig) kbRepo.CollectionRepository {
	return &PostgresCollectionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// selectColumns lists the collection columns plus its aggregated department ids
func (r *PostgresCollectionRepository) selectColumns() string {
	return fmt.Sprintf(`c.id, c.org_id, c.parent_id, c.name, c.slug, c.description, c.position, c.everyone,
		c.created_at, c.updated_at, %s`,
		idArray(r.tables.CollectionDepartments, "department_id", "collection_id", "c.id"))
}

func scanCollection(row interface{ Scan(...any) error }, c *models.Collection) error {
	return row.Scan(
		&c.ID,
		&c.OrgID,
		&c.ParentID,
		&c.Name,
		&c.Slug,
		&c.Description,
		&c.Position,
		&c.Everyone,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DepartmentIDs,
	)
}

// Create creates a collection. Departments are written with SetDepartments.
func (r *PostgresCollectionRepository) Create(ctx context.Context, col *models.Collection) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (org_id, parent_id, name, slug, description, position, everyone, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, r.tables.Collections)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		col.OrgID,
		col.ParentID,
		col.Name,
		col.Slug,
		col.Description,
		col.Position,
		col.Everyone,
		col.CreatedAt,
		col.UpdatedAt,
	).Scan(&col.ID, &col.CreatedAt, &col.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.conflict(ctx, col)
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("%w: unknown parent collection", domain.ErrValidation)
		}
		return fmt.Errorf("create collection: %w", err)
	}

	return nil
}

func (r *PostgresCollectionRepository) conflict(ctx context.Context, col *models.Collection) error {
	conflict := &domain.ConflictError{
		Message:      fmt.Sprintf("collection '%s' already exists", col.Slug),
		ResourceType: "collection",
	}
	if existing, err := r.GetBySlug(ctx, col.OrgID, col.Slug); err == nil {
		conflict.ResourceID = existing.ID
	}
	return conflict
}

func (r *PostgresCollectionRepository) GetByID(ctx context.Context, id, orgID string) (*models.Collection, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s c WHERE c.id = $1 AND c.org_id = $2`, r.selectColumns(), r.tables.Collections)

	var col models.Collection
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanCollection(executor.QueryRow(ctx, query, id, orgID), &col); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &col, nil
}

func (r *PostgresCollectionRepository) GetBySlug(ctx context.Context, orgID, slug string) (*models.Collection, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s c WHERE c.org_id = $1 AND c.slug = $2`, r.selectColumns(), r.tables.Collections)

	var col models.Collection
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanCollection(executor.QueryRow(ctx, query, orgID, slug), &col); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("collection %s: %w", slug, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get collection: %w", err)
	}
	return &col, nil
}

// List returns all collections ordered by position, name
func (r *PostgresCollectionRepository) List(ctx context.Context, orgID string) ([]models.Collection, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s c
		WHERE c.org_id = $1
		ORDER BY c.position, c.name, c.id
	`, r.selectColumns(), r.tables.Collections)
	return r.query(ctx, query, orgID)
}

func (r *PostgresCollectionRepository) ListByIDs(ctx context.Context, orgID string, ids []string) ([]models.Collection, error) {
	if len(ids) == 0 {
		return []models.Collection{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s c
		WHERE c.org_id = $1 AND c.id::text = ANY($2)
		ORDER BY c.position, c.name, c.id
	`, r.selectColumns(), r.tables.Collections)
	return r.query(ctx, query, orgID, ids)
}

// ListChildren lists immediate subcollections; a nil parent lists roots
func (r *PostgresCollectionRepository) ListChildren(ctx context.Context, orgID string, parentID *string) ([]models.Collection, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s c
		WHERE c.org_id = $1 AND c.parent_id IS NOT DISTINCT FROM $2::uuid
		ORDER BY c.position, c.name, c.id
	`, r.selectColumns(), r.tables.Collections)
	return r.query(ctx, query, orgID, parentID)
}

func (r *PostgresCollectionRepository) query(ctx context.Context, query string, args ...any) ([]models.Collection, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	defer rows.Close()

	cols := []models.Collection{}
	for rows.Next() {
		var c models.Collection
		if err := scanCollection(rows, &c); err != nil {
			return nil, fmt.Errorf("scan collection: %w", err)
		}
		cols = append(cols, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collections: %w", err)
	}

	return cols, nil
}

// Update saves scalar fields and the parent pointer
func (r *PostgresCollectionRepository) Update(ctx context.Context, col *models.Collection) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_id = $1, name = $2, slug = $3, description = $4, position = $5, everyone = $6, updated_at = $7
		WHERE id = $8 AND org_id = $9
	`, r.tables.Collections)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		col.ParentID,
		col.Name,
		col.Slug,
		col.Description,
		col.Position,
		col.Everyone,
		col.UpdatedAt,
		col.ID,
		col.OrgID,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return r.conflict(ctx, col)
		}
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("%w: unknown parent collection", domain.ErrValidation)
		}
		return fmt.Errorf("update collection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("collection %s: %w", col.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes the collection. Department, membership and tag rows go
// with it; children fall back to root through ON DELETE SET NULL.
func (r *PostgresCollectionRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND org_id = $2`, r.tables.Collections)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, orgID)
	if err != nil {
		return fmt.Errorf("delete collection: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("collection %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresCollectionRepository) SetDepartments(ctx context.Context, collectionID string, departmentIDs []string) error {
	return replaceSet(ctx, postgres.GetExecutor(ctx, r.pool),
		r.tables.CollectionDepartments, "collection_id", "department_id", collectionID, departmentIDs)
}

// AddDocument is a no-op when the edge exists
func (r *PostgresCollectionRepository) AddDocument(ctx context.Context, collectionID, documentID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (collection_id, document_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, r.tables.CollectionDocuments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, collectionID, documentID); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("%w: unknown collection or document", domain.ErrValidation)
		}
		return fmt.Errorf("add collection document: %w", err)
	}
	return nil
}

// RemoveDocument is a no-op when the edge is missing
func (r *PostgresCollectionRepository) RemoveDocument(ctx context.Context, collectionID, documentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE collection_id = $1 AND document_id = $2`, r.tables.CollectionDocuments)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, collectionID, documentID); err != nil {
		return fmt.Errorf("remove collection document: %w", err)
	}
	return nil
}

// ListDocumentIDs returns member documents in the order they were added
func (r *PostgresCollectionRepository) ListDocumentIDs(ctx context.Context, collectionID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT document_id::text FROM %s
		WHERE collection_id = $1
		ORDER BY added_at, document_id
	`, r.tables.CollectionDocuments)
	return queryIDs(ctx, postgres.GetExecutor(ctx, r.pool), query, collectionID)
}

func (r *PostgresCollectionRepository) ListIDsForDocument(ctx context.Context, documentID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT collection_id::text FROM %s
		WHERE document_id = $1
		ORDER BY collection_id
	`, r.tables.CollectionDocuments)
	return queryIDs(ctx, postgres.GetExecutor(ctx, r.pool), query, documentID)
}
