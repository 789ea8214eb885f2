package knowledge

import (
	"context"
	"fmt"

	models "knowledgestack/internal/domain/models/knowledge"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresVersionRepository implements the VersionRepository interface
type PostgresVersionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewVersionRepository creates a new document version repository
func NewVersionRepository(config *postgres.RepositoryConfig) kbRepo.VersionRepository {
	return &PostgresVersionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func nonNilIDs(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}

func (r *PostgresVersionRepository) Create(ctx context.Context, v *models.DocumentVersion) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, org_id, created_by, created_at, title, status, everyone,
			tag_ids, collection_ids, department_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at
	`, r.tables.Versions)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		v.DocumentID,
		v.OrgID,
		v.CreatedBy,
		v.CreatedAt,
		v.Title,
		v.Status,
		v.Everyone,
		nonNilIDs(v.TagIDs),
		nonNilIDs(v.CollectionIDs),
		nonNilIDs(v.DepartmentIDs),
	).Scan(&v.ID, &v.CreatedAt)

	if err != nil {
		return fmt.Errorf("create document version: %w", err)
	}

	return nil
}

// ListByDocument returns snapshots newest first
func (r *PostgresVersionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.DocumentVersion, error) {
	query := fmt.Sprintf(`
		SELECT id, document_id, org_id, created_by::text, created_at, title, status, everyone,
			tag_ids, collection_ids, department_ids
		FROM %s
		WHERE document_id = $1
		ORDER BY created_at DESC, id DESC
	`, r.tables.Versions)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list document versions: %w", err)
	}
	defer rows.Close()

	versions := []models.DocumentVersion{}
	for rows.Next() {
		var v models.DocumentVersion
		if err := rows.Scan(
			&v.ID,
			&v.DocumentID,
			&v.OrgID,
			&v.CreatedBy,
			&v.CreatedAt,
			&v.Title,
			&v.Status,
			&v.Everyone,
			&v.TagIDs,
			&v.CollectionIDs,
			&v.DepartmentIDs,
		); err != nil {
			return nil, fmt.Errorf("scan document version: %w", err)
		}
		versions = append(versions, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document versions: %w", err)
	}

	return versions, nil
}
