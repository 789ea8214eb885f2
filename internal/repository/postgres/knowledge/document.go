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

// PostgresDocumentRepository implements the DocumentRepository interface
type PostgresDocumentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(config *postgres.RepositoryConfig) kbRepo.DocumentRepository {
	return &PostgresDocumentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresDocumentRepository) selectColumns() string {
	return fmt.Sprintf(`d.id, d.org_id, d.title, d.slug, d.status, d.everyone, d.created_by::text,
		d.created_at, d.updated_at, %s, %s`,
		idArray(r.tables.DocumentDepartments, "department_id", "document_id", "d.id"),
		idArray(r.tables.CollectionDocuments, "collection_id", "document_id", "d.id"))
}

func scanDocument(row interface{ Scan(...any) error }, d *models.Document) error {
	return row.Scan(
		&d.ID,
		&d.OrgID,
		&d.Title,
		&d.Slug,
		&d.Status,
		&d.Everyone,
		&d.CreatedBy,
		&d.CreatedAt,
		&d.UpdatedAt,
		&d.DepartmentIDs,
		&d.CollectionIDs,
	)
}

// Create creates a document row. Departments are written with SetDepartments.
func (r *PostgresDocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (org_id, title, slug, status, everyone, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		doc.OrgID,
		doc.Title,
		doc.Slug,
		doc.Status,
		doc.Everyone,
		doc.CreatedBy,
		doc.CreatedAt,
		doc.UpdatedAt,
	).Scan(&doc.ID, &doc.CreatedAt, &doc.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create document: %w", err)
	}

	return nil
}

func (r *PostgresDocumentRepository) GetByID(ctx context.Context, id, orgID string) (*models.Document, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s d WHERE d.id = $1 AND d.org_id = $2`, r.selectColumns(), r.tables.Documents)

	var doc models.Document
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanDocument(executor.QueryRow(ctx, query, id, orgID), &doc); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

// List returns documents matching filter, most recently updated first.
// Empty filter fields match everything.
func (r *PostgresDocumentRepository) List(ctx context.Context, orgID string, filter models.DocumentFilter) ([]models.Document, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s d
		WHERE d.org_id = $1
			AND ($2::text = '' OR d.status = $2)
			AND ($3::text = '' OR EXISTS (
				SELECT 1 FROM %s dd WHERE dd.document_id = d.id AND dd.department_id::text = $3))
			AND ($4::text = '' OR EXISTS (
				SELECT 1 FROM %s cd WHERE cd.document_id = d.id AND cd.collection_id::text = $4))
			AND ($5::text = '' OR d.created_by::text = $5)
		ORDER BY d.updated_at DESC, d.id
	`, r.selectColumns(), r.tables.Documents, r.tables.DocumentDepartments, r.tables.CollectionDocuments)

	return r.query(ctx, query,
		orgID,
		string(filter.Status),
		filter.DepartmentID,
		filter.CollectionID,
		filter.CreatedBy,
	)
}

func (r *PostgresDocumentRepository) ListByIDs(ctx context.Context, orgID string, ids []string) ([]models.Document, error) {
	if len(ids) == 0 {
		return []models.Document{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s d
		WHERE d.org_id = $1 AND d.id::text = ANY($2)
		ORDER BY d.updated_at DESC, d.id
	`, r.selectColumns(), r.tables.Documents)
	return r.query(ctx, query, orgID, ids)
}

func (r *PostgresDocumentRepository) query(ctx context.Context, query string, args ...any) ([]models.Document, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []models.Document{}
	for rows.Next() {
		var d models.Document
		if err := scanDocument(rows, &d); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}

	return docs, nil
}

// Update saves title, slug, status and everyone
func (r *PostgresDocumentRepository) Update(ctx context.Context, doc *models.Document) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, slug = $2, status = $3, everyone = $4, updated_at = $5
		WHERE id = $6 AND org_id = $7
	`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		doc.Title,
		doc.Slug,
		doc.Status,
		doc.Everyone,
		doc.UpdatedAt,
		doc.ID,
		doc.OrgID,
	)
	if err != nil {
		return fmt.Errorf("update document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", doc.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes the document with its sections, links, versions and
// membership rows.
func (r *PostgresDocumentRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND org_id = $2`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, orgID)
	if err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresDocumentRepository) SetDepartments(ctx context.Context, documentID string, departmentIDs []string) error {
	return replaceSet(ctx, postgres.GetExecutor(ctx, r.pool),
		r.tables.DocumentDepartments, "document_id", "department_id", documentID, departmentIDs)
}

func (r *PostgresDocumentRepository) Touch(ctx context.Context, documentID string) error {
	query := fmt.Sprintf(`UPDATE %s SET updated_at = NOW() WHERE id = $1`, r.tables.Documents)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, documentID)
	if err != nil {
		return fmt.Errorf("touch document: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}

	return nil
}
