package knowledge

import (
	"context"
	"fmt"

	"knowledgestack/internal/domain"
	models "knowledgestack/internal/domain/models/knowledge"
	"knowledgestack/internal/domain/repositories"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresLinkRepository implements the LinkRepository interface
type PostgresLinkRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewLinkRepository creates a new resource link repository
func NewLinkRepository(config *postgres.RepositoryConfig) kbRepo.LinkRepository {
	return &PostgresLinkRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const linkColumns = `id, document_id, position, title, url, note`

func scanLink(row interface{ Scan(...any) error }, l *models.ResourceLink) error {
	return row.Scan(&l.ID, &l.DocumentID, &l.Order, &l.Title, &l.URL, &l.Note)
}

func (r *PostgresLinkRepository) Create(ctx context.Context, link *models.ResourceLink) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, position, title, url, note)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, r.tables.Links)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		link.DocumentID,
		link.Order,
		link.Title,
		link.URL,
		link.Note,
	).Scan(&link.ID)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", link.DocumentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create link: %w", err)
	}

	return nil
}

func (r *PostgresLinkRepository) GetByID(ctx context.Context, id, documentID string) (*models.ResourceLink, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND document_id = $2`, linkColumns, r.tables.Links)

	var link models.ResourceLink
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanLink(executor.QueryRow(ctx, query, id, documentID), &link); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("link %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get link: %w", err)
	}
	return &link, nil
}

// ListByDocument returns links ordered by (order, id)
func (r *PostgresLinkRepository) ListByDocument(ctx context.Context, documentID string) ([]models.ResourceLink, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE document_id = $1
		ORDER BY position, id
	`, linkColumns, r.tables.Links)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list links: %w", err)
	}
	defer rows.Close()

	links := []models.ResourceLink{}
	for rows.Next() {
		var l models.ResourceLink
		if err := scanLink(rows, &l); err != nil {
			return nil, fmt.Errorf("scan link: %w", err)
		}
		links = append(links, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate links: %w", err)
	}

	return links, nil
}

func (r *PostgresLinkRepository) Update(ctx context.Context, link *models.ResourceLink) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET title = $1, url = $2, note = $3, position = $4
		WHERE id = $5 AND document_id = $6
	`, r.tables.Links)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		link.Title,
		link.URL,
		link.Note,
		link.Order,
		link.ID,
		link.DocumentID,
	)
	if err != nil {
		return fmt.Errorf("update link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("link %s: %w", link.ID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresLinkRepository) Delete(ctx context.Context, id, documentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND document_id = $2`, r.tables.Links)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, documentID)
	if err != nil {
		return fmt.Errorf("delete link: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("link %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresLinkRepository) SetOrder(ctx context.Context, documentID string, orderedIDs []string) error {
	return setOrder(ctx, postgres.GetExecutor(ctx, r.pool), r.tables.Links, documentID, orderedIDs)
}

// setOrder assigns position = index to each listed row of a document in
// a single statement.
func setOrder(ctx context.Context, executor repositories.DBTX, table, documentID string, orderedIDs []string) error {
	if len(orderedIDs) == 0 {
		return nil
	}
	query := fmt.Sprintf(`
		UPDATE %s t
		SET position = o.idx - 1
		FROM unnest($2::text[]) WITH ORDINALITY AS o(id, idx)
		WHERE t.id::text = o.id AND t.document_id = $1
	`, table)

	if _, err := executor.Exec(ctx, query, documentID, orderedIDs); err != nil {
		return fmt.Errorf("reorder %s: %w", table, err)
	}
	return nil
}
