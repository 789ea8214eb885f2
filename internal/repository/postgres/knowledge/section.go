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

// PostgresSectionRepository implements the SectionRepository interface
type PostgresSectionRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewSectionRepository creates a new section repository
func NewSectionRepository(config *postgres.RepositoryConfig) kbRepo.SectionRepository {
	return &PostgresSectionRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const sectionColumns = `id, document_id, position, header, body_md, image_key, created_at`

func scanSection(row interface{ Scan(...any) error }, s *models.Section) error {
	return row.Scan(
		&s.ID,
		&s.DocumentID,
		&s.Order,
		&s.Header,
		&s.BodyMD,
		&s.ImageKey,
		&s.CreatedAt,
	)
}

func (r *PostgresSectionRepository) Create(ctx context.Context, section *models.Section) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (document_id, position, header, body_md, image_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, r.tables.Sections)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		section.DocumentID,
		section.Order,
		section.Header,
		section.BodyMD,
		section.ImageKey,
		section.CreatedAt,
	).Scan(&section.ID, &section.CreatedAt)

	if err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("document %s: %w", section.DocumentID, domain.ErrNotFound)
		}
		return fmt.Errorf("create section: %w", err)
	}

	return nil
}

func (r *PostgresSectionRepository) GetByID(ctx context.Context, id, documentID string) (*models.Section, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND document_id = $2`, sectionColumns, r.tables.Sections)

	var section models.Section
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanSection(executor.QueryRow(ctx, query, id, documentID), &section); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get section: %w", err)
	}
	return &section, nil
}

// ListByDocument returns sections ordered by (order, id)
func (r *PostgresSectionRepository) ListByDocument(ctx context.Context, documentID string) ([]models.Section, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE document_id = $1
		ORDER BY position, id
	`, sectionColumns, r.tables.Sections)

	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, documentID)
	if err != nil {
		return nil, fmt.Errorf("list sections: %w", err)
	}
	defer rows.Close()

	sections := []models.Section{}
	for rows.Next() {
		var s models.Section
		if err := scanSection(rows, &s); err != nil {
			return nil, fmt.Errorf("scan section: %w", err)
		}
		sections = append(sections, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sections: %w", err)
	}

	return sections, nil
}

func (r *PostgresSectionRepository) Update(ctx context.Context, section *models.Section) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET header = $1, body_md = $2, image_key = $3, position = $4
		WHERE id = $5 AND document_id = $6
	`, r.tables.Sections)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		section.Header,
		section.BodyMD,
		section.ImageKey,
		section.Order,
		section.ID,
		section.DocumentID,
	)
	if err != nil {
		return fmt.Errorf("update section: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("section %s: %w", section.ID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresSectionRepository) Delete(ctx context.Context, id, documentID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND document_id = $2`, r.tables.Sections)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, documentID)
	if err != nil {
		return fmt.Errorf("delete section: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("section %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// SetOrder writes position = index for each id in orderedIDs
func (r *PostgresSectionRepository) SetOrder(ctx context.Context, documentID string, orderedIDs []string) error {
	return setOrder(ctx, postgres.GetExecutor(ctx, r.pool), r.tables.Sections, documentID, orderedIDs)
}
