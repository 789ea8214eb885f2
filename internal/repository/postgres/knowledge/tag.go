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

// PostgresTagRepository implements the TagRepository interface. The target
// is stored flat as target_kind, target_id and link_url.
type PostgresTagRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewTagRepository creates a new tag repository
func NewTagRepository(config *postgres.RepositoryConfig) kbRepo.TagRepository {
	return &PostgresTagRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const tagColumns = `t.id, t.org_id, t.name, t.slug, t.description, t.target_kind, t.target_id::text, t.link_url, t.created_at`

func scanTag(row interface{ Scan(...any) error }, tag *models.Tag) error {
	var (
		kind     models.TargetKind
		targetID *string
		linkURL  string
	)
	if err := row.Scan(
		&tag.ID,
		&tag.OrgID,
		&tag.Name,
		&tag.Slug,
		&tag.Description,
		&kind,
		&targetID,
		&linkURL,
		&tag.CreatedAt,
	); err != nil {
		return err
	}

	id := ""
	if targetID != nil {
		id = *targetID
	}
	target, err := models.NewTagTarget(kind, id, linkURL)
	if err != nil {
		return fmt.Errorf("tag %s: %w", tag.ID, err)
	}
	tag.Target = target
	return nil
}

// targetArgs flattens a target into its stored columns
func targetArgs(target models.TagTarget) (models.TargetKind, *string, string) {
	if target == nil {
		return models.TargetNone, nil, ""
	}
	var targetID *string
	if id := models.TargetID(target); id != "" {
		targetID = &id
	}
	return target.Kind(), targetID, models.TargetURL(target)
}

func (r *PostgresTagRepository) Create(ctx context.Context, tag *models.Tag) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (org_id, name, slug, description, target_kind, target_id, link_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, r.tables.Tags)

	kind, targetID, linkURL := targetArgs(tag.Target)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		tag.OrgID,
		tag.Name,
		tag.Slug,
		tag.Description,
		kind,
		targetID,
		linkURL,
		tag.CreatedAt,
	).Scan(&tag.ID, &tag.CreatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			conflict := &domain.ConflictError{
				Message:      fmt.Sprintf("a tag for this %s already exists", kind),
				ResourceType: "tag",
			}
			if existing, getErr := r.FindByTarget(ctx, tag.OrgID, tag.Target); getErr == nil {
				conflict.ResourceID = existing.ID
			}
			return conflict
		}
		return fmt.Errorf("create tag: %w", err)
	}

	return nil
}

func (r *PostgresTagRepository) GetByID(ctx context.Context, id, orgID string) (*models.Tag, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s t WHERE t.id = $1 AND t.org_id = $2`, tagColumns, r.tables.Tags)

	var tag models.Tag
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanTag(executor.QueryRow(ctx, query, id, orgID), &tag); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get tag: %w", err)
	}
	return &tag, nil
}

// List returns the org's tags ordered by name; an empty kind lists all
func (r *PostgresTagRepository) List(ctx context.Context, orgID string, kind models.TargetKind) ([]models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s t
		WHERE t.org_id = $1 AND ($2::text = '' OR t.target_kind = $2)
		ORDER BY t.name, t.id
	`, tagColumns, r.tables.Tags)
	return r.query(ctx, query, orgID, string(kind))
}

func (r *PostgresTagRepository) ListByIDs(ctx context.Context, orgID string, ids []string) ([]models.Tag, error) {
	if len(ids) == 0 {
		return []models.Tag{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s t
		WHERE t.org_id = $1 AND t.id::text = ANY($2)
		ORDER BY t.name, t.id
	`, tagColumns, r.tables.Tags)
	return r.query(ctx, query, orgID, ids)
}

// FindByTarget returns the tag keyed by (kind, target id)
func (r *PostgresTagRepository) FindByTarget(ctx context.Context, orgID string, target models.TagTarget) (*models.Tag, error) {
	kind, targetID, _ := targetArgs(target)
	if targetID == nil {
		return nil, fmt.Errorf("tag for %s target: %w", kind, domain.ErrNotFound)
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s t
		WHERE t.org_id = $1 AND t.target_kind = $2 AND t.target_id::text = $3
		ORDER BY t.created_at, t.id
		LIMIT 1
	`, tagColumns, r.tables.Tags)

	var tag models.Tag
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanTag(executor.QueryRow(ctx, query, orgID, kind, *targetID), &tag); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("tag for %s %s: %w", kind, *targetID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("find tag by target: %w", err)
	}
	return &tag, nil
}

func (r *PostgresTagRepository) query(ctx context.Context, query string, args ...any) ([]models.Tag, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var tag models.Tag
		if err := scanTag(rows, &tag); err != nil {
			return nil, fmt.Errorf("scan tag: %w", err)
		}
		tags = append(tags, tag)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tags: %w", err)
	}

	return tags, nil
}

// Update saves name, slug, description and target
func (r *PostgresTagRepository) Update(ctx context.Context, tag *models.Tag) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, slug = $2, description = $3, target_kind = $4, target_id = $5, link_url = $6
		WHERE id = $7 AND org_id = $8
	`, r.tables.Tags)

	kind, targetID, linkURL := targetArgs(tag.Target)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		tag.Name,
		tag.Slug,
		tag.Description,
		kind,
		targetID,
		linkURL,
		tag.ID,
		tag.OrgID,
	)
	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			return &domain.ConflictError{
				Message:      fmt.Sprintf("a tag for this %s already exists", kind),
				ResourceType: "tag",
			}
		}
		return fmt.Errorf("update tag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tag %s: %w", tag.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete removes the tag; attachments go with it
func (r *PostgresTagRepository) Delete(ctx context.Context, id, orgID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND org_id = $2`, r.tables.Tags)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, orgID)
	if err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("tag %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// attachTable returns the join table and owner column for owner's kind
func (r *PostgresTagRepository) attachTable(owner models.TagOwner) (string, string) {
	if owner.Kind == models.OwnerCollection {
		return r.tables.CollectionTags, "collection_id"
	}
	return r.tables.DocumentTags, "document_id"
}

// ListAttached returns the tags attached to owner ordered by name
func (r *PostgresTagRepository) ListAttached(ctx context.Context, owner models.TagOwner) ([]models.Tag, error) {
	table, ownerCol := r.attachTable(owner)
	query := fmt.Sprintf(`
		SELECT %s FROM %s t
		JOIN %s a ON a.tag_id = t.id
		WHERE a.%s = $1
		ORDER BY t.name, t.id
	`, tagColumns, r.tables.Tags, table, ownerCol)
	return r.query(ctx, query, owner.ID)
}

// Attach is a no-op if the tag is already attached
func (r *PostgresTagRepository) Attach(ctx context.Context, owner models.TagOwner, tagID string) error {
	table, ownerCol := r.attachTable(owner)
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, tag_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, table, ownerCol)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, owner.ID, tagID); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("attach tag %s to %s %s: %w", tagID, owner.Kind, owner.ID, domain.ErrNotFound)
		}
		return fmt.Errorf("attach tag: %w", err)
	}
	return nil
}

// Detach is a no-op if the tag is not attached
func (r *PostgresTagRepository) Detach(ctx context.Context, owner models.TagOwner, tagID string) error {
	table, ownerCol := r.attachTable(owner)
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = $1 AND tag_id = $2`, table, ownerCol)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, owner.ID, tagID); err != nil {
		return fmt.Errorf("detach tag: %w", err)
	}
	return nil
}

func (r *PostgresTagRepository) DetachEverywhere(ctx context.Context, tagID string) error {
	executor := postgres.GetExecutor(ctx, r.pool)
	for _, table := range []string{r.tables.DocumentTags, r.tables.CollectionTags} {
		query := fmt.Sprintf(`DELETE FROM %s WHERE tag_id = $1`, table)
		if _, err := executor.Exec(ctx, query, tagID); err != nil {
			return fmt.Errorf("detach tag everywhere: %w", err)
		}
	}
	return nil
}
