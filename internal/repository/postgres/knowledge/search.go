package knowledge

import (
	"context"
	"fmt"
	"strings"

	models "knowledgestack/internal/domain/models/knowledge"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/repository/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSearchRepository implements the SearchRepository interface with
// case-insensitive substring matching.
type PostgresSearchRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewSearchRepository creates a new search repository
func NewSearchRepository(config *postgres.RepositoryConfig) kbRepo.SearchRepository {
	return &PostgresSearchRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// likePattern wraps q for ILIKE, escaping its wildcards
func likePattern(q string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(q) + "%"
}

// Search matches each requested kind and caps the results per kind
func (r *PostgresSearchRepository) Search(ctx context.Context, opts *models.SearchOptions) (*models.SearchHits, error) {
	pattern := likePattern(opts.Query)
	hits := &models.SearchHits{}
	var err error

	if opts.Includes(models.ResultDocument) {
		if hits.Documents, err = r.searchDocuments(ctx, opts.OrgID, pattern); err != nil {
			return nil, err
		}
	}
	if opts.Includes(models.ResultCollection) {
		if hits.Collections, err = r.searchCollections(ctx, opts.OrgID, pattern); err != nil {
			return nil, err
		}
	}
	if opts.Includes(models.ResultDepartment) {
		if hits.Departments, err = r.searchDepartments(ctx, opts.OrgID, pattern); err != nil {
			return nil, err
		}
	}
	if opts.Includes(models.ResultTag) {
		if hits.Tags, err = r.searchTags(ctx, opts.OrgID, pattern); err != nil {
			return nil, err
		}
	}

	return hits, nil
}

// searchDocuments matches title, section bodies and link title/note/url.
// The snippet source is the first matching section body, else the first
// matching link text, else the title.
func (r *PostgresSearchRepository) searchDocuments(ctx context.Context, orgID, pattern string) ([]models.DocumentHit, error) {
	query := fmt.Sprintf(`
		SELECT d.id, d.title, d.everyone, %s,
			COALESCE(
				(SELECT s.body_md FROM %s s
					WHERE s.document_id = d.id AND s.body_md ILIKE $2
					ORDER BY s.position, s.id LIMIT 1),
				(SELECT COALESCE(NULLIF(l.title, ''), NULLIF(l.note, ''), l.url) FROM %s l
					WHERE l.document_id = d.id AND (l.title ILIKE $2 OR l.note ILIKE $2 OR l.url ILIKE $2)
					ORDER BY l.position, l.id LIMIT 1),
				d.title)
		FROM %s d
		WHERE d.org_id = $1 AND (
			d.title ILIKE $2
			OR EXISTS (SELECT 1 FROM %s s WHERE s.document_id = d.id AND s.body_md ILIKE $2)
			OR EXISTS (SELECT 1 FROM %s l WHERE l.document_id = d.id
				AND (l.title ILIKE $2 OR l.note ILIKE $2 OR l.url ILIKE $2)))
		ORDER BY d.updated_at DESC, d.id
		LIMIT %d
	`,
		idArray(r.tables.DocumentDepartments, "department_id", "document_id", "d.id"),
		r.tables.Sections, r.tables.Links,
		r.tables.Documents,
		r.tables.Sections, r.tables.Links,
		models.MaxDocumentResults,
	)

	return r.queryDocumentHits(ctx, query, orgID, pattern)
}

func (r *PostgresSearchRepository) queryDocumentHits(ctx context.Context, query string, args ...any) ([]models.DocumentHit, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search documents: %w", err)
	}
	defer rows.Close()

	hits := []models.DocumentHit{}
	for rows.Next() {
		var h models.DocumentHit
		if err := rows.Scan(&h.ID, &h.Title, &h.Everyone, &h.DepartmentIDs, &h.SnippetSource); err != nil {
			return nil, fmt.Errorf("scan document hit: %w", err)
		}
		hits = append(hits, h)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate document hits: %w", err)
	}

	return hits, nil
}

func (r *PostgresSearchRepository) searchCollections(ctx context.Context, orgID, pattern string) ([]models.Collection, error) {
	query := fmt.Sprintf(`
		SELECT c.id, c.org_id, c.parent_id, c.name, c.slug, c.description, c.position, c.everyone,
			c.created_at, c.updated_at, %s
		FROM %s c
		WHERE c.org_id = $1 AND (c.name ILIKE $2 OR c.description ILIKE $2)
		ORDER BY c.position, c.name, c.id
		LIMIT %d
	`,
		idArray(r.tables.CollectionDepartments, "department_id", "collection_id", "c.id"),
		r.tables.Collections,
		models.MaxCollectionResults,
	)

	return r.queryCollections(ctx, query, orgID, pattern)
}

func (r *PostgresSearchRepository) queryCollections(ctx context.Context, query string, args ...any) ([]models.Collection, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search collections: %w", err)
	}
	defer rows.Close()

	cols := []models.Collection{}
	for rows.Next() {
		var c models.Collection
		if err := scanCollection(rows, &c); err != nil {
			return nil, fmt.Errorf("scan collection hit: %w", err)
		}
		cols = append(cols, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collection hits: %w", err)
	}

	return cols, nil
}

func (r *PostgresSearchRepository) searchDepartments(ctx context.Context, orgID, pattern string) ([]models.Department, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE org_id = $1 AND (name ILIKE $2 OR slug ILIKE $2)
		ORDER BY name, id
		LIMIT %d
	`, departmentColumns, r.tables.Departments, models.MaxDepartmentResults)

	return r.queryDepartments(ctx, query, orgID, pattern)
}

func (r *PostgresSearchRepository) queryDepartments(ctx context.Context, query string, args ...any) ([]models.Department, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search departments: %w", err)
	}
	defer rows.Close()

	depts := []models.Department{}
	for rows.Next() {
		var d models.Department
		if err := scanDepartment(rows, &d); err != nil {
			return nil, fmt.Errorf("scan department hit: %w", err)
		}
		depts = append(depts, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate department hits: %w", err)
	}

	return depts, nil
}

func (r *PostgresSearchRepository) searchTags(ctx context.Context, orgID, pattern string) ([]models.Tag, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s t
		WHERE t.org_id = $1 AND (t.name ILIKE $2 OR t.description ILIKE $2)
		ORDER BY t.name, t.id
		LIMIT %d
	`, tagColumns, r.tables.Tags, models.MaxTagResults)

	return r.queryTags(ctx, query, orgID, pattern)
}

func (r *PostgresSearchRepository) queryTags(ctx context.Context, query string, args ...any) ([]models.Tag, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search tags: %w", err)
	}
	defer rows.Close()

	tags := []models.Tag{}
	for rows.Next() {
		var t models.Tag
		if err := scanTag(rows, &t); err != nil {
			return nil, fmt.Errorf("scan tag hit: %w", err)
		}
		tags = append(tags, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag hits: %w", err)
	}

	return tags, nil
}

// documentFullText joins a document's section bodies and link text
func (r *PostgresSearchRepository) documentFullText() string {
	return fmt.Sprintf(`CONCAT_WS(E'\n',
			(SELECT string_agg(s.header || E'\n' || s.body_md, E'\n' ORDER BY s.position, s.id) FROM %s s WHERE s.document_id = d.id),
			(SELECT string_agg(CONCAT_WS(' ', l.title, l.note, l.url), E'\n' ORDER BY l.position, l.id) FROM %s l WHERE l.document_id = d.id))`,
		r.tables.Sections, r.tables.Links)
}

// LoadIndexRecords reads every searchable entity of the org
func (r *PostgresSearchRepository) LoadIndexRecords(ctx context.Context, orgID string) (*models.SearchHits, error) {
	return r.load(ctx, orgID, "", "")
}

// LoadIndexRecord reads one entity; the hits are empty if it is gone
func (r *PostgresSearchRepository) LoadIndexRecord(ctx context.Context, orgID string, kind models.SearchResultKind, id string) (*models.SearchHits, error) {
	return r.load(ctx, orgID, kind, id)
}

// load reads all kinds when kind is empty, else the single entity id
func (r *PostgresSearchRepository) load(ctx context.Context, orgID string, kind models.SearchResultKind, id string) (*models.SearchHits, error) {
	hits := &models.SearchHits{}
	var err error

	if kind == "" || kind == models.ResultDocument {
		query := fmt.Sprintf(`
			SELECT d.id, d.title, d.everyone, %s, %s
			FROM %s d
			WHERE d.org_id = $1 AND ($2::text = '' OR d.id::text = $2)
			ORDER BY d.id
		`,
			idArray(r.tables.DocumentDepartments, "department_id", "document_id", "d.id"),
			r.documentFullText(),
			r.tables.Documents,
		)
		if hits.Documents, err = r.queryDocumentHits(ctx, query, orgID, id); err != nil {
			return nil, err
		}
	}

	if kind == "" || kind == models.ResultCollection {
		query := fmt.Sprintf(`
			SELECT c.id, c.org_id, c.parent_id, c.name, c.slug, c.description, c.position, c.everyone,
				c.created_at, c.updated_at, %s
			FROM %s c
			WHERE c.org_id = $1 AND ($2::text = '' OR c.id::text = $2)
			ORDER BY c.id
		`,
			idArray(r.tables.CollectionDepartments, "department_id", "collection_id", "c.id"),
			r.tables.Collections,
		)
		if hits.Collections, err = r.queryCollections(ctx, query, orgID, id); err != nil {
			return nil, err
		}
	}

	if kind == "" || kind == models.ResultDepartment {
		query := fmt.Sprintf(`
			SELECT %s FROM %s
			WHERE org_id = $1 AND ($2::text = '' OR id::text = $2)
			ORDER BY id
		`, departmentColumns, r.tables.Departments)
		if hits.Departments, err = r.queryDepartments(ctx, query, orgID, id); err != nil {
			return nil, err
		}
	}

	if kind == "" || kind == models.ResultTag {
		query := fmt.Sprintf(`
			SELECT %s FROM %s t
			WHERE t.org_id = $1 AND ($2::text = '' OR t.id::text = $2)
			ORDER BY t.id
		`, tagColumns, r.tables.Tags)
		if hits.Tags, err = r.queryTags(ctx, query, orgID, id); err != nil {
			return nil, err
		}
	}

	return hits, nil
}
