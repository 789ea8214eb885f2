package postgres

import (
	"context"
	"fmt"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresOrganizationRepository implements the OrganizationRepository interface
type PostgresOrganizationRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(config *RepositoryConfig) repositories.OrganizationRepository {
	return &PostgresOrganizationRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new organization
func (r *PostgresOrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, slug, brand_primary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, r.tables.Organizations)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		org.Name,
		org.Slug,
		org.BrandPrimary,
		org.CreatedAt,
		org.UpdatedAt,
	).Scan(&org.ID, &org.CreatedAt, &org.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			conflict := &domain.ConflictError{
				Message:      fmt.Sprintf("organization '%s' already exists", org.Slug),
				ResourceType: "organization",
			}
			if existing, getErr := r.GetBySlug(ctx, org.Slug); getErr == nil {
				conflict.ResourceID = existing.ID
			}
			return conflict
		}
		return fmt.Errorf("create organization: %w", err)
	}

	return nil
}

func (r *PostgresOrganizationRepository) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	return r.getBy(ctx, "id", id)
}

func (r *PostgresOrganizationRepository) GetBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return r.getBy(ctx, "slug", slug)
}

func (r *PostgresOrganizationRepository) getBy(ctx context.Context, column, value string) (*models.Organization, error) {
	query := fmt.Sprintf(`
		SELECT id, name, slug, brand_primary, created_at, updated_at
		FROM %s
		WHERE %s = $1
	`, r.tables.Organizations, column)

	var org models.Organization
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, value).Scan(
		&org.ID,
		&org.Name,
		&org.Slug,
		&org.BrandPrimary,
		&org.CreatedAt,
		&org.UpdatedAt,
	)

	if err != nil {
		if IsPgMissingError(err) {
			return nil, fmt.Errorf("organization %s: %w", value, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get organization: %w", err)
	}

	return &org, nil
}

// List returns every organization ordered by name
func (r *PostgresOrganizationRepository) List(ctx context.Context) ([]models.Organization, error) {
	query := fmt.Sprintf(`
		SELECT id, name, slug, brand_primary, created_at, updated_at
		FROM %s
		ORDER BY name, id
	`, r.tables.Organizations)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list organizations: %w", err)
	}
	defer rows.Close()

	orgs := []models.Organization{}
	for rows.Next() {
		var org models.Organization
		if err := rows.Scan(
			&org.ID,
			&org.Name,
			&org.Slug,
			&org.BrandPrimary,
			&org.CreatedAt,
			&org.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan organization: %w", err)
		}
		orgs = append(orgs, org)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate organizations: %w", err)
	}

	return orgs, nil
}

// PostgresMembershipRepository implements the MembershipRepository interface
type PostgresMembershipRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewMembershipRepository creates a new membership repository
func NewMembershipRepository(config *RepositoryConfig) repositories.MembershipRepository {
	return &PostgresMembershipRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

func (r *PostgresMembershipRepository) Get(ctx context.Context, orgID, userID string) (*models.Membership, error) {
	query := fmt.Sprintf(`
		SELECT user_id, org_id, role, created_at
		FROM %s
		WHERE org_id = $1 AND user_id = $2
	`, r.tables.Memberships)

	var m models.Membership
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, orgID, userID).Scan(
		&m.UserID,
		&m.OrgID,
		&m.Role,
		&m.CreatedAt,
	)

	if err != nil {
		if IsPgMissingError(err) {
			return nil, fmt.Errorf("membership of %s in %s: %w", userID, orgID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get membership: %w", err)
	}

	return &m, nil
}

// Upsert creates a membership or changes its role
func (r *PostgresMembershipRepository) Upsert(ctx context.Context, m *models.Membership) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, org_id, role, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, org_id) DO UPDATE SET role = EXCLUDED.role
		RETURNING created_at
	`, r.tables.Memberships)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, m.UserID, m.OrgID, m.Role, m.CreatedAt).Scan(&m.CreatedAt)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("%w: unknown user or organization", domain.ErrValidation)
		}
		return fmt.Errorf("upsert membership: %w", err)
	}

	return nil
}
