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

// PostgresDepartmentRepository implements the DepartmentRepository interface
type PostgresDepartmentRepository struct {
	pool   *pgxpool.Pool
	tables *postgres.TableNames
}

// NewDepartmentRepository creates a new department repository
func NewDepartmentRepository(config *postgres.RepositoryConfig) kbRepo.DepartmentRepository {
	return &PostgresDepartmentRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const departmentColumns = `id, org_id, name, slug, description, created_at, updated_at`

func scanDepartment(row interface{ Scan(...any) error }, d *models.Department) error {
	return row.Scan(
		&d.ID,
		&d.OrgID,
		&d.Name,
		&d.Slug,
		&d.Description,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
}

// Create creates a new department
func (r *PostgresDepartmentRepository) Create(ctx context.Context, dept *models.Department) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (org_id, name, slug, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, r.tables.Departments)

	executor := postgres.GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		dept.OrgID,
		dept.Name,
		dept.Slug,
		dept.Description,
		dept.CreatedAt,
		dept.UpdatedAt,
	).Scan(&dept.ID, &dept.CreatedAt, &dept.UpdatedAt)

	if err != nil {
		if postgres.IsPgDuplicateError(err) {
			conflict := &domain.ConflictError{
				Message:      fmt.Sprintf("department '%s' already exists", dept.Slug),
				ResourceType: "department",
			}
			if existing, getErr := r.GetBySlug(ctx, dept.OrgID, dept.Slug); getErr == nil {
				conflict.ResourceID = existing.ID
			}
			return conflict
		}
		return fmt.Errorf("create department: %w", err)
	}

	return nil
}

func (r *PostgresDepartmentRepository) GetByID(ctx context.Context, id, orgID string) (*models.Department, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE id = $1 AND org_id = $2`, departmentColumns, r.tables.Departments)

	var dept models.Department
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanDepartment(executor.QueryRow(ctx, query, id, orgID), &dept); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("department %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &dept, nil
}

func (r *PostgresDepartmentRepository) GetBySlug(ctx context.Context, orgID, slug string) (*models.Department, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE org_id = $1 AND slug = $2`, departmentColumns, r.tables.Departments)

	var dept models.Department
	executor := postgres.GetExecutor(ctx, r.pool)
	if err := scanDepartment(executor.QueryRow(ctx, query, orgID, slug), &dept); err != nil {
		if postgres.IsPgMissingError(err) {
			return nil, fmt.Errorf("department %s: %w", slug, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get department: %w", err)
	}
	return &dept, nil
}

// List returns the org's departments ordered by name
func (r *PostgresDepartmentRepository) List(ctx context.Context, orgID string) ([]models.Department, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE org_id = $1
		ORDER BY name, id
	`, departmentColumns, r.tables.Departments)
	return r.query(ctx, query, orgID)
}

func (r *PostgresDepartmentRepository) ListByIDs(ctx context.Context, orgID string, ids []string) ([]models.Department, error) {
	if len(ids) == 0 {
		return []models.Department{}, nil
	}
	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE org_id = $1 AND id::text = ANY($2)
		ORDER BY name, id
	`, departmentColumns, r.tables.Departments)
	return r.query(ctx, query, orgID, ids)
}

func (r *PostgresDepartmentRepository) query(ctx context.Context, query string, args ...any) ([]models.Department, error) {
	executor := postgres.GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	depts := []models.Department{}
	for rows.Next() {
		var d models.Department
		if err := scanDepartment(rows, &d); err != nil {
			return nil, fmt.Errorf("scan department: %w", err)
		}
		depts = append(depts, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate departments: %w", err)
	}

	return depts, nil
}

// Update saves name and description. The slug is never written.
func (r *PostgresDepartmentRepository) Update(ctx context.Context, dept *models.Department) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, description = $2, updated_at = $3
		WHERE id = $4 AND org_id = $5
	`, r.tables.Departments)

	executor := postgres.GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		dept.Name,
		dept.Description,
		dept.UpdatedAt,
		dept.ID,
		dept.OrgID,
	)
	if err != nil {
		return fmt.Errorf("update department: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("department %s: %w", dept.ID, domain.ErrNotFound)
	}

	return nil
}

func (r *PostgresDepartmentRepository) AddMember(ctx context.Context, departmentID, userID string) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (department_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, r.tables.DepartmentMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, departmentID, userID); err != nil {
		if postgres.IsPgForeignKeyError(err) {
			return fmt.Errorf("%w: unknown user %s", domain.ErrValidation, userID)
		}
		return fmt.Errorf("add department member: %w", err)
	}
	return nil
}

func (r *PostgresDepartmentRepository) RemoveMember(ctx context.Context, departmentID, userID string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE department_id = $1 AND user_id = $2`, r.tables.DepartmentMembers)

	executor := postgres.GetExecutor(ctx, r.pool)
	if _, err := executor.Exec(ctx, query, departmentID, userID); err != nil {
		return fmt.Errorf("remove department member: %w", err)
	}
	return nil
}

func (r *PostgresDepartmentRepository) ListIDsForUser(ctx context.Context, orgID, userID string) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT d.id::text
		FROM %s dm
		JOIN %s d ON d.id = dm.department_id
		WHERE d.org_id = $1 AND dm.user_id = $2
		ORDER BY d.id
	`, r.tables.DepartmentMembers, r.tables.Departments)

	return queryIDs(ctx, postgres.GetExecutor(ctx, r.pool), query, orgID, userID)
}
