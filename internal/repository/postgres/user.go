package postgres

import (
	"context"
	"fmt"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserRepository implements the UserRepository interface
type PostgresUserRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewUserRepository creates a new user repository
func NewUserRepository(config *RepositoryConfig) repositories.UserRepository {
	return &PostgresUserRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Create creates a new user
func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (username, email, display_name, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, r.tables.Users)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		user.Username,
		user.Email,
		user.DisplayName,
		user.PasswordHash,
		user.CreatedAt,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			conflict := &domain.ConflictError{
				Message:      fmt.Sprintf("user '%s' or email '%s' already exists", user.Username, user.Email),
				ResourceType: "user",
			}
			if existing, getErr := r.GetByLogin(ctx, user.Username); getErr == nil {
				conflict.ResourceID = existing.ID
			} else if existing, getErr := r.GetByLogin(ctx, user.Email); getErr == nil {
				conflict.ResourceID = existing.ID
			}
			return conflict
		}
		return fmt.Errorf("create user: %w", err)
	}

	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, email, display_name, password_hash, created_at
		FROM %s
		WHERE id = $1
	`, r.tables.Users)
	return r.scanOne(ctx, query, id)
}

// GetByLogin matches username or email case-insensitively
func (r *PostgresUserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := fmt.Sprintf(`
		SELECT id, username, email, display_name, password_hash, created_at
		FROM %s
		WHERE LOWER(username) = LOWER($1) OR LOWER(email) = LOWER($1)
		LIMIT 1
	`, r.tables.Users)
	return r.scanOne(ctx, query, login)
}

func (r *PostgresUserRepository) scanOne(ctx context.Context, query, arg string) (*models.User, error) {
	var user models.User
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.DisplayName,
		&user.PasswordHash,
		&user.CreatedAt,
	)

	if err != nil {
		if IsPgMissingError(err) {
			return nil, fmt.Errorf("user %s: %w", arg, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}

// PostgresProfileRepository implements the ProfileRepository interface
type PostgresProfileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(config *RepositoryConfig) repositories.ProfileRepository {
	return &PostgresProfileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

// Get returns the stored profile or a blank one for a user without one
func (r *PostgresProfileRepository) Get(ctx context.Context, orgID, userID string) (*models.Profile, error) {
	query := fmt.Sprintf(`
		SELECT user_id, org_id, preferred_first_name, preferred_last_name, job_title, avatar_key, updated_at
		FROM %s
		WHERE org_id = $1 AND user_id = $2
	`, r.tables.Profiles)

	var p models.Profile
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, orgID, userID).Scan(
		&p.UserID,
		&p.OrgID,
		&p.PreferredFirstName,
		&p.PreferredLastName,
		&p.JobTitle,
		&p.AvatarKey,
		&p.UpdatedAt,
	)

	if err != nil {
		if IsPgMissingError(err) {
			return &models.Profile{UserID: userID, OrgID: orgID}, nil
		}
		return nil, fmt.Errorf("get profile: %w", err)
	}

	return &p, nil
}

func (r *PostgresProfileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, org_id, preferred_first_name, preferred_last_name, job_title, avatar_key, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, org_id) DO UPDATE SET
			preferred_first_name = EXCLUDED.preferred_first_name,
			preferred_last_name = EXCLUDED.preferred_last_name,
			job_title = EXCLUDED.job_title,
			avatar_key = EXCLUDED.avatar_key,
			updated_at = EXCLUDED.updated_at
	`, r.tables.Profiles)

	executor := GetExecutor(ctx, r.pool)
	_, err := executor.Exec(ctx, query,
		p.UserID,
		p.OrgID,
		p.PreferredFirstName,
		p.PreferredLastName,
		p.JobTitle,
		p.AvatarKey,
		p.UpdatedAt,
	)
	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("user %s: %w", p.UserID, domain.ErrNotFound)
		}
		return fmt.Errorf("upsert profile: %w", err)
	}

	return nil
}

// ListByDepartment returns the profiles of a department's members. Members
// who never saved a profile get a blank one.
func (r *PostgresProfileRepository) ListByDepartment(ctx context.Context, orgID, departmentID string) ([]models.Profile, error) {
	query := fmt.Sprintf(`
		SELECT u.id, u.username,
			COALESCE(p.preferred_first_name, ''), COALESCE(p.preferred_last_name, ''),
			COALESCE(p.job_title, ''), p.avatar_key, COALESCE(p.updated_at, u.created_at)
		FROM %s dm
		JOIN %s u ON u.id = dm.user_id
		LEFT JOIN %s p ON p.user_id = u.id AND p.org_id = $1
		WHERE dm.department_id = $2
		ORDER BY u.username
	`, r.tables.DepartmentMembers, r.tables.Users, r.tables.Profiles)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, orgID, departmentID)
	if err != nil {
		return nil, fmt.Errorf("list department profiles: %w", err)
	}
	defer rows.Close()

	profiles := []models.Profile{}
	for rows.Next() {
		p := models.Profile{OrgID: orgID}
		if err := rows.Scan(
			&p.UserID,
			&p.Username,
			&p.PreferredFirstName,
			&p.PreferredLastName,
			&p.JobTitle,
			&p.AvatarKey,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}

	return profiles, nil
}
