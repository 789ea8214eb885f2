package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/repositories"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresUserThemeRepository implements the UserThemeRepository interface
type PostgresUserThemeRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
	logger *slog.Logger
}

// NewUserThemeRepository creates a new PostgresUserThemeRepository
func NewUserThemeRepository(config *RepositoryConfig) repositories.UserThemeRepository {
	return &PostgresUserThemeRepository{
		pool:   config.Pool,
		tables: config.Tables,
		logger: config.Logger,
	}
}

// GetByUserID retrieves the theme for a specific user
func (r *PostgresUserThemeRepository) GetByUserID(ctx context.Context, userID string) (*models.UserTheme, error) {
	query := fmt.Sprintf(`
		SELECT user_id, mode, custom, created_at, updated_at
		FROM %s
		WHERE user_id = $1
	`, r.tables.UserThemes)

	var theme models.UserTheme
	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query, userID).Scan(
		&theme.UserID,
		&theme.Mode,
		&theme.Custom,
		&theme.CreatedAt,
		&theme.UpdatedAt,
	)

	if err != nil {
		if IsPgNoRowsError(err) {
			// No theme saved yet - return nil (not an error)
			return nil, nil
		}
		return nil, fmt.Errorf("get user theme: %w", err)
	}

	if theme.Custom == nil {
		theme.Custom = models.JSONMap{}
	}
	return &theme, nil
}

// Upsert creates or updates the user's theme
func (r *PostgresUserThemeRepository) Upsert(ctx context.Context, theme *models.UserTheme) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (user_id, mode, custom, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE SET
			mode = EXCLUDED.mode,
			custom = EXCLUDED.custom,
			updated_at = EXCLUDED.updated_at
		RETURNING created_at, updated_at
	`, r.tables.UserThemes)

	custom := theme.Custom
	if custom == nil {
		custom = models.JSONMap{}
	}

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		theme.UserID,
		theme.Mode,
		custom,
		theme.CreatedAt,
		theme.UpdatedAt,
	).Scan(&theme.CreatedAt, &theme.UpdatedAt)

	if err != nil {
		if IsPgForeignKeyError(err) {
			return fmt.Errorf("user %s: %w", theme.UserID, domain.ErrNotFound)
		}
		return fmt.Errorf("upsert user theme: %w", err)
	}

	return nil
}
