package repositories

import (
	"context"

	"knowledgestack/internal/domain/models"
)

// UserThemeRepository defines the interface for user theme data access
type UserThemeRepository interface {
	// GetByUserID returns nil, nil if the user has not saved a theme yet
	GetByUserID(ctx context.Context, userID string) (*models.UserTheme, error)

	// Upsert creates or updates the user's theme
	Upsert(ctx context.Context, theme *models.UserTheme) error
}
