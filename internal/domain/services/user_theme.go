package services

import (
	"context"

	"knowledgestack/internal/domain/models"
)

// UserThemeService defines the business logic for user theme operations
type UserThemeService interface {
	// GetTheme returns the default light theme if none was saved yet
	GetTheme(ctx context.Context, userID string) (*models.UserTheme, error)

	// UpdateTheme applies a partial update, creating the theme if needed
	UpdateTheme(ctx context.Context, userID string, req *models.UpdateThemeRequest) (*models.UserTheme, error)
}
