package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/repositories"
	"knowledgestack/internal/domain/services"
)

// customThemeKeys are the colors a custom theme may override
var customThemeKeys = map[string]bool{
	"sidebarBg":     true,
	"sidebarText":   true,
	"accent":        true,
	"background":    true,
	"surface":       true,
	"text":          true,
	"mutedText":     true,
	"border":        true,
	"headerBg":      true,
	"headerText":    true,
	"tileBg":        true,
	"tileText":      true,
	"linkText":      true,
	"highlightText": true,
}

// UserThemeService implements the UserThemeService interface
type UserThemeService struct {
	themeRepo repositories.UserThemeRepository
	logger    *slog.Logger
}

// NewUserThemeService creates a new user theme service
func NewUserThemeService(
	themeRepo repositories.UserThemeRepository,
	logger *slog.Logger,
) services.UserThemeService {
	return &UserThemeService{
		themeRepo: themeRepo,
		logger:    logger,
	}
}

// GetTheme retrieves the theme for a user
func (s *UserThemeService) GetTheme(ctx context.Context, userID string) (*models.UserTheme, error) {
	theme, err := s.themeRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get theme: %w", err)
	}

	// If no theme exists yet, return the default
	if theme == nil {
		s.logger.Debug("no theme found, returning default", "user_id", userID)
		theme = models.DefaultUserTheme(userID)
	}

	return theme, nil
}

// UpdateTheme updates the user's theme (partial or full update)
func (s *UserThemeService) UpdateTheme(ctx context.Context, userID string, req *models.UpdateThemeRequest) (*models.UserTheme, error) {
	if req.Mode != nil {
		switch *req.Mode {
		case models.ThemeLight, models.ThemeDark, models.ThemeCustom:
		default:
			return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown theme mode %q", *req.Mode)}
		}
	}
	if req.Custom != nil {
		if err := validateCustomTheme(req.Custom); err != nil {
			return nil, err
		}
	}

	existing, err := s.themeRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get existing theme: %w", err)
	}
	if existing == nil {
		existing = models.DefaultUserTheme(userID)
	}

	if req.Mode != nil {
		existing.Mode = *req.Mode
	}
	if req.Custom != nil {
		if err := existing.SetCustom(req.Custom); err != nil {
			return nil, fmt.Errorf("update custom theme: %w", err)
		}
	}

	existing.UpdatedAt = time.Now()

	if err := s.themeRepo.Upsert(ctx, existing); err != nil {
		return nil, fmt.Errorf("upsert theme: %w", err)
	}

	s.logger.Info("user theme updated",
		"user_id", userID,
		"mode", existing.Mode,
		"has_custom", req.Custom != nil,
	)

	return existing, nil
}

// validateCustomTheme accepts only known keys with #rrggbb values
func validateCustomTheme(custom models.JSONMap) error {
	for key, value := range custom {
		if !customThemeKeys[key] {
			return &domain.ValidationError{Message: fmt.Sprintf("unknown theme color %q", key)}
		}
		color, ok := value.(string)
		if !ok || !hexColorPattern.MatchString(color) {
			return &domain.ValidationError{Message: fmt.Sprintf("theme color %s must be a #rrggbb string", key)}
		}
	}
	return nil
}
