package repositories

import (
	"context"

	"knowledgestack/internal/domain/models"
)

// UserRepository defines data access operations for users
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error

	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByLogin looks a user up by username or email (case-insensitive)
	GetByLogin(ctx context.Context, login string) (*models.User, error)
}

// ProfileRepository defines data access operations for per-org profiles
type ProfileRepository interface {
	// Get returns the profile, or a blank profile if the user has none yet
	Get(ctx context.Context, orgID, userID string) (*models.Profile, error)

	Upsert(ctx context.Context, profile *models.Profile) error

	// ListByDepartment lists profiles of the department's members
	ListByDepartment(ctx context.Context, orgID, departmentID string) ([]models.Profile, error)
}
