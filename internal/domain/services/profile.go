package services

import (
	"context"

	"knowledgestack/internal/domain/models"
)

// ProfileService defines business logic operations for per-org profiles
type ProfileService interface {
	GetProfile(ctx context.Context, actor *models.Actor, userID string) (*models.Profile, error)

	UpdateProfile(ctx context.Context, actor *models.Actor, req *models.UpdateProfileRequest) (*models.Profile, error)

	// UploadAvatar stores the image and points the actor's profile at it
	UploadAvatar(ctx context.Context, actor *models.Actor, upload *Upload) (*models.Profile, error)
}
