package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"knowledgestack/internal/config"
	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/repositories"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const avatarCategory = "avatars"

// ProfileService implements the ProfileService interface
type ProfileService struct {
	profileRepo    repositories.ProfileRepository
	userRepo       repositories.UserRepository
	departmentRepo kbRepo.DepartmentRepository
	media          services.MediaStore
	authorizer     services.ResourceAuthorizer
	logger         *slog.Logger
}

// NewProfileService creates a new profile service
func NewProfileService(
	profileRepo repositories.ProfileRepository,
	userRepo repositories.UserRepository,
	departmentRepo kbRepo.DepartmentRepository,
	media services.MediaStore,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) services.ProfileService {
	return &ProfileService{
		profileRepo:    profileRepo,
		userRepo:       userRepo,
		departmentRepo: departmentRepo,
		media:          media,
		authorizer:     authorizer,
		logger:         logger,
	}
}

// GetProfile returns a member's profile in the actor's org
func (s *ProfileService) GetProfile(ctx context.Context, actor *models.Actor, userID string) (*models.Profile, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	if userID == "" {
		userID = actor.UserID
	}

	profile, err := s.profileRepo.Get(ctx, actor.OrgID, userID)
	if err != nil {
		return nil, err
	}
	if err := s.fill(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

// UpdateProfile applies a partial update to the actor's own profile
func (s *ProfileService) UpdateProfile(ctx context.Context, actor *models.Actor, req *models.UpdateProfileRequest) (*models.Profile, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}
	if err := validation.ValidateStruct(req,
		validation.Field(&req.PreferredFirstName, validation.Length(0, config.MaxProfileFieldLength)),
		validation.Field(&req.PreferredLastName, validation.Length(0, config.MaxProfileFieldLength)),
		validation.Field(&req.JobTitle, validation.Length(0, config.MaxProfileFieldLength)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	profile, err := s.profileRepo.Get(ctx, actor.OrgID, actor.UserID)
	if err != nil {
		return nil, err
	}
	if req.PreferredFirstName != nil {
		profile.PreferredFirstName = strings.TrimSpace(*req.PreferredFirstName)
	}
	if req.PreferredLastName != nil {
		profile.PreferredLastName = strings.TrimSpace(*req.PreferredLastName)
	}
	if req.JobTitle != nil {
		profile.JobTitle = strings.TrimSpace(*req.JobTitle)
	}
	profile.UpdatedAt = time.Now()

	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		return nil, err
	}
	if err := s.fill(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("profile updated", "user_id", actor.UserID, "org_id", actor.OrgID)
	return profile, nil
}

// UploadAvatar stores a new avatar and removes the previous one
func (s *ProfileService) UploadAvatar(ctx context.Context, actor *models.Actor, upload *services.Upload) (*models.Profile, error) {
	if err := s.authorizer.CanRead(actor); err != nil {
		return nil, err
	}

	profile, err := s.profileRepo.Get(ctx, actor.OrgID, actor.UserID)
	if err != nil {
		return nil, err
	}

	key, err := s.media.Put(ctx, actor.OrgID, avatarCategory, upload)
	if err != nil {
		return nil, err
	}

	previous := profile.AvatarKey
	profile.AvatarKey = &key
	profile.UpdatedAt = time.Now()
	if err := s.profileRepo.Upsert(ctx, profile); err != nil {
		if rmErr := s.media.Remove(ctx, key); rmErr != nil {
			s.logger.Warn("failed to remove orphaned avatar", "key", key, "error", rmErr)
		}
		return nil, err
	}

	if previous != nil && *previous != "" && *previous != key {
		if err := s.media.Remove(ctx, *previous); err != nil {
			s.logger.Warn("failed to remove previous avatar", "key", *previous, "error", err)
		}
	}
	if err := s.fill(ctx, profile); err != nil {
		return nil, err
	}

	s.logger.Info("avatar uploaded", "user_id", actor.UserID, "key", key)
	return profile, nil
}

// fill sets the computed fields: username, avatar URL and departments
func (s *ProfileService) fill(ctx context.Context, profile *models.Profile) error {
	user, err := s.userRepo.GetByID(ctx, profile.UserID)
	if err != nil {
		return err
	}
	profile.Username = user.Username

	profile.AvatarURL = nil
	if profile.AvatarKey != nil && *profile.AvatarKey != "" {
		url := s.media.PublicURL(*profile.AvatarKey)
		profile.AvatarURL = &url
	}

	deptIDs, err := s.departmentRepo.ListIDsForUser(ctx, profile.OrgID, profile.UserID)
	if err != nil {
		return fmt.Errorf("load departments: %w", err)
	}
	if deptIDs == nil {
		deptIDs = []string{}
	}
	profile.DepartmentIDs = deptIDs
	return nil
}
