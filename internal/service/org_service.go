package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"knowledgestack/internal/config"
	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/repositories"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/domain/services"
	authSvc "knowledgestack/internal/service/auth"
	"knowledgestack/internal/utils"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

var (
	orgSlugPattern  = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
	hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)
)

// OrgService implements the OrgService interface
type OrgService struct {
	orgRepo        repositories.OrganizationRepository
	userRepo       repositories.UserRepository
	membershipRepo repositories.MembershipRepository
	departmentRepo kbRepo.DepartmentRepository
	logger         *slog.Logger
}

// NewOrgService creates a new org service
func NewOrgService(
	orgRepo repositories.OrganizationRepository,
	userRepo repositories.UserRepository,
	membershipRepo repositories.MembershipRepository,
	departmentRepo kbRepo.DepartmentRepository,
	logger *slog.Logger,
) services.OrgService {
	return &OrgService{
		orgRepo:        orgRepo,
		userRepo:       userRepo,
		membershipRepo: membershipRepo,
		departmentRepo: departmentRepo,
		logger:         logger,
	}
}

// CreateOrganization creates an organization. The slug defaults to one
// derived from the name and doubles as the org's subdomain.
func (s *OrgService) CreateOrganization(ctx context.Context, req *services.CreateOrganizationRequest) (*models.Organization, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxNameLength)),
		validation.Field(&req.BrandPrimary, validation.Match(hexColorPattern).Error("must be a #rrggbb color")),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	name := strings.TrimSpace(req.Name)
	var slug string
	if req.Slug != nil && strings.TrimSpace(*req.Slug) != "" {
		slug = strings.TrimSpace(*req.Slug)
		if len(slug) > config.MaxSlugLength || !orgSlugPattern.MatchString(slug) {
			return nil, &domain.ValidationError{Message: fmt.Sprintf("invalid slug %q: use lowercase letters, digits and single hyphens", slug)}
		}
	} else {
		slug = utils.Slugify(name, config.MaxSlugLength)
		if slug == "" {
			return nil, &domain.ValidationError{Message: "name must contain at least one letter or digit"}
		}
	}

	now := time.Now()
	org := &models.Organization{
		Name:         name,
		Slug:         slug,
		BrandPrimary: req.BrandPrimary,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.orgRepo.Create(ctx, org); err != nil {
		return nil, err
	}

	s.logger.Info("organization created", "id", org.ID, "slug", org.Slug)
	return org, nil
}

func (s *OrgService) GetOrganizationBySlug(ctx context.Context, slug string) (*models.Organization, error) {
	return s.orgRepo.GetBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
}

func (s *OrgService) ListOrganizations(ctx context.Context) ([]models.Organization, error) {
	return s.orgRepo.List(ctx)
}

// CreateUser creates a password user. Users exist outside any org until
// GrantRole adds them to one.
func (s *OrgService) CreateUser(ctx context.Context, req *services.CreateUserRequest) (*models.User, error) {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DisplayName = strings.TrimSpace(req.DisplayName)

	if err := validation.ValidateStruct(req,
		validation.Field(&req.Username, validation.Required, validation.Length(2, config.MaxProfileFieldLength), validation.Match(usernamePattern)),
		validation.Field(&req.Email, validation.Required, is.EmailFormat),
		validation.Field(&req.DisplayName, validation.Length(0, config.MaxProfileFieldLength)),
		validation.Field(&req.Password, validation.Required, validation.Length(config.MinPasswordLength, 0)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	hash, err := authSvc.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		CreatedAt:    time.Now(),
	}
	if user.DisplayName == "" {
		user.DisplayName = user.Username
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("user created", "id", user.ID, "username", user.Username)
	return user, nil
}

// GrantRole creates or changes a membership
func (s *OrgService) GrantRole(ctx context.Context, orgSlug, login string, role models.Role) (*models.Membership, error) {
	if !role.IsValid() {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("unknown role %q: use admin, editor or viewer", role)}
	}

	org, err := s.GetOrganizationBySlug(ctx, orgSlug)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.GetByLogin(ctx, strings.TrimSpace(login))
	if err != nil {
		return nil, err
	}

	membership := &models.Membership{
		UserID:    user.ID,
		OrgID:     org.ID,
		Role:      role,
		CreatedAt: time.Now(),
	}
	if err := s.membershipRepo.Upsert(ctx, membership); err != nil {
		return nil, err
	}

	s.logger.Info("role granted",
		"org_id", org.ID,
		"user_id", user.ID,
		"role", role,
	)
	return membership, nil
}

// ResolveActor loads the user's role and departments in org
func (s *OrgService) ResolveActor(ctx context.Context, org *models.Organization, userID string) (*models.Actor, error) {
	membership, err := s.membershipRepo.Get(ctx, org.ID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, &domain.ForbiddenError{Message: fmt.Sprintf("you are not a member of %s", org.Name)}
		}
		return nil, err
	}

	deptIDs, err := s.departmentRepo.ListIDsForUser(ctx, org.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("load departments: %w", err)
	}

	return &models.Actor{
		UserID:        userID,
		OrgID:         org.ID,
		Role:          membership.Role,
		DepartmentIDs: deptIDs,
	}, nil
}
