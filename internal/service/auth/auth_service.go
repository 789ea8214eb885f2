package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	tokens "knowledgestack/internal/auth"
	"knowledgestack/internal/domain"
	"knowledgestack/internal/domain/models"
	"knowledgestack/internal/domain/repositories"
	kbRepo "knowledgestack/internal/domain/repositories/knowledge"
	"knowledgestack/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"golang.org/x/crypto/bcrypt"
)

// errInvalidCredentials is returned for every login failure so callers
// cannot tell unknown users from wrong passwords.
var errInvalidCredentials = &domain.UnauthorizedError{Message: "invalid username or password"}

// authService implements the AuthService interface
type authService struct {
	userRepo       repositories.UserRepository
	orgRepo        repositories.OrganizationRepository
	departmentRepo kbRepo.DepartmentRepository
	sessions       repositories.SessionRepository
	issuer         tokens.TokenIssuer
	refreshTTL     time.Duration
	logger         *slog.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	orgRepo repositories.OrganizationRepository,
	departmentRepo kbRepo.DepartmentRepository,
	sessions repositories.SessionRepository,
	issuer tokens.TokenIssuer,
	refreshTTL time.Duration,
	logger *slog.Logger,
) services.AuthService {
	return &authService{
		userRepo:       userRepo,
		orgRepo:        orgRepo,
		departmentRepo: departmentRepo,
		sessions:       sessions,
		issuer:         issuer,
		refreshTTL:     refreshTTL,
		logger:         logger,
	}
}

// Login checks a username or email and password and opens a session
func (s *authService) Login(ctx context.Context, req *services.LoginRequest) (*services.Session, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Login, validation.Required),
		validation.Field(&req.Password, validation.Required),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	user, err := s.userRepo.GetByLogin(ctx, strings.TrimSpace(req.Login))
	if err != nil {
		if isNotFound(err) {
			s.logger.Info("login failed", "reason", "unknown user")
			return nil, errInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info("login failed", "reason", "wrong password", "user_id", user.ID)
		return nil, errInvalidCredentials
	}

	session, err := s.open(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return session, nil
}

// Refresh redeems a refresh token and rotates it
func (s *authService) Refresh(ctx context.Context, refreshToken string) (*services.Session, error) {
	if refreshToken == "" {
		return nil, &domain.UnauthorizedError{Message: "missing refresh token"}
	}

	userID, err := s.sessions.Consume(ctx, refreshToken)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.UnauthorizedError{Message: "session expired"}
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, &domain.UnauthorizedError{Message: "session expired"}
		}
		return nil, err
	}

	session, err := s.open(ctx, user)
	if err != nil {
		return nil, err
	}

	s.logger.Debug("session refreshed", "user_id", user.ID)
	return session, nil
}

func (s *authService) Logout(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.sessions.Delete(ctx, refreshToken)
}

// Me summarizes the actor for the client
func (s *authService) Me(ctx context.Context, actor *models.Actor) (*models.Me, error) {
	if actor == nil || actor.UserID == "" {
		return nil, &domain.UnauthorizedError{Message: "authentication required"}
	}

	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	me := &models.Me{
		User:          user,
		Role:          actor.Role,
		DepartmentIDs: actor.DepartmentIDs,
	}
	if me.DepartmentIDs == nil {
		me.DepartmentIDs = []string{}
	}
	if actor.OrgID != "" {
		me.Org, err = s.orgRepo.GetByID(ctx, actor.OrgID)
		if err != nil {
			return nil, err
		}
	}
	return me, nil
}

// open issues an access token and stores a new refresh token
func (s *authService) open(ctx context.Context, user *models.User) (*services.Session, error) {
	access, accessExp, err := s.issuer.Issue(user)
	if err != nil {
		return nil, err
	}

	refresh, err := newRefreshToken()
	if err != nil {
		return nil, err
	}
	if err := s.sessions.Save(ctx, refresh, user.ID, s.refreshTTL); err != nil {
		return nil, err
	}

	return &services.Session{
		UserID:           user.ID,
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: time.Now().Add(s.refreshTTL),
	}, nil
}

// newRefreshToken returns 32 random bytes, base64url encoded
func newRefreshToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashPassword bcrypts a plain password for storage
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrNotFound)
}
