package services

import (
	"context"
	"time"

	"knowledgestack/internal/domain/models"
)

// ResourceAuthorizer checks what an actor may do inside its organization.
// Services call it before touching org content.
type ResourceAuthorizer interface {
	// CanRead requires an org membership of any role
	CanRead(actor *models.Actor) error

	// CanWrite requires the admin or editor role
	CanWrite(actor *models.Actor) error

	// CanAdmin requires the admin role
	CanAdmin(actor *models.Actor) error
}

// LoginRequest represents a password login
type LoginRequest struct {
	Login    string `json:"login"` // Username or email
	Password string `json:"password"`
}

// Session is a freshly issued access/refresh token pair
type Session struct {
	UserID           string
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// AuthService handles password login and refresh-token rotation
type AuthService interface {
	Login(ctx context.Context, req *LoginRequest) (*Session, error)

	// Refresh revokes refreshToken and issues a new pair
	Refresh(ctx context.Context, refreshToken string) (*Session, error)

	// Logout revokes refreshToken; unknown tokens are ignored
	Logout(ctx context.Context, refreshToken string) error

	// Me summarizes the actor's user, org, role and departments
	Me(ctx context.Context, actor *models.Actor) (*models.Me, error)
}
