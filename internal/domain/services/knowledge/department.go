package knowledge

import (
	"context"

	"knowledgestack/internal/domain/models"
	kb "knowledgestack/internal/domain/models/knowledge"
)

// CreateDepartmentRequest represents a request to create a department
type CreateDepartmentRequest struct {
	Name        string  `json:"name"`
	Slug        *string `json:"slug,omitempty"` // Derived from name when omitted
	Description string  `json:"description"`
}

// UpdateDepartmentRequest represents a partial department update.
// The slug cannot change.
type UpdateDepartmentRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
}

// MemberAction adds or removes a department member
type MemberAction string

const (
	MemberAdd    MemberAction = "add"
	MemberRemove MemberAction = "remove"
)

// ChangeMemberRequest represents a department membership change
type ChangeMemberRequest struct {
	Action MemberAction `json:"action"`
	UserID string       `json:"user_id"`
}

// DepartmentService defines business logic operations for departments
type DepartmentService interface {
	// CreateDepartment creates the department and its structural tag
	CreateDepartment(ctx context.Context, actor *models.Actor, req *CreateDepartmentRequest) (*kb.Department, error)

	ListDepartments(ctx context.Context, actor *models.Actor) ([]kb.Department, error)

	GetDepartment(ctx context.Context, actor *models.Actor, slug string) (*kb.Department, error)

	// UpdateDepartment renames the department's structural tag with it
	UpdateDepartment(ctx context.Context, actor *models.Actor, slug string, req *UpdateDepartmentRequest) (*kb.Department, error)

	ListMembers(ctx context.Context, actor *models.Actor, slug string) ([]models.Profile, error)

	ChangeMember(ctx context.Context, actor *models.Actor, slug string, req *ChangeMemberRequest) ([]models.Profile, error)

	// ListDocuments returns the department's documents visible to actor
	ListDocuments(ctx context.Context, actor *models.Actor, slug string) ([]kb.Document, error)

	// ListCollections returns the department's collections
	ListCollections(ctx context.Context, actor *models.Actor, slug string) ([]kb.Collection, error)
}
