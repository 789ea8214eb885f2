package knowledge

import (
	"context"

	"knowledgestack/internal/domain/models"
	kb "knowledgestack/internal/domain/models/knowledge"
)

// TagTargetInput is the wire form of a manual tag target
type TagTargetInput struct {
	Kind     string `json:"target_kind"`
	TargetID string `json:"target_id,omitempty"`
	LinkURL  string `json:"link_url,omitempty"`
}

// CreateTagRequest represents a manual tag creation request
type CreateTagRequest struct {
	Name        string          `json:"name"`
	Slug        *string         `json:"slug,omitempty"`
	Description string          `json:"description"`
	Target      *TagTargetInput `json:"target,omitempty"` // nil = none
}

// UpdateTagRequest represents a partial manual tag update
type UpdateTagRequest struct {
	Name        *string         `json:"name,omitempty"`
	Description *string         `json:"description,omitempty"`
	Target      *TagTargetInput `json:"target,omitempty"`
}

// TagService defines business logic operations for tags
type TagService interface {
	CreateTag(ctx context.Context, actor *models.Actor, req *CreateTagRequest) (*kb.Tag, error)

	GetTag(ctx context.Context, actor *models.Actor, id string) (*kb.Tag, error)

	// ListTags lists the org's tags; empty kind lists all
	ListTags(ctx context.Context, actor *models.Actor, kind string) ([]kb.Tag, error)

	// UpdateTag edits a manual tag; structural tags are rejected
	UpdateTag(ctx context.Context, actor *models.Actor, id string, req *UpdateTagRequest) (*kb.Tag, error)

	// DeleteTag deletes a manual tag; structural tags are rejected
	DeleteTag(ctx context.Context, actor *models.Actor, id string) error
}
