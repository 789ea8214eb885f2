package models

import "time"

// Role is a member's role within an organization.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleEditor Role = "editor"
	RoleViewer Role = "viewer"
)

// IsValid reports whether r is a known role.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleViewer:
		return true
	}
	return false
}

// CanWrite reports whether the role may create or modify org content.
func (r Role) CanWrite() bool {
	return r == RoleAdmin || r == RoleEditor
}

type Organization struct {
	ID           string    `json:"id" db:"id"`
	Name         string    `json:"name" db:"name"`
	Slug         string    `json:"slug" db:"slug"`
	BrandPrimary string    `json:"brand_primary" db:"brand_primary"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type Membership struct {
	UserID    string    `json:"user_id" db:"user_id"`
	OrgID     string    `json:"org_id" db:"org_id"`
	Role      Role      `json:"role" db:"role"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Actor is the authenticated user acting within one organization.
type Actor struct {
	UserID        string
	OrgID         string
	Role          Role
	DepartmentIDs []string
}

// IsAdmin reports whether the actor bypasses department visibility.
func (a *Actor) IsAdmin() bool {
	return a != nil && a.Role == RoleAdmin
}
