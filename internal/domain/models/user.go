package models

import "time"

type User struct {
	ID           string    `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	Email        string    `json:"email" db:"email"`
	DisplayName  string    `json:"display_name" db:"display_name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}

// Profile is a user's per-organization profile.
type Profile struct {
	UserID             string    `json:"user_id" db:"user_id"`
	OrgID              string    `json:"org_id" db:"org_id"`
	Username           string    `json:"username"`
	PreferredFirstName string    `json:"preferred_first_name" db:"preferred_first_name"`
	PreferredLastName  string    `json:"preferred_last_name" db:"preferred_last_name"`
	JobTitle           string    `json:"job_title" db:"job_title"`
	AvatarKey          *string   `json:"-" db:"avatar_key"`
	AvatarURL          *string   `json:"avatar_url"` // Computed from AvatarKey
	DepartmentIDs      []string  `json:"department_ids"`
	UpdatedAt          time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateProfileRequest represents a partial profile update
type UpdateProfileRequest struct {
	PreferredFirstName *string `json:"preferred_first_name"`
	PreferredLastName  *string `json:"preferred_last_name"`
	JobTitle           *string `json:"job_title"`
}

// Me is the session summary returned by /api/auth/me.
type Me struct {
	User          *User         `json:"user"`
	Org           *Organization `json:"org"`
	Role          Role          `json:"role"`
	DepartmentIDs []string      `json:"department_ids"`
}
