package models

import (
	"encoding/json"
	"time"
)

// ThemeMode selects the UI color scheme.
type ThemeMode string

const (
	ThemeLight  ThemeMode = "light"
	ThemeDark   ThemeMode = "dark"
	ThemeCustom ThemeMode = "custom"
)

// JSONMap is a type alias for JSONB columns
type JSONMap map[string]interface{}

// UserTheme holds a user's theme settings. Global per user, not org-scoped.
type UserTheme struct {
	UserID    string    `json:"user_id" db:"user_id"`
	Mode      ThemeMode `json:"mode" db:"mode"`
	Custom    JSONMap   `json:"custom" db:"custom"` // CustomTheme shape: {"sidebarBg": "#...", ...}
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// DefaultUserTheme returns the theme used before a user saves one.
func DefaultUserTheme(userID string) *UserTheme {
	now := time.Now()
	return &UserTheme{
		UserID:    userID,
		Mode:      ThemeLight,
		Custom:    JSONMap{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// SetCustom replaces the custom namespace from any JSON-serializable value.
func (t *UserTheme) SetCustom(custom interface{}) error {
	data, err := json.Marshal(custom)
	if err != nil {
		return err
	}

	var m JSONMap
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	if m == nil {
		m = JSONMap{}
	}
	t.Custom = m
	return nil
}

// UpdateThemeRequest represents a partial theme update
type UpdateThemeRequest struct {
	Mode   *ThemeMode `json:"mode"`
	Custom JSONMap    `json:"custom"` // nil = don't change
}
