package model

import (
	"strings"
	"time"
)

type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleDeveloper Role = "DEVELOPER"
	RoleTester    Role = "TESTER"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDeveloper, RoleTester:
		return true
	}
	return false
}

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	IsActive     bool      `json:"isActive"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// UserRef is the projection embedded in issues and project member lists.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  Role   `json:"role,omitempty"`
}

type Project struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Key         string    `json:"key"`
	Description string    `json:"description"`
	URL         string    `json:"url"`
	Members     []UserRef `json:"members"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

type ProjectRef struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// ProjectPatch carries the optional fields of a project update; nil means untouched.
type ProjectPatch struct {
	Name        *string
	Key         *string
	Description *string
	URL         *string
}

// NormalizeProjectKey trims and uppercases a project key.
func NormalizeProjectKey(key string) string {
	return strings.ToUpper(strings.TrimSpace(key))
}

// NormalizeProjectURL prefixes https:// when the scheme is missing. An empty
// input stays empty so the url can be cleared.
func NormalizeProjectURL(u string) string {
	s := strings.TrimSpace(u)
	if s == "" {
		return ""
	}
	lower := strings.ToLower(s)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return s
	}
	return "https://" + s
}

const DefaultTagColor = "#6c757d"

type Tag struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// SLA holds target resolution hours per severity.
type SLA struct {
	Critical float64 `json:"Critical"`
	High     float64 `json:"High"`
	Medium   float64 `json:"Medium"`
	Low      float64 `json:"Low"`
}

const SettingSLA = "sla"

func DefaultSLA() SLA {
	return SLA{Critical: 24, High: 48, Medium: 120, Low: 240}
}

type AppError string

func (e AppError) Error() string { return string(e) }

const (
	ErrNotFound         = AppError("NOT_FOUND")
	ErrConflict         = AppError("CONFLICT")
	ErrInvalidReference = AppError("INVALID_REFERENCE")
)
