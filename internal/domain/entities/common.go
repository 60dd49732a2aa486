package entities

import (
	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/pkg/i18n"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Code          string                 `json:"code"`
	Error         string                 `json:"error"`
	Message       string                 `json:"message"`
	MissingFields []string               `json:"missing_fields,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// Role is a dashboard user's permission level within an organisation.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleOfficer Role = "officer"
	RoleViewer  Role = "viewer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOfficer || r == RoleViewer
}

// Actor is the authenticated caller of a service operation. It is built once
// per request and passed explicitly to every workflow call.
type Actor struct {
	UserID    uuid.UUID
	OrgID     uuid.UUID
	Role      Role
	Locale    i18n.Locale
	IPAddress string
}

// SystemActor is used by background jobs acting on behalf of an organisation.
func SystemActor(orgID uuid.UUID) Actor {
	return Actor{UserID: uuid.Nil, OrgID: orgID, Role: RoleAdmin, Locale: i18n.English}
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// CanWrite is true for officers and admins.
func (a Actor) CanWrite() bool { return a.Role == RoleAdmin || a.Role == RoleOfficer }

func (a Actor) IsSystem() bool { return a.UserID == uuid.Nil }

// ListParams carries pagination and filter values for list endpoints.
type ListParams struct {
	Page     int
	PageSize int
	Status   string
	Severity string
	Search   string
	Type     string
	// RiskLevel filters customers by rating.
	RiskLevel string
	// CustomerID restricts results to one customer when set.
	CustomerID *uuid.UUID
	UnreadOnly bool
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps page and page size.
func (p *ListParams) Normalize() {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = DefaultPageSize
	}
	if p.PageSize > MaxPageSize {
		p.PageSize = MaxPageSize
	}
}

// Offset is the row offset for the current page.
func (p ListParams) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.PageSize
}

// Page is a list response body.
type Page[T any] struct {
	Items    []T         `json:"items"`
	Total    int         `json:"total"`
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	Stats    interface{} `json:"stats,omitempty"`
}

// NewPage builds a page, never encoding items as null.
func NewPage[T any](items []T, total int, params ListParams) Page[T] {
	if items == nil {
		items = []T{}
	}
	return Page[T]{Items: items, Total: total, Page: params.Page, PageSize: params.PageSize}
}
