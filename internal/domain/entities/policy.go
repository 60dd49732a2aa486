package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/workflow"
)

type PolicyStatus string

const (
	PolicyStatusDraft      PolicyStatus = "Draft"
	PolicyStatusApproved   PolicyStatus = "Approved"
	PolicyStatusSuperseded PolicyStatus = "Superseded" // set when a later policy is approved
)

var PolicyMachine = workflow.NewMachine("policy", map[PolicyStatus][]PolicyStatus{
	PolicyStatusDraft:      {PolicyStatusApproved},
	PolicyStatusApproved:   {PolicyStatusSuperseded},
	PolicyStatusSuperseded: {},
})

// Policy is a versioned bilingual compliance document.
type Policy struct {
	ID         uuid.UUID    `json:"id" db:"id"`
	OrgID      uuid.UUID    `json:"org_id" db:"org_id"`
	Version    string       `json:"version" db:"version"`
	Title      string       `json:"title" db:"title"`
	TitleAR    string       `json:"title_ar" db:"title_ar"`
	Content    string       `json:"content" db:"content"`
	ContentAR  string       `json:"content_ar" db:"content_ar"`
	Status     PolicyStatus `json:"status" db:"status"`
	CreatedBy  uuid.UUID    `json:"created_by" db:"created_by"`
	ApprovedBy *uuid.UUID   `json:"approved_by" db:"approved_by"`
	ApprovedAt *time.Time   `json:"approved_at" db:"approved_at"`
	CreatedAt  time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" db:"updated_at"`
}

// MissingContent lists the content languages that are still empty.
func (p *Policy) MissingContent() []string {
	var missing []string
	if strings.TrimSpace(p.Content) == "" {
		missing = append(missing, "content")
	}
	if strings.TrimSpace(p.ContentAR) == "" {
		missing = append(missing, "content_ar")
	}
	return missing
}

// PolicyInput is the body of POST /policies and PUT /policies/:id.
type PolicyInput struct {
	Title     string `json:"title" binding:"required,max=300"`
	TitleAR   string `json:"title_ar" binding:"max=300"`
	Content   string `json:"content"`
	ContentAR string `json:"content_ar"`
}
