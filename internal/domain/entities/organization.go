package entities

import (
	"time"

	"github.com/google/uuid"
)

// Organization is a tenant: one reporting entity registered with the FIU.
type Organization struct {
	ID               uuid.UUID `json:"id" db:"id"`
	NameEN           string    `json:"name_en" db:"name_en"`
	NameAR           string    `json:"name_ar" db:"name_ar"`
	CommercialRecord string    `json:"commercial_record" db:"commercial_record"`
	GoAMLEntityID    string    `json:"goaml_entity_id" db:"goaml_entity_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// UpdateOrganizationInput is the body of PATCH /organization.
type UpdateOrganizationInput struct {
	NameEN        *string `json:"name_en" binding:"omitempty,max=200"`
	NameAR        *string `json:"name_ar" binding:"omitempty,max=200"`
	GoAMLEntityID *string `json:"goaml_entity_id" binding:"omitempty,max=50"`
}
