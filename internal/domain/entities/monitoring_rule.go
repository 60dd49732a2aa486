package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/rules"
)

// MonitoringRule configures one alert-generation policy for the external
// monitoring engine. RuleType never changes after creation.
type MonitoringRule struct {
	ID              uuid.UUID              `json:"id" db:"id"`
	OrgID           uuid.UUID              `json:"org_id" db:"org_id"`
	Name            string                 `json:"name" db:"name"`
	NameAR          string                 `json:"name_ar" db:"name_ar"`
	Description     string                 `json:"description" db:"description"`
	RuleType        rules.Type             `json:"rule_type" db:"rule_type"`
	Severity        Severity               `json:"severity" db:"severity"`
	IsActive        bool                   `json:"is_active" db:"is_active"`
	IsSystemDefault bool                   `json:"is_system_default" db:"is_system_default"`
	Parameters      map[string]interface{} `json:"parameters" db:"-"`
	AlertCount30d   int                    `json:"alert_count_30d" db:"alert_count_30d"`
	CreatedBy       *uuid.UUID             `json:"created_by,omitempty" db:"created_by"`
	CreatedAt       time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time              `json:"updated_at" db:"updated_at"`
}

// CreateMonitoringRuleInput is the body of POST /monitoring-rules.
type CreateMonitoringRuleInput struct {
	Name        string                 `json:"name" binding:"required,max=200"`
	NameAR      string                 `json:"name_ar" binding:"max=200"`
	Description string                 `json:"description"`
	RuleType    string                 `json:"rule_type" binding:"required"`
	Severity    Severity               `json:"severity" binding:"required,oneof=low medium high critical"`
	IsActive    *bool                  `json:"is_active"`
	Parameters  map[string]interface{} `json:"parameters"`
}

// UpdateMonitoringRuleInput is the body of PATCH /monitoring-rules/:id. Every
// field is optional; RuleType is accepted only to be rejected when it differs.
type UpdateMonitoringRuleInput struct {
	Name        *string                `json:"name" binding:"omitempty,max=200"`
	NameAR      *string                `json:"name_ar" binding:"omitempty,max=200"`
	Description *string                `json:"description"`
	Severity    *Severity              `json:"severity" binding:"omitempty,oneof=low medium high critical"`
	IsActive    *bool                  `json:"is_active"`
	Parameters  map[string]interface{} `json:"parameters"`
	RuleType    *string                `json:"rule_type"`
}

// Empty reports whether the patch changes nothing.
func (in UpdateMonitoringRuleInput) Empty() bool {
	return in.Name == nil && in.NameAR == nil && in.Description == nil &&
		in.Severity == nil && in.IsActive == nil && in.Parameters == nil
}
