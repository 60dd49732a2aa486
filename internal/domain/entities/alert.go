package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/trous-aml/trous_service/internal/domain/workflow"
)

type AlertStatus string

const (
	AlertStatusOpen        AlertStatus = "open"
	AlertStatusUnderReview AlertStatus = "under_review"
	AlertStatusEscalated   AlertStatus = "escalated"
	AlertStatusClosed      AlertStatus = "closed"
)

// AlertMachine allows escalation from open or under_review, and closing from
// any non-closed state.
var AlertMachine = workflow.NewMachine("alert", map[AlertStatus][]AlertStatus{
	AlertStatusOpen:        {AlertStatusUnderReview, AlertStatusEscalated, AlertStatusClosed},
	AlertStatusUnderReview: {AlertStatusEscalated, AlertStatusClosed},
	AlertStatusEscalated:   {AlertStatusClosed},
	AlertStatusClosed:      {},
})

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

// Alert is a transaction-monitoring hit awaiting officer triage.
type Alert struct {
	ID               uuid.UUID              `json:"id" db:"id"`
	OrgID            uuid.UUID              `json:"org_id" db:"org_id"`
	CustomerID       uuid.UUID              `json:"customer_id" db:"customer_id"`
	TransactionID    *uuid.UUID             `json:"transaction_id" db:"transaction_id"`
	MonitoringRuleID *uuid.UUID             `json:"monitoring_rule_id" db:"monitoring_rule_id"`
	RuleType         string                 `json:"rule_type" db:"rule_type"`
	RuleName         string                 `json:"rule_name" db:"rule_name"`
	Severity         Severity               `json:"severity" db:"severity"`
	Status           AlertStatus            `json:"status" db:"status"`
	Amount           decimal.Decimal        `json:"amount" db:"amount"`
	Currency         string                 `json:"currency" db:"currency"`
	Details          map[string]interface{} `json:"details" db:"-"`
	AssignedToID     *uuid.UUID             `json:"assigned_to_id" db:"assigned_to_id"`
	Notes            string                 `json:"notes" db:"notes"`
	STRCaseID        *uuid.UUID             `json:"str_case_id" db:"str_case_id"`
	ClosedBy         *uuid.UUID             `json:"closed_by,omitempty" db:"closed_by"`
	ClosedAt         *time.Time             `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt        time.Time              `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time              `json:"updated_at" db:"updated_at"`

	Customer *Customer `json:"customer,omitempty" db:"-"`
}

// UpdateAlertInput is the body of PATCH /alerts/:id.
type UpdateAlertInput struct {
	Status    AlertStatus `json:"status" binding:"required"`
	Notes     string      `json:"notes"`
	STRCaseID *uuid.UUID  `json:"str_case_id"`
}

// IngestAlertInput is pushed by the transaction-monitoring engine.
type IngestAlertInput struct {
	CustomerID       uuid.UUID              `json:"customer_id" binding:"required"`
	TransactionID    *uuid.UUID             `json:"transaction_id"`
	MonitoringRuleID uuid.UUID              `json:"monitoring_rule_id" binding:"required"`
	Severity         Severity               `json:"severity" binding:"omitempty,oneof=low medium high critical"`
	Amount           decimal.Decimal        `json:"amount"`
	Currency         string                 `json:"currency" binding:"omitempty,len=3"`
	Details          map[string]interface{} `json:"details"`
}

// AlertStats are the per-status counts shown above the alert list.
type AlertStats struct {
	Open        int `json:"open" db:"open"`
	UnderReview int `json:"under_review" db:"under_review"`
	Escalated   int `json:"escalated" db:"escalated"`
	Closed      int `json:"closed" db:"closed"`
}

// SeverityCounts are open-alert counts by severity for the dashboard.
type SeverityCounts struct {
	Low      int `json:"low" db:"low"`
	Medium   int `json:"medium" db:"medium"`
	High     int `json:"high" db:"high"`
	Critical int `json:"critical" db:"critical"`
}
