package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"github.com/trous-aml/trous_service/internal/domain/workflow"
)

type STRStatus string

const (
	STRStatusDraft              STRStatus = "Draft"
	STRStatusUnderInvestigation STRStatus = "Under Investigation"
	STRStatusFiledToFIU         STRStatus = "Filed to FIU"
	STRStatusClosed             STRStatus = "Closed"
)

// STRCaseMachine is strictly linear.
var STRCaseMachine = workflow.NewMachine("str case", map[STRStatus][]STRStatus{
	STRStatusDraft:              {STRStatusUnderInvestigation},
	STRStatusUnderInvestigation: {STRStatusFiledToFIU},
	STRStatusFiledToFIU:         {STRStatusClosed},
	STRStatusClosed:             {},
})

// GoAMLFields are the report attributes carried into the FIU export. They are
// independent of case status.
type GoAMLFields struct {
	ReportType                   string           `json:"report_type" db:"report_type"`
	ReportDate                   *time.Time       `json:"report_date" db:"report_date"`
	ReportPriority               string           `json:"report_priority" db:"report_priority"`
	SubjectRole                  string           `json:"subject_role" db:"subject_role"`
	SubjectAccountNumber         string           `json:"subject_account_number" db:"subject_account_number"`
	SubjectAccountType           string           `json:"subject_account_type" db:"subject_account_type"`
	SubjectBankName              string           `json:"subject_bank_name" db:"subject_bank_name"`
	ReportedAmount               *decimal.Decimal `json:"reported_amount" db:"reported_amount"`
	ReportedCurrency             string           `json:"reported_currency" db:"reported_currency"`
	TransactionDateFrom          *time.Time       `json:"transaction_date_from" db:"transaction_date_from"`
	TransactionDateTo            *time.Time       `json:"transaction_date_to" db:"transaction_date_to"`
	TransactionLocation          string           `json:"transaction_location" db:"transaction_location"`
	TransactionDescriptionForFIU string           `json:"transaction_description_for_fiu" db:"transaction_description_for_fiu"`
	ReasonForSuspicion           string           `json:"reason_for_suspicion" db:"reason_for_suspicion"`
	GroundForReport              string           `json:"ground_for_report" db:"ground_for_report"`
}

// STRCase is a suspicious transaction report under investigation.
type STRCase struct {
	ID                 uuid.UUID      `json:"id" db:"id"`
	OrgID              uuid.UUID      `json:"org_id" db:"org_id"`
	CustomerID         uuid.UUID      `json:"customer_id" db:"customer_id"`
	Title              string         `json:"title" db:"title"`
	Description        string         `json:"description" db:"description"`
	Status             STRStatus      `json:"status" db:"status"`
	RiskIndicators     pq.StringArray `json:"risk_indicators" db:"risk_indicators"`
	InvestigationNotes string         `json:"investigation_notes" db:"investigation_notes"`
	GoAMLFields
	CreatedBy uuid.UUID  `json:"created_by" db:"created_by"`
	FiledAt   *time.Time `json:"filed_at,omitempty" db:"filed_at"`
	ClosedAt  *time.Time `json:"closed_at,omitempty" db:"closed_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" db:"updated_at"`

	Customer *Customer `json:"customer,omitempty" db:"-"`
}

// CreateSTRCaseInput is the body of POST /str-cases. AlertID links the new
// case to the alert it was opened from.
type CreateSTRCaseInput struct {
	CustomerID         uuid.UUID  `json:"customer_id" binding:"required"`
	Title              string     `json:"title" binding:"required,max=300"`
	Description        string     `json:"description"`
	RiskIndicators     []string   `json:"risk_indicators"`
	InvestigationNotes string     `json:"investigation_notes"`
	AlertID            *uuid.UUID `json:"alert_id"`
}

// UpdateSTRCaseInput is the body of PATCH /str-cases/:id.
type UpdateSTRCaseInput struct {
	InvestigationNotes *string    `json:"investigation_notes"`
	Status             *STRStatus `json:"status"`

	ReportType                   *string          `json:"report_type"`
	ReportDate                   *time.Time       `json:"report_date"`
	ReportPriority               *string          `json:"report_priority"`
	SubjectRole                  *string          `json:"subject_role"`
	SubjectAccountNumber         *string          `json:"subject_account_number"`
	SubjectAccountType           *string          `json:"subject_account_type"`
	SubjectBankName              *string          `json:"subject_bank_name"`
	ReportedAmount               *decimal.Decimal `json:"reported_amount"`
	ReportedCurrency             *string          `json:"reported_currency" binding:"omitempty,len=3"`
	TransactionDateFrom          *time.Time       `json:"transaction_date_from"`
	TransactionDateTo            *time.Time       `json:"transaction_date_to"`
	TransactionLocation          *string          `json:"transaction_location"`
	TransactionDescriptionForFIU *string          `json:"transaction_description_for_fiu"`
	ReasonForSuspicion           *string          `json:"reason_for_suspicion"`
	GroundForReport              *string          `json:"ground_for_report"`
}

// HasGoAMLChanges reports whether any report field is set.
func (in UpdateSTRCaseInput) HasGoAMLChanges() bool {
	return in.ReportType != nil || in.ReportDate != nil || in.ReportPriority != nil ||
		in.SubjectRole != nil || in.SubjectAccountNumber != nil || in.SubjectAccountType != nil ||
		in.SubjectBankName != nil || in.ReportedAmount != nil || in.ReportedCurrency != nil ||
		in.TransactionDateFrom != nil || in.TransactionDateTo != nil || in.TransactionLocation != nil ||
		in.TransactionDescriptionForFIU != nil || in.ReasonForSuspicion != nil || in.GroundForReport != nil
}

// ApplyGoAML copies the set report fields onto f.
func (in UpdateSTRCaseInput) ApplyGoAML(f *GoAMLFields) {
	setString(&f.ReportType, in.ReportType)
	setString(&f.ReportPriority, in.ReportPriority)
	setString(&f.SubjectRole, in.SubjectRole)
	setString(&f.SubjectAccountNumber, in.SubjectAccountNumber)
	setString(&f.SubjectAccountType, in.SubjectAccountType)
	setString(&f.SubjectBankName, in.SubjectBankName)
	setString(&f.ReportedCurrency, in.ReportedCurrency)
	setString(&f.TransactionLocation, in.TransactionLocation)
	setString(&f.TransactionDescriptionForFIU, in.TransactionDescriptionForFIU)
	setString(&f.ReasonForSuspicion, in.ReasonForSuspicion)
	setString(&f.GroundForReport, in.GroundForReport)
	if in.ReportDate != nil {
		f.ReportDate = in.ReportDate
	}
	if in.ReportedAmount != nil {
		f.ReportedAmount = in.ReportedAmount
	}
	if in.TransactionDateFrom != nil {
		f.TransactionDateFrom = in.TransactionDateFrom
	}
	if in.TransactionDateTo != nil {
		f.TransactionDateTo = in.TransactionDateTo
	}
}

func setString(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}

// STRStats are case counts by status.
type STRStats struct {
	Draft              int `json:"draft" db:"draft"`
	UnderInvestigation int `json:"under_investigation" db:"under_investigation"`
	FiledToFIU         int `json:"filed_to_fiu" db:"filed_to_fiu"`
	Closed             int `json:"closed" db:"closed"`
}
