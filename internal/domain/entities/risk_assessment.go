package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/scoring"
	"github.com/trous-aml/trous_service/internal/domain/workflow"
)

type AssessmentStatus string

const (
	AssessmentStatusDraft    AssessmentStatus = "Draft"
	AssessmentStatusApproved AssessmentStatus = "Approved"
)

var RiskAssessmentMachine = workflow.NewMachine("risk assessment", map[AssessmentStatus][]AssessmentStatus{
	AssessmentStatusDraft:    {AssessmentStatusApproved},
	AssessmentStatusApproved: {},
})

// RiskAssessment is an enterprise-wide risk scoring exercise.
type RiskAssessment struct {
	ID               uuid.UUID        `json:"id" db:"id"`
	OrgID            uuid.UUID        `json:"org_id" db:"org_id"`
	Status           AssessmentStatus `json:"status" db:"status"`
	OverallRiskScore float64          `json:"overall_risk_score" db:"overall_risk_score"`
	OverallRiskLevel string           `json:"overall_risk_level" db:"overall_risk_level"`
	AssessedBy       uuid.UUID        `json:"assessed_by" db:"assessed_by"`
	ApprovedBy       *uuid.UUID       `json:"approved_by" db:"approved_by"`
	ApprovedAt       *time.Time       `json:"approved_at" db:"approved_at"`
	CreatedAt        time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at" db:"updated_at"`

	Factors []*RiskFactor `json:"factors,omitempty" db:"-"`
}

// Rescore recomputes the overall score from the loaded factors.
func (a *RiskAssessment) Rescore() {
	factors := make([]scoring.Factor, 0, len(a.Factors))
	for _, f := range a.Factors {
		factors = append(factors, f.ScoringFactor())
	}
	score, level, ok := scoring.Overall(factors)
	if !ok {
		a.OverallRiskScore = 0
		a.OverallRiskLevel = ""
		return
	}
	a.OverallRiskScore = score
	a.OverallRiskLevel = string(level)
}

// RiskFactor is one scored line of an assessment. Category and FactorName are
// fixed at creation.
type RiskFactor struct {
	ID                   uuid.UUID        `json:"id" db:"id"`
	AssessmentID         uuid.UUID        `json:"assessment_id" db:"assessment_id"`
	Category             scoring.Category `json:"category" db:"category"`
	FactorName           string           `json:"factor_name" db:"factor_name"`
	FactorNameAR         string           `json:"factor_name_ar" db:"factor_name_ar"`
	InherentRiskScore    int              `json:"inherent_risk_score" db:"inherent_risk_score"`
	ControlEffectiveness int              `json:"control_effectiveness" db:"control_effectiveness"`
	ResidualRiskScore    float64          `json:"residual_risk_score" db:"residual_risk_score"`
	Notes                string           `json:"notes" db:"notes"`
	CreatedAt            time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at" db:"updated_at"`
}

// ScoringFactor is the scoring view of the factor.
func (f *RiskFactor) ScoringFactor() scoring.Factor {
	return scoring.Factor{Category: f.Category, Inherent: f.InherentRiskScore, Control: f.ControlEffectiveness}
}

// Recalculate refreshes the derived residual score.
func (f *RiskFactor) Recalculate() {
	f.ResidualRiskScore = scoring.Residual(f.InherentRiskScore, f.ControlEffectiveness)
}

// AddRiskFactorInput is the body of POST /risk-assessments/:id/factors.
type AddRiskFactorInput struct {
	Category             scoring.Category `json:"category" binding:"required,risk_category"`
	FactorName           string           `json:"factor_name" binding:"required,max=300"`
	FactorNameAR         string           `json:"factor_name_ar" binding:"max=300"`
	InherentRiskScore    int              `json:"inherent_risk_score" binding:"required,min=1,max=5"`
	ControlEffectiveness int              `json:"control_effectiveness" binding:"required,min=1,max=5"`
	Notes                string           `json:"notes"`
}

// UpdateRiskFactorInput is the body of PATCH /risk-assessments/:id/factors/:factorId.
// Category and FactorName are accepted only to be rejected when they differ.
type UpdateRiskFactorInput struct {
	FactorNameAR         *string           `json:"factor_name_ar" binding:"omitempty,max=300"`
	InherentRiskScore    *int              `json:"inherent_risk_score" binding:"omitempty,min=1,max=5"`
	ControlEffectiveness *int              `json:"control_effectiveness" binding:"omitempty,min=1,max=5"`
	Notes                *string           `json:"notes"`
	Category             *scoring.Category `json:"category"`
	FactorName           *string           `json:"factor_name"`
}
