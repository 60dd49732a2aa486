package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

const assessmentColumns = `id, org_id, status, overall_risk_score, overall_risk_level, assessed_by,
	approved_by, approved_at, created_at, updated_at`

const factorColumns = `id, assessment_id, category, factor_name, factor_name_ar, inherent_risk_score,
	control_effectiveness, residual_risk_score, notes, created_at, updated_at`

// RiskAssessmentRepository handles risk assessment and factor persistence
type RiskAssessmentRepository struct {
	db *sqlx.DB
}

// NewRiskAssessmentRepository creates a new risk assessment repository
func NewRiskAssessmentRepository(db *sqlx.DB) *RiskAssessmentRepository {
	return &RiskAssessmentRepository{db: db}
}

// Create fails with ErrUniqueViolation when a Draft already exists.
func (r *RiskAssessmentRepository) Create(ctx context.Context, a *entities.RiskAssessment) error {
	stamp(&a.CreatedAt, &a.UpdatedAt)
	query := `
		INSERT INTO risk_assessments (` + assessmentColumns + `)
		VALUES (:id, :org_id, :status, :overall_risk_score, :overall_risk_level, :assessed_by,
			:approved_by, :approved_at, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, a)
	return mapError(err)
}

func (r *RiskAssessmentRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.RiskAssessment, error) {
	return r.getOne(ctx, `SELECT `+assessmentColumns+` FROM risk_assessments WHERE org_id = $1 AND id = $2`, orgID, id)
}

func (r *RiskAssessmentRepository) GetDraft(ctx context.Context, orgID uuid.UUID) (*entities.RiskAssessment, error) {
	return r.getOne(ctx, `SELECT `+assessmentColumns+` FROM risk_assessments WHERE org_id = $1 AND status = $2`,
		orgID, entities.AssessmentStatusDraft)
}

func (r *RiskAssessmentRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entities.RiskAssessment, error) {
	a := &entities.RiskAssessment{}
	err := r.db.GetContext(ctx, a, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *RiskAssessmentRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.RiskAssessment, int, error) {
	f := newFilter(orgID)
	f.addIf(params.Status != "", "status = ?", params.Status)
	return listPage[*entities.RiskAssessment](ctx, r.db, assessmentColumns, "risk_assessments", "created_at DESC", f, params)
}

func (r *RiskAssessmentRepository) ListApproved(ctx context.Context, orgID uuid.UUID) ([]*entities.RiskAssessment, error) {
	assessments := []*entities.RiskAssessment{}
	query := `SELECT ` + assessmentColumns + ` FROM risk_assessments WHERE org_id = $1 AND status = $2 ORDER BY created_at DESC`
	if err := r.db.SelectContext(ctx, &assessments, query, orgID, entities.AssessmentStatusApproved); err != nil {
		return nil, err
	}
	return assessments, nil
}

func (r *RiskAssessmentRepository) UpdateIfStatus(ctx context.Context, a *entities.RiskAssessment, expected entities.AssessmentStatus) (bool, error) {
	stamp(nil, &a.UpdatedAt)
	query := `
		UPDATE risk_assessments SET
			status = $4, overall_risk_score = $5, overall_risk_level = $6,
			approved_by = $7, approved_at = $8, updated_at = $9
		WHERE org_id = $1 AND id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, a.OrgID, a.ID, expected,
		a.Status, a.OverallRiskScore, a.OverallRiskLevel, a.ApprovedBy, a.ApprovedAt, a.UpdatedAt)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// Rescore locks the Draft row, recomputes the overall score from its current
// factors and writes it back in one transaction. Concurrent factor writers
// serialize on the row lock, so the last rescore sees every committed factor.
// It returns nil when the assessment is not a Draft of orgID.
func (r *RiskAssessmentRepository) Rescore(ctx context.Context, orgID, id uuid.UUID) (a *entities.RiskAssessment, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil || a == nil {
			_ = tx.Rollback()
		}
	}()

	locked := &entities.RiskAssessment{}
	err = tx.GetContext(ctx, locked, `SELECT `+assessmentColumns+` FROM risk_assessments
		WHERE org_id = $1 AND id = $2 AND status = $3 FOR UPDATE`, orgID, id, entities.AssessmentStatusDraft)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	factors := []*entities.RiskFactor{}
	if err = tx.SelectContext(ctx, &factors,
		`SELECT `+factorColumns+` FROM risk_factors WHERE assessment_id = $1 ORDER BY created_at ASC`, id); err != nil {
		return nil, err
	}
	locked.Factors = factors
	locked.Rescore()

	stamp(nil, &locked.UpdatedAt)
	if _, err = tx.ExecContext(ctx, `
		UPDATE risk_assessments SET overall_risk_score = $3, overall_risk_level = $4, updated_at = $5
		WHERE org_id = $1 AND id = $2`,
		orgID, id, locked.OverallRiskScore, locked.OverallRiskLevel, locked.UpdatedAt); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit rescore: %w", err)
	}
	return locked, nil
}

// AddFactor inserts the factor only while its assessment is a Draft of orgID.
func (r *RiskAssessmentRepository) AddFactor(ctx context.Context, orgID uuid.UUID, f *entities.RiskFactor) (bool, error) {
	stamp(&f.CreatedAt, &f.UpdatedAt)
	query := `
		INSERT INTO risk_factors (` + factorColumns + `)
		SELECT $1, a.id, $2, $3, $4, $5, $6, $7, $8, $9, $10
		FROM risk_assessments a
		WHERE a.id = $11 AND a.org_id = $12 AND a.status = $13`
	res, err := r.db.ExecContext(ctx, query, f.ID, f.Category, f.FactorName, f.FactorNameAR,
		f.InherentRiskScore, f.ControlEffectiveness, f.ResidualRiskScore, f.Notes, f.CreatedAt, f.UpdatedAt,
		f.AssessmentID, orgID, entities.AssessmentStatusDraft)
	if err != nil {
		return false, mapError(err)
	}
	return affected(res)
}

// UpdateFactor writes editable factor fields only while the assessment is a Draft.
// Category and factor name are not written.
func (r *RiskAssessmentRepository) UpdateFactor(ctx context.Context, orgID uuid.UUID, f *entities.RiskFactor) (bool, error) {
	stamp(nil, &f.UpdatedAt)
	query := `
		UPDATE risk_factors SET
			factor_name_ar = $3, inherent_risk_score = $4, control_effectiveness = $5,
			residual_risk_score = $6, notes = $7, updated_at = $8
		FROM risk_assessments a
		WHERE risk_factors.id = $1 AND risk_factors.assessment_id = $2
			AND a.id = risk_factors.assessment_id AND a.org_id = $9 AND a.status = $10`
	res, err := r.db.ExecContext(ctx, query, f.ID, f.AssessmentID,
		f.FactorNameAR, f.InherentRiskScore, f.ControlEffectiveness, f.ResidualRiskScore, f.Notes, f.UpdatedAt,
		orgID, entities.AssessmentStatusDraft)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *RiskAssessmentRepository) GetFactor(ctx context.Context, assessmentID, factorID uuid.UUID) (*entities.RiskFactor, error) {
	f := &entities.RiskFactor{}
	err := r.db.GetContext(ctx, f, `SELECT `+factorColumns+` FROM risk_factors WHERE assessment_id = $1 AND id = $2`,
		assessmentID, factorID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// ListFactors returns factors in the order they were added.
func (r *RiskAssessmentRepository) ListFactors(ctx context.Context, assessmentID uuid.UUID) ([]*entities.RiskFactor, error) {
	factors := []*entities.RiskFactor{}
	query := `SELECT ` + factorColumns + ` FROM risk_factors WHERE assessment_id = $1 ORDER BY created_at ASC`
	if err := r.db.SelectContext(ctx, &factors, query, assessmentID); err != nil {
		return nil, err
	}
	return factors, nil
}
