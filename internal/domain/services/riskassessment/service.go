package riskassessment

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/scoring"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

const (
	entity       = "risk assessment"
	factorEntity = "risk factor"
)

type Service struct {
	assessments repositories.RiskAssessmentRepository
	audit       audit.Recorder
	notifier    notification.Notifier
	logger      *zap.Logger
	clock       func() time.Time
}

func NewService(assessments repositories.RiskAssessmentRepository, auditRecorder audit.Recorder, notifier notification.Notifier, logger *zap.Logger) *Service {
	return &Service{
		assessments: assessments,
		audit:       auditRecorder,
		notifier:    notifier,
		logger:      logger,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

func draftExists() error {
	return apperrors.Conflict("a Draft risk assessment already exists, finish or approve it first",
		"يوجد تقييم مخاطر في حالة المسودة، يرجى إكماله أو اعتماده أولاً")
}

// Create starts a new Draft. Only one Draft may exist per organisation.
func (s *Service) Create(ctx context.Context, actor entities.Actor) (*entities.RiskAssessment, error) {
	existing, err := s.assessments.GetDraft(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to check draft assessment: %w", err)
	}
	if existing != nil {
		return nil, audit.Rejected(entity, draftExists())
	}

	a := &entities.RiskAssessment{
		ID:         uuid.New(),
		OrgID:      actor.OrgID,
		Status:     entities.AssessmentStatusDraft,
		AssessedBy: actor.UserID,
		Factors:    []*entities.RiskFactor{},
	}
	if err := s.assessments.Create(ctx, a); err != nil {
		if errors.Is(err, repositories.ErrUniqueViolation) {
			return nil, audit.Rejected(entity, draftExists())
		}
		return nil, fmt.Errorf("failed to create risk assessment: %w", err)
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionCreate, "risk_assessment", &a.ID, nil); err != nil {
		s.logger.Warn("failed to audit risk assessment creation", zap.Error(err))
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, actor entities.Actor, params entities.ListParams) (entities.Page[*entities.RiskAssessment], error) {
	params.Normalize()
	items, total, err := s.assessments.List(ctx, actor.OrgID, params)
	if err != nil {
		return entities.Page[*entities.RiskAssessment]{}, fmt.Errorf("failed to list risk assessments: %w", err)
	}
	return entities.NewPage(items, total, params), nil
}

// Get loads an assessment with its factors.
func (s *Service) Get(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.RiskAssessment, error) {
	a, err := s.assessments.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get risk assessment: %w", err)
	}
	if a == nil {
		return nil, apperrors.NotFound(entity)
	}
	factors, err := s.assessments.ListFactors(ctx, a.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list risk factors: %w", err)
	}
	a.Factors = factors
	return a, nil
}

func notDraft(a *entities.RiskAssessment) error {
	return audit.Rejected(entity, apperrors.AlreadyTerminal(entity, string(a.Status)))
}

func validateScores(inherent, control int) error {
	if inherent < scoring.MinScore || inherent > scoring.MaxScore {
		return apperrors.NewLocalizedValidationError("inherent_risk_score",
			"inherent risk score must be between 1 and 5", "يجب أن تكون درجة المخاطر الكامنة بين 1 و 5")
	}
	if control < scoring.MinScore || control > scoring.MaxScore {
		return apperrors.NewLocalizedValidationError("control_effectiveness",
			"control effectiveness must be between 1 and 5", "يجب أن تكون فعالية الضوابط بين 1 و 5")
	}
	return nil
}

// AddFactor appends a factor to a Draft and rescores it.
func (s *Service) AddFactor(ctx context.Context, actor entities.Actor, id uuid.UUID, input entities.AddRiskFactorInput) (*entities.RiskAssessment, error) {
	if !input.Category.Valid() {
		return nil, apperrors.NewLocalizedValidationError("category",
			"category must be Customer, Geography, Product, Channel or Transaction", "فئة المخاطر غير صالحة")
	}
	name := strings.TrimSpace(input.FactorName)
	if name == "" {
		return nil, apperrors.NewLocalizedValidationError("factor_name", "factor name is required", "اسم العامل مطلوب")
	}
	if err := validateScores(input.InherentRiskScore, input.ControlEffectiveness); err != nil {
		return nil, err
	}

	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != entities.AssessmentStatusDraft {
		return nil, notDraft(a)
	}

	f := &entities.RiskFactor{
		ID:                   uuid.New(),
		AssessmentID:         a.ID,
		Category:             input.Category,
		FactorName:           name,
		FactorNameAR:         strings.TrimSpace(input.FactorNameAR),
		InherentRiskScore:    input.InherentRiskScore,
		ControlEffectiveness: input.ControlEffectiveness,
		Notes:                input.Notes,
	}
	f.Recalculate()

	ok, err := s.assessments.AddFactor(ctx, actor.OrgID, f)
	if err != nil {
		return nil, fmt.Errorf("failed to add risk factor: %w", err)
	}
	if !ok {
		return nil, s.lostDraft(ctx, actor, id)
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionCreate, "risk_factor", &f.ID, map[string]interface{}{
		"assessment_id": a.ID.String(),
		"category":      string(f.Category),
		"residual":      f.ResidualRiskScore,
	}); err != nil {
		s.logger.Warn("failed to audit risk factor creation", zap.Error(err))
	}

	return s.rescore(ctx, actor, id)
}

// UpdateFactor edits the Arabic name, scores and notes of a factor. Category
// and the source-language name are fixed; a patch changing them is rejected.
func (s *Service) UpdateFactor(ctx context.Context, actor entities.Actor, id, factorID uuid.UUID, input entities.UpdateRiskFactorInput) (*entities.RiskAssessment, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if a.Status != entities.AssessmentStatusDraft {
		return nil, notDraft(a)
	}

	f, err := s.assessments.GetFactor(ctx, a.ID, factorID)
	if err != nil {
		return nil, fmt.Errorf("failed to get risk factor: %w", err)
	}
	if f == nil {
		return nil, apperrors.NotFound(factorEntity)
	}

	if input.Category != nil && *input.Category != f.Category {
		return nil, apperrors.NewLocalizedValidationError("category",
			"a factor's category cannot be changed", "لا يمكن تغيير فئة العامل")
	}
	if input.FactorName != nil && strings.TrimSpace(*input.FactorName) != f.FactorName {
		return nil, apperrors.NewLocalizedValidationError("factor_name",
			"a factor's name cannot be changed, only its Arabic name", "لا يمكن تغيير اسم العامل، يمكن تعديل الاسم العربي فقط")
	}

	if input.FactorNameAR != nil {
		f.FactorNameAR = strings.TrimSpace(*input.FactorNameAR)
	}
	if input.InherentRiskScore != nil {
		f.InherentRiskScore = *input.InherentRiskScore
	}
	if input.ControlEffectiveness != nil {
		f.ControlEffectiveness = *input.ControlEffectiveness
	}
	if input.Notes != nil {
		f.Notes = *input.Notes
	}
	if err := validateScores(f.InherentRiskScore, f.ControlEffectiveness); err != nil {
		return nil, err
	}
	f.Recalculate()

	ok, err := s.assessments.UpdateFactor(ctx, actor.OrgID, f)
	if err != nil {
		return nil, fmt.Errorf("failed to update risk factor: %w", err)
	}
	if !ok {
		return nil, s.lostDraft(ctx, actor, id)
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionUpdate, "risk_factor", &f.ID, map[string]interface{}{
		"assessment_id": a.ID.String(),
		"residual":      f.ResidualRiskScore,
	}); err != nil {
		s.logger.Warn("failed to audit risk factor update", zap.Error(err))
	}

	return s.rescore(ctx, actor, id)
}

// rescore persists the overall score recomputed from the stored factors.
func (s *Service) rescore(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.RiskAssessment, error) {
	a, err := s.assessments.Rescore(ctx, actor.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update risk assessment score: %w", err)
	}
	if a == nil {
		return nil, s.lostDraft(ctx, actor, id)
	}
	return a, nil
}

func (s *Service) lostDraft(ctx context.Context, actor entities.Actor, id uuid.UUID) error {
	fresh, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	return notDraft(fresh)
}

// Approve enforces four-eyes and at least one factor.
func (s *Service) Approve(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.RiskAssessment, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := entities.RiskAssessmentMachine.Validate(a.Status, entities.AssessmentStatusApproved); err != nil {
		return nil, audit.Rejected(entity, err)
	}
	if a.AssessedBy == actor.UserID {
		return nil, audit.Rejected(entity, apperrors.FourEyesViolation(entity))
	}
	if len(a.Factors) == 0 {
		return nil, audit.Rejected(entity, apperrors.MissingFields([]string{"factors"}))
	}

	now := s.clock()
	a.Rescore()
	a.Status = entities.AssessmentStatusApproved
	a.ApprovedBy = &actor.UserID
	a.ApprovedAt = &now

	ok, err := s.assessments.UpdateIfStatus(ctx, a, entities.AssessmentStatusDraft)
	if err != nil {
		return nil, fmt.Errorf("failed to approve risk assessment: %w", err)
	}
	if !ok {
		fresh, err := s.Get(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		return nil, audit.Rejected(entity, entities.RiskAssessmentMachine.Recheck(fresh.Status, entities.AssessmentStatusApproved))
	}

	if err := s.audit.RecordTransition(ctx, actor, entity, a.ID, string(entities.AssessmentStatusDraft), string(entities.AssessmentStatusApproved)); err != nil {
		s.logger.Warn("failed to audit risk assessment approval", zap.Error(err))
	}

	s.logger.Info("Risk assessment approved",
		zap.String("assessment_id", a.ID.String()),
		zap.Float64("overall_score", a.OverallRiskScore),
		zap.String("overall_level", a.OverallRiskLevel),
	)
	return a, nil
}

// RequestApproval notifies the organisation that a Draft is ready for a second user.
func (s *Service) RequestApproval(ctx context.Context, actor entities.Actor, id uuid.UUID) error {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if a.Status != entities.AssessmentStatusDraft {
		return notDraft(a)
	}
	if s.notifier == nil {
		return nil
	}
	return s.notifier.Notify(ctx, notification.Broadcast(actor.OrgID, entities.NotificationApprovalRequired, "risk_assessment", a.ID,
		"Risk assessment awaiting approval", "تقييم مخاطر بانتظار الاعتماد",
		fmt.Sprintf("A risk assessment scored %.2f (%s) needs approval by a second user", a.OverallRiskScore, a.OverallRiskLevel),
		fmt.Sprintf("تقييم مخاطر بدرجة %.2f بحاجة إلى اعتماد من مستخدم آخر", a.OverallRiskScore)))
}
