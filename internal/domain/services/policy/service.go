package policy

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
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

const entity = "policy"

// versionAttempts bounds retries when two drafts race for the same version number.
const versionAttempts = 3

type Service struct {
	policies repositories.PolicyRepository
	audit    audit.Recorder
	notifier notification.Notifier
	logger   *zap.Logger
	clock    func() time.Time
}

func NewService(policies repositories.PolicyRepository, auditRecorder audit.Recorder, notifier notification.Notifier, logger *zap.Logger) *Service {
	return &Service{
		policies: policies,
		audit:    auditRecorder,
		notifier: notifier,
		logger:   logger,
		clock:    func() time.Time { return time.Now().UTC() },
	}
}

func normalize(input entities.PolicyInput) (entities.PolicyInput, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.TitleAR = strings.TrimSpace(input.TitleAR)
	if input.Title == "" {
		return input, apperrors.NewLocalizedValidationError("title", "title is required", "العنوان مطلوب")
	}
	return input, nil
}

// Create stores a new Draft with the next version number of the organisation.
func (s *Service) Create(ctx context.Context, actor entities.Actor, input entities.PolicyInput) (*entities.Policy, error) {
	input, err := normalize(input)
	if err != nil {
		return nil, err
	}

	p := &entities.Policy{
		ID:        uuid.New(),
		OrgID:     actor.OrgID,
		Title:     input.Title,
		TitleAR:   input.TitleAR,
		Content:   input.Content,
		ContentAR: input.ContentAR,
		Status:    entities.PolicyStatusDraft,
		CreatedBy: actor.UserID,
	}

	for attempt := 0; ; attempt++ {
		next, err := s.policies.NextVersion(ctx, actor.OrgID)
		if err != nil {
			return nil, fmt.Errorf("failed to get next policy version: %w", err)
		}
		p.Version = fmt.Sprintf("%d.0", next)

		err = s.policies.Create(ctx, p)
		if err == nil {
			break
		}
		if !errors.Is(err, repositories.ErrUniqueViolation) || attempt+1 >= versionAttempts {
			return nil, fmt.Errorf("failed to create policy: %w", err)
		}
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionCreate, "policy", &p.ID, map[string]interface{}{
		"version": p.Version,
	}); err != nil {
		s.logger.Warn("failed to audit policy creation", zap.Error(err))
	}

	s.notify(ctx, notification.Broadcast(actor.OrgID, entities.NotificationApprovalRequired, "policy", p.ID,
		"Policy awaiting approval", "سياسة بانتظار الاعتماد",
		fmt.Sprintf("Policy v%s %q needs approval by a second user", p.Version, p.Title),
		fmt.Sprintf("السياسة الإصدار %s بحاجة إلى اعتماد من مستخدم آخر", p.Version)))

	return p, nil
}

func (s *Service) List(ctx context.Context, actor entities.Actor, params entities.ListParams) (entities.Page[*entities.Policy], error) {
	params.Normalize()
	items, total, err := s.policies.List(ctx, actor.OrgID, params)
	if err != nil {
		return entities.Page[*entities.Policy]{}, fmt.Errorf("failed to list policies: %w", err)
	}
	return entities.NewPage(items, total, params), nil
}

func (s *Service) Get(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.Policy, error) {
	p, err := s.policies.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy: %w", err)
	}
	if p == nil {
		return nil, apperrors.NotFound(entity)
	}
	return p, nil
}

func notEditable(status entities.PolicyStatus) error {
	return apperrors.Conflict(
		fmt.Sprintf("only Draft policies can be edited, this one is %s", status),
		"يمكن تعديل السياسات في حالة المسودة فقط")
}

// Update replaces title and content of a Draft.
func (s *Service) Update(ctx context.Context, actor entities.Actor, id uuid.UUID, input entities.PolicyInput) (*entities.Policy, error) {
	input, err := normalize(input)
	if err != nil {
		return nil, err
	}
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if p.Status != entities.PolicyStatusDraft {
		return nil, audit.Rejected(entity, notEditable(p.Status))
	}

	p.Title, p.TitleAR = input.Title, input.TitleAR
	p.Content, p.ContentAR = input.Content, input.ContentAR

	ok, err := s.policies.UpdateDraft(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to update policy: %w", err)
	}
	if !ok {
		fresh, err := s.Get(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		return nil, audit.Rejected(entity, notEditable(fresh.Status))
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionUpdate, "policy", &p.ID, nil); err != nil {
		s.logger.Warn("failed to audit policy update", zap.Error(err))
	}
	return p, nil
}

// Approve enforces four-eyes and bilingual content, then supersedes the
// previously approved policy.
func (s *Service) Approve(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.Policy, error) {
	p, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := entities.PolicyMachine.Validate(p.Status, entities.PolicyStatusApproved); err != nil {
		return nil, audit.Rejected(entity, err)
	}
	if p.CreatedBy == actor.UserID {
		return nil, audit.Rejected(entity, apperrors.FourEyesViolation(entity))
	}
	if missing := p.MissingContent(); len(missing) > 0 {
		return nil, audit.Rejected(entity, apperrors.MissingFields(missing))
	}

	previous, err := s.policies.ListApproved(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved policies: %w", err)
	}

	now := s.clock()
	p.Status = entities.PolicyStatusApproved
	p.ApprovedBy = &actor.UserID
	p.ApprovedAt = &now

	ok, err := s.policies.Approve(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("failed to approve policy: %w", err)
	}
	if !ok {
		fresh, err := s.Get(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		// The draft may have been edited between the checks and the write.
		if missing := fresh.MissingContent(); fresh.Status == entities.PolicyStatusDraft && len(missing) > 0 {
			return nil, audit.Rejected(entity, apperrors.MissingFields(missing))
		}
		return nil, audit.Rejected(entity, entities.PolicyMachine.Recheck(fresh.Status, entities.PolicyStatusApproved))
	}

	if err := s.audit.RecordTransition(ctx, actor, entity, p.ID, string(entities.PolicyStatusDraft), string(entities.PolicyStatusApproved)); err != nil {
		s.logger.Warn("failed to audit policy approval", zap.Error(err))
	}
	for _, old := range previous {
		if old.ID == p.ID {
			continue
		}
		if err := s.audit.RecordTransition(ctx, actor, entity, old.ID, string(entities.PolicyStatusApproved), string(entities.PolicyStatusSuperseded)); err != nil {
			s.logger.Warn("failed to audit policy supersession", zap.Error(err))
		}
	}

	s.logger.Info("Policy approved",
		zap.String("policy_id", p.ID.String()),
		zap.String("version", p.Version),
		zap.String("approved_by", actor.UserID.String()),
	)
	return p, nil
}

func (s *Service) notify(ctx context.Context, n *entities.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("failed to raise notification", zap.Error(err))
	}
}
