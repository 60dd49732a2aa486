package alert

import (
	"context"
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

const entity = "alert"

const defaultCurrency = "SAR"

type Service struct {
	alerts    repositories.AlertRepository
	customers repositories.CustomerRepository
	rules     repositories.MonitoringRuleRepository
	strCases  repositories.STRCaseRepository
	audit     audit.Recorder
	notifier  notification.Notifier
	logger    *zap.Logger
	clock     func() time.Time
}

func NewService(
	alerts repositories.AlertRepository,
	customers repositories.CustomerRepository,
	rules repositories.MonitoringRuleRepository,
	strCases repositories.STRCaseRepository,
	auditRecorder audit.Recorder,
	notifier notification.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		alerts:    alerts,
		customers: customers,
		rules:     rules,
		strCases:  strCases,
		audit:     auditRecorder,
		notifier:  notifier,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// Ingest records an alert pushed by the transaction-monitoring engine.
func (s *Service) Ingest(ctx context.Context, actor entities.Actor, input entities.IngestAlertInput) (*entities.Alert, error) {
	rule, err := s.rules.GetByID(ctx, actor.OrgID, input.MonitoringRuleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get monitoring rule: %w", err)
	}
	if rule == nil {
		return nil, apperrors.NotFound("monitoring rule")
	}
	if !rule.IsActive {
		return nil, apperrors.Conflict("monitoring rule is inactive", "قاعدة المراقبة غير مفعلة")
	}

	customer, err := s.customers.GetByID(ctx, actor.OrgID, input.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return nil, apperrors.NotFound("customer")
	}

	severity := input.Severity
	if severity == "" {
		severity = rule.Severity
	}
	if !severity.Valid() {
		return nil, apperrors.NewLocalizedValidationError("severity", "severity must be low, medium, high or critical", "درجة الخطورة غير صالحة")
	}
	if input.Amount.IsNegative() {
		return nil, apperrors.NewLocalizedValidationError("amount", "amount cannot be negative", "لا يمكن أن يكون المبلغ سالباً")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}

	ruleID := rule.ID
	a := &entities.Alert{
		ID:               uuid.New(),
		OrgID:            actor.OrgID,
		CustomerID:       customer.ID,
		TransactionID:    input.TransactionID,
		MonitoringRuleID: &ruleID,
		RuleType:         string(rule.RuleType),
		RuleName:         rule.Name,
		Severity:         severity,
		Status:           entities.AlertStatusOpen,
		Amount:           input.Amount,
		Currency:         currency,
		Details:          input.Details,
	}
	if a.Details == nil {
		a.Details = map[string]interface{}{}
	}
	if err := s.alerts.Create(ctx, a); err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	a.Customer = customer

	if err := s.audit.Record(ctx, actor, entities.AuditActionCreate, "alert", &a.ID, map[string]interface{}{
		"rule_id":  ruleID.String(),
		"severity": string(severity),
	}); err != nil {
		s.logger.Warn("failed to audit alert ingestion", zap.Error(err))
	}

	s.logger.Info("Alert ingested",
		zap.String("alert_id", a.ID.String()),
		zap.String("rule_type", a.RuleType),
		zap.String("severity", string(severity)),
	)
	return a, nil
}

func (s *Service) List(ctx context.Context, actor entities.Actor, params entities.ListParams) (entities.Page[*entities.Alert], error) {
	params.Normalize()
	items, total, err := s.alerts.List(ctx, actor.OrgID, params)
	if err != nil {
		return entities.Page[*entities.Alert]{}, fmt.Errorf("failed to list alerts: %w", err)
	}
	stats, err := s.alerts.Stats(ctx, actor.OrgID)
	if err != nil {
		return entities.Page[*entities.Alert]{}, fmt.Errorf("failed to get alert stats: %w", err)
	}
	page := entities.NewPage(items, total, params)
	page.Stats = stats
	return page, nil
}

func (s *Service) Get(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.Alert, error) {
	a, err := s.alerts.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	if a == nil {
		return nil, apperrors.NotFound(entity)
	}
	return a, nil
}

// Update applies a triage transition. Closing requires notes; escalating
// requires a linked STR case, given in the request or linked earlier.
func (s *Service) Update(ctx context.Context, actor entities.Actor, id uuid.UUID, input entities.UpdateAlertInput) (*entities.Alert, error) {
	a, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := a.Status
	to := input.Status

	if err := entities.AlertMachine.Validate(from, to); err != nil {
		return nil, audit.Rejected(entity, err)
	}

	notes := strings.TrimSpace(input.Notes)
	if notes != "" {
		a.Notes = notes
	}

	now := s.clock()
	switch to {
	case entities.AlertStatusUnderReview:
		if a.AssignedToID == nil {
			a.AssignedToID = &actor.UserID
		}
	case entities.AlertStatusEscalated:
		caseID := input.STRCaseID
		if caseID == nil {
			caseID = a.STRCaseID
		}
		if caseID == nil {
			return nil, audit.Rejected(entity, apperrors.MissingFields([]string{"str_case_id"}))
		}
		if err := s.checkCase(ctx, actor, a, *caseID); err != nil {
			return nil, err
		}
		a.STRCaseID = caseID
	case entities.AlertStatusClosed:
		if notes == "" {
			return nil, audit.Rejected(entity, apperrors.MissingFields([]string{"notes"}))
		}
		a.ClosedBy = &actor.UserID
		a.ClosedAt = &now
	}

	a.Status = to
	ok, err := s.alerts.UpdateIfStatus(ctx, a, from)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	if !ok {
		fresh, err := s.Get(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		return nil, audit.Rejected(entity, entities.AlertMachine.Recheck(fresh.Status, to))
	}

	if err := s.audit.RecordTransition(ctx, actor, entity, a.ID, string(from), string(to)); err != nil {
		s.logger.Warn("failed to audit alert transition", zap.Error(err))
	}

	if to == entities.AlertStatusEscalated {
		s.notify(ctx, notification.Broadcast(actor.OrgID, entities.NotificationAlertEscalated, "alert", a.ID,
			"Alert escalated", "تم تصعيد تنبيه",
			fmt.Sprintf("Alert %q was escalated to an STR case", a.RuleName),
			fmt.Sprintf("تم تصعيد التنبيه %q إلى بلاغ اشتباه", a.RuleName)))
	}

	return a, nil
}

func (s *Service) checkCase(ctx context.Context, actor entities.Actor, a *entities.Alert, caseID uuid.UUID) error {
	c, err := s.strCases.GetByID(ctx, actor.OrgID, caseID)
	if err != nil {
		return fmt.Errorf("failed to get str case: %w", err)
	}
	if c == nil {
		return apperrors.NotFound("str case")
	}
	if c.CustomerID != a.CustomerID {
		return apperrors.NewLocalizedValidationError("str_case_id",
			"the STR case belongs to a different customer", "قضية البلاغ تخص عميلاً آخر")
	}
	return nil
}

// CheckLinkable reports whether a case for customerID could be linked to the
// alert, without writing anything.
func (s *Service) CheckLinkable(ctx context.Context, actor entities.Actor, alertID, customerID uuid.UUID) error {
	a, err := s.Get(ctx, actor, alertID)
	if err != nil {
		return err
	}
	return linkable(a, &customerID)
}

func linkable(a *entities.Alert, customerID *uuid.UUID) error {
	if entities.AlertMachine.IsTerminal(a.Status) {
		return audit.Rejected(entity, apperrors.AlreadyTerminal(entity, string(a.Status)))
	}
	if customerID != nil && *customerID != a.CustomerID {
		return apperrors.NewLocalizedValidationError("alert_id",
			"the alert belongs to a different customer", "التنبيه يخص عميلاً آخر")
	}
	return nil
}

// LinkCase records caseID on an alert that is not closed. The alert status is
// unchanged.
func (s *Service) LinkCase(ctx context.Context, actor entities.Actor, alertID, caseID uuid.UUID) (*entities.Alert, error) {
	a, err := s.Get(ctx, actor, alertID)
	if err != nil {
		return nil, err
	}
	if err := linkable(a, nil); err != nil {
		return nil, err
	}
	if err := s.checkCase(ctx, actor, a, caseID); err != nil {
		return nil, err
	}

	a.STRCaseID = &caseID
	ok, err := s.alerts.UpdateIfStatus(ctx, a, a.Status)
	if err != nil {
		return nil, fmt.Errorf("failed to link alert: %w", err)
	}
	if !ok {
		return nil, apperrors.Conflict("alert was modified concurrently, reload and retry",
			"تم تعديل التنبيه من مستخدم آخر، يرجى إعادة التحميل")
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionUpdate, "alert", &a.ID, map[string]interface{}{
		"str_case_id": caseID.String(),
	}); err != nil {
		s.logger.Warn("failed to audit alert link", zap.Error(err))
	}
	return a, nil
}

func (s *Service) notify(ctx context.Context, n *entities.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("failed to raise notification", zap.Error(err))
	}
}
