package strcase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/goaml"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

const entity = "str case"

// AlertLinker attaches a new case to the alert it was opened from.
type AlertLinker interface {
	CheckLinkable(ctx context.Context, actor entities.Actor, alertID, customerID uuid.UUID) error
	LinkCase(ctx context.Context, actor entities.Actor, alertID, caseID uuid.UUID) (*entities.Alert, error)
}

type Service struct {
	cases     repositories.STRCaseRepository
	customers repositories.CustomerRepository
	orgs      repositories.OrganizationRepository
	alerts    AlertLinker
	audit     audit.Recorder
	notifier  notification.Notifier
	logger    *zap.Logger
	clock     func() time.Time
}

func NewService(
	cases repositories.STRCaseRepository,
	customers repositories.CustomerRepository,
	orgs repositories.OrganizationRepository,
	alerts AlertLinker,
	auditRecorder audit.Recorder,
	notifier notification.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		cases:     cases,
		customers: customers,
		orgs:      orgs,
		alerts:    alerts,
		audit:     auditRecorder,
		notifier:  notifier,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a Draft case. When AlertID is set the alert is linked to the
// new case so it can be escalated.
func (s *Service) Create(ctx context.Context, actor entities.Actor, input entities.CreateSTRCaseInput) (*entities.STRCase, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewLocalizedValidationError("title", "title is required", "العنوان مطلوب")
	}

	customer, err := s.customers.GetByID(ctx, actor.OrgID, input.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if customer == nil {
		return nil, apperrors.NotFound("customer")
	}

	if input.AlertID != nil && s.alerts != nil {
		if err := s.alerts.CheckLinkable(ctx, actor, *input.AlertID, customer.ID); err != nil {
			return nil, err
		}
	}

	indicators := make([]string, 0, len(input.RiskIndicators))
	for _, ind := range input.RiskIndicators {
		if ind = strings.TrimSpace(ind); ind != "" {
			indicators = append(indicators, ind)
		}
	}

	c := &entities.STRCase{
		ID:                 uuid.New(),
		OrgID:              actor.OrgID,
		CustomerID:         customer.ID,
		Title:              title,
		Description:        strings.TrimSpace(input.Description),
		Status:             entities.STRStatusDraft,
		RiskIndicators:     indicators,
		InvestigationNotes: input.InvestigationNotes,
		CreatedBy:          actor.UserID,
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create str case: %w", err)
	}
	c.Customer = customer

	if err := s.audit.Record(ctx, actor, entities.AuditActionCreate, "str_case", &c.ID, map[string]interface{}{
		"customer_id": customer.ID.String(),
	}); err != nil {
		s.logger.Warn("failed to audit str case creation", zap.Error(err))
	}

	if input.AlertID != nil && s.alerts != nil {
		if _, err := s.alerts.LinkCase(ctx, actor, *input.AlertID, c.ID); err != nil {
			return c, err
		}
	}

	s.logger.Info("STR case created",
		zap.String("case_id", c.ID.String()),
		zap.String("customer_id", customer.ID.String()),
	)
	return c, nil
}

func (s *Service) List(ctx context.Context, actor entities.Actor, params entities.ListParams) (entities.Page[*entities.STRCase], error) {
	params.Normalize()
	items, total, err := s.cases.List(ctx, actor.OrgID, params)
	if err != nil {
		return entities.Page[*entities.STRCase]{}, fmt.Errorf("failed to list str cases: %w", err)
	}
	stats, err := s.cases.Stats(ctx, actor.OrgID)
	if err != nil {
		return entities.Page[*entities.STRCase]{}, fmt.Errorf("failed to get str case stats: %w", err)
	}
	page := entities.NewPage(items, total, params)
	page.Stats = stats
	return page, nil
}

func (s *Service) Get(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.STRCase, error) {
	c, err := s.cases.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get str case: %w", err)
	}
	if c == nil {
		return nil, apperrors.NotFound(entity)
	}
	return c, nil
}

// Update edits notes and report fields and optionally advances the status by
// one step. A Closed case accepts no changes at all.
func (s *Service) Update(ctx context.Context, actor entities.Actor, id uuid.UUID, input entities.UpdateSTRCaseInput) (*entities.STRCase, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	from := c.Status
	if entities.STRCaseMachine.IsTerminal(from) {
		return nil, audit.Rejected(entity, apperrors.AlreadyTerminal(entity, string(from)))
	}

	to := from
	if input.Status != nil && *input.Status != from {
		to = *input.Status
		if err := entities.STRCaseMachine.Validate(from, to); err != nil {
			return nil, audit.Rejected(entity, err)
		}
	}

	if input.ReportedAmount != nil && input.ReportedAmount.IsNegative() {
		return nil, apperrors.NewLocalizedValidationError("reported_amount", "reported amount cannot be negative", "لا يمكن أن يكون المبلغ المبلغ عنه سالباً")
	}
	if input.TransactionDateFrom != nil && input.TransactionDateTo != nil && input.TransactionDateTo.Before(*input.TransactionDateFrom) {
		return nil, apperrors.NewLocalizedValidationError("transaction_date_to",
			"transaction end date is before its start date", "تاريخ نهاية العملية قبل تاريخ بدايتها")
	}

	if input.InvestigationNotes != nil {
		c.InvestigationNotes = *input.InvestigationNotes
	}
	input.ApplyGoAML(&c.GoAMLFields)
	c.ReportedCurrency = strings.ToUpper(strings.TrimSpace(c.ReportedCurrency))

	now := s.clock()
	switch to {
	case entities.STRStatusFiledToFIU:
		if from != to {
			c.FiledAt = &now
		}
	case entities.STRStatusClosed:
		c.ClosedAt = &now
	}
	c.Status = to

	ok, err := s.cases.UpdateIfStatus(ctx, c, from)
	if err != nil {
		return nil, fmt.Errorf("failed to update str case: %w", err)
	}
	if !ok {
		fresh, err := s.Get(ctx, actor, id)
		if err != nil {
			return nil, err
		}
		if entities.STRCaseMachine.IsTerminal(fresh.Status) {
			return nil, audit.Rejected(entity, apperrors.AlreadyTerminal(entity, string(fresh.Status)))
		}
		return nil, audit.Rejected(entity, entities.STRCaseMachine.Recheck(fresh.Status, to))
	}

	if from != to {
		if err := s.audit.RecordTransition(ctx, actor, entity, c.ID, string(from), string(to)); err != nil {
			s.logger.Warn("failed to audit str case transition", zap.Error(err))
		}
		if to == entities.STRStatusFiledToFIU {
			s.notify(ctx, notification.Broadcast(actor.OrgID, entities.NotificationSTRFiled, "str_case", c.ID,
				"STR filed to FIU", "تم تقديم بلاغ اشتباه لوحدة التحريات المالية",
				fmt.Sprintf("STR case %q was filed to the FIU", c.Title),
				fmt.Sprintf("تم تقديم قضية البلاغ %q لوحدة التحريات المالية", c.Title)))
		}
	} else if err := s.audit.Record(ctx, actor, entities.AuditActionUpdate, "str_case", &c.ID, map[string]interface{}{
		"goaml_fields": input.HasGoAMLChanges(),
		"notes":        input.InvestigationNotes != nil,
	}); err != nil {
		s.logger.Warn("failed to audit str case update", zap.Error(err))
	}

	return c, nil
}

// Export is the goAML XML document of a ready case and its attachment name.
type Export struct {
	Filename string
	Content  []byte
}

// ExportGoAML renders the case for FIU submission. A case missing any required
// report field fails with MissingFields listing all of them.
func (s *Service) ExportGoAML(ctx context.Context, actor entities.Actor, id uuid.UUID) (*Export, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := goaml.CheckExportReady(c); err != nil {
		return nil, audit.Rejected(entity, err)
	}

	org, err := s.orgs.GetByID(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		org = &entities.Organization{ID: actor.OrgID}
	}
	customer := c.Customer
	if customer == nil {
		if customer, err = s.customers.GetByID(ctx, actor.OrgID, c.CustomerID); err != nil {
			return nil, fmt.Errorf("failed to get customer: %w", err)
		}
	}

	content, err := goaml.Render(goaml.BuildReport(org, c, customer, s.clock()))
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionDataExport, "str_case", &c.ID, map[string]interface{}{
		"format":      "goaml_xml",
		"report_type": c.ReportType,
	}); err != nil {
		s.logger.Warn("failed to audit goAML export", zap.Error(err))
	}

	return &Export{Filename: goaml.Filename(c), Content: content}, nil
}

func (s *Service) notify(ctx context.Context, n *entities.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("failed to raise notification", zap.Error(err))
	}
}
