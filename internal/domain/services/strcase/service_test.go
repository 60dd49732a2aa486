package strcase

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/rules"
	"github.com/trous-aml/trous_service/internal/domain/services/alert"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	"github.com/trous-aml/trous_service/internal/infrastructure/repositories/memory"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

type fixture struct {
	store    *memory.Store
	svc      *Service
	alerts   *alert.Service
	officer  entities.Actor
	customer *entities.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	logger := zap.NewNop()
	orgID := uuid.New()

	store.Organizations().Put(&entities.Organization{ID: orgID, NameEN: "Trous Exchange", GoAMLEntityID: "SA-FIU-0042"})
	customer := &entities.Customer{
		ID:    uuid.New(),
		OrgID: orgID,
		CustomerIdentity: entities.CustomerIdentity{
			CustomerType:     entities.CustomerTypeCorporate,
			CompanyName:      "Gulf Trading Co.",
			CommercialRecord: "1010123456",
		},
		RiskLevel: entities.RiskLevel("High"),
	}
	require.NoError(t, store.Customers().Create(ctx, customer))

	auditSvc := audit.NewService(store.Audit(), nil, logger)
	notifier := notification.NewService(store.Notifications(), logger)
	alerts := alert.NewService(store.Alerts(), store.Customers(), store.MonitoringRules(), store.STRCases(), auditSvc, notifier, logger)
	svc := NewService(store.STRCases(), store.Customers(), store.Organizations(), alerts, auditSvc, notifier, logger)

	return &fixture{
		store:    store,
		svc:      svc,
		alerts:   alerts,
		officer:  entities.Actor{UserID: uuid.New(), OrgID: orgID, Role: entities.RoleOfficer},
		customer: customer,
	}
}

func (f *fixture) create(t *testing.T) *entities.STRCase {
	t.Helper()
	c, err := f.svc.Create(context.Background(), f.officer, entities.CreateSTRCaseInput{
		CustomerID:     f.customer.ID,
		Title:          "Round-amount transfers to new beneficiaries",
		RiskIndicators: []string{"round amounts", " ", "new beneficiaries"},
	})
	require.NoError(t, err)
	return c
}

func move(s entities.STRStatus) entities.UpdateSTRCaseInput {
	return entities.UpdateSTRCaseInput{Status: &s}
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	c := f.create(t)

	assert.Equal(t, entities.STRStatusDraft, c.Status)
	assert.Equal(t, []string{"round amounts", "new beneficiaries"}, []string(c.RiskIndicators))

	_, err := f.svc.Create(context.Background(), f.officer, entities.CreateSTRCaseInput{CustomerID: uuid.New(), Title: "x"})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestCreate_LinksAlert(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rule := &entities.MonitoringRule{ID: uuid.New(), OrgID: f.officer.OrgID, Name: "Large cash", RuleType: rules.TypeThreshold,
		Severity: entities.SeverityHigh, IsActive: true}
	require.NoError(t, f.store.MonitoringRules().Create(ctx, rule))
	a, err := f.alerts.Ingest(ctx, f.officer, entities.IngestAlertInput{MonitoringRuleID: rule.ID, CustomerID: f.customer.ID})
	require.NoError(t, err)

	c, err := f.svc.Create(ctx, f.officer, entities.CreateSTRCaseInput{
		CustomerID: f.customer.ID,
		Title:      "Opened from alert",
		AlertID:    &a.ID,
	})
	require.NoError(t, err)

	linked, err := f.alerts.Get(ctx, f.officer, a.ID)
	require.NoError(t, err)
	require.NotNil(t, linked.STRCaseID)
	assert.Equal(t, c.ID, *linked.STRCaseID)
}

func TestCreate_ClosedAlertWritesNoCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rule := &entities.MonitoringRule{ID: uuid.New(), OrgID: f.officer.OrgID, Name: "Large cash", RuleType: rules.TypeThreshold,
		Severity: entities.SeverityHigh, IsActive: true}
	require.NoError(t, f.store.MonitoringRules().Create(ctx, rule))
	a, err := f.alerts.Ingest(ctx, f.officer, entities.IngestAlertInput{MonitoringRuleID: rule.ID, CustomerID: f.customer.ID})
	require.NoError(t, err)
	_, err = f.alerts.Update(ctx, f.officer, a.ID, entities.UpdateAlertInput{Status: entities.AlertStatusClosed, Notes: "false positive"})
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, f.officer, entities.CreateSTRCaseInput{
		CustomerID: f.customer.ID,
		Title:      "Opened from closed alert",
		AlertID:    &a.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)

	missing := uuid.New()
	_, err = f.svc.Create(ctx, f.officer, entities.CreateSTRCaseInput{
		CustomerID: f.customer.ID,
		Title:      "Opened from unknown alert",
		AlertID:    &missing,
	})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	_, total, err := f.store.STRCases().List(ctx, f.officer.OrgID, entities.ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestUpdate_ForwardOnlyWithoutSkipping(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	_, err := f.svc.Update(ctx, f.officer, c.ID, move(entities.STRStatusFiledToFIU))
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)

	for _, next := range []entities.STRStatus{
		entities.STRStatusUnderInvestigation,
		entities.STRStatusFiledToFIU,
		entities.STRStatusClosed,
	} {
		updated, err := f.svc.Update(ctx, f.officer, c.ID, move(next))
		require.NoError(t, err, "-> %s", next)
		assert.Equal(t, next, updated.Status)
	}

	stored, err := f.svc.Get(ctx, f.officer, c.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.FiledAt)
	assert.NotNil(t, stored.ClosedAt)

	_, err = f.svc.Update(ctx, f.officer, c.ID, move(entities.STRStatusDraft))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)
}

func TestUpdate_ClosedBlocksNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	for _, next := range []entities.STRStatus{entities.STRStatusUnderInvestigation, entities.STRStatusFiledToFIU, entities.STRStatusClosed} {
		_, err := f.svc.Update(ctx, f.officer, c.ID, move(next))
		require.NoError(t, err)
	}

	notes := "late addition"
	_, err := f.svc.Update(ctx, f.officer, c.ID, entities.UpdateSTRCaseInput{InvestigationNotes: &notes})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)
}

func TestUpdate_NotesAndReportFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	notes := "Beneficiaries share one address"
	currency := "sar"
	updated, err := f.svc.Update(ctx, f.officer, c.ID, entities.UpdateSTRCaseInput{
		InvestigationNotes: &notes,
		ReportedCurrency:   &currency,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.STRStatusDraft, updated.Status)
	assert.Equal(t, notes, updated.InvestigationNotes)
	assert.Equal(t, "SAR", updated.ReportedCurrency)
}

func TestExportGoAML_MissingFields(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	_, err := f.svc.ExportGoAML(ctx, f.officer, c.ID)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeMissingFields, appErr.Code)
	assert.ElementsMatch(t, []string{"report_type", "reason_for_suspicion"}, appErr.Fields)

	reportType := "STR"
	_, err = f.svc.Update(ctx, f.officer, c.ID, entities.UpdateSTRCaseInput{ReportType: &reportType})
	require.NoError(t, err)

	_, err = f.svc.ExportGoAML(ctx, f.officer, c.ID)
	appErr, ok = apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{"reason_for_suspicion"}, appErr.Fields)
}

func TestExportGoAML_Ready(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	c := f.create(t)

	reportType, reason := "STR", "Transfers inconsistent with declared business activity"
	_, err := f.svc.Update(ctx, f.officer, c.ID, entities.UpdateSTRCaseInput{
		ReportType:         &reportType,
		ReasonForSuspicion: &reason,
	})
	require.NoError(t, err)

	export, err := f.svc.ExportGoAML(ctx, f.officer, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "STR-"+c.ID.String()+"-goaml.xml", export.Filename)
	body := string(export.Content)
	assert.True(t, strings.HasPrefix(body, "<?xml"))
	assert.Contains(t, body, "SA-FIU-0042")
	assert.Contains(t, body, "Gulf Trading Co.")
}
