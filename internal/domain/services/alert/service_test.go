package alert

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/rules"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	"github.com/trous-aml/trous_service/internal/infrastructure/repositories/memory"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

type fixture struct {
	store    *memory.Store
	svc      *Service
	officer  entities.Actor
	customer *entities.Customer
	rule     *entities.MonitoringRule
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()
	logger := zap.NewNop()
	orgID := uuid.New()

	customer := &entities.Customer{
		ID:    uuid.New(),
		OrgID: orgID,
		CustomerIdentity: entities.CustomerIdentity{
			CustomerType: entities.CustomerTypeIndividual,
			FullName:     "Noura Al-Harbi",
			NationalID:   "2098765432",
			Nationality:  "EG",
		},
		RiskLevel: entities.RiskLevel("Medium"),
	}
	require.NoError(t, store.Customers().Create(ctx, customer))

	rule := &entities.MonitoringRule{
		ID:         uuid.New(),
		OrgID:      orgID,
		Name:       "Large cash transaction",
		RuleType:   rules.TypeThreshold,
		Severity:   entities.Severity("high"),
		IsActive:   true,
		Parameters: map[string]interface{}{"amount": "60000", "currency": "SAR"},
	}
	require.NoError(t, store.MonitoringRules().Create(ctx, rule))

	svc := NewService(store.Alerts(), store.Customers(), store.MonitoringRules(), store.STRCases(),
		audit.NewService(store.Audit(), nil, logger), notification.NewService(store.Notifications(), logger), logger)

	return &fixture{
		store:    store,
		svc:      svc,
		officer:  entities.Actor{UserID: uuid.New(), OrgID: orgID, Role: entities.RoleOfficer},
		customer: customer,
		rule:     rule,
	}
}

func (f *fixture) ingest(t *testing.T) *entities.Alert {
	t.Helper()
	a, err := f.svc.Ingest(context.Background(), f.officer, entities.IngestAlertInput{
		MonitoringRuleID: f.rule.ID,
		CustomerID:       f.customer.ID,
		Amount:           decimal.RequireFromString("75000"),
		Details:          map[string]interface{}{"threshold": "60000"},
	})
	require.NoError(t, err)
	return a
}

func (f *fixture) strCase(t *testing.T, customerID uuid.UUID) *entities.STRCase {
	t.Helper()
	c := &entities.STRCase{
		ID:         uuid.New(),
		OrgID:      f.officer.OrgID,
		CustomerID: customerID,
		Title:      "Cash deposits above threshold",
		Status:     entities.STRStatusDraft,
		CreatedBy:  f.officer.UserID,
	}
	require.NoError(t, f.store.STRCases().Create(context.Background(), c))
	return c
}

func status(s entities.AlertStatus) entities.UpdateAlertInput {
	return entities.UpdateAlertInput{Status: s}
}

func TestIngest_Defaults(t *testing.T) {
	f := newFixture(t)
	a := f.ingest(t)

	assert.Equal(t, entities.AlertStatusOpen, a.Status)
	assert.Equal(t, entities.Severity("high"), a.Severity)
	assert.Equal(t, "SAR", a.Currency)
	assert.Equal(t, "threshold", a.RuleType)
	assert.Equal(t, "Large cash transaction", a.RuleName)
}

func TestIngest_InactiveRule(t *testing.T) {
	f := newFixture(t)
	f.rule.IsActive = false
	require.NoError(t, f.store.MonitoringRules().Update(context.Background(), f.rule))

	_, err := f.svc.Ingest(context.Background(), f.officer, entities.IngestAlertInput{
		MonitoringRuleID: f.rule.ID,
		CustomerID:       f.customer.ID,
	})
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestUpdate_UnderReviewAssignsActor(t *testing.T) {
	f := newFixture(t)
	a := f.ingest(t)

	updated, err := f.svc.Update(context.Background(), f.officer, a.ID, status(entities.AlertStatusUnderReview))
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedToID)
	assert.Equal(t, f.officer.UserID, *updated.AssignedToID)
}

func TestUpdate_CloseRequiresNotes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.ingest(t)

	_, err := f.svc.Update(ctx, f.officer, a.ID, entities.UpdateAlertInput{Status: entities.AlertStatusClosed, Notes: "   "})
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeMissingFields, appErr.Code)
	assert.Equal(t, []string{"notes"}, appErr.Fields)

	stored, err := f.svc.Get(ctx, f.officer, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.AlertStatusOpen, stored.Status)

	closed, err := f.svc.Update(ctx, f.officer, a.ID, entities.UpdateAlertInput{
		Status: entities.AlertStatusClosed,
		Notes:  "Salary bonus, documented by employer letter",
	})
	require.NoError(t, err)
	assert.Equal(t, entities.AlertStatusClosed, closed.Status)
	assert.NotNil(t, closed.ClosedAt)
	assert.Equal(t, f.officer.UserID, *closed.ClosedBy)
}

func TestUpdate_ClosedToOpenIsAlreadyTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.ingest(t)

	_, err := f.svc.Update(ctx, f.officer, a.ID, entities.UpdateAlertInput{Status: entities.AlertStatusClosed, Notes: "false positive"})
	require.NoError(t, err)

	for _, next := range []entities.AlertStatus{entities.AlertStatusOpen, entities.AlertStatusUnderReview, entities.AlertStatusEscalated} {
		_, err = f.svc.Update(ctx, f.officer, a.ID, status(next))
		assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal, "closed -> %s", next)
	}
}

func TestUpdate_BackwardsIsInvalid(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.ingest(t)

	_, err := f.svc.Update(ctx, f.officer, a.ID, status(entities.AlertStatusUnderReview))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, f.officer, a.ID, status(entities.AlertStatusOpen))
	assert.ErrorIs(t, err, apperrors.ErrInvalidTransition)
}

func TestUpdate_EscalateRequiresCase(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.ingest(t)

	_, err := f.svc.Update(ctx, f.officer, a.ID, status(entities.AlertStatusEscalated))
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeMissingFields, appErr.Code)
	assert.Equal(t, []string{"str_case_id"}, appErr.Fields)

	foreign := f.strCase(t, uuid.New())
	_, err = f.svc.Update(ctx, f.officer, a.ID, entities.UpdateAlertInput{Status: entities.AlertStatusEscalated, STRCaseID: &foreign.ID})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	c := f.strCase(t, f.customer.ID)
	escalated, err := f.svc.Update(ctx, f.officer, a.ID, entities.UpdateAlertInput{Status: entities.AlertStatusEscalated, STRCaseID: &c.ID})
	require.NoError(t, err)
	assert.Equal(t, entities.AlertStatusEscalated, escalated.Status)
	assert.Equal(t, c.ID, *escalated.STRCaseID)

	// Escalated alerts may still be closed.
	_, err = f.svc.Update(ctx, f.officer, a.ID, entities.UpdateAlertInput{Status: entities.AlertStatusClosed, Notes: "reported"})
	assert.NoError(t, err)
}

func TestLinkCase_ThenEscalate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.ingest(t)
	c := f.strCase(t, f.customer.ID)

	linked, err := f.svc.LinkCase(ctx, f.officer, a.ID, c.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.AlertStatusOpen, linked.Status)

	escalated, err := f.svc.Update(ctx, f.officer, a.ID, status(entities.AlertStatusEscalated))
	require.NoError(t, err)
	assert.Equal(t, c.ID, *escalated.STRCaseID)
}

func TestList_Stats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.ingest(t)
	f.ingest(t)

	_, err := f.svc.Update(ctx, f.officer, first.ID, status(entities.AlertStatusUnderReview))
	require.NoError(t, err)

	page, err := f.svc.List(ctx, f.officer, entities.ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	stats, ok := page.Stats.(*entities.AlertStats)
	require.True(t, ok)
	assert.Equal(t, 1, stats.Open)
	assert.Equal(t, 1, stats.UnderReview)
}
