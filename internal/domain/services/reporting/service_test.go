package reporting

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/scoring"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/infrastructure/repositories/memory"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

type fixture struct {
	store *memory.Store
	svc   *Service
	admin entities.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	orgID := uuid.New()
	store.Organizations().Put(&entities.Organization{ID: orgID, NameEN: "Trous Exchange", NameAR: "تروس للصرافة"})

	svc := NewService(store.Organizations(), store.Customers(), store.Alerts(), store.STRCases(),
		store.Policies(), store.RiskAssessments(), store.MonitoringRules(),
		audit.NewService(store.Audit(), nil, logger), logger)
	return &fixture{store: store, svc: svc, admin: entities.Actor{UserID: uuid.New(), OrgID: orgID, Role: entities.RoleAdmin}}
}

func (f *fixture) approvePolicy(t *testing.T, version string, at time.Time) *entities.Policy {
	t.Helper()
	ctx := context.Background()
	p := &entities.Policy{ID: uuid.New(), OrgID: f.admin.OrgID, Version: version, Title: "AML Policy",
		Status: entities.PolicyStatusDraft, CreatedBy: uuid.New()}
	require.NoError(t, f.store.Policies().Create(ctx, p))
	p.ApprovedBy = &f.admin.UserID
	p.ApprovedAt = &at
	ok, err := f.store.Policies().Approve(ctx, p)
	require.NoError(t, err)
	require.True(t, ok)
	return p
}

func (f *fixture) approvedAssessment(t *testing.T, at time.Time) *entities.RiskAssessment {
	t.Helper()
	ctx := context.Background()
	a := &entities.RiskAssessment{ID: uuid.New(), OrgID: f.admin.OrgID, Status: entities.AssessmentStatusApproved,
		OverallRiskScore: 2.5, OverallRiskLevel: string(scoring.LevelMedium), AssessedBy: uuid.New(),
		ApprovedBy: &f.admin.UserID, ApprovedAt: &at}
	require.NoError(t, f.store.RiskAssessments().Create(ctx, a))
	return a
}

func TestCheckReadiness(t *testing.T) {
	tests := []struct {
		name        string
		policies    int
		assessments int
		ready       bool
		missing     []string
	}{
		{"nothing approved", 0, 0, false, []string{PrerequisitePolicy, PrerequisiteAssessment}},
		{"policy only", 1, 0, false, []string{PrerequisiteAssessment}},
		{"assessment only", 0, 2, false, []string{PrerequisitePolicy}},
		{"both", 1, 1, true, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := CheckReadiness(tt.policies, tt.assessments)
			assert.Equal(t, tt.ready, r.Ready)
			assert.Equal(t, tt.missing, r.Missing)
		})
	}
}

func TestDashboard_Empty(t *testing.T) {
	f := newFixture(t)

	d, err := f.svc.Dashboard(context.Background(), f.admin)
	require.NoError(t, err)
	assert.Zero(t, d.CustomerTotal)
	assert.Nil(t, d.LatestPolicy)
	assert.False(t, d.Inspection.Ready)
	require.Len(t, d.Checklist, 4)
	for _, item := range d.Checklist {
		assert.False(t, item.Done, item.Key)
	}
}

func TestDashboard_LatestApproved(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	f.approvePolicy(t, "1.0", now.Add(-48*time.Hour))
	current := f.approvePolicy(t, "2.0", now.Add(-time.Hour))
	f.approvedAssessment(t, now.Add(-72*time.Hour))
	latest := f.approvedAssessment(t, now.Add(-2*time.Hour))

	d, err := f.svc.Dashboard(context.Background(), f.admin)
	require.NoError(t, err)
	require.NotNil(t, d.LatestPolicy)
	assert.Equal(t, current.ID, d.LatestPolicy.ID)
	require.NotNil(t, d.LatestAssessment)
	assert.Equal(t, latest.ID, d.LatestAssessment.ID)
	assert.True(t, d.Inspection.Ready)
	assert.Empty(t, d.Inspection.Missing)
	assert.True(t, d.Checklist[0].Done)
	assert.True(t, d.Checklist[1].Done)
}

func TestInspectionPack_NotReady(t *testing.T) {
	f := newFixture(t)
	f.approvePolicy(t, "1.0", time.Now().UTC())

	_, err := f.svc.InspectionPack(context.Background(), f.admin)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, []string{PrerequisiteAssessment}, appErr.Fields)
	assert.Equal(t, 409, apperrors.StatusOf(err))
}

func TestInspectionPack_Ready(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()
	f.approvePolicy(t, "1.0", now)
	f.approvedAssessment(t, now)

	pack, err := f.svc.InspectionPack(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, "Trous Exchange", pack.Organization.NameEN)
	assert.Len(t, pack.Policies, 1)
	require.Len(t, pack.RiskAssessments, 1)
	assert.Empty(t, pack.RiskAssessments[0].Factors)

	logs, _, err := f.store.Audit().List(ctx, f.admin.OrgID, entities.ListParams{})
	require.NoError(t, err)
	require.NotEmpty(t, logs)
	assert.Equal(t, entities.AuditActionDataExport, logs[0].Action)
}
