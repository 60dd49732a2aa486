package riskassessment

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/scoring"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	"github.com/trous-aml/trous_service/internal/infrastructure/repositories/memory"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

func setup(t *testing.T) (*Service, entities.Actor, entities.Actor) {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	svc := NewService(store.RiskAssessments(), audit.NewService(store.Audit(), nil, logger),
		notification.NewService(store.Notifications(), logger), logger)

	orgID := uuid.New()
	assessor := entities.Actor{UserID: uuid.New(), OrgID: orgID, Role: entities.RoleAdmin}
	approver := entities.Actor{UserID: uuid.New(), OrgID: orgID, Role: entities.RoleAdmin}
	return svc, assessor, approver
}

func factor(category scoring.Category, inherent, control int) entities.AddRiskFactorInput {
	return entities.AddRiskFactorInput{
		Category:             category,
		FactorName:           string(category) + " exposure",
		FactorNameAR:         "تعرض",
		InherentRiskScore:    inherent,
		ControlEffectiveness: control,
	}
}

func TestCreate_OneDraftAtATime(t *testing.T) {
	svc, assessor, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, assessor)
	require.NoError(t, err)
	assert.Equal(t, entities.AssessmentStatusDraft, a.Status)
	assert.Zero(t, a.OverallRiskScore)
	assert.Empty(t, a.OverallRiskLevel)

	_, err = svc.Create(ctx, assessor)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestAddFactor_RescoresAssessment(t *testing.T) {
	svc, assessor, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, assessor)
	require.NoError(t, err)

	// Residual 5 - 1*0.5 = 4.5, Critical.
	a, err = svc.AddFactor(ctx, assessor, a.ID, factor(scoring.CategoryCustomer, 5, 1))
	require.NoError(t, err)
	require.Len(t, a.Factors, 1)
	assert.Equal(t, 4.5, a.Factors[0].ResidualRiskScore)
	assert.Equal(t, 4.5, a.OverallRiskScore)
	assert.Equal(t, string(scoring.LevelCritical), a.OverallRiskLevel)

	// Residual 1 for Geography; (4.5*0.30 + 1*0.20) / 0.50 = 3.1, High.
	a, err = svc.AddFactor(ctx, assessor, a.ID, factor(scoring.CategoryGeography, 2, 5))
	require.NoError(t, err)
	assert.InDelta(t, 3.1, a.OverallRiskScore, 0.001)
	assert.Equal(t, string(scoring.LevelHigh), a.OverallRiskLevel)

	stored, err := svc.Get(ctx, assessor, a.ID)
	require.NoError(t, err)
	assert.InDelta(t, 3.1, stored.OverallRiskScore, 0.001)
	assert.Len(t, stored.Factors, 2)
}

func TestAddFactor_ConcurrentWritersKeepScoreCurrent(t *testing.T) {
	svc, assessor, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, assessor)
	require.NoError(t, err)

	categories := []scoring.Category{
		scoring.CategoryCustomer, scoring.CategoryGeography, scoring.CategoryCustomer,
		scoring.CategoryGeography, scoring.CategoryCustomer, scoring.CategoryGeography,
	}
	var wg sync.WaitGroup
	for i, c := range categories {
		wg.Add(1)
		go func(c scoring.Category, inherent int) {
			defer wg.Done()
			_, err := svc.AddFactor(ctx, assessor, a.ID, factor(c, inherent, 2))
			assert.NoError(t, err)
		}(c, i%5+1)
	}
	wg.Wait()

	stored, err := svc.Get(ctx, assessor, a.ID)
	require.NoError(t, err)
	require.Len(t, stored.Factors, len(categories))

	want := *stored
	want.Rescore()
	assert.InDelta(t, want.OverallRiskScore, stored.OverallRiskScore, 0.0001)
	assert.Equal(t, want.OverallRiskLevel, stored.OverallRiskLevel)
}

func TestAddFactor_Validation(t *testing.T) {
	svc, assessor, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, assessor)
	require.NoError(t, err)

	_, err = svc.AddFactor(ctx, assessor, a.ID, factor("Weather", 3, 3))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.AddFactor(ctx, assessor, a.ID, factor(scoring.CategoryProduct, 6, 3))
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	_, err = svc.AddFactor(ctx, assessor, a.ID, factor(scoring.CategoryProduct, 3, 0))
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestUpdateFactor_CategoryAndNameAreFixed(t *testing.T) {
	svc, assessor, _ := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, assessor)
	require.NoError(t, err)
	a, err = svc.AddFactor(ctx, assessor, a.ID, factor(scoring.CategoryChannel, 4, 2))
	require.NoError(t, err)
	factorID := a.Factors[0].ID

	other := scoring.CategoryProduct
	_, err = svc.UpdateFactor(ctx, assessor, a.ID, factorID, entities.UpdateRiskFactorInput{Category: &other})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	renamed := "Something else"
	_, err = svc.UpdateFactor(ctx, assessor, a.ID, factorID, entities.UpdateRiskFactorInput{FactorName: &renamed})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	arabic := "القنوات الرقمية"
	control := 4
	a, err = svc.UpdateFactor(ctx, assessor, a.ID, factorID, entities.UpdateRiskFactorInput{
		FactorNameAR:         &arabic,
		ControlEffectiveness: &control,
	})
	require.NoError(t, err)
	assert.Equal(t, arabic, a.Factors[0].FactorNameAR)
	assert.Equal(t, 2.0, a.Factors[0].ResidualRiskScore)
	assert.Equal(t, 2.0, a.OverallRiskScore)
	assert.Equal(t, string(scoring.LevelLow), a.OverallRiskLevel)
}

func TestApprove_FourEyesAndFactors(t *testing.T) {
	svc, assessor, approver := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, assessor)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, approver, a.ID)
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeMissingFields, appErr.Code)
	assert.Equal(t, []string{"factors"}, appErr.Fields)

	_, err = svc.AddFactor(ctx, assessor, a.ID, factor(scoring.CategoryTransaction, 3, 2))
	require.NoError(t, err)

	_, err = svc.Approve(ctx, assessor, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrFourEyes)

	approved, err := svc.Approve(ctx, approver, a.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.AssessmentStatusApproved, approved.Status)
	assert.Equal(t, approver.UserID, *approved.ApprovedBy)
}

func TestApproved_IsTerminal(t *testing.T) {
	svc, assessor, approver := setup(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, assessor)
	require.NoError(t, err)
	a, err = svc.AddFactor(ctx, assessor, a.ID, factor(scoring.CategoryCustomer, 3, 3))
	require.NoError(t, err)
	_, err = svc.Approve(ctx, approver, a.ID)
	require.NoError(t, err)

	_, err = svc.Approve(ctx, approver, a.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)

	_, err = svc.AddFactor(ctx, assessor, a.ID, factor(scoring.CategoryProduct, 3, 3))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)

	score := 5
	_, err = svc.UpdateFactor(ctx, assessor, a.ID, a.Factors[0].ID, entities.UpdateRiskFactorInput{InherentRiskScore: &score})
	assert.ErrorIs(t, err, apperrors.ErrAlreadyTerminal)

	// A new Draft may start once the previous one is approved.
	next, err := svc.Create(ctx, assessor)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, next.ID)
}
