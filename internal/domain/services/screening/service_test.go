package screening

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	"github.com/trous-aml/trous_service/internal/infrastructure/repositories/memory"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

// scriptedProvider answers per screening type; types without an entry are clear.
type scriptedProvider struct {
	answers map[entities.ScreeningType]entities.ScreeningStatus
	fail    map[entities.ScreeningType]bool
}

func (p *scriptedProvider) Name() string { return "scripted" }

func (p *scriptedProvider) Screen(ctx context.Context, customer *entities.Customer, screeningType entities.ScreeningType) (*entities.ScreeningMatch, error) {
	if p.fail[screeningType] {
		return nil, errors.New("provider unavailable")
	}
	status, ok := p.answers[screeningType]
	if !ok {
		return &entities.ScreeningMatch{Status: entities.ScreeningStatusClear}, nil
	}
	return &entities.ScreeningMatch{Status: status, MatchScore: 0.91, MatchedLists: []string{"UN-1267"}}, nil
}

type fixture struct {
	store    *memory.Store
	svc      *Service
	provider *scriptedProvider
	officer  entities.Actor
	customer *entities.Customer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	orgID := uuid.New()

	customer := &entities.Customer{
		ID:    uuid.New(),
		OrgID: orgID,
		CustomerIdentity: entities.CustomerIdentity{
			CustomerType: entities.CustomerTypeIndividual,
			FullName:     "Omar Haddad",
			NationalID:   "2011122233",
			Nationality:  "JO",
		},
		RiskLevel: entities.RiskLevel("Medium"),
	}
	require.NoError(t, store.Customers().Create(context.Background(), customer))

	provider := &scriptedProvider{answers: map[entities.ScreeningType]entities.ScreeningStatus{}, fail: map[entities.ScreeningType]bool{}}
	svc := NewService(store.Screenings(), store.Customers(), provider,
		audit.NewService(store.Audit(), nil, logger), notification.NewService(store.Notifications(), logger), logger)

	return &fixture{
		store:    store,
		svc:      svc,
		provider: provider,
		officer:  entities.Actor{UserID: uuid.New(), OrgID: orgID, Role: entities.RoleOfficer},
		customer: customer,
	}
}

func (f *fixture) screen(t *testing.T) []*entities.ScreeningResult {
	t.Helper()
	results, err := f.svc.ScreenCustomer(context.Background(), f.officer, f.customer)
	require.NoError(t, err)
	return results
}

func byType(results []*entities.ScreeningResult, screeningType entities.ScreeningType) *entities.ScreeningResult {
	for _, r := range results {
		if r.ScreeningType == screeningType {
			return r
		}
	}
	return nil
}

func TestScreenCustomer_RunsEveryType(t *testing.T) {
	f := newFixture(t)
	f.provider.answers[entities.ScreeningTypePEP] = entities.ScreeningStatusPossibleMatch
	f.provider.fail[entities.ScreeningTypeAdverseMedia] = true

	results := f.screen(t)
	require.Len(t, results, 3)
	assert.True(t, NeedsReview(results))
	assert.False(t, HasHit(results), "a possible match is not a hit")
	assert.Equal(t, entities.ScreeningStatusClear, byType(results, entities.ScreeningTypeSanctions).Status)
	assert.Equal(t, entities.ScreeningStatusPossibleMatch, byType(results, entities.ScreeningTypePEP).Status)
	assert.Equal(t, entities.ScreeningStatusError, byType(results, entities.ScreeningTypeAdverseMedia).Status)

	customer, err := f.store.Customers().GetByID(context.Background(), f.officer.OrgID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.FlagPotential, customer.PEPStatus)
	assert.Empty(t, customer.SanctionsStatus)
}

func TestReview_ExactlyOnce(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provider.answers[entities.ScreeningTypeSanctions] = entities.ScreeningStatusHit

	hit := byType(f.screen(t), entities.ScreeningTypeSanctions)

	reviewed, err := f.svc.Review(ctx, f.officer, hit.ID, entities.ReviewConfirmedHit)
	require.NoError(t, err)
	assert.Equal(t, entities.ReviewConfirmedHit, *reviewed.ReviewDecision)
	assert.Equal(t, f.officer.UserID, *reviewed.ReviewedByID)

	_, err = f.svc.Review(ctx, f.officer, hit.ID, entities.ReviewFalsePositive)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyReviewed)

	customer, err := f.store.Customers().GetByID(ctx, f.officer.OrgID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.FlagConfirmed, customer.SanctionsStatus)
}

func TestReview_ClearResultIsNotReviewable(t *testing.T) {
	f := newFixture(t)
	clear := byType(f.screen(t), entities.ScreeningTypeSanctions)

	_, err := f.svc.Review(context.Background(), f.officer, clear.ID, entities.ReviewFalsePositive)
	assert.ErrorIs(t, err, apperrors.ErrConflict)
}

func TestReview_InvalidDecision(t *testing.T) {
	f := newFixture(t)
	f.provider.answers[entities.ScreeningTypePEP] = entities.ScreeningStatusHit
	hit := byType(f.screen(t), entities.ScreeningTypePEP)

	_, err := f.svc.Review(context.Background(), f.officer, hit.ID, entities.ReviewPending)
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestReview_FalsePositiveClearsPEPFlag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provider.answers[entities.ScreeningTypePEP] = entities.ScreeningStatusPossibleMatch
	hit := byType(f.screen(t), entities.ScreeningTypePEP)

	_, err := f.svc.Review(ctx, f.officer, hit.ID, entities.ReviewFalsePositive)
	require.NoError(t, err)

	customer, err := f.store.Customers().GetByID(ctx, f.officer.OrgID, f.customer.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.FlagCleared, customer.PEPStatus)
}

func TestBatch_ScreensDueCustomers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.provider.answers[entities.ScreeningTypeSanctions] = entities.ScreeningStatusHit

	second := &entities.Customer{
		ID:    uuid.New(),
		OrgID: f.officer.OrgID,
		CustomerIdentity: entities.CustomerIdentity{
			CustomerType:     entities.CustomerTypeCorporate,
			CompanyName:      "Najd Logistics",
			CommercialRecord: "1010998877",
		},
		RiskLevel: entities.RiskLevel("Low"),
	}
	require.NoError(t, f.store.Customers().Create(ctx, second))

	summary, err := f.svc.Batch(ctx, f.officer, nil, 50)
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Screened)
	assert.Equal(t, 2, summary.Hits)

	summary, err = f.svc.Batch(ctx, f.officer, []uuid.UUID{second.ID}, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Screened)

	_, err = f.svc.Batch(ctx, f.officer, []uuid.UUID{uuid.New()}, 0)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRefreshStale_SkipsRecentlyScreened(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.screen(t)

	summary, err := f.svc.RefreshStale(ctx, f.officer.OrgID, 24*time.Hour, 100)
	require.NoError(t, err)
	assert.Zero(t, summary.Screened)

	f.svc.clock = func() time.Time { return time.Now().UTC().Add(48 * time.Hour) }
	summary, err = f.svc.RefreshStale(ctx, f.officer.OrgID, 24*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Screened)
}
