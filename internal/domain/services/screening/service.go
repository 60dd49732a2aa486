package screening

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
	"github.com/trous-aml/trous_service/pkg/metrics"
)

const entity = "screening result"

// Provider checks one customer against one list family.
type Provider interface {
	Name() string
	Screen(ctx context.Context, customer *entities.Customer, screeningType entities.ScreeningType) (*entities.ScreeningMatch, error)
}

type Service struct {
	results   repositories.ScreeningRepository
	customers repositories.CustomerRepository
	provider  Provider
	audit     audit.Recorder
	notifier  notification.Notifier
	logger    *zap.Logger
	clock     func() time.Time
}

func NewService(
	results repositories.ScreeningRepository,
	customers repositories.CustomerRepository,
	provider Provider,
	auditRecorder audit.Recorder,
	notifier notification.Notifier,
	logger *zap.Logger,
) *Service {
	return &Service{
		results:   results,
		customers: customers,
		provider:  provider,
		audit:     auditRecorder,
		notifier:  notifier,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// ScreenCustomer runs every screening type for the customer and stores each
// outcome. A provider failure is stored as an error result, not returned.
func (s *Service) ScreenCustomer(ctx context.Context, actor entities.Actor, customer *entities.Customer) ([]*entities.ScreeningResult, error) {
	results := make([]*entities.ScreeningResult, 0, len(entities.AllScreeningTypes))
	var pepFlag, sanctionsFlag *string

	for _, screeningType := range entities.AllScreeningTypes {
		result := &entities.ScreeningResult{
			ID:            uuid.New(),
			OrgID:         customer.OrgID,
			CustomerID:    customer.ID,
			ScreeningType: screeningType,
			Provider:      s.provider.Name(),
			MatchedLists:  []string{},
			ScreenedAt:    s.clock(),
		}

		match, err := s.provider.Screen(ctx, customer, screeningType)
		if err != nil {
			s.logger.Warn("Screening provider call failed",
				zap.Error(err),
				zap.String("customer_id", customer.ID.String()),
				zap.String("screening_type", string(screeningType)),
			)
			result.Status = entities.ScreeningStatusError
			result.RawResponse = err.Error()
		} else {
			result.Status = match.Status
			result.MatchScore = match.MatchScore
			result.RawResponse = match.RawResponse
			if match.MatchedLists != nil {
				result.MatchedLists = match.MatchedLists
			}
		}

		if err := s.results.Create(ctx, result); err != nil {
			return results, fmt.Errorf("failed to store screening result: %w", err)
		}
		metrics.ScreeningChecksTotal.WithLabelValues(string(screeningType), string(result.Status)).Inc()
		results = append(results, result)

		if result.Status.Reviewable() {
			flag := entities.FlagPotential
			switch screeningType {
			case entities.ScreeningTypePEP:
				pepFlag = &flag
			case entities.ScreeningTypeSanctions:
				sanctionsFlag = &flag
			}
		}
	}

	if pepFlag != nil || sanctionsFlag != nil {
		if err := s.customers.UpdateScreeningFlags(ctx, customer.OrgID, customer.ID, pepFlag, sanctionsFlag); err != nil {
			return results, fmt.Errorf("failed to update customer screening status: %w", err)
		}
		if pepFlag != nil {
			customer.PEPStatus = *pepFlag
		}
		if sanctionsFlag != nil {
			customer.SanctionsStatus = *sanctionsFlag
		}
	}

	return results, nil
}

// HasHit reports whether any result is a definite hit.
func HasHit(results []*entities.ScreeningResult) bool {
	for _, r := range results {
		if r.Status == entities.ScreeningStatusHit {
			return true
		}
	}
	return false
}

// NeedsReview reports whether any result is a hit or a possible match.
func NeedsReview(results []*entities.ScreeningResult) bool {
	for _, r := range results {
		if r.Status.Reviewable() {
			return true
		}
	}
	return false
}

func (s *Service) List(ctx context.Context, actor entities.Actor, params entities.ListParams) (entities.Page[*entities.ScreeningResult], error) {
	params.Normalize()
	items, total, err := s.results.List(ctx, actor.OrgID, params)
	if err != nil {
		return entities.Page[*entities.ScreeningResult]{}, fmt.Errorf("failed to list screening results: %w", err)
	}
	stats, err := s.results.Stats(ctx, actor.OrgID)
	if err != nil {
		return entities.Page[*entities.ScreeningResult]{}, fmt.Errorf("failed to get screening stats: %w", err)
	}
	page := entities.NewPage(items, total, params)
	page.Stats = stats
	return page, nil
}

func (s *Service) Get(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.ScreeningResult, error) {
	result, err := s.results.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get screening result: %w", err)
	}
	if result == nil {
		return nil, apperrors.NotFound(entity)
	}
	return result, nil
}

// Review records the officer decision on a hit or possible match. A result is
// reviewable exactly once; later attempts fail with AlreadyReviewed.
func (s *Service) Review(ctx context.Context, actor entities.Actor, id uuid.UUID, decision entities.ReviewDecision) (*entities.ScreeningResult, error) {
	if !decision.Valid() {
		return nil, apperrors.NewLocalizedValidationError("decision",
			"decision must be confirmed_hit, false_positive or escalated", "قرار المراجعة غير صالح")
	}

	result, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if !result.Status.Reviewable() {
		return nil, audit.Rejected(entity, apperrors.Conflict(
			"only hit or possible_match results can be reviewed",
			"يمكن مراجعة النتائج المطابقة أو المحتمل مطابقتها فقط"))
	}
	if err := s.validateReview(result, decision); err != nil {
		return nil, err
	}

	now := s.clock()
	result.ReviewDecision = &decision
	result.ReviewedByID = &actor.UserID
	result.ReviewedAt = &now

	ok, err := s.results.RecordReview(ctx, result)
	if err != nil {
		return nil, fmt.Errorf("failed to record screening review: %w", err)
	}
	if !ok {
		return nil, audit.Rejected(entity, apperrors.AlreadyReviewed())
	}

	if err := s.applyCustomerFlag(ctx, result, decision); err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionScreeningReview, "screening_result", &result.ID, map[string]interface{}{
		"decision":       string(decision),
		"screening_type": string(result.ScreeningType),
		"customer_id":    result.CustomerID.String(),
	}); err != nil {
		s.logger.Warn("failed to audit screening review", zap.Error(err), zap.String("result_id", result.ID.String()))
	}
	if err := s.audit.RecordTransition(ctx, actor, entity, result.ID, string(entities.ReviewPending), string(decision)); err != nil {
		s.logger.Warn("failed to audit screening transition", zap.Error(err))
	}

	if decision == entities.ReviewEscalated {
		s.notify(ctx, notification.Broadcast(actor.OrgID, entities.NotificationScreeningHit, "screening_result", result.ID,
			"Screening match escalated", "تم تصعيد نتيجة فحص",
			fmt.Sprintf("A %s match was escalated for further review", result.ScreeningType),
			"تم تصعيد مطابقة فحص لمزيد من المراجعة"))
	}

	s.logger.Info("Screening result reviewed",
		zap.String("result_id", result.ID.String()),
		zap.String("decision", string(decision)),
		zap.String("reviewed_by", actor.UserID.String()),
	)
	return result, nil
}

func (s *Service) validateReview(result *entities.ScreeningResult, decision entities.ReviewDecision) error {
	err := entities.ScreeningReviewMachine.Validate(result.ReviewState(), decision)
	if err == nil {
		return nil
	}
	if apperrors.IsCode(err, apperrors.CodeAlreadyTerminal) {
		return audit.Rejected(entity, apperrors.AlreadyReviewed())
	}
	return audit.Rejected(entity, err)
}

func (s *Service) applyCustomerFlag(ctx context.Context, result *entities.ScreeningResult, decision entities.ReviewDecision) error {
	flag := decision.CustomerFlag()
	var err error
	switch result.ScreeningType {
	case entities.ScreeningTypePEP:
		err = s.customers.UpdateScreeningFlags(ctx, result.OrgID, result.CustomerID, &flag, nil)
	case entities.ScreeningTypeSanctions:
		err = s.customers.UpdateScreeningFlags(ctx, result.OrgID, result.CustomerID, nil, &flag)
	}
	if err != nil {
		return fmt.Errorf("failed to update customer screening status: %w", err)
	}
	return nil
}

// Batch re-screens the given customers, or every customer due for screening
// when ids is empty.
func (s *Service) Batch(ctx context.Context, actor entities.Actor, ids []uuid.UUID, limit int) (*entities.BatchScreeningResult, error) {
	var customers []*entities.Customer
	if len(ids) == 0 {
		due, err := s.customers.ListForScreening(ctx, actor.OrgID, s.clock(), limit)
		if err != nil {
			return nil, fmt.Errorf("failed to list customers for screening: %w", err)
		}
		customers = due
	} else {
		for _, id := range ids {
			customer, err := s.customers.GetByID(ctx, actor.OrgID, id)
			if err != nil {
				return nil, fmt.Errorf("failed to get customer: %w", err)
			}
			if customer == nil {
				return nil, apperrors.NotFound("customer")
			}
			customers = append(customers, customer)
		}
	}

	return s.screenAll(ctx, actor, customers)
}

// RefreshStale re-screens customers whose latest screening predates maxAge.
func (s *Service) RefreshStale(ctx context.Context, orgID uuid.UUID, maxAge time.Duration, limit int) (*entities.BatchScreeningResult, error) {
	customers, err := s.customers.ListForScreening(ctx, orgID, s.clock().Add(-maxAge), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list customers for screening: %w", err)
	}
	return s.screenAll(ctx, entities.SystemActor(orgID), customers)
}

func (s *Service) screenAll(ctx context.Context, actor entities.Actor, customers []*entities.Customer) (*entities.BatchScreeningResult, error) {
	summary := &entities.BatchScreeningResult{}
	for _, customer := range customers {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		results, err := s.ScreenCustomer(ctx, actor, customer)
		if err != nil {
			return summary, err
		}
		summary.Screened++
		if NeedsReview(results) {
			summary.Hits++
		} else {
			summary.Clear++
		}
	}

	s.logger.Info("Batch screening completed",
		zap.String("org_id", actor.OrgID.String()),
		zap.Int("screened", summary.Screened),
		zap.Int("hits", summary.Hits),
	)
	return summary, nil
}

func (s *Service) notify(ctx context.Context, n *entities.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("failed to raise notification", zap.Error(err))
	}
}
