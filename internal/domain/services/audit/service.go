package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
	"github.com/trous-aml/trous_service/pkg/metrics"
)

// TransitionsTopic carries one event per applied workflow transition.
const TransitionsTopic = "aml.workflow.transitions"

// EventPublisher delivers workflow events to the message bus.
type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

// Recorder is what the workflow services need from the audit trail.
type Recorder interface {
	Record(ctx context.Context, actor entities.Actor, action entities.AuditAction, resource string, resourceID *uuid.UUID, metadata map[string]interface{}) error
	RecordTransition(ctx context.Context, actor entities.Actor, entity string, entityID uuid.UUID, from, to string) error
}

type Service struct {
	repo      repositories.AuditRepository
	publisher EventPublisher
	logger    *zap.Logger
	clock     func() time.Time

	// chainMu serialises hash lookup and insert so entries of one process never fork.
	chainMu sync.Mutex
}

func NewService(repo repositories.AuditRepository, publisher EventPublisher, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// Record appends a hash-chained entry for the actor's organisation.
func (s *Service) Record(ctx context.Context, actor entities.Actor, action entities.AuditAction, resource string, resourceID *uuid.UUID, metadata map[string]interface{}) error {
	entry := &entities.AuditLog{
		ID:         uuid.New(),
		OrgID:      actor.OrgID,
		UserID:     actor.UserID,
		Action:     action,
		Resource:   resource,
		ResourceID: resourceID,
		IPAddress:  actor.IPAddress,
		Metadata:   metadata,
		// Postgres keeps microseconds; the hash must survive a round trip.
		CreatedAt: s.clock().Truncate(time.Microsecond),
	}

	s.chainMu.Lock()
	defer s.chainMu.Unlock()

	previousHash, err := s.repo.LastHash(ctx, actor.OrgID)
	if err != nil {
		return fmt.Errorf("failed to read audit chain head: %w", err)
	}
	entry.SetIntegrityFields(previousHash)

	if err := s.repo.Create(ctx, entry); err != nil {
		s.logger.Error("failed to create audit log",
			zap.Error(err),
			zap.String("action", string(action)),
			zap.String("org_id", actor.OrgID.String()),
			zap.String("user_id", actor.UserID.String()),
		)
		return fmt.Errorf("failed to create audit log: %w", err)
	}

	s.logger.Debug("Audit log created",
		zap.String("action", string(action)),
		zap.String("resource", resource),
		zap.String("hash", entry.CurrentHash),
	)
	return nil
}

// RecordTransition audits an applied transition, counts it and publishes the
// transition event. Publishing failures are logged and do not fail the call.
func (s *Service) RecordTransition(ctx context.Context, actor entities.Actor, entity string, entityID uuid.UUID, from, to string) error {
	s.logger.Info("Status transition",
		zap.String("entity_id", entityID.String()),
		zap.String("entity_type", entity),
		zap.String("from_status", from),
		zap.String("to_status", to),
		zap.String("triggered_by", actor.UserID.String()),
	)
	metrics.WorkflowTransitionsTotal.WithLabelValues(entity, from, to).Inc()

	err := s.Record(ctx, actor, entities.AuditActionStatusTransition, entity, &entityID, map[string]interface{}{
		"from_status": from,
		"to_status":   to,
	})

	if s.publisher != nil {
		event := entities.StatusTransitionLog{
			OrgID:       actor.OrgID,
			EntityID:    entityID,
			EntityType:  entity,
			FromStatus:  from,
			ToStatus:    to,
			TriggeredBy: actor.UserID,
			Timestamp:   s.clock(),
		}
		if pubErr := s.publisher.Publish(ctx, TransitionsTopic, entityID.String(), event); pubErr != nil {
			s.logger.Warn("failed to publish transition event",
				zap.Error(pubErr),
				zap.String("entity_type", entity),
				zap.String("entity_id", entityID.String()),
			)
		}
	}

	return err
}

// List returns one page of the organisation's audit trail, newest first.
func (s *Service) List(ctx context.Context, actor entities.Actor, params entities.ListParams) (entities.Page[*entities.AuditLog], error) {
	params.Normalize()
	logs, total, err := s.repo.List(ctx, actor.OrgID, params)
	if err != nil {
		return entities.Page[*entities.AuditLog]{}, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entities.NewPage(logs, total, params), nil
}

// IntegrityVerificationResult reports tampered entries and broken links in a chain.
type IntegrityVerificationResult struct {
	PeriodStart     time.Time `json:"period_start"`
	PeriodEnd       time.Time `json:"period_end"`
	TotalLogs       int       `json:"total_logs"`
	VerifiedAt      time.Time `json:"verified_at"`
	IntegrityStatus string    `json:"integrity_status"`
	BrokenLinks     []string  `json:"broken_links"`
	TamperedLogs    []string  `json:"tampered_logs"`
}

// VerifyIntegrity recomputes entry hashes over a period and checks each entry
// links to its predecessor. The first entry of the period is trusted as anchor.
func (s *Service) VerifyIntegrity(ctx context.Context, actor entities.Actor, start, end time.Time) (*IntegrityVerificationResult, error) {
	if !actor.IsAdmin() {
		return nil, apperrors.Forbidden("only admins can verify the audit trail", "التحقق من سجل التدقيق متاح للمسؤولين فقط")
	}
	if end.Before(start) {
		return nil, apperrors.NewLocalizedValidationError("to", "end of period is before its start", "نهاية الفترة قبل بدايتها")
	}

	logs, err := s.repo.ListRange(ctx, actor.OrgID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve audit logs: %w", err)
	}

	result := &IntegrityVerificationResult{
		PeriodStart:  start,
		PeriodEnd:    end,
		TotalLogs:    len(logs),
		VerifiedAt:   s.clock(),
		BrokenLinks:  []string{},
		TamperedLogs: []string{},
	}

	var previousHash string
	for i, entry := range logs {
		if !entry.VerifyIntegrity() {
			result.TamperedLogs = append(result.TamperedLogs, entry.ID.String())
		}
		if i > 0 && entry.PreviousHash != previousHash {
			result.BrokenLinks = append(result.BrokenLinks, entry.ID.String())
		}
		previousHash = entry.CurrentHash
	}

	switch {
	case len(result.TamperedLogs) > 0:
		result.IntegrityStatus = "compromised"
	case len(result.BrokenLinks) > 0:
		result.IntegrityStatus = "chain_broken"
	default:
		result.IntegrityStatus = "verified"
	}

	s.logger.Info("Integrity verification completed",
		zap.String("org_id", actor.OrgID.String()),
		zap.String("status", result.IntegrityStatus),
		zap.Int("total_logs", result.TotalLogs),
		zap.Int("tampered_count", len(result.TamperedLogs)),
		zap.Int("broken_links", len(result.BrokenLinks)),
	)

	return result, nil
}

// Rejected counts a guard rejection for entity and returns err unchanged.
func Rejected(entity string, err error) error {
	if appErr, ok := apperrors.As(err); ok {
		metrics.WorkflowRejectionsTotal.WithLabelValues(entity, string(appErr.Code)).Inc()
	}
	return err
}
