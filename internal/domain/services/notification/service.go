package notification

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

// Notifier raises in-app notifications from workflow services.
type Notifier interface {
	Notify(ctx context.Context, n *entities.Notification) error
}

// EscalationMailer copies urgent notifications to a shared mailbox.
type EscalationMailer interface {
	SendEscalation(ctx context.Context, to string, n *entities.Notification) error
}

// mailed are the notification types copied to the compliance inbox.
var mailed = map[entities.NotificationType]bool{
	entities.NotificationAlertEscalated: true,
	entities.NotificationScreeningHit:   true,
	entities.NotificationSTRFiled:       true,
}

type Service struct {
	repo   repositories.NotificationRepository
	mailer EscalationMailer
	inbox  string
	logger *zap.Logger
}

func NewService(repo repositories.NotificationRepository, logger *zap.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// WithEscalationMail enables mail copies of escalation, screening hit and
// filing notifications. An empty inbox leaves mail disabled.
func (s *Service) WithEscalationMail(mailer EscalationMailer, inbox string) *Service {
	if mailer != nil && inbox != "" {
		s.mailer = mailer
		s.inbox = inbox
	}
	return s
}

// Notify stores n. A nil UserID makes it visible to the whole organisation.
func (s *Service) Notify(ctx context.Context, n *entities.Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	if err := s.repo.Create(ctx, n); err != nil {
		s.logger.Error("failed to create notification",
			zap.Error(err),
			zap.String("org_id", n.OrgID.String()),
			zap.String("type", string(n.Type)),
		)
		return fmt.Errorf("failed to create notification: %w", err)
	}

	if s.mailer != nil && mailed[n.Type] {
		if err := s.mailer.SendEscalation(ctx, s.inbox, n); err != nil {
			s.logger.Warn("failed to mail notification",
				zap.Error(err),
				zap.String("notification_id", n.ID.String()),
			)
		}
	}
	return nil
}

func (s *Service) List(ctx context.Context, actor entities.Actor, params entities.ListParams) (entities.Page[*entities.Notification], error) {
	params.Normalize()
	items, total, err := s.repo.List(ctx, actor.OrgID, actor.UserID, params)
	if err != nil {
		return entities.Page[*entities.Notification]{}, fmt.Errorf("failed to list notifications: %w", err)
	}
	return entities.NewPage(items, total, params), nil
}

func (s *Service) UnreadCount(ctx context.Context, actor entities.Actor) (int, error) {
	count, err := s.repo.UnreadCount(ctx, actor.OrgID, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

func (s *Service) MarkRead(ctx context.Context, actor entities.Actor, id uuid.UUID) error {
	ok, err := s.repo.MarkRead(ctx, actor.OrgID, actor.UserID, id)
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	if !ok {
		return apperrors.NotFound("notification")
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, actor entities.Actor) (int64, error) {
	n, err := s.repo.MarkAllRead(ctx, actor.OrgID, actor.UserID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return n, nil
}

// Broadcast builds an organisation-wide notification for a record.
func Broadcast(orgID uuid.UUID, kind entities.NotificationType, resource string, resourceID uuid.UUID, title, titleAR, message, messageAR string) *entities.Notification {
	return &entities.Notification{
		ID:           uuid.New(),
		OrgID:        orgID,
		Type:         kind,
		Title:        title,
		TitleAR:      titleAR,
		Message:      message,
		MessageAR:    messageAR,
		ResourceType: resource,
		ResourceID:   &resourceID,
	}
}
