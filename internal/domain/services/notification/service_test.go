package notification

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/infrastructure/repositories/memory"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

func TestBroadcastAndDirect(t *testing.T) {
	svc := NewService(memory.NewStore().Notifications(), zap.NewNop())
	ctx := context.Background()
	orgID := uuid.New()
	alice := entities.Actor{UserID: uuid.New(), OrgID: orgID, Role: entities.RoleOfficer}
	bob := entities.Actor{UserID: uuid.New(), OrgID: orgID, Role: entities.RoleViewer}

	require.NoError(t, svc.Notify(ctx, Broadcast(orgID, entities.NotificationAlertEscalated, "alert", uuid.New(),
		"New alert", "تنبيه جديد", "A new alert was raised", "تم إنشاء تنبيه جديد")))
	require.NoError(t, svc.Notify(ctx, &entities.Notification{
		OrgID: orgID, UserID: &alice.UserID, Type: entities.NotificationAlertEscalated, Title: "Assigned to you",
	}))

	count, err := svc.UnreadCount(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	count, err = svc.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	page, err := svc.List(ctx, bob, entities.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	require.NoError(t, svc.MarkRead(ctx, bob, page.Items[0].ID))

	count, err = svc.UnreadCount(ctx, bob)
	require.NoError(t, err)
	assert.Zero(t, count)

	updated, err := svc.MarkAllRead(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), updated)
}

func TestMarkRead_OtherUser(t *testing.T) {
	svc := NewService(memory.NewStore().Notifications(), zap.NewNop())
	ctx := context.Background()
	orgID := uuid.New()
	owner := uuid.New()

	n := &entities.Notification{OrgID: orgID, UserID: &owner, Type: entities.NotificationAlertEscalated, Title: "Private"}
	require.NoError(t, svc.Notify(ctx, n))

	other := entities.Actor{UserID: uuid.New(), OrgID: orgID, Role: entities.RoleOfficer}
	assert.ErrorIs(t, svc.MarkRead(ctx, other, n.ID), apperrors.ErrNotFound)
}

type recordingMailer struct {
	to   []string
	sent []*entities.Notification
	err  error
}

func (m *recordingMailer) SendEscalation(ctx context.Context, to string, n *entities.Notification) error {
	m.to = append(m.to, to)
	m.sent = append(m.sent, n)
	return m.err
}

func TestNotify_MailsEscalations(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewService(memory.NewStore().Notifications(), zap.NewNop()).WithEscalationMail(mailer, "mlro@trous.sa")
	ctx := context.Background()
	orgID := uuid.New()

	require.NoError(t, svc.Notify(ctx, Broadcast(orgID, entities.NotificationAlertEscalated, "alert", uuid.New(),
		"Alert escalated", "تم تصعيد التنبيه", "", "")))
	require.NoError(t, svc.Notify(ctx, Broadcast(orgID, entities.NotificationKYCSubmitted, "kyc_request", uuid.New(),
		"KYC submitted", "", "", "")))

	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"mlro@trous.sa"}, mailer.to)
	assert.Equal(t, entities.NotificationAlertEscalated, mailer.sent[0].Type)
}

func TestNotify_MailFailureIsNotFatal(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	repo := memory.NewStore().Notifications()
	svc := NewService(repo, zap.NewNop()).WithEscalationMail(mailer, "mlro@trous.sa")
	orgID := uuid.New()

	require.NoError(t, svc.Notify(context.Background(), Broadcast(orgID, entities.NotificationSTRFiled, "str_case", uuid.New(),
		"STR filed", "", "", "")))
	count, err := svc.UnreadCount(context.Background(), entities.Actor{UserID: uuid.New(), OrgID: orgID})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWithEscalationMail_EmptyInbox(t *testing.T) {
	mailer := &recordingMailer{}
	svc := NewService(memory.NewStore().Notifications(), zap.NewNop()).WithEscalationMail(mailer, "")

	require.NoError(t, svc.Notify(context.Background(), Broadcast(uuid.New(), entities.NotificationScreeningHit, "screening_result", uuid.New(),
		"Screening hit", "", "", "")))
	assert.Empty(t, mailer.sent)
}
