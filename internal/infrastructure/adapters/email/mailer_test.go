package email

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/pkg/i18n"
)

type fakeSender struct {
	sent   []*mail.SGMailV3
	status int
	err    error
}

func (f *fakeSender) SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error) {
	f.sent = append(f.sent, email)
	if f.err != nil {
		return nil, f.err
	}
	return &rest.Response{StatusCode: f.status}, nil
}

func newTestMailer(t *testing.T, s *fakeSender) *Mailer {
	t.Helper()
	m, err := NewMailer(Config{Provider: "log", FromEmail: "no-reply@trous.sa", FromName: "Trous", DashboardURL: "https://app.trous.sa/"}, zap.NewNop())
	require.NoError(t, err)
	m.client = s
	return m
}

func TestNewMailer_Validation(t *testing.T) {
	_, err := NewMailer(Config{Provider: "sendgrid", FromEmail: "a@b.c"}, zap.NewNop())
	assert.ErrorContains(t, err, "api key")

	_, err = NewMailer(Config{Provider: "smtp", FromEmail: "a@b.c"}, zap.NewNop())
	assert.ErrorContains(t, err, "unsupported")

	_, err = NewMailer(Config{Provider: "log"}, zap.NewNop())
	assert.Error(t, err)

	m, err := NewMailer(Config{Provider: "log", FromEmail: "a@b.c"}, zap.NewNop())
	require.NoError(t, err)
	assert.NoError(t, m.SendKYCLink(context.Background(), "c@d.e", "", "https://x", i18n.English, time.Now()))
}

func TestSendKYCLink_Localized(t *testing.T) {
	s := &fakeSender{status: 202}
	m := newTestMailer(t, s)
	expires := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, m.SendKYCLink(context.Background(), "client@example.com", "Sara", "https://app.trous.sa/kyc/abc", i18n.Arabic, expires))
	require.NoError(t, m.SendKYCLink(context.Background(), "client@example.com", "Sara", "https://app.trous.sa/kyc/abc", i18n.English, expires))
	require.Len(t, s.sent, 2)

	ar := s.sent[0]
	assert.Equal(t, "استكمال بيانات اعرف عميلك", ar.Subject)
	require.Len(t, ar.Content, 2)
	assert.Contains(t, ar.Content[1].Value, `dir="rtl"`)
	assert.Contains(t, ar.Content[1].Value, "https://app.trous.sa/kyc/abc")

	en := s.sent[1]
	assert.Equal(t, "Complete your KYC verification", en.Subject)
	assert.Contains(t, en.Content[0].Value, "2026-03-01 12:00 UTC")
	assert.Equal(t, "client@example.com", en.Personalizations[0].To[0].Address)
}

func TestSendEscalation_Bilingual(t *testing.T) {
	s := &fakeSender{status: 202}
	m := newTestMailer(t, s)
	id := uuid.New()
	n := &entities.Notification{Type: entities.NotificationAlertEscalated, Title: "Alert escalated <urgent>",
		TitleAR: "تم تصعيد التنبيه", Message: "Review now", MessageAR: "راجع الآن", ResourceType: "alert", ResourceID: &id}

	require.NoError(t, m.SendEscalation(context.Background(), "mlro@trous.sa", n))
	require.Len(t, s.sent, 1)
	assert.Equal(t, "[AML] Alert escalated <urgent> | تم تصعيد التنبيه", s.sent[0].Subject)
	body := s.sent[0].Content[1].Value
	assert.Contains(t, body, "Alert escalated &lt;urgent&gt;")
	assert.Contains(t, body, "https://app.trous.sa/alerts?id="+id.String())
	assert.Contains(t, s.sent[0].Content[0].Value, "راجع الآن")
}

func TestSend_Errors(t *testing.T) {
	m := newTestMailer(t, &fakeSender{err: errors.New("dial tcp: timeout")})
	assert.ErrorContains(t, m.SendKYCLink(context.Background(), "a@b.c", "", "l", i18n.English, time.Now()), "failed to send email")

	m = newTestMailer(t, &fakeSender{status: 401})
	assert.ErrorContains(t, m.SendKYCLink(context.Background(), "a@b.c", "", "l", i18n.English, time.Now()), "status 401")
}
