// Package email delivers outbound mail: KYC form links to customers and
// escalation copies to the compliance inbox.
package email

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/pkg/i18n"
)

const sendTimeout = 30 * time.Second

type Config struct {
	Provider  string
	APIKey    string
	FromEmail string
	FromName  string
	// DashboardURL prefixes resource links in escalation mails.
	DashboardURL string
}

// sender is the part of the SendGrid client the mailer uses.
type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer sends through SendGrid, or only logs when the provider is "log".
type Mailer struct {
	config Config
	client sender
	logger *zap.Logger
}

func NewMailer(config Config, logger *zap.Logger) (*Mailer, error) {
	provider := strings.ToLower(strings.TrimSpace(config.Provider))
	if strings.TrimSpace(config.FromEmail) == "" {
		return nil, fmt.Errorf("email from address is required")
	}

	m := &Mailer{config: config, logger: logger}
	switch provider {
	case "sendgrid":
		if strings.TrimSpace(config.APIKey) == "" {
			return nil, fmt.Errorf("sendgrid api key is required")
		}
		m.client = sendgrid.NewSendClient(config.APIKey)
	case "log", "":
	default:
		return nil, fmt.Errorf("unsupported email provider: %s", provider)
	}
	return m, nil
}

// SendKYCLink mails the public form link in the customer's language.
func (m *Mailer) SendKYCLink(ctx context.Context, to, recipientName, link string, locale i18n.Locale, expiresAt time.Time) error {
	msg := kycLinkMessage(recipientName, link, locale, expiresAt)
	return m.send(ctx, to, msg)
}

// SendEscalation copies an in-app notification to a mailbox. Both languages
// are included since the inbox is shared.
func (m *Mailer) SendEscalation(ctx context.Context, to string, n *entities.Notification) error {
	link := ""
	if n.ResourceID != nil && m.config.DashboardURL != "" {
		link = resourceLink(m.config.DashboardURL, n.ResourceType, *n.ResourceID)
	}
	return m.send(ctx, to, escalationMessage(n, link))
}

func (m *Mailer) send(ctx context.Context, to string, msg message) error {
	if m.client == nil {
		m.logger.Info("Email not sent, log provider",
			zap.String("to", to),
			zap.String("subject", msg.subject),
		)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	from := mail.NewEmail(m.config.FromName, m.config.FromEmail)
	sg := mail.NewSingleEmail(from, msg.subject, mail.NewEmail("", to), msg.text, msg.html)

	response, err := m.client.SendWithContext(ctx, sg)
	if err != nil {
		m.logger.Error("Failed to send email",
			zap.String("provider", "sendgrid"),
			zap.String("to", to),
			zap.String("subject", msg.subject),
			zap.Error(err))
		return fmt.Errorf("failed to send email: %w", err)
	}
	if response.StatusCode >= 400 {
		m.logger.Error("Email service returned error",
			zap.String("provider", "sendgrid"),
			zap.String("to", to),
			zap.Int("status_code", response.StatusCode),
			zap.String("response_body", response.Body))
		return fmt.Errorf("email service error: status %d", response.StatusCode)
	}

	m.logger.Info("Email sent",
		zap.String("provider", "sendgrid"),
		zap.String("to", to),
		zap.String("subject", msg.subject),
		zap.Int("status_code", response.StatusCode))
	return nil
}
