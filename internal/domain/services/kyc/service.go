package kyc

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	"github.com/trous-aml/trous_service/internal/domain/services/screening"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
	"github.com/trous-aml/trous_service/pkg/i18n"
)

const (
	entity         = "kyc request"
	tokenBytes     = 32
	DefaultLinkTTL = 7 * 24 * time.Hour
)

// Screener runs the advisory screening that follows an approval.
type Screener interface {
	ScreenCustomer(ctx context.Context, actor entities.Actor, customer *entities.Customer) ([]*entities.ScreeningResult, error)
}

// LinkMailer sends the public form link to the customer.
type LinkMailer interface {
	SendKYCLink(ctx context.Context, to, recipientName, link string, locale i18n.Locale, expiresAt time.Time) error
}

type Config struct {
	// PublicBaseURL is the dashboard origin the form link points at.
	PublicBaseURL string
	LinkTTL       time.Duration
}

type Service struct {
	requests  repositories.KYCRequestRepository
	orgs      repositories.OrganizationRepository
	screener  Screener
	mailer    LinkMailer
	audit     audit.Recorder
	notifier  notification.Notifier
	cfg       Config
	logger    *zap.Logger
	clock     func() time.Time
}

func NewService(
	requests repositories.KYCRequestRepository,
	orgs repositories.OrganizationRepository,
	screener Screener,
	mailer LinkMailer,
	auditRecorder audit.Recorder,
	notifier notification.Notifier,
	cfg Config,
	logger *zap.Logger,
) *Service {
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = DefaultLinkTTL
	}
	cfg.PublicBaseURL = strings.TrimRight(cfg.PublicBaseURL, "/")
	return &Service{
		requests:  requests,
		orgs:      orgs,
		screener:  screener,
		mailer:    mailer,
		audit:     auditRecorder,
		notifier:  notifier,
		cfg:       cfg,
		logger:    logger,
		clock:     func() time.Time { return time.Now().UTC() },
	}
}

// HashToken is the stored form of a link token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func newToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Create issues a new single-use link. The raw token is only ever returned here.
func (s *Service) Create(ctx context.Context, actor entities.Actor, input entities.CreateKYCRequestInput) (*entities.CreateKYCRequestResult, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}

	now := s.clock()
	req := &entities.KYCRequest{
		ID:             uuid.New(),
		OrgID:          actor.OrgID,
		Status:         entities.KYCStatusGenerated,
		TokenHash:      HashToken(token),
		RecipientEmail: strings.TrimSpace(input.RecipientEmail),
		CreatedBy:      actor.UserID,
		ExpiresAt:      now.Add(s.cfg.LinkTTL),
	}
	if err := s.requests.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("failed to create kyc request: %w", err)
	}

	link := fmt.Sprintf("%s/kyc/%s", s.cfg.PublicBaseURL, token)

	if req.RecipientEmail != "" && s.mailer != nil {
		locale := i18n.Locale(input.Language)
		if locale != i18n.Arabic {
			locale = i18n.English
		}
		if err := s.mailer.SendKYCLink(ctx, req.RecipientEmail, input.RecipientName, link, locale, req.ExpiresAt); err != nil {
			s.logger.Warn("failed to send KYC link email",
				zap.Error(err),
				zap.String("kyc_request_id", req.ID.String()),
			)
		}
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionCreate, "kyc_request", &req.ID, map[string]interface{}{
		"expires_at": req.ExpiresAt,
		"emailed":    req.RecipientEmail != "",
	}); err != nil {
		s.logger.Warn("failed to audit kyc request creation", zap.Error(err))
	}

	s.logger.Info("KYC request created",
		zap.String("kyc_request_id", req.ID.String()),
		zap.String("org_id", actor.OrgID.String()),
	)

	return &entities.CreateKYCRequestResult{ID: req.ID, Token: token, KYCLink: link}, nil
}

func (s *Service) List(ctx context.Context, actor entities.Actor, params entities.ListParams) (entities.Page[*entities.KYCRequest], error) {
	params.Normalize()
	items, total, err := s.requests.List(ctx, actor.OrgID, params)
	if err != nil {
		return entities.Page[*entities.KYCRequest]{}, fmt.Errorf("failed to list kyc requests: %w", err)
	}
	return entities.NewPage(items, total, params), nil
}

func (s *Service) Get(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.KYCRequest, error) {
	req, err := s.requests.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get kyc request: %w", err)
	}
	if req == nil {
		return nil, apperrors.NotFound(entity)
	}
	return req, nil
}

func (s *Service) byToken(ctx context.Context, token string) (*entities.KYCRequest, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, apperrors.NotFound(entity)
	}
	req, err := s.requests.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		return nil, fmt.Errorf("failed to get kyc request: %w", err)
	}
	if req == nil {
		return nil, apperrors.NotFound(entity)
	}
	return req, nil
}

func linkExpired() error {
	return apperrors.Expired("this KYC link has expired", "انتهت صلاحية رابط اعرف عميلك هذا")
}

// PublicForm returns what the unauthenticated form page renders.
func (s *Service) PublicForm(ctx context.Context, token string) (*entities.PublicKYCForm, error) {
	req, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	submitted := req.Status != entities.KYCStatusGenerated
	if !submitted && req.IsExpired(s.clock()) {
		return nil, linkExpired()
	}

	form := &entities.PublicKYCForm{
		Status:    req.Status,
		ExpiresAt: req.ExpiresAt,
		Submitted: submitted,
	}
	org, err := s.orgs.GetByID(ctx, req.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org != nil {
		form.OrganizationName = org.NameEN
		form.OrganizationAR = org.NameAR
	}
	return form, nil
}

// Submit stores the customer's identity and moves the request to Pending.
// The link is single-use: any later submission fails with AlreadySubmitted.
func (s *Service) Submit(ctx context.Context, token string, identity entities.CustomerIdentity, ipAddress string) (*entities.KYCRequest, error) {
	req, err := s.byToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if req.Status != entities.KYCStatusGenerated {
		return nil, audit.Rejected(entity, apperrors.AlreadySubmitted())
	}
	if req.IsExpired(s.clock()) {
		return nil, audit.Rejected(entity, linkExpired())
	}

	identity.Normalize()
	if err := identity.Validate(); err != nil {
		return nil, err
	}

	now := s.clock()
	req.CustomerIdentity = identity
	req.Status = entities.KYCStatusPending
	req.SubmittedAt = &now

	ok, err := s.requests.UpdateIfStatus(ctx, req, entities.KYCStatusGenerated)
	if err != nil {
		return nil, fmt.Errorf("failed to submit kyc request: %w", err)
	}
	if !ok {
		return nil, audit.Rejected(entity, apperrors.AlreadySubmitted())
	}

	actor := entities.SystemActor(req.OrgID)
	actor.IPAddress = ipAddress
	if err := s.audit.Record(ctx, actor, entities.AuditActionKYCSubmit, "kyc_request", &req.ID, map[string]interface{}{
		"customer_type": string(identity.CustomerType),
	}); err != nil {
		s.logger.Warn("failed to audit kyc submission", zap.Error(err))
	}
	if err := s.audit.RecordTransition(ctx, actor, entity, req.ID, string(entities.KYCStatusGenerated), string(entities.KYCStatusPending)); err != nil {
		s.logger.Warn("failed to audit kyc transition", zap.Error(err))
	}

	s.notify(ctx, notification.Broadcast(req.OrgID, entities.NotificationKYCSubmitted, "kyc_request", req.ID,
		"KYC form submitted", "تم إرسال نموذج اعرف عميلك",
		fmt.Sprintf("%s submitted their KYC form and is awaiting review", identity.DisplayName()),
		fmt.Sprintf("أرسل %s نموذج اعرف عميلك وهو بانتظار المراجعة", identity.DisplayName())))

	s.logger.Info("KYC form submitted",
		zap.String("kyc_request_id", req.ID.String()),
		zap.String("org_id", req.OrgID.String()),
	)
	return req, nil
}

// Approve creates the customer from the submitted identity with the assigned
// risk level, then screens it. Screening is advisory: a hit is reported and
// notified but never blocks the approval.
func (s *Service) Approve(ctx context.Context, actor entities.Actor, id uuid.UUID, input entities.ApproveKYCInput) (*entities.ApproveKYCResult, error) {
	if !input.RiskLevel.Valid() {
		return nil, apperrors.NewLocalizedValidationError("risk_level",
			"risk level must be Low, Medium, High or Critical", "مستوى المخاطر غير صالح")
	}

	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := entities.KYCRequestMachine.Validate(req.Status, entities.KYCStatusApproved); err != nil {
		return nil, audit.Rejected(entity, err)
	}

	customer := &entities.Customer{
		ID:               uuid.New(),
		OrgID:            req.OrgID,
		CustomerIdentity: req.CustomerIdentity,
		RiskLevel:        input.RiskLevel,
		KYCRequestID:     &req.ID,
		CreatedBy:        actor.UserID,
	}
	if err := customer.Validate(); err != nil {
		return nil, err
	}

	now := s.clock()
	req.Status = entities.KYCStatusApproved
	req.CustomerID = &customer.ID
	req.ReviewedBy = &actor.UserID
	req.ReviewedAt = &now

	ok, err := s.requests.Approve(ctx, req, customer)
	if errors.Is(err, repositories.ErrUniqueViolation) {
		return nil, s.recheck(ctx, actor, req.ID, entities.KYCStatusApproved, duplicateCustomer())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to approve kyc request: %w", err)
	}
	if !ok {
		return nil, s.recheck(ctx, actor, req.ID, entities.KYCStatusApproved, nil)
	}

	s.recordDecision(ctx, actor, req, entities.AuditActionKYCApprove, map[string]interface{}{
		"customer_id": customer.ID.String(),
		"risk_level":  string(input.RiskLevel),
	})

	result := &entities.ApproveKYCResult{Customer: customer, ScreeningResults: []*entities.ScreeningResult{}}
	needsReview := false
	if s.screener != nil {
		results, err := s.screener.ScreenCustomer(ctx, actor, customer)
		if err != nil {
			s.logger.Warn("Screening after KYC approval failed",
				zap.Error(err),
				zap.String("customer_id", customer.ID.String()),
			)
		}
		if results != nil {
			result.ScreeningResults = results
		}
		result.ScreeningHit = screening.HasHit(results)
		needsReview = screening.NeedsReview(results)
	}

	// Possible matches are not hits but still land in the review queue.
	if needsReview {
		s.notify(ctx, notification.Broadcast(actor.OrgID, entities.NotificationScreeningHit, "customer", customer.ID,
			"Screening match on new customer", "تطابق فحص لعميل جديد",
			fmt.Sprintf("%s matched a sanctions, PEP or adverse media list and needs review", customer.DisplayName()),
			fmt.Sprintf("تطابق %s مع إحدى قوائم الفحص ويحتاج إلى مراجعة", customer.DisplayName())))
	}

	s.logger.Info("KYC request approved",
		zap.String("kyc_request_id", req.ID.String()),
		zap.String("customer_id", customer.ID.String()),
		zap.Bool("screening_hit", result.ScreeningHit),
	)
	return result, nil
}

// Reject closes a pending request without creating a customer.
func (s *Service) Reject(ctx context.Context, actor entities.Actor, id uuid.UUID, reason string) (*entities.KYCRequest, error) {
	req, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := entities.KYCRequestMachine.Validate(req.Status, entities.KYCStatusRejected); err != nil {
		return nil, audit.Rejected(entity, err)
	}

	now := s.clock()
	req.Status = entities.KYCStatusRejected
	req.ReviewedBy = &actor.UserID
	req.ReviewedAt = &now

	ok, err := s.requests.UpdateIfStatus(ctx, req, entities.KYCStatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to reject kyc request: %w", err)
	}
	if !ok {
		return nil, s.recheck(ctx, actor, req.ID, entities.KYCStatusRejected, nil)
	}

	s.recordDecision(ctx, actor, req, entities.AuditActionKYCReject, map[string]interface{}{
		"reason": strings.TrimSpace(reason),
	})
	return req, nil
}

// recheck reloads the request after a lost race and returns the precise
// rejection. fallback is returned when the transition would still be allowed.
func (s *Service) recheck(ctx context.Context, actor entities.Actor, id uuid.UUID, requested entities.KYCStatus, fallback error) error {
	fresh, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if fallback != nil && entities.KYCRequestMachine.Validate(fresh.Status, requested) == nil {
		return audit.Rejected(entity, fallback)
	}
	return audit.Rejected(entity, entities.KYCRequestMachine.Recheck(fresh.Status, requested))
}

func duplicateCustomer() error {
	return apperrors.Conflict(
		"a customer with this national ID or commercial registration already exists",
		"يوجد عميل مسجل بنفس رقم الهوية أو السجل التجاري")
}

func (s *Service) recordDecision(ctx context.Context, actor entities.Actor, req *entities.KYCRequest, action entities.AuditAction, metadata map[string]interface{}) {
	if err := s.audit.Record(ctx, actor, action, "kyc_request", &req.ID, metadata); err != nil {
		s.logger.Warn("failed to audit kyc decision", zap.Error(err), zap.String("kyc_request_id", req.ID.String()))
	}
	if err := s.audit.RecordTransition(ctx, actor, entity, req.ID, string(entities.KYCStatusPending), string(req.Status)); err != nil {
		s.logger.Warn("failed to audit kyc transition", zap.Error(err))
	}
}

func (s *Service) notify(ctx context.Context, n *entities.Notification) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.Warn("failed to raise notification", zap.Error(err))
	}
}
