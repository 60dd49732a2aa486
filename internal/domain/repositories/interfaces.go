package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

// ErrUniqueViolation is returned when an insert or update hits a unique constraint.
var ErrUniqueViolation = errors.New("unique constraint violation")

// Lookups return (nil, nil) when the record does not exist in the organisation.
// Methods named *IfStatus write only when the stored status still equals
// expected and report whether a row was written.

// OrganizationRepository defines tenant persistence
type OrganizationRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Organization, error)
	Update(ctx context.Context, org *entities.Organization) error
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
	// Ensure inserts the organisation unless one with the same id exists.
	Ensure(ctx context.Context, org *entities.Organization) error
}

// CustomerRepository defines customer persistence
type CustomerRepository interface {
	Create(ctx context.Context, customer *entities.Customer) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Customer, error)
	Update(ctx context.Context, customer *entities.Customer) error
	List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.Customer, int, error)
	Stats(ctx context.Context, orgID uuid.UUID) (*entities.CustomerStats, error)
	Count(ctx context.Context, orgID uuid.UUID) (int, error)
	ListForScreening(ctx context.Context, orgID uuid.UUID, screenedBefore time.Time, limit int) ([]*entities.Customer, error)
	UpdateScreeningFlags(ctx context.Context, orgID, id uuid.UUID, pepStatus, sanctionsStatus *string) error
}

// KYCRequestRepository defines KYC request persistence
type KYCRequestRepository interface {
	Create(ctx context.Context, req *entities.KYCRequest) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.KYCRequest, error)
	GetByTokenHash(ctx context.Context, tokenHash string) (*entities.KYCRequest, error)
	List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.KYCRequest, int, error)
	UpdateIfStatus(ctx context.Context, req *entities.KYCRequest, expected entities.KYCStatus) (bool, error)
	// Approve inserts the customer and moves the request from Pending in one
	// transaction. It reports false, and writes nothing, when the request is no
	// longer Pending.
	Approve(ctx context.Context, req *entities.KYCRequest, customer *entities.Customer) (bool, error)
}

// AlertRepository defines alert persistence
type AlertRepository interface {
	Create(ctx context.Context, alert *entities.Alert) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Alert, error)
	List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.Alert, int, error)
	Stats(ctx context.Context, orgID uuid.UUID) (*entities.AlertStats, error)
	OpenSeverityCounts(ctx context.Context, orgID uuid.UUID) (*entities.SeverityCounts, error)
	UpdateIfStatus(ctx context.Context, alert *entities.Alert, expected entities.AlertStatus) (bool, error)
}

// ScreeningRepository defines screening result persistence
type ScreeningRepository interface {
	Create(ctx context.Context, result *entities.ScreeningResult) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.ScreeningResult, error)
	List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.ScreeningResult, int, error)
	Stats(ctx context.Context, orgID uuid.UUID) (*entities.ScreeningStats, error)
	// RecordReview writes the decision only if none is recorded yet.
	RecordReview(ctx context.Context, result *entities.ScreeningResult) (bool, error)
}

// MonitoringRuleRepository defines monitoring rule persistence
type MonitoringRuleRepository interface {
	Create(ctx context.Context, rule *entities.MonitoringRule) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.MonitoringRule, error)
	List(ctx context.Context, orgID uuid.UUID) ([]*entities.MonitoringRule, error)
	Update(ctx context.Context, rule *entities.MonitoringRule) error
	// Delete removes a non-system rule and reports whether a row was deleted.
	Delete(ctx context.Context, orgID, id uuid.UUID) (bool, error)
	HasSystemDefaults(ctx context.Context, orgID uuid.UUID) (bool, error)
}

// STRCaseRepository defines STR case persistence
type STRCaseRepository interface {
	Create(ctx context.Context, c *entities.STRCase) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.STRCase, error)
	List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.STRCase, int, error)
	Stats(ctx context.Context, orgID uuid.UUID) (*entities.STRStats, error)
	// UpdateIfStatus writes notes, report fields and status in one statement.
	UpdateIfStatus(ctx context.Context, c *entities.STRCase, expected entities.STRStatus) (bool, error)
}

// PolicyRepository defines policy persistence
type PolicyRepository interface {
	Create(ctx context.Context, p *entities.Policy) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Policy, error)
	List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.Policy, int, error)
	NextVersion(ctx context.Context, orgID uuid.UUID) (int, error)
	// UpdateDraft writes title and content while the policy is still a Draft.
	UpdateDraft(ctx context.Context, p *entities.Policy) (bool, error)
	// Approve moves a Draft to Approved and supersedes the previously approved
	// policy in one transaction. It reports false when the stored draft is no
	// longer a Draft or lacks content in either language.
	Approve(ctx context.Context, p *entities.Policy) (bool, error)
	ListApproved(ctx context.Context, orgID uuid.UUID) ([]*entities.Policy, error)
}

// RiskAssessmentRepository defines risk assessment and factor persistence
type RiskAssessmentRepository interface {
	// Create fails with ErrUniqueViolation when a Draft already exists.
	Create(ctx context.Context, a *entities.RiskAssessment) error
	GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.RiskAssessment, error)
	GetDraft(ctx context.Context, orgID uuid.UUID) (*entities.RiskAssessment, error)
	List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.RiskAssessment, int, error)
	ListApproved(ctx context.Context, orgID uuid.UUID) ([]*entities.RiskAssessment, error)
	UpdateIfStatus(ctx context.Context, a *entities.RiskAssessment, expected entities.AssessmentStatus) (bool, error)
	// AddFactor inserts the factor only while its assessment is a Draft.
	AddFactor(ctx context.Context, orgID uuid.UUID, f *entities.RiskFactor) (bool, error)
	// UpdateFactor writes editable factor fields only while the assessment is a Draft.
	UpdateFactor(ctx context.Context, orgID uuid.UUID, f *entities.RiskFactor) (bool, error)
	GetFactor(ctx context.Context, assessmentID, factorID uuid.UUID) (*entities.RiskFactor, error)
	ListFactors(ctx context.Context, assessmentID uuid.UUID) ([]*entities.RiskFactor, error)
	// Rescore recomputes and stores the overall score of a Draft from its
	// current factors atomically. It returns nil when the assessment is not a Draft.
	Rescore(ctx context.Context, orgID, id uuid.UUID) (*entities.RiskAssessment, error)
}

// TransactionRepository defines customer transaction persistence
type TransactionRepository interface {
	Create(ctx context.Context, tx *entities.Transaction) error
	ListByCustomer(ctx context.Context, orgID, customerID uuid.UUID, params entities.ListParams) ([]*entities.Transaction, int, error)
}

// NotificationRepository defines in-app notification persistence
type NotificationRepository interface {
	Create(ctx context.Context, n *entities.Notification) error
	List(ctx context.Context, orgID, userID uuid.UUID, params entities.ListParams) ([]*entities.Notification, int, error)
	UnreadCount(ctx context.Context, orgID, userID uuid.UUID) (int, error)
	MarkRead(ctx context.Context, orgID, userID, id uuid.UUID) (bool, error)
	MarkAllRead(ctx context.Context, orgID, userID uuid.UUID) (int64, error)
}

// AuditRepository defines audit trail persistence
type AuditRepository interface {
	Create(ctx context.Context, log *entities.AuditLog) error
	LastHash(ctx context.Context, orgID uuid.UUID) (string, error)
	List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.AuditLog, int, error)
	// ListRange returns entries created in [from, to], oldest first.
	ListRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]*entities.AuditLog, error)
}
