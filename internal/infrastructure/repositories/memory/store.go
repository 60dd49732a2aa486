// Package memory is an in-process implementation of the repository interfaces.
// It backs the "memory" storage driver for local runs and the service tests.
package memory

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
)

var (
	_ repositories.OrganizationRepository   = (*OrganizationRepository)(nil)
	_ repositories.CustomerRepository       = (*CustomerRepository)(nil)
	_ repositories.KYCRequestRepository     = (*KYCRequestRepository)(nil)
	_ repositories.AlertRepository          = (*AlertRepository)(nil)
	_ repositories.ScreeningRepository      = (*ScreeningRepository)(nil)
	_ repositories.MonitoringRuleRepository = (*MonitoringRuleRepository)(nil)
	_ repositories.STRCaseRepository        = (*STRCaseRepository)(nil)
	_ repositories.PolicyRepository         = (*PolicyRepository)(nil)
	_ repositories.RiskAssessmentRepository = (*RiskAssessmentRepository)(nil)
	_ repositories.TransactionRepository    = (*TransactionRepository)(nil)
	_ repositories.NotificationRepository   = (*NotificationRepository)(nil)
	_ repositories.AuditRepository          = (*AuditRepository)(nil)
)

// Store holds every table. Repositories returned by its accessors share one lock.
type Store struct {
	mu sync.RWMutex

	orgs          map[uuid.UUID]*entities.Organization
	customers     map[uuid.UUID]*entities.Customer
	kycRequests   map[uuid.UUID]*entities.KYCRequest
	alerts        map[uuid.UUID]*entities.Alert
	screenings    map[uuid.UUID]*entities.ScreeningResult
	rules         map[uuid.UUID]*entities.MonitoringRule
	strCases      map[uuid.UUID]*entities.STRCase
	policies      map[uuid.UUID]*entities.Policy
	assessments   map[uuid.UUID]*entities.RiskAssessment
	factors       map[uuid.UUID]*entities.RiskFactor
	transactions  map[uuid.UUID]*entities.Transaction
	notifications map[uuid.UUID]*entities.Notification
	audit         map[uuid.UUID][]*entities.AuditLog

	now func() time.Time
}

func NewStore() *Store {
	return &Store{
		orgs:          make(map[uuid.UUID]*entities.Organization),
		customers:     make(map[uuid.UUID]*entities.Customer),
		kycRequests:   make(map[uuid.UUID]*entities.KYCRequest),
		alerts:        make(map[uuid.UUID]*entities.Alert),
		screenings:    make(map[uuid.UUID]*entities.ScreeningResult),
		rules:         make(map[uuid.UUID]*entities.MonitoringRule),
		strCases:      make(map[uuid.UUID]*entities.STRCase),
		policies:      make(map[uuid.UUID]*entities.Policy),
		assessments:   make(map[uuid.UUID]*entities.RiskAssessment),
		factors:       make(map[uuid.UUID]*entities.RiskFactor),
		transactions:  make(map[uuid.UUID]*entities.Transaction),
		notifications: make(map[uuid.UUID]*entities.Notification),
		audit:         make(map[uuid.UUID][]*entities.AuditLog),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *Store) Organizations() *OrganizationRepository     { return &OrganizationRepository{s} }
func (s *Store) Customers() *CustomerRepository             { return &CustomerRepository{s} }
func (s *Store) KYCRequests() *KYCRequestRepository         { return &KYCRequestRepository{s} }
func (s *Store) Alerts() *AlertRepository                   { return &AlertRepository{s} }
func (s *Store) Screenings() *ScreeningRepository           { return &ScreeningRepository{s} }
func (s *Store) MonitoringRules() *MonitoringRuleRepository { return &MonitoringRuleRepository{s} }
func (s *Store) STRCases() *STRCaseRepository               { return &STRCaseRepository{s} }
func (s *Store) Policies() *PolicyRepository                { return &PolicyRepository{s} }
func (s *Store) RiskAssessments() *RiskAssessmentRepository { return &RiskAssessmentRepository{s} }
func (s *Store) Transactions() *TransactionRepository       { return &TransactionRepository{s} }
func (s *Store) Notifications() *NotificationRepository     { return &NotificationRepository{s} }
func (s *Store) Audit() *AuditRepository                    { return &AuditRepository{s} }

// stamp fills creation and update timestamps the way the database defaults do.
func (s *Store) stamp(createdAt, updatedAt *time.Time) {
	now := s.now()
	if createdAt != nil && createdAt.IsZero() {
		*createdAt = now
	}
	if updatedAt != nil {
		*updatedAt = now
	}
}

// paginate sorts newest first and slices out the requested page.
func paginate[T any](items []T, createdAt func(T) time.Time, params entities.ListParams) ([]T, int) {
	sort.SliceStable(items, func(i, j int) bool {
		return createdAt(items[i]).After(createdAt(items[j]))
	})
	total := len(items)
	params.Normalize()
	start := params.Offset()
	if start >= total {
		return []T{}, total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}
	return items[start:end], total
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func copyOf[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}
