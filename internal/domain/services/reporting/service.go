// Package reporting builds the read-side aggregations: dashboard counters and
// the regulator inspection pack. Nothing here is cached; every call reads the
// current state.
package reporting

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

// Inspection prerequisites reported when the pack is not ready.
const (
	PrerequisitePolicy     = "approved_policy"
	PrerequisiteAssessment = "approved_risk_assessment"
)

// Readiness is the inspection-pack gate: at least one Approved policy AND at
// least one Approved risk assessment.
type Readiness struct {
	Ready   bool     `json:"ready"`
	Missing []string `json:"missing"`
}

// CheckReadiness evaluates the gate from the two approved counts.
func CheckReadiness(approvedPolicies, approvedAssessments int) Readiness {
	missing := []string{}
	if approvedPolicies == 0 {
		missing = append(missing, PrerequisitePolicy)
	}
	if approvedAssessments == 0 {
		missing = append(missing, PrerequisiteAssessment)
	}
	return Readiness{Ready: len(missing) == 0, Missing: missing}
}

// ChecklistItem is one step of the onboarding checklist on the dashboard.
type ChecklistItem struct {
	Key  string `json:"key"`
	Done bool   `json:"done"`
}

type Dashboard struct {
	CustomerTotal    int                      `json:"customer_total"`
	CustomersByRisk  *entities.CustomerStats  `json:"customers_by_risk"`
	AlertsByStatus   *entities.AlertStats     `json:"alerts_by_status"`
	OpenAlerts       int                      `json:"open_alerts"`
	OpenBySeverity   *entities.SeverityCounts `json:"open_alerts_by_severity"`
	STRTotal         int                      `json:"str_total"`
	STRByStatus      *entities.STRStats       `json:"str_by_status"`
	LatestPolicy     *entities.Policy         `json:"latest_policy"`
	LatestAssessment *entities.RiskAssessment `json:"latest_assessment"`
	Inspection       Readiness                `json:"inspection"`
	Checklist        []ChecklistItem          `json:"checklist"`
	GeneratedAt      time.Time                `json:"generated_at"`
}

type InspectionPack struct {
	Organization    *entities.Organization     `json:"organization"`
	Policies        []*entities.Policy         `json:"policies"`
	RiskAssessments []*entities.RiskAssessment `json:"risk_assessments"`
	MonitoringRules []*entities.MonitoringRule `json:"monitoring_rules"`
	CustomerTotal   int                        `json:"customer_total"`
	CustomersByRisk *entities.CustomerStats    `json:"customers_by_risk"`
	AlertsByStatus  *entities.AlertStats       `json:"alerts_by_status"`
	STRByStatus     *entities.STRStats         `json:"str_by_status"`
	GeneratedAt     time.Time                  `json:"generated_at"`
}

type Service struct {
	orgs        repositories.OrganizationRepository
	customers   repositories.CustomerRepository
	alerts      repositories.AlertRepository
	strCases    repositories.STRCaseRepository
	policies    repositories.PolicyRepository
	assessments repositories.RiskAssessmentRepository
	rules       repositories.MonitoringRuleRepository
	audit       audit.Recorder
	logger      *zap.Logger
	clock       func() time.Time
}

func NewService(
	orgs repositories.OrganizationRepository,
	customers repositories.CustomerRepository,
	alerts repositories.AlertRepository,
	strCases repositories.STRCaseRepository,
	policies repositories.PolicyRepository,
	assessments repositories.RiskAssessmentRepository,
	rules repositories.MonitoringRuleRepository,
	auditRecorder audit.Recorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		orgs:        orgs,
		customers:   customers,
		alerts:      alerts,
		strCases:    strCases,
		policies:    policies,
		assessments: assessments,
		rules:       rules,
		audit:       auditRecorder,
		logger:      logger,
		clock:       func() time.Time { return time.Now().UTC() },
	}
}

type counts struct {
	customerTotal int
	customersRisk *entities.CustomerStats
	alerts        *entities.AlertStats
	strs          *entities.STRStats
}

func (s *Service) loadCounts(ctx context.Context, actor entities.Actor) (*counts, error) {
	var (
		c   counts
		err error
	)
	if c.customerTotal, err = s.customers.Count(ctx, actor.OrgID); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	if c.customersRisk, err = s.customers.Stats(ctx, actor.OrgID); err != nil {
		return nil, fmt.Errorf("failed to get customer stats: %w", err)
	}
	if c.alerts, err = s.alerts.Stats(ctx, actor.OrgID); err != nil {
		return nil, fmt.Errorf("failed to get alert stats: %w", err)
	}
	if c.strs, err = s.strCases.Stats(ctx, actor.OrgID); err != nil {
		return nil, fmt.Errorf("failed to get str case stats: %w", err)
	}
	return &c, nil
}

func strTotal(st *entities.STRStats) int {
	return st.Draft + st.UnderInvestigation + st.FiledToFIU + st.Closed
}

func latestPolicy(items []*entities.Policy) *entities.Policy {
	var latest *entities.Policy
	for _, p := range items {
		if latest == nil || approvedAfter(p.ApprovedAt, latest.ApprovedAt) {
			latest = p
		}
	}
	return latest
}

func latestAssessment(items []*entities.RiskAssessment) *entities.RiskAssessment {
	var latest *entities.RiskAssessment
	for _, a := range items {
		if latest == nil || approvedAfter(a.ApprovedAt, latest.ApprovedAt) {
			latest = a
		}
	}
	return latest
}

func approvedAfter(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	return b == nil || a.After(*b)
}

// Dashboard aggregates the counters of the organisation.
func (s *Service) Dashboard(ctx context.Context, actor entities.Actor) (*Dashboard, error) {
	c, err := s.loadCounts(ctx, actor)
	if err != nil {
		return nil, err
	}
	severity, err := s.alerts.OpenSeverityCounts(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get open alert severities: %w", err)
	}
	policies, err := s.policies.ListApproved(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved policies: %w", err)
	}
	assessments, err := s.assessments.ListApproved(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved assessments: %w", err)
	}

	readiness := CheckReadiness(len(policies), len(assessments))
	filed := c.strs.FiledToFIU + c.strs.Closed

	return &Dashboard{
		CustomerTotal:    c.customerTotal,
		CustomersByRisk:  c.customersRisk,
		AlertsByStatus:   c.alerts,
		OpenAlerts:       c.alerts.Open + c.alerts.UnderReview + c.alerts.Escalated,
		OpenBySeverity:   severity,
		STRTotal:         strTotal(c.strs),
		STRByStatus:      c.strs,
		LatestPolicy:     latestPolicy(policies),
		LatestAssessment: latestAssessment(assessments),
		Inspection:       readiness,
		Checklist: []ChecklistItem{
			{Key: "policy_approved", Done: len(policies) > 0},
			{Key: "risk_assessment_approved", Done: len(assessments) > 0},
			{Key: "customers_registered", Done: c.customerTotal > 0},
			{Key: "str_filed", Done: filed > 0},
		},
		GeneratedAt: s.clock(),
	}, nil
}

// InspectionPack bundles the approved governance documents for a regulator
// visit. When either prerequisite is missing it fails with a Conflict
// listing them.
func (s *Service) InspectionPack(ctx context.Context, actor entities.Actor) (*InspectionPack, error) {
	policies, err := s.policies.ListApproved(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved policies: %w", err)
	}
	assessments, err := s.assessments.ListApproved(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list approved assessments: %w", err)
	}

	readiness := CheckReadiness(len(policies), len(assessments))
	if !readiness.Ready {
		notReady := apperrors.Conflict("inspection pack is not ready, approve a policy and a risk assessment first",
			"حزمة التفتيش غير جاهزة، يلزم اعتماد سياسة وتقييم مخاطر أولاً")
		notReady.Fields = readiness.Missing
		return nil, notReady
	}

	for _, a := range assessments {
		if a.Factors, err = s.assessments.ListFactors(ctx, a.ID); err != nil {
			return nil, fmt.Errorf("failed to list risk factors: %w", err)
		}
	}

	ruleSet, err := s.rules.List(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitoring rules: %w", err)
	}
	org, err := s.orgs.GetByID(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	c, err := s.loadCounts(ctx, actor)
	if err != nil {
		return nil, err
	}

	pack := &InspectionPack{
		Organization:    org,
		Policies:        policies,
		RiskAssessments: assessments,
		MonitoringRules: ruleSet,
		CustomerTotal:   c.customerTotal,
		CustomersByRisk: c.customersRisk,
		AlertsByStatus:  c.alerts,
		STRByStatus:     c.strs,
		GeneratedAt:     s.clock(),
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionDataExport, "inspection_pack", nil, map[string]interface{}{
		"policies":    len(policies),
		"assessments": len(assessments),
	}); err != nil {
		s.logger.Warn("failed to audit inspection pack export", zap.Error(err))
	}
	return pack, nil
}
