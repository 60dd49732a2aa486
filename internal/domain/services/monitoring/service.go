package monitoring

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/rules"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

const entity = "monitoring rule"

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultRule is one entry of the embedded system-default rule set.
type DefaultRule struct {
	Name        string                 `yaml:"name"`
	NameAR      string                 `yaml:"name_ar"`
	Description string                 `yaml:"description"`
	RuleType    string                 `yaml:"rule_type"`
	Severity    string                 `yaml:"severity"`
	Parameters  map[string]interface{} `yaml:"parameters"`
}

// LoadDefaults parses the embedded system-default rule set and validates
// every parameter block.
func LoadDefaults() ([]DefaultRule, error) {
	var doc struct {
		Rules []DefaultRule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(defaultsYAML, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse default monitoring rules: %w", err)
	}
	for _, r := range doc.Rules {
		if _, err := rules.Validate(r.RuleType, r.Parameters); err != nil {
			return nil, fmt.Errorf("default rule %q: %w", r.Name, err)
		}
	}
	return doc.Rules, nil
}

type Service struct {
	rules  repositories.MonitoringRuleRepository
	audit  audit.Recorder
	logger *zap.Logger
	clock  func() time.Time
}

func NewService(ruleRepo repositories.MonitoringRuleRepository, auditRecorder audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		rules:  ruleRepo,
		audit:  auditRecorder,
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) List(ctx context.Context, actor entities.Actor) ([]*entities.MonitoringRule, error) {
	items, err := s.rules.List(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list monitoring rules: %w", err)
	}
	return items, nil
}

func (s *Service) Get(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.MonitoringRule, error) {
	rule, err := s.rules.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get monitoring rule: %w", err)
	}
	if rule == nil {
		return nil, apperrors.NotFound(entity)
	}
	return rule, nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", apperrors.NewLocalizedValidationError("name", "name is required", "الاسم مطلوب")
	}
	return name, nil
}

// Create validates the parameters against the rule type and stores the
// canonical form.
func (s *Service) Create(ctx context.Context, actor entities.Actor, input entities.CreateMonitoringRuleInput) (*entities.MonitoringRule, error) {
	name, err := validateName(input.Name)
	if err != nil {
		return nil, err
	}
	if !input.Severity.Valid() {
		return nil, apperrors.NewLocalizedValidationError("severity", "severity must be low, medium, high or critical", "درجة الخطورة غير صالحة")
	}
	params, err := rules.Validate(input.RuleType, input.Parameters)
	if err != nil {
		return nil, err
	}

	active := true
	if input.IsActive != nil {
		active = *input.IsActive
	}
	rule := &entities.MonitoringRule{
		ID:          uuid.New(),
		OrgID:       actor.OrgID,
		Name:        name,
		NameAR:      strings.TrimSpace(input.NameAR),
		Description: strings.TrimSpace(input.Description),
		RuleType:    params.Type(),
		Severity:    input.Severity,
		IsActive:    active,
		Parameters:  params.ToMap(),
		CreatedBy:   &actor.UserID,
	}
	if err := s.rules.Create(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create monitoring rule: %w", err)
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionCreate, "monitoring_rule", &rule.ID, map[string]interface{}{
		"rule_type":  string(rule.RuleType),
		"parameters": rule.Parameters,
	}); err != nil {
		s.logger.Warn("failed to audit monitoring rule creation", zap.Error(err))
	}
	return rule, nil
}

// Update applies a partial patch. The rule type is fixed; parameters are
// validated against the stored type. The stored row is written before the
// response is built, so toggles never report a state that was not persisted.
func (s *Service) Update(ctx context.Context, actor entities.Actor, id uuid.UUID, input entities.UpdateMonitoringRuleInput) (*entities.MonitoringRule, error) {
	rule, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if input.RuleType != nil && !strings.EqualFold(strings.TrimSpace(*input.RuleType), string(rule.RuleType)) {
		return nil, apperrors.NewLocalizedValidationError("rule_type",
			"rule type cannot be changed, create a new rule instead", "لا يمكن تغيير نوع القاعدة، أنشئ قاعدة جديدة")
	}
	if input.Empty() {
		return nil, apperrors.NewLocalizedValidationError("body", "no fields to update", "لا توجد حقول للتحديث")
	}

	changes := map[string]interface{}{}
	if input.Name != nil {
		name, err := validateName(*input.Name)
		if err != nil {
			return nil, err
		}
		rule.Name = name
		changes["name"] = name
	}
	if input.NameAR != nil {
		rule.NameAR = strings.TrimSpace(*input.NameAR)
		changes["name_ar"] = rule.NameAR
	}
	if input.Description != nil {
		rule.Description = strings.TrimSpace(*input.Description)
	}
	if input.Severity != nil {
		if !input.Severity.Valid() {
			return nil, apperrors.NewLocalizedValidationError("severity", "severity must be low, medium, high or critical", "درجة الخطورة غير صالحة")
		}
		rule.Severity = *input.Severity
		changes["severity"] = string(rule.Severity)
	}
	if input.IsActive != nil {
		rule.IsActive = *input.IsActive
		changes["is_active"] = rule.IsActive
	}
	if input.Parameters != nil {
		params, err := rules.Validate(string(rule.RuleType), input.Parameters)
		if err != nil {
			return nil, err
		}
		rule.Parameters = params.ToMap()
		changes["parameters"] = rule.Parameters
	}

	if err := s.rules.Update(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update monitoring rule: %w", err)
	}
	stored, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionSettingsChange, "monitoring_rule", &stored.ID, changes); err != nil {
		s.logger.Warn("failed to audit monitoring rule update", zap.Error(err))
	}
	return stored, nil
}

// Delete removes a custom rule. System defaults stay.
func (s *Service) Delete(ctx context.Context, actor entities.Actor, id uuid.UUID) error {
	rule, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if rule.IsSystemDefault {
		return apperrors.Conflict("system default rules cannot be deleted, deactivate them instead",
			"لا يمكن حذف القواعد الافتراضية، يمكن تعطيلها بدلاً من ذلك")
	}
	ok, err := s.rules.Delete(ctx, actor.OrgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete monitoring rule: %w", err)
	}
	if !ok {
		return apperrors.NotFound(entity)
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionDelete, "monitoring_rule", &id, map[string]interface{}{
		"name": rule.Name,
	}); err != nil {
		s.logger.Warn("failed to audit monitoring rule deletion", zap.Error(err))
	}
	return nil
}

// SeedDefaults installs the system-default rules for orgID unless it already
// has them. It returns the number of rules created.
func (s *Service) SeedDefaults(ctx context.Context, orgID uuid.UUID) (int, error) {
	seeded, err := s.rules.HasSystemDefaults(ctx, orgID)
	if err != nil {
		return 0, fmt.Errorf("failed to check default rules: %w", err)
	}
	if seeded {
		return 0, nil
	}

	defaults, err := LoadDefaults()
	if err != nil {
		return 0, err
	}
	for _, d := range defaults {
		params, err := rules.Validate(d.RuleType, d.Parameters)
		if err != nil {
			return 0, err
		}
		rule := &entities.MonitoringRule{
			ID:              uuid.New(),
			OrgID:           orgID,
			Name:            d.Name,
			NameAR:          d.NameAR,
			Description:     d.Description,
			RuleType:        params.Type(),
			Severity:        entities.Severity(d.Severity),
			IsActive:        true,
			IsSystemDefault: true,
			Parameters:      params.ToMap(),
		}
		if err := s.rules.Create(ctx, rule); err != nil {
			return 0, fmt.Errorf("failed to seed monitoring rule %q: %w", d.Name, err)
		}
	}

	s.logger.Info("Seeded default monitoring rules",
		zap.String("org_id", orgID.String()),
		zap.Int("count", len(defaults)),
	)
	return len(defaults), nil
}
