package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

const ruleColumns = `id, org_id, name, name_ar, description, rule_type, severity, is_active,
	is_system_default, parameters, created_by, created_at, updated_at`

// alertCount30d is selected with every rule; $1 is the window start.
const alertCount30d = `(
	SELECT COUNT(*) FROM alerts a
	WHERE a.monitoring_rule_id = monitoring_rules.id AND a.created_at > $1) AS alert_count_30d`

type ruleRow struct {
	entities.MonitoringRule
	Parameters jsonMap `db:"parameters"`
}

func (row *ruleRow) toEntity() *entities.MonitoringRule {
	rule := row.MonitoringRule
	rule.Parameters = row.Parameters
	return &rule
}

// MonitoringRuleRepository handles monitoring rule persistence
type MonitoringRuleRepository struct {
	db *sqlx.DB
}

// NewMonitoringRuleRepository creates a new monitoring rule repository
func NewMonitoringRuleRepository(db *sqlx.DB) *MonitoringRuleRepository {
	return &MonitoringRuleRepository{db: db}
}

func windowStart() time.Time {
	return now().AddDate(0, 0, -30)
}

func (r *MonitoringRuleRepository) Create(ctx context.Context, rule *entities.MonitoringRule) error {
	stamp(&rule.CreatedAt, &rule.UpdatedAt)
	query := `
		INSERT INTO monitoring_rules (` + ruleColumns + `)
		VALUES (:id, :org_id, :name, :name_ar, :description, :rule_type, :severity, :is_active,
			:is_system_default, :parameters, :created_by, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, &ruleRow{MonitoringRule: *rule, Parameters: rule.Parameters})
	return mapError(err)
}

func (r *MonitoringRuleRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.MonitoringRule, error) {
	query := `SELECT ` + ruleColumns + `, ` + alertCount30d + `
		FROM monitoring_rules WHERE org_id = $2 AND id = $3`
	row := &ruleRow{}
	err := r.db.GetContext(ctx, row, query, windowStart(), orgID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row.toEntity(), nil
}

// List returns rules oldest first, system defaults ahead of custom rules.
func (r *MonitoringRuleRepository) List(ctx context.Context, orgID uuid.UUID) ([]*entities.MonitoringRule, error) {
	query := `SELECT ` + ruleColumns + `, ` + alertCount30d + `
		FROM monitoring_rules WHERE org_id = $2
		ORDER BY is_system_default DESC, created_at ASC`
	var rows []*ruleRow
	if err := r.db.SelectContext(ctx, &rows, query, windowStart(), orgID); err != nil {
		return nil, err
	}
	rules := make([]*entities.MonitoringRule, 0, len(rows))
	for _, row := range rows {
		rules = append(rules, row.toEntity())
	}
	return rules, nil
}

// Update writes the editable columns; rule_type and is_system_default are fixed.
func (r *MonitoringRuleRepository) Update(ctx context.Context, rule *entities.MonitoringRule) error {
	stamp(nil, &rule.UpdatedAt)
	query := `
		UPDATE monitoring_rules SET
			name = $3, name_ar = $4, description = $5, severity = $6, is_active = $7,
			parameters = $8, updated_at = $9
		WHERE org_id = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, query, rule.OrgID, rule.ID,
		rule.Name, rule.NameAR, rule.Description, rule.Severity, rule.IsActive,
		jsonMap(rule.Parameters), rule.UpdatedAt)
	return err
}

func (r *MonitoringRuleRepository) Delete(ctx context.Context, orgID, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM monitoring_rules WHERE org_id = $1 AND id = $2 AND NOT is_system_default`, orgID, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (r *MonitoringRuleRepository) HasSystemDefaults(ctx context.Context, orgID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM monitoring_rules WHERE org_id = $1 AND is_system_default)`, orgID)
	return exists, err
}
