package repositories

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

const alertColumns = `id, org_id, customer_id, transaction_id, monitoring_rule_id, rule_type, rule_name,
	severity, status, amount, currency, details, assigned_to_id, notes, str_case_id, closed_by, closed_at,
	created_at, updated_at`

// alertRow carries the JSONB details column alongside the entity.
type alertRow struct {
	entities.Alert
	Details jsonMap `db:"details"`
}

func (row *alertRow) toEntity() *entities.Alert {
	a := row.Alert
	a.Details = row.Details
	return &a
}

// AlertRepository handles alert persistence
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

func (r *AlertRepository) Create(ctx context.Context, a *entities.Alert) error {
	stamp(&a.CreatedAt, &a.UpdatedAt)
	query := `
		INSERT INTO alerts (` + alertColumns + `)
		VALUES (:id, :org_id, :customer_id, :transaction_id, :monitoring_rule_id, :rule_type, :rule_name,
			:severity, :status, :amount, :currency, :details, :assigned_to_id, :notes, :str_case_id, :closed_by,
			:closed_at, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, &alertRow{Alert: *a, Details: a.Details})
	return mapError(err)
}

// GetByID returns the alert with its customer attached.
func (r *AlertRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Alert, error) {
	row := &alertRow{}
	err := r.db.GetContext(ctx, row, `SELECT `+alertColumns+` FROM alerts WHERE org_id = $1 AND id = $2`, orgID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	alerts, err := r.attachCustomers(ctx, orgID, []*alertRow{row})
	if err != nil {
		return nil, err
	}
	return alerts[0], nil
}

func (r *AlertRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.Alert, int, error) {
	f := newFilter(orgID)
	f.addIf(params.Status != "", "status = ?", params.Status)
	f.addIf(params.Severity != "", "severity = ?", params.Severity)
	if params.CustomerID != nil {
		f.add("customer_id = ?", *params.CustomerID)
	}
	f.addIf(params.Search != "", "rule_name ILIKE ?", contains(params.Search))
	rows, total, err := listPage[*alertRow](ctx, r.db, alertColumns, "alerts", "created_at DESC", f, params)
	if err != nil {
		return nil, 0, err
	}
	alerts, err := r.attachCustomers(ctx, orgID, rows)
	if err != nil {
		return nil, 0, err
	}
	return alerts, total, nil
}

func (r *AlertRepository) attachCustomers(ctx context.Context, orgID uuid.UUID, rows []*alertRow) ([]*entities.Alert, error) {
	ids := make([]uuid.UUID, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.CustomerID)
	}
	customers, err := customersByID(ctx, r.db, orgID, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*entities.Alert, 0, len(rows))
	for _, row := range rows {
		a := row.toEntity()
		a.Customer = customers[a.CustomerID]
		out = append(out, a)
	}
	return out, nil
}

func (r *AlertRepository) Stats(ctx context.Context, orgID uuid.UUID) (*entities.AlertStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $2) AS open,
			COUNT(*) FILTER (WHERE status = $3) AS under_review,
			COUNT(*) FILTER (WHERE status = $4) AS escalated,
			COUNT(*) FILTER (WHERE status = $5) AS closed
		FROM alerts WHERE org_id = $1`
	stats := &entities.AlertStats{}
	err := r.db.GetContext(ctx, stats, query, orgID, entities.AlertStatusOpen, entities.AlertStatusUnderReview,
		entities.AlertStatusEscalated, entities.AlertStatusClosed)
	return stats, err
}

// OpenSeverityCounts counts alerts that are not closed, by severity.
func (r *AlertRepository) OpenSeverityCounts(ctx context.Context, orgID uuid.UUID) (*entities.SeverityCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE severity = $3) AS low,
			COUNT(*) FILTER (WHERE severity = $4) AS medium,
			COUNT(*) FILTER (WHERE severity = $5) AS high,
			COUNT(*) FILTER (WHERE severity = $6) AS critical
		FROM alerts WHERE org_id = $1 AND status <> $2`
	counts := &entities.SeverityCounts{}
	err := r.db.GetContext(ctx, counts, query, orgID, entities.AlertStatusClosed,
		entities.SeverityLow, entities.SeverityMedium, entities.SeverityHigh, entities.SeverityCritical)
	return counts, err
}

func (r *AlertRepository) UpdateIfStatus(ctx context.Context, a *entities.Alert, expected entities.AlertStatus) (bool, error) {
	stamp(nil, &a.UpdatedAt)
	query := `
		UPDATE alerts SET
			status = $4, assigned_to_id = $5, notes = $6, str_case_id = $7,
			closed_by = $8, closed_at = $9, updated_at = $10
		WHERE org_id = $1 AND id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, a.OrgID, a.ID, expected,
		a.Status, a.AssignedToID, a.Notes, a.STRCaseID, a.ClosedBy, a.ClosedAt, a.UpdatedAt)
	if err != nil {
		return false, err
	}
	return affected(res)
}
