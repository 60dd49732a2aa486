package repositories

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

const strColumns = `id, org_id, customer_id, title, description, status, risk_indicators, investigation_notes,
	report_type, report_date, report_priority, subject_role, subject_account_number, subject_account_type,
	subject_bank_name, reported_amount, reported_currency, transaction_date_from, transaction_date_to,
	transaction_location, transaction_description_for_fiu, reason_for_suspicion, ground_for_report,
	created_by, filed_at, closed_at, created_at, updated_at`

// STRCaseRepository handles STR case persistence
type STRCaseRepository struct {
	db *sqlx.DB
}

// NewSTRCaseRepository creates a new STR case repository
func NewSTRCaseRepository(db *sqlx.DB) *STRCaseRepository {
	return &STRCaseRepository{db: db}
}

func (r *STRCaseRepository) Create(ctx context.Context, c *entities.STRCase) error {
	stamp(&c.CreatedAt, &c.UpdatedAt)
	if c.RiskIndicators == nil {
		c.RiskIndicators = []string{}
	}
	query := `
		INSERT INTO str_cases (` + strColumns + `)
		VALUES (:id, :org_id, :customer_id, :title, :description, :status, :risk_indicators, :investigation_notes,
			:report_type, :report_date, :report_priority, :subject_role, :subject_account_number, :subject_account_type,
			:subject_bank_name, :reported_amount, :reported_currency, :transaction_date_from, :transaction_date_to,
			:transaction_location, :transaction_description_for_fiu, :reason_for_suspicion, :ground_for_report,
			:created_by, :filed_at, :closed_at, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, c)
	return mapError(err)
}

func (r *STRCaseRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.STRCase, error) {
	c := &entities.STRCase{}
	err := r.db.GetContext(ctx, c, `SELECT `+strColumns+` FROM str_cases WHERE org_id = $1 AND id = $2`, orgID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachCustomers(ctx, orgID, []*entities.STRCase{c}); err != nil {
		return nil, err
	}
	return c, nil
}

func (r *STRCaseRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.STRCase, int, error) {
	f := newFilter(orgID)
	f.addIf(params.Status != "", "status = ?", params.Status)
	if params.CustomerID != nil {
		f.add("customer_id = ?", *params.CustomerID)
	}
	f.addIf(params.Search != "", "title ILIKE ?", contains(params.Search))
	cases, total, err := listPage[*entities.STRCase](ctx, r.db, strColumns, "str_cases", "created_at DESC", f, params)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachCustomers(ctx, orgID, cases); err != nil {
		return nil, 0, err
	}
	return cases, total, nil
}

func (r *STRCaseRepository) attachCustomers(ctx context.Context, orgID uuid.UUID, cases []*entities.STRCase) error {
	ids := make([]uuid.UUID, 0, len(cases))
	for _, c := range cases {
		ids = append(ids, c.CustomerID)
	}
	customers, err := customersByID(ctx, r.db, orgID, ids)
	if err != nil {
		return err
	}
	for _, c := range cases {
		c.Customer = customers[c.CustomerID]
	}
	return nil
}

func (r *STRCaseRepository) Stats(ctx context.Context, orgID uuid.UUID) (*entities.STRStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE status = $2) AS draft,
			COUNT(*) FILTER (WHERE status = $3) AS under_investigation,
			COUNT(*) FILTER (WHERE status = $4) AS filed_to_fiu,
			COUNT(*) FILTER (WHERE status = $5) AS closed
		FROM str_cases WHERE org_id = $1`
	stats := &entities.STRStats{}
	err := r.db.GetContext(ctx, stats, query, orgID, entities.STRStatusDraft, entities.STRStatusUnderInvestigation,
		entities.STRStatusFiledToFIU, entities.STRStatusClosed)
	return stats, err
}

// UpdateIfStatus writes notes, report fields and status in one statement.
func (r *STRCaseRepository) UpdateIfStatus(ctx context.Context, c *entities.STRCase, expected entities.STRStatus) (bool, error) {
	stamp(nil, &c.UpdatedAt)
	query := `
		UPDATE str_cases SET
			status = $4, investigation_notes = $5,
			report_type = $6, report_date = $7, report_priority = $8, subject_role = $9,
			subject_account_number = $10, subject_account_type = $11, subject_bank_name = $12,
			reported_amount = $13, reported_currency = $14, transaction_date_from = $15,
			transaction_date_to = $16, transaction_location = $17, transaction_description_for_fiu = $18,
			reason_for_suspicion = $19, ground_for_report = $20,
			filed_at = $21, closed_at = $22, updated_at = $23
		WHERE org_id = $1 AND id = $2 AND status = $3`
	g := c.GoAMLFields
	res, err := r.db.ExecContext(ctx, query, c.OrgID, c.ID, expected,
		c.Status, c.InvestigationNotes,
		g.ReportType, g.ReportDate, g.ReportPriority, g.SubjectRole,
		g.SubjectAccountNumber, g.SubjectAccountType, g.SubjectBankName,
		g.ReportedAmount, g.ReportedCurrency, g.TransactionDateFrom,
		g.TransactionDateTo, g.TransactionLocation, g.TransactionDescriptionForFIU,
		g.ReasonForSuspicion, g.GroundForReport,
		c.FiledAt, c.ClosedAt, c.UpdatedAt)
	if err != nil {
		return false, err
	}
	return affected(res)
}
