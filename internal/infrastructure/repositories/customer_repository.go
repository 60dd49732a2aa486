package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/scoring"
)

const customerColumns = `id, org_id, customer_type, full_name, national_id, nationality, company_name,
	commercial_record, representative_name, is_ubo, risk_level, pep_status, sanctions_status,
	kyc_request_id, created_by, created_at, updated_at`

const insertCustomerQuery = `
	INSERT INTO customers (` + customerColumns + `)
	VALUES (:id, :org_id, :customer_type, :full_name, :national_id, :nationality, :company_name,
		:commercial_record, :representative_name, :is_ubo, :risk_level, :pep_status, :sanctions_status,
		:kyc_request_id, :created_by, :created_at, :updated_at)`

// CustomerRepository handles customer persistence
type CustomerRepository struct {
	db *sqlx.DB
}

// NewCustomerRepository creates a new customer repository
func NewCustomerRepository(db *sqlx.DB) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// Create inserts a customer. A national ID or commercial record already used
// in the organisation yields ErrUniqueViolation.
func (r *CustomerRepository) Create(ctx context.Context, c *entities.Customer) error {
	stamp(&c.CreatedAt, &c.UpdatedAt)
	_, err := r.db.NamedExecContext(ctx, insertCustomerQuery, c)
	return mapError(err)
}

func (r *CustomerRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Customer, error) {
	c := &entities.Customer{}
	err := r.db.GetContext(ctx, c, `SELECT `+customerColumns+` FROM customers WHERE org_id = $1 AND id = $2`, orgID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Update writes every mutable column. customer_type never changes after creation.
func (r *CustomerRepository) Update(ctx context.Context, c *entities.Customer) error {
	stamp(nil, &c.UpdatedAt)
	query := `
		UPDATE customers SET
			full_name = :full_name, national_id = :national_id, nationality = :nationality,
			company_name = :company_name, commercial_record = :commercial_record,
			representative_name = :representative_name, is_ubo = :is_ubo, risk_level = :risk_level,
			pep_status = :pep_status, sanctions_status = :sanctions_status,
			kyc_request_id = :kyc_request_id, updated_at = :updated_at
		WHERE org_id = :org_id AND id = :id`
	_, err := r.db.NamedExecContext(ctx, query, c)
	return mapError(err)
}

func (r *CustomerRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.Customer, int, error) {
	f := newFilter(orgID)
	f.addIf(params.Type != "", "customer_type = ?", params.Type)
	f.addIf(params.RiskLevel != "", "risk_level = ?", params.RiskLevel)
	f.addIf(params.Search != "",
		"(full_name ILIKE ? OR company_name ILIKE ? OR national_id ILIKE ? OR commercial_record ILIKE ?)",
		contains(params.Search))
	return listPage[*entities.Customer](ctx, r.db, customerColumns, "customers", "created_at DESC", f, params)
}

func (r *CustomerRepository) Stats(ctx context.Context, orgID uuid.UUID) (*entities.CustomerStats, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE risk_level = $2) AS low,
			COUNT(*) FILTER (WHERE risk_level = $3) AS medium,
			COUNT(*) FILTER (WHERE risk_level = $4) AS high,
			COUNT(*) FILTER (WHERE risk_level = $5) AS critical
		FROM customers WHERE org_id = $1`
	stats := &entities.CustomerStats{}
	err := r.db.GetContext(ctx, stats, query, orgID,
		scoring.LevelLow, scoring.LevelMedium, scoring.LevelHigh, scoring.LevelCritical)
	return stats, err
}

func (r *CustomerRepository) Count(ctx context.Context, orgID uuid.UUID) (int, error) {
	var n int
	err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM customers WHERE org_id = $1`, orgID)
	return n, err
}

// ListForScreening returns customers never screened or last screened before the cutoff.
func (r *CustomerRepository) ListForScreening(ctx context.Context, orgID uuid.UUID, screenedBefore time.Time, limit int) ([]*entities.Customer, error) {
	params := entities.ListParams{Page: 1, PageSize: limit}
	params.Normalize()
	query := `
		SELECT ` + customerColumns + ` FROM customers
		WHERE org_id = $1 AND NOT EXISTS (
			SELECT 1 FROM screening_results s
			WHERE s.customer_id = customers.id AND s.screened_at >= $2)
		ORDER BY created_at DESC
		LIMIT $3`
	customers := []*entities.Customer{}
	if err := r.db.SelectContext(ctx, &customers, query, orgID, screenedBefore, params.PageSize); err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *CustomerRepository) UpdateScreeningFlags(ctx context.Context, orgID, id uuid.UUID, pepStatus, sanctionsStatus *string) error {
	query := `
		UPDATE customers SET
			pep_status = COALESCE($3, pep_status),
			sanctions_status = COALESCE($4, sanctions_status),
			updated_at = $5
		WHERE org_id = $1 AND id = $2`
	_, err := r.db.ExecContext(ctx, query, orgID, id, pepStatus, sanctionsStatus, now())
	return err
}

const transactionColumns = `id, org_id, customer_id, amount, currency, tx_type, tx_date, status,
	reference, notes, created_by, created_at`

// TransactionRepository handles customer transaction persistence
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	stamp(&tx.CreatedAt, nil)
	query := `
		INSERT INTO transactions (` + transactionColumns + `)
		VALUES (:id, :org_id, :customer_id, :amount, :currency, :tx_type, :tx_date, :status,
			:reference, :notes, :created_by, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, tx)
	return mapError(err)
}

// ListByCustomer returns a customer's transactions, most recent transaction date first.
func (r *TransactionRepository) ListByCustomer(ctx context.Context, orgID, customerID uuid.UUID, params entities.ListParams) ([]*entities.Transaction, int, error) {
	f := newFilter(orgID)
	f.add("customer_id = ?", customerID)
	f.addIf(params.Type != "", "tx_type = ?", params.Type)
	f.addIf(params.Status != "", "status = ?", params.Status)
	return listPage[*entities.Transaction](ctx, r.db, transactionColumns, "transactions", "tx_date DESC", f, params)
}
