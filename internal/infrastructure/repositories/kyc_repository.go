package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

const kycColumns = `id, org_id, status, token_hash, customer_type, full_name, national_id, nationality,
	company_name, commercial_record, representative_name, is_ubo, recipient_email, customer_id,
	created_by, reviewed_by, expires_at, submitted_at, reviewed_at, created_at, updated_at`

// KYCRequestRepository handles KYC request persistence
type KYCRequestRepository struct {
	db *sqlx.DB
}

// NewKYCRequestRepository creates a new KYC request repository
func NewKYCRequestRepository(db *sqlx.DB) *KYCRequestRepository {
	return &KYCRequestRepository{db: db}
}

func (r *KYCRequestRepository) Create(ctx context.Context, req *entities.KYCRequest) error {
	stamp(&req.CreatedAt, &req.UpdatedAt)
	query := `
		INSERT INTO kyc_requests (` + kycColumns + `)
		VALUES (:id, :org_id, :status, :token_hash, :customer_type, :full_name, :national_id, :nationality,
			:company_name, :commercial_record, :representative_name, :is_ubo, :recipient_email, :customer_id,
			:created_by, :reviewed_by, :expires_at, :submitted_at, :reviewed_at, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, req)
	return mapError(err)
}

func (r *KYCRequestRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.KYCRequest, error) {
	return r.getOne(ctx, `SELECT `+kycColumns+` FROM kyc_requests WHERE org_id = $1 AND id = $2`, orgID, id)
}

// GetByTokenHash resolves a public form link. It is the only lookup not scoped by organisation.
func (r *KYCRequestRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*entities.KYCRequest, error) {
	return r.getOne(ctx, `SELECT `+kycColumns+` FROM kyc_requests WHERE token_hash = $1`, tokenHash)
}

func (r *KYCRequestRepository) getOne(ctx context.Context, query string, args ...interface{}) (*entities.KYCRequest, error) {
	req := &entities.KYCRequest{}
	err := r.db.GetContext(ctx, req, query, args...)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return req, nil
}

func (r *KYCRequestRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.KYCRequest, int, error) {
	f := newFilter(orgID)
	f.addIf(params.Status != "", "status = ?", params.Status)
	f.addIf(params.Search != "", "(full_name ILIKE ? OR company_name ILIKE ? OR recipient_email ILIKE ?)", contains(params.Search))
	return listPage[*entities.KYCRequest](ctx, r.db, kycColumns, "kyc_requests", "created_at DESC", f, params)
}

// UpdateIfStatus writes the submitted form and review outcome while the stored
// status still equals expected.
func (r *KYCRequestRepository) UpdateIfStatus(ctx context.Context, req *entities.KYCRequest, expected entities.KYCStatus) (bool, error) {
	return updateKYCIfStatus(ctx, r.db, req, expected)
}

// Approve locks the request row with the status CAS before inserting the
// customer, so a concurrent decision either waits or makes the CAS miss.
func (r *KYCRequestRepository) Approve(ctx context.Context, req *entities.KYCRequest, customer *entities.Customer) (ok bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil || !ok {
			_ = tx.Rollback()
		}
	}()

	if ok, err = updateKYCIfStatus(ctx, tx, req, entities.KYCStatusPending); err != nil || !ok {
		return false, err
	}

	stamp(&customer.CreatedAt, &customer.UpdatedAt)
	if _, err = tx.NamedExecContext(ctx, insertCustomerQuery, customer); err != nil {
		return false, mapError(err)
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit approval: %w", err)
	}
	return true, nil
}

func updateKYCIfStatus(ctx context.Context, db sqlx.ExecerContext, req *entities.KYCRequest, expected entities.KYCStatus) (bool, error) {
	stamp(nil, &req.UpdatedAt)
	query := `
		UPDATE kyc_requests SET
			status = $4, customer_type = $5, full_name = $6, national_id = $7, nationality = $8,
			company_name = $9, commercial_record = $10, representative_name = $11, is_ubo = $12,
			customer_id = $13, reviewed_by = $14, submitted_at = $15, reviewed_at = $16, updated_at = $17
		WHERE org_id = $1 AND id = $2 AND status = $3`
	res, err := db.ExecContext(ctx, query, req.OrgID, req.ID, expected,
		req.Status, req.CustomerType, req.FullName, req.NationalID, req.Nationality,
		req.CompanyName, req.CommercialRecord, req.RepresentativeName, req.IsUBO,
		req.CustomerID, req.ReviewedBy, req.SubmittedAt, req.ReviewedAt, req.UpdatedAt)
	if err != nil {
		return false, err
	}
	return affected(res)
}
