package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

const policyColumns = `id, org_id, version, title, title_ar, content, content_ar, status, created_by,
	approved_by, approved_at, created_at, updated_at`

// PolicyRepository handles policy persistence
type PolicyRepository struct {
	db *sqlx.DB
}

// NewPolicyRepository creates a new policy repository
func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// Create inserts a policy; a version already used in the organisation yields ErrUniqueViolation.
func (r *PolicyRepository) Create(ctx context.Context, p *entities.Policy) error {
	stamp(&p.CreatedAt, &p.UpdatedAt)
	query := `
		INSERT INTO policies (` + policyColumns + `)
		VALUES (:id, :org_id, :version, :title, :title_ar, :content, :content_ar, :status, :created_by,
			:approved_by, :approved_at, :created_at, :updated_at)`
	_, err := r.db.NamedExecContext(ctx, query, p)
	return mapError(err)
}

func (r *PolicyRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.Policy, error) {
	p := &entities.Policy{}
	err := r.db.GetContext(ctx, p, `SELECT `+policyColumns+` FROM policies WHERE org_id = $1 AND id = $2`, orgID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *PolicyRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.Policy, int, error) {
	f := newFilter(orgID)
	f.addIf(params.Status != "", "status = ?", params.Status)
	f.addIf(params.Search != "", "(title ILIKE ? OR title_ar ILIKE ?)", contains(params.Search))
	return listPage[*entities.Policy](ctx, r.db, policyColumns, "policies", "created_at DESC", f, params)
}

func (r *PolicyRepository) NextVersion(ctx context.Context, orgID uuid.UUID) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM policies WHERE org_id = $1`, orgID); err != nil {
		return 0, err
	}
	return n + 1, nil
}

// UpdateDraft writes title and content while the policy is still a Draft.
func (r *PolicyRepository) UpdateDraft(ctx context.Context, p *entities.Policy) (bool, error) {
	stamp(nil, &p.UpdatedAt)
	query := `
		UPDATE policies SET title = $3, title_ar = $4, content = $5, content_ar = $6, updated_at = $7
		WHERE org_id = $1 AND id = $2 AND status = $8`
	res, err := r.db.ExecContext(ctx, query, p.OrgID, p.ID, p.Title, p.TitleAR, p.Content, p.ContentAR,
		p.UpdatedAt, entities.PolicyStatusDraft)
	if err != nil {
		return false, err
	}
	return affected(res)
}

// Approve moves a Draft to Approved and supersedes the previously approved
// policy in one transaction. The approver must differ from the author and the
// stored draft must carry both languages.
func (r *PolicyRepository) Approve(ctx context.Context, p *entities.Policy) (ok bool, err error) {
	if p.ApprovedBy == nil {
		return false, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil || !ok {
			_ = tx.Rollback()
		}
	}()

	stamp(nil, &p.UpdatedAt)
	if _, err = tx.ExecContext(ctx,
		`UPDATE policies SET status = $2, updated_at = $3 WHERE org_id = $1 AND status = $4 AND id <> $5`,
		p.OrgID, entities.PolicyStatusSuperseded, p.UpdatedAt, entities.PolicyStatusApproved, p.ID); err != nil {
		return false, err
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE policies SET status = $3, approved_by = $4, approved_at = $5, updated_at = $6
		WHERE org_id = $1 AND id = $2 AND status = $7 AND created_by <> $4
			AND btrim(content, E' \t\r\n') <> '' AND btrim(content_ar, E' \t\r\n') <> ''`,
		p.OrgID, p.ID, entities.PolicyStatusApproved, p.ApprovedBy, p.ApprovedAt, p.UpdatedAt, entities.PolicyStatusDraft)
	if err != nil {
		return false, mapError(err)
	}
	if ok, err = affected(res); err != nil || !ok {
		return false, err
	}
	if err = tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit approval: %w", err)
	}
	return true, nil
}

func (r *PolicyRepository) ListApproved(ctx context.Context, orgID uuid.UUID) ([]*entities.Policy, error) {
	policies := []*entities.Policy{}
	query := `SELECT ` + policyColumns + ` FROM policies WHERE org_id = $1 AND status = $2 ORDER BY approved_at DESC`
	if err := r.db.SelectContext(ctx, &policies, query, orgID, entities.PolicyStatusApproved); err != nil {
		return nil, err
	}
	return policies, nil
}
