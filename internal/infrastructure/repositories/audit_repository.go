package repositories

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

const auditColumns = `id, org_id, user_id, action, resource, resource_id, ip_address, metadata,
	previous_hash, current_hash, created_at`

type auditRow struct {
	entities.AuditLog
	Metadata jsonMap `db:"metadata"`
}

func (row *auditRow) toEntity() *entities.AuditLog {
	log := row.AuditLog
	log.Metadata = row.Metadata
	return &log
}

func auditEntities(rows []*auditRow) []*entities.AuditLog {
	out := make([]*entities.AuditLog, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out
}

// AuditRepository handles audit trail persistence. Rows are insert only.
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new audit repository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Create appends an entry. A second entry linking to the same predecessor is
// rejected with ErrUniqueViolation, so concurrent writers cannot fork the chain.
func (r *AuditRepository) Create(ctx context.Context, log *entities.AuditLog) error {
	query := `
		INSERT INTO audit_logs (` + auditColumns + `)
		VALUES (:id, :org_id, :user_id, :action, :resource, :resource_id, :ip_address, :metadata,
			:previous_hash, :current_hash, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, &auditRow{AuditLog: *log, Metadata: log.Metadata})
	return mapError(err)
}

func (r *AuditRepository) LastHash(ctx context.Context, orgID uuid.UUID) (string, error) {
	var hash string
	err := r.db.GetContext(ctx, &hash,
		`SELECT current_hash FROM audit_logs WHERE org_id = $1 ORDER BY seq DESC LIMIT 1`, orgID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return hash, err
}

// List returns entries newest first. Type filters by action, Search by exact resource.
func (r *AuditRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.AuditLog, int, error) {
	f := newFilter(orgID)
	f.addIf(params.Type != "", "action = ?", params.Type)
	f.addIf(params.Search != "", "resource = ?", params.Search)
	rows, total, err := listPage[*auditRow](ctx, r.db, auditColumns, "audit_logs", "seq DESC", f, params)
	if err != nil {
		return nil, 0, err
	}
	return auditEntities(rows), total, nil
}

// ListRange returns entries created in [from, to] in chain order.
func (r *AuditRepository) ListRange(ctx context.Context, orgID uuid.UUID, from, to time.Time) ([]*entities.AuditLog, error) {
	var rows []*auditRow
	query := `SELECT ` + auditColumns + ` FROM audit_logs
		WHERE org_id = $1 AND created_at >= $2 AND created_at <= $3
		ORDER BY seq ASC`
	if err := r.db.SelectContext(ctx, &rows, query, orgID, from, to); err != nil {
		return nil, err
	}
	return auditEntities(rows), nil
}
