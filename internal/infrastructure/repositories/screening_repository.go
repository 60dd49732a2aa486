package repositories

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

const screeningColumns = `id, org_id, customer_id, screening_type, provider, status, matched_lists,
	match_score, raw_response, screened_at, reviewed_by_id, review_decision, reviewed_at, created_at`

// ScreeningRepository handles screening result persistence
type ScreeningRepository struct {
	db *sqlx.DB
}

// NewScreeningRepository creates a new screening repository
func NewScreeningRepository(db *sqlx.DB) *ScreeningRepository {
	return &ScreeningRepository{db: db}
}

func (r *ScreeningRepository) Create(ctx context.Context, sr *entities.ScreeningResult) error {
	stamp(&sr.CreatedAt, nil)
	if sr.ScreenedAt.IsZero() {
		sr.ScreenedAt = sr.CreatedAt
	}
	if sr.MatchedLists == nil {
		sr.MatchedLists = []string{}
	}
	query := `
		INSERT INTO screening_results (` + screeningColumns + `)
		VALUES (:id, :org_id, :customer_id, :screening_type, :provider, :status, :matched_lists,
			:match_score, :raw_response, :screened_at, :reviewed_by_id, :review_decision, :reviewed_at, :created_at)`
	_, err := r.db.NamedExecContext(ctx, query, sr)
	return mapError(err)
}

func (r *ScreeningRepository) GetByID(ctx context.Context, orgID, id uuid.UUID) (*entities.ScreeningResult, error) {
	sr := &entities.ScreeningResult{}
	err := r.db.GetContext(ctx, sr, `SELECT `+screeningColumns+` FROM screening_results WHERE org_id = $1 AND id = $2`, orgID, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := r.attachCustomers(ctx, orgID, []*entities.ScreeningResult{sr}); err != nil {
		return nil, err
	}
	return sr, nil
}

func (r *ScreeningRepository) List(ctx context.Context, orgID uuid.UUID, params entities.ListParams) ([]*entities.ScreeningResult, int, error) {
	f := newFilter(orgID)
	f.addIf(params.Status != "", "status = ?", params.Status)
	f.addIf(params.Type != "", "screening_type = ?", params.Type)
	if params.CustomerID != nil {
		f.add("customer_id = ?", *params.CustomerID)
	}
	results, total, err := listPage[*entities.ScreeningResult](ctx, r.db, screeningColumns, "screening_results", "screened_at DESC", f, params)
	if err != nil {
		return nil, 0, err
	}
	if err := r.attachCustomers(ctx, orgID, results); err != nil {
		return nil, 0, err
	}
	return results, total, nil
}

func (r *ScreeningRepository) attachCustomers(ctx context.Context, orgID uuid.UUID, results []*entities.ScreeningResult) error {
	ids := make([]uuid.UUID, 0, len(results))
	for _, sr := range results {
		ids = append(ids, sr.CustomerID)
	}
	customers, err := customersByID(ctx, r.db, orgID, ids)
	if err != nil {
		return err
	}
	for _, sr := range results {
		sr.Customer = customers[sr.CustomerID]
	}
	return nil
}

func (r *ScreeningRepository) Stats(ctx context.Context, orgID uuid.UUID) (*entities.ScreeningStats, error) {
	query := `
		SELECT
			COUNT(*) AS total_screened,
			COUNT(*) FILTER (WHERE status IN ($2, $3) AND review_decision IS NULL) AS pending_review,
			COUNT(*) FILTER (WHERE review_decision = $4) AS confirmed_hits
		FROM screening_results WHERE org_id = $1`
	stats := &entities.ScreeningStats{}
	err := r.db.GetContext(ctx, stats, query, orgID,
		entities.ScreeningStatusHit, entities.ScreeningStatusPossibleMatch, entities.ReviewConfirmedHit)
	return stats, err
}

// RecordReview writes the decision only if none is recorded yet.
func (r *ScreeningRepository) RecordReview(ctx context.Context, sr *entities.ScreeningResult) (bool, error) {
	query := `
		UPDATE screening_results SET review_decision = $3, reviewed_by_id = $4, reviewed_at = $5
		WHERE org_id = $1 AND id = $2 AND review_decision IS NULL`
	res, err := r.db.ExecContext(ctx, query, sr.OrgID, sr.ID, sr.ReviewDecision, sr.ReviewedByID, sr.ReviewedAt)
	if err != nil {
		return false, err
	}
	return affected(res)
}
