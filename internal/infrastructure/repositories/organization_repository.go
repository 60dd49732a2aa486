package repositories

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/trous-aml/trous_service/internal/domain/entities"
)

// OrganizationRepository handles tenant persistence
type OrganizationRepository struct {
	db *sqlx.DB
}

// NewOrganizationRepository creates a new organization repository
func NewOrganizationRepository(db *sqlx.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func (r *OrganizationRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Organization, error) {
	query := `
		SELECT id, name_en, name_ar, commercial_record, goaml_entity_id, created_at, updated_at
		FROM organizations WHERE id = $1`
	org := &entities.Organization{}
	err := r.db.GetContext(ctx, org, query, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

// Update writes the editable settings. The commercial record is fixed at registration.
func (r *OrganizationRepository) Update(ctx context.Context, org *entities.Organization) error {
	stamp(nil, &org.UpdatedAt)
	query := `
		UPDATE organizations SET name_en = $2, name_ar = $3, goaml_entity_id = $4, updated_at = $5
		WHERE id = $1`
	_, err := r.db.ExecContext(ctx, query, org.ID, org.NameEN, org.NameAR, org.GoAMLEntityID, org.UpdatedAt)
	return err
}

func (r *OrganizationRepository) ListIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM organizations ORDER BY created_at`); err != nil {
		return nil, err
	}
	return ids, nil
}

// Ensure inserts the organisation unless a row with its id already exists.
func (r *OrganizationRepository) Ensure(ctx context.Context, org *entities.Organization) error {
	stamp(&org.CreatedAt, &org.UpdatedAt)
	query := `
		INSERT INTO organizations (id, name_en, name_ar, commercial_record, goaml_entity_id, created_at, updated_at)
		VALUES (:id, :name_en, :name_ar, :commercial_record, :goaml_entity_id, :created_at, :updated_at)
		ON CONFLICT (id) DO NOTHING`
	_, err := r.db.NamedExecContext(ctx, query, org)
	return err
}
