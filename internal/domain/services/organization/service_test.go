package organization

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/infrastructure/repositories/memory"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

func setup(t *testing.T) (*Service, *memory.Store, entities.Actor) {
	t.Helper()
	store := memory.NewStore()
	logger := zap.NewNop()
	svc := NewService(store.Organizations(), audit.NewService(store.Audit(), nil, logger), logger)

	org := &entities.Organization{ID: uuid.New(), NameEN: "Acme Exchange", NameAR: "أكمي للصرافة"}
	require.NoError(t, svc.Provision(context.Background(), org))
	return svc, store, entities.Actor{UserID: uuid.New(), OrgID: org.ID, Role: entities.RoleAdmin}
}

func TestProvision_IsIdempotent(t *testing.T) {
	svc, _, admin := setup(t)
	ctx := context.Background()

	require.NoError(t, svc.Provision(ctx, &entities.Organization{ID: admin.OrgID, NameEN: "Different Name"}))

	org, err := svc.Get(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "Acme Exchange", org.NameEN, "existing organization is left untouched")
}

func TestProvision_Validation(t *testing.T) {
	svc, _, _ := setup(t)

	err := svc.Provision(context.Background(), &entities.Organization{NameEN: "No ID"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)

	err = svc.Provision(context.Background(), &entities.Organization{ID: uuid.New(), NameEN: "  "})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestGet_UnknownOrganization(t *testing.T) {
	svc, _, _ := setup(t)
	_, err := svc.Get(context.Background(), entities.Actor{OrgID: uuid.New()})
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestUpdate(t *testing.T) {
	svc, store, admin := setup(t)
	ctx := context.Background()
	entityID := " 4471 "

	org, err := svc.Update(ctx, admin, entities.UpdateOrganizationInput{GoAMLEntityID: &entityID})
	require.NoError(t, err)
	assert.Equal(t, "4471", org.GoAMLEntityID)
	assert.Equal(t, "Acme Exchange", org.NameEN)

	logs, total, err := store.Audit().List(ctx, admin.OrgID, entities.ListParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	assert.Equal(t, entities.AuditActionSettingsChange, logs[0].Action)
	assert.Equal(t, "4471", logs[0].Metadata["goaml_entity_id"])
}

func TestUpdate_Rejections(t *testing.T) {
	svc, _, admin := setup(t)
	blank := ""

	tests := []struct {
		name  string
		input entities.UpdateOrganizationInput
	}{
		{"empty body", entities.UpdateOrganizationInput{}},
		{"blank english name", entities.UpdateOrganizationInput{NameEN: &blank}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Update(context.Background(), admin, tt.input)
			assert.ErrorIs(t, err, apperrors.ErrValidation)
		})
	}
}
