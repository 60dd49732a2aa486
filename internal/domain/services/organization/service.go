package organization

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

type Service struct {
	orgs   repositories.OrganizationRepository
	audit  audit.Recorder
	logger *zap.Logger
}

func NewService(orgs repositories.OrganizationRepository, auditRecorder audit.Recorder, logger *zap.Logger) *Service {
	return &Service{orgs: orgs, audit: auditRecorder, logger: logger}
}

// Provision registers an organisation if it is not known yet. Tenants are
// normally created by the account service; this covers single-tenant installs.
func (s *Service) Provision(ctx context.Context, org *entities.Organization) error {
	if org.ID == uuid.Nil {
		return apperrors.NewLocalizedValidationError("id", "organization id is required", "معرف المنشأة مطلوب")
	}
	if strings.TrimSpace(org.NameEN) == "" {
		return apperrors.NewLocalizedValidationError("name_en", "English name is required", "الاسم بالإنجليزية مطلوب")
	}
	if err := s.orgs.Ensure(ctx, org); err != nil {
		return fmt.Errorf("failed to provision organization: %w", err)
	}
	s.logger.Info("Organization provisioned", zap.String("org_id", org.ID.String()))
	return nil
}

// Get returns the caller's organisation.
func (s *Service) Get(ctx context.Context, actor entities.Actor) (*entities.Organization, error) {
	org, err := s.orgs.GetByID(ctx, actor.OrgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	if org == nil {
		return nil, apperrors.NotFound("organization")
	}
	return org, nil
}

// Update edits the display names and the goAML reporting entity id.
func (s *Service) Update(ctx context.Context, actor entities.Actor, input entities.UpdateOrganizationInput) (*entities.Organization, error) {
	org, err := s.Get(ctx, actor)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if input.NameEN != nil {
		name := strings.TrimSpace(*input.NameEN)
		if name == "" {
			return nil, apperrors.NewLocalizedValidationError("name_en", "English name is required", "الاسم بالإنجليزية مطلوب")
		}
		org.NameEN = name
		changes["name_en"] = name
	}
	if input.NameAR != nil {
		org.NameAR = strings.TrimSpace(*input.NameAR)
		changes["name_ar"] = org.NameAR
	}
	if input.GoAMLEntityID != nil {
		org.GoAMLEntityID = strings.TrimSpace(*input.GoAMLEntityID)
		changes["goaml_entity_id"] = org.GoAMLEntityID
	}
	if len(changes) == 0 {
		return nil, apperrors.NewLocalizedValidationError("body", "no fields to update", "لا توجد حقول للتحديث")
	}

	if err := s.orgs.Update(ctx, org); err != nil {
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	if err := s.audit.Record(ctx, actor, entities.AuditActionSettingsChange, "organization", &org.ID, changes); err != nil {
		s.logger.Warn("failed to audit organization update", zap.Error(err))
	}
	return org, nil
}
