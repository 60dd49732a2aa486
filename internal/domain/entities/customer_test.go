package entities

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trous-aml/trous_service/internal/domain/scoring"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

func TestValidSaudiID(t *testing.T) {
	valid := []string{"1012345678", "2098765432", "7001234567"}
	invalid := []string{"", "101234567", "10123456789", "3012345678", "10123456a8", "0123456789"}

	for _, id := range valid {
		assert.True(t, ValidSaudiID(id), id)
	}
	for _, id := range invalid {
		assert.False(t, ValidSaudiID(id), id)
	}
}

func TestCustomerIdentity_Validate(t *testing.T) {
	tests := []struct {
		name    string
		input   CustomerIdentity
		field   string
		wantErr bool
	}{
		{
			name:  "valid individual",
			input: CustomerIdentity{CustomerType: CustomerTypeIndividual, FullName: "Fahad Al-Qahtani", NationalID: "1012345678", Nationality: "SA"},
		},
		{
			name:  "valid corporate with UBO",
			input: CustomerIdentity{CustomerType: CustomerTypeCorporate, CompanyName: "Najd Trading", CommercialRecord: "1010123456", IsUBO: true},
		},
		{
			name:    "individual with company name",
			input:   CustomerIdentity{CustomerType: CustomerTypeIndividual, FullName: "A", NationalID: "1012345678", Nationality: "SA", CompanyName: "X"},
			field:   "company_name",
			wantErr: true,
		},
		{
			name:    "individual UBO",
			input:   CustomerIdentity{CustomerType: CustomerTypeIndividual, FullName: "A", NationalID: "1012345678", Nationality: "SA", IsUBO: true},
			field:   "is_ubo",
			wantErr: true,
		},
		{
			name:    "bad national id",
			input:   CustomerIdentity{CustomerType: CustomerTypeIndividual, FullName: "A", NationalID: "5012345678", Nationality: "SA"},
			field:   "national_id",
			wantErr: true,
		},
		{
			name:    "bad nationality",
			input:   CustomerIdentity{CustomerType: CustomerTypeIndividual, FullName: "A", NationalID: "1012345678", Nationality: "SAU"},
			field:   "nationality",
			wantErr: true,
		},
		{
			name:    "corporate with individual fields",
			input:   CustomerIdentity{CustomerType: CustomerTypeCorporate, CompanyName: "X", CommercialRecord: "1", FullName: "A"},
			field:   "full_name",
			wantErr: true,
		},
		{
			name:    "corporate without record",
			input:   CustomerIdentity{CustomerType: CustomerTypeCorporate, CompanyName: "X"},
			field:   "commercial_record",
			wantErr: true,
		},
		{
			name:    "unknown type",
			input:   CustomerIdentity{CustomerType: "trust"},
			field:   "customer_type",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			appErr, ok := apperrors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.field, appErr.Field)
			assert.NotEmpty(t, appErr.MessageAR)
		})
	}
}

func TestCustomerIdentity_NormalizeAndDisplayName(t *testing.T) {
	c := CustomerIdentity{CustomerType: CustomerTypeIndividual, FullName: "  Sara  ", Nationality: " sa "}
	c.Normalize()

	assert.Equal(t, "Sara", c.FullName)
	assert.Equal(t, "SA", c.Nationality)
	assert.Equal(t, "Sara", c.DisplayName())

	corp := CustomerIdentity{CustomerType: CustomerTypeCorporate, CompanyName: "Najd Trading"}
	assert.Equal(t, "Najd Trading", corp.DisplayName())
}

func TestCustomer_ValidateRiskLevel(t *testing.T) {
	c := &Customer{
		CustomerIdentity: CustomerIdentity{CustomerType: CustomerTypeCorporate, CompanyName: "X", CommercialRecord: "1"},
		RiskLevel:        "Severe",
	}
	assert.ErrorIs(t, c.Validate(), apperrors.ErrValidation)

	c.RiskLevel = scoring.LevelHigh
	assert.NoError(t, c.Validate())
}

func TestPolicy_MissingContent(t *testing.T) {
	p := &Policy{Content: "AML policy", ContentAR: "  "}
	assert.Equal(t, []string{"content_ar"}, p.MissingContent())

	p.ContentAR = "سياسة مكافحة غسل الأموال"
	assert.Empty(t, p.MissingContent())
}

func TestRiskAssessment_Rescore(t *testing.T) {
	a := &RiskAssessment{Factors: []*RiskFactor{
		{Category: scoring.CategoryCustomer, InherentRiskScore: 5, ControlEffectiveness: 2},
	}}
	a.Rescore()
	assert.Equal(t, 4.0, a.OverallRiskScore)
	assert.Equal(t, "High", a.OverallRiskLevel)

	a.Factors = nil
	a.Rescore()
	assert.Zero(t, a.OverallRiskScore)
	assert.Empty(t, a.OverallRiskLevel)
}

func TestAuditLog_IntegrityChain(t *testing.T) {
	resourceID := uuid.New()
	first := &AuditLog{ID: uuid.New(), OrgID: uuid.New(), Action: AuditActionCreate, Resource: "policy", ResourceID: &resourceID, CreatedAt: time.Now()}
	first.SetIntegrityFields("")

	second := &AuditLog{ID: uuid.New(), OrgID: first.OrgID, Action: AuditActionStatusTransition, Resource: "policy", CreatedAt: time.Now(),
		Metadata: map[string]interface{}{"to_status": "Approved"}}
	second.SetIntegrityFields(first.CurrentHash)

	assert.True(t, first.VerifyIntegrity())
	assert.True(t, second.VerifyIntegrity())
	assert.Equal(t, first.CurrentHash, second.PreviousHash)

	second.Metadata["to_status"] = "Draft"
	assert.False(t, second.VerifyIntegrity())
}

func TestListParams_Normalize(t *testing.T) {
	p := ListParams{Page: 0, PageSize: 500}
	p.Normalize()

	assert.Equal(t, 1, p.Page)
	assert.Equal(t, MaxPageSize, p.PageSize)
	assert.Equal(t, 0, p.Offset())

	p.Page = 3
	assert.Equal(t, 200, p.Offset())

	page := NewPage[*Customer](nil, 0, p)
	assert.NotNil(t, page.Items)
}
