package entities

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/scoring"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

// CustomerType selects which identity fields apply.
type CustomerType string

const (
	CustomerTypeIndividual CustomerType = "individual"
	CustomerTypeCorporate  CustomerType = "corporate"
)

func (t CustomerType) Valid() bool {
	return t == CustomerTypeIndividual || t == CustomerTypeCorporate
}

// RiskLevel is the customer risk rating, on the same scale as assessments.
type RiskLevel = scoring.Level

// Screening outcome flags recorded on the customer.
const (
	FlagConfirmed = "confirmed"
	FlagCleared   = "cleared"
	FlagEscalated = "escalated"
	FlagPotential = "potential_match"
)

// CustomerIdentity holds the identity fields submitted through KYC or direct
// entry. Individuals use FullName, NationalID and Nationality; corporates use
// CompanyName and CommercialRecord.
type CustomerIdentity struct {
	CustomerType       CustomerType `json:"customer_type" db:"customer_type" binding:"required"`
	FullName           string       `json:"full_name" db:"full_name"`
	NationalID         string       `json:"national_id" db:"national_id"`
	Nationality        string       `json:"nationality" db:"nationality"`
	CompanyName        string       `json:"company_name" db:"company_name"`
	CommercialRecord   string       `json:"commercial_record" db:"commercial_record"`
	RepresentativeName string       `json:"representative_name" db:"representative_name"`
	IsUBO              bool         `json:"is_ubo" db:"is_ubo"`
}

// Normalize trims whitespace and upper-cases the nationality code.
func (c *CustomerIdentity) Normalize() {
	c.FullName = strings.TrimSpace(c.FullName)
	c.NationalID = strings.TrimSpace(c.NationalID)
	c.Nationality = strings.ToUpper(strings.TrimSpace(c.Nationality))
	c.CompanyName = strings.TrimSpace(c.CompanyName)
	c.CommercialRecord = strings.TrimSpace(c.CommercialRecord)
	c.RepresentativeName = strings.TrimSpace(c.RepresentativeName)
}

// Validate enforces that exactly the identity group of the customer type is populated.
func (c CustomerIdentity) Validate() error {
	switch c.CustomerType {
	case CustomerTypeIndividual:
		if c.FullName == "" {
			return apperrors.NewLocalizedValidationError("full_name", "full name is required", "الاسم الكامل مطلوب")
		}
		if !ValidSaudiID(c.NationalID) {
			return apperrors.NewLocalizedValidationError("national_id",
				"national ID must be 10 digits starting with 1, 2 or 7",
				"يجب أن يتكون رقم الهوية من 10 أرقام ويبدأ بـ 1 أو 2 أو 7")
		}
		if !validAlpha2(c.Nationality) {
			return apperrors.NewLocalizedValidationError("nationality",
				"nationality must be an ISO 3166-1 alpha-2 code", "يجب أن تكون الجنسية رمزاً من حرفين")
		}
		if c.CompanyName != "" || c.CommercialRecord != "" {
			return apperrors.NewLocalizedValidationError("company_name",
				"company fields are not allowed for individual customers",
				"لا يسمح بحقول الشركة للعملاء الأفراد")
		}
		if c.IsUBO {
			return apperrors.NewLocalizedValidationError("is_ubo",
				"UBO flag applies to corporate customers only",
				"مؤشر المستفيد الحقيقي يخص الشركات فقط")
		}
	case CustomerTypeCorporate:
		if c.CompanyName == "" {
			return apperrors.NewLocalizedValidationError("company_name", "company name is required", "اسم الشركة مطلوب")
		}
		if c.CommercialRecord == "" {
			return apperrors.NewLocalizedValidationError("commercial_record",
				"commercial registration number is required", "رقم السجل التجاري مطلوب")
		}
		if c.FullName != "" || c.NationalID != "" || c.Nationality != "" {
			return apperrors.NewLocalizedValidationError("full_name",
				"individual fields are not allowed for corporate customers",
				"لا يسمح بحقول الأفراد للعملاء من الشركات")
		}
	default:
		return apperrors.NewLocalizedValidationError("customer_type",
			"customer type must be individual or corporate", "نوع العميل يجب أن يكون فرداً أو شركة")
	}
	return nil
}

// DisplayName is the name shown in lists and used for screening.
func (c CustomerIdentity) DisplayName() string {
	if c.CustomerType == CustomerTypeCorporate {
		return c.CompanyName
	}
	return c.FullName
}

// Customer is an onboarded individual or corporate client.
type Customer struct {
	ID    uuid.UUID `json:"id" db:"id"`
	OrgID uuid.UUID `json:"org_id" db:"org_id"`
	CustomerIdentity
	RiskLevel       RiskLevel  `json:"risk_level" db:"risk_level"`
	PEPStatus       string     `json:"pep_status" db:"pep_status"`
	SanctionsStatus string     `json:"sanctions_status" db:"sanctions_status"`
	KYCRequestID    *uuid.UUID `json:"kyc_request_id,omitempty" db:"kyc_request_id"`
	CreatedBy       uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at" db:"updated_at"`
}

// Validate checks identity fields and the risk level.
func (c *Customer) Validate() error {
	if err := c.CustomerIdentity.Validate(); err != nil {
		return err
	}
	if !c.RiskLevel.Valid() {
		return apperrors.NewLocalizedValidationError("risk_level",
			"risk level must be Low, Medium, High or Critical", "مستوى المخاطر غير صالح")
	}
	return nil
}

// ValidSaudiID checks a Saudi identifier: 10 digits, leading 1 (citizen),
// 2 (resident) or 7 (unified number).
func ValidSaudiID(id string) bool {
	if len(id) != 10 {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < '0' || id[i] > '9' {
			return false
		}
	}
	return id[0] == '1' || id[0] == '2' || id[0] == '7'
}

func validAlpha2(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

// CustomerStats are the per-risk-level counts shown above the customer list.
type CustomerStats struct {
	Low      int `json:"low" db:"low"`
	Medium   int `json:"medium" db:"medium"`
	High     int `json:"high" db:"high"`
	Critical int `json:"critical" db:"critical"`
}

// CustomerInput is the body of POST /customers and PUT /customers/:id. On PUT
// the customer type must match the stored one.
type CustomerInput struct {
	CustomerIdentity
	RiskLevel RiskLevel `json:"risk_level" binding:"required,risk_level"`
}
