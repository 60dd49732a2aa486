package entities

import (
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/workflow"
)

// KYCStatus represents the status of a shareable KYC request
type KYCStatus string

const (
	KYCStatusGenerated KYCStatus = "Generated" // Link created, form not yet filled
	KYCStatusPending   KYCStatus = "Pending"   // Submitted, awaiting officer decision
	KYCStatusApproved  KYCStatus = "Approved"  // Terminal: customer created
	KYCStatusRejected  KYCStatus = "Rejected"  // Terminal: no customer
)

// KYCRequestMachine is the KYC request transition table
var KYCRequestMachine = workflow.NewMachine("kyc request", map[KYCStatus][]KYCStatus{
	KYCStatusGenerated: {KYCStatusPending},
	KYCStatusPending:   {KYCStatusApproved, KYCStatusRejected},
	KYCStatusApproved:  {},
	KYCStatusRejected:  {},
})

// KYCRequest is a single-use identity submission link and, once submitted, the
// identity it carries.
type KYCRequest struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrgID     uuid.UUID `json:"org_id" db:"org_id"`
	Status    KYCStatus `json:"status" db:"status"`
	TokenHash string    `json:"-" db:"token_hash"`
	CustomerIdentity
	RecipientEmail string     `json:"recipient_email,omitempty" db:"recipient_email"`
	CustomerID     *uuid.UUID `json:"customer_id" db:"customer_id"`
	CreatedBy      uuid.UUID  `json:"created_by" db:"created_by"`
	ReviewedBy     *uuid.UUID `json:"reviewed_by,omitempty" db:"reviewed_by"`
	ExpiresAt      time.Time  `json:"expires_at" db:"expires_at"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty" db:"submitted_at"`
	ReviewedAt     *time.Time `json:"reviewed_at,omitempty" db:"reviewed_at"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether the link can no longer be submitted.
func (r *KYCRequest) IsExpired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// CreateKYCRequestInput is the optional body of POST /kyc-requests.
type CreateKYCRequestInput struct {
	RecipientEmail string `json:"recipient_email" binding:"omitempty,email"`
	RecipientName  string `json:"recipient_name"`
	// Locale of the invitation email.
	Language string `json:"language" binding:"omitempty,oneof=en ar"`
}

// CreateKYCRequestResult is returned once; the raw token is never stored.
type CreateKYCRequestResult struct {
	ID      uuid.UUID `json:"id"`
	Token   string    `json:"token"`
	KYCLink string    `json:"kyc_link"`
}

// ApproveKYCInput is the body of POST /kyc-requests/:id/approve.
type ApproveKYCInput struct {
	RiskLevel RiskLevel `json:"risk_level" binding:"required,risk_level"`
}

// ApproveKYCResult reports the advisory screening outcome of an approval.
type ApproveKYCResult struct {
	Customer         *Customer          `json:"customer"`
	ScreeningHit     bool               `json:"screening_hit"`
	ScreeningResults []*ScreeningResult `json:"screening_results"`
}

// PublicKYCForm is what the unauthenticated form page needs to render.
type PublicKYCForm struct {
	Status           KYCStatus `json:"status"`
	OrganizationName string    `json:"organization_name"`
	OrganizationAR   string    `json:"organization_name_ar"`
	ExpiresAt        time.Time `json:"expires_at"`
	Submitted        bool      `json:"submitted"`
}
