package entities

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type AuditAction string

const (
	AuditActionCreate           AuditAction = "create"
	AuditActionUpdate           AuditAction = "update"
	AuditActionDelete           AuditAction = "delete"
	AuditActionStatusTransition AuditAction = "status_transition"
	AuditActionKYCSubmit        AuditAction = "kyc_submit"
	AuditActionKYCApprove       AuditAction = "kyc_approve"
	AuditActionKYCReject        AuditAction = "kyc_reject"
	AuditActionScreeningReview  AuditAction = "screening_review"
	AuditActionDataExport       AuditAction = "data_export"
	AuditActionSettingsChange   AuditAction = "settings_change"
)

// AuditLog is an append-only record. Entries are chained: each stores the hash
// of the previous entry of the same organisation.
type AuditLog struct {
	ID           uuid.UUID              `json:"id" db:"id"`
	OrgID        uuid.UUID              `json:"org_id" db:"org_id"`
	UserID       uuid.UUID              `json:"user_id" db:"user_id"`
	Action       AuditAction            `json:"action" db:"action"`
	Resource     string                 `json:"resource" db:"resource"`
	ResourceID   *uuid.UUID             `json:"resource_id,omitempty" db:"resource_id"`
	IPAddress    string                 `json:"ip_address" db:"ip_address"`
	Metadata     map[string]interface{} `json:"metadata,omitempty" db:"-"`
	PreviousHash string                 `json:"previous_hash" db:"previous_hash"`
	CurrentHash  string                 `json:"current_hash" db:"current_hash"`
	CreatedAt    time.Time              `json:"created_at" db:"created_at"`
}

// SetIntegrityFields links the entry to previousHash and computes its own hash.
func (l *AuditLog) SetIntegrityFields(previousHash string) {
	l.PreviousHash = previousHash
	l.CurrentHash = l.ComputeHash()
}

// ComputeHash hashes the entry content together with PreviousHash.
func (l *AuditLog) ComputeHash() string {
	meta, _ := json.Marshal(l.Metadata)
	resourceID := ""
	if l.ResourceID != nil {
		resourceID = l.ResourceID.String()
	}
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s|%s",
		l.ID, l.OrgID, l.UserID, l.Action, l.Resource, resourceID,
		meta, l.CreatedAt.UTC().Format(time.RFC3339Nano), l.PreviousHash)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrity reports whether the stored hash matches the content.
func (l *AuditLog) VerifyIntegrity() bool {
	return l.CurrentHash == l.ComputeHash()
}

// StatusTransitionLog is the payload published for every applied workflow transition.
type StatusTransitionLog struct {
	OrgID       uuid.UUID              `json:"org_id"`
	EntityID    uuid.UUID              `json:"entity_id"`
	EntityType  string                 `json:"entity_type"`
	FromStatus  string                 `json:"from_status"`
	ToStatus    string                 `json:"to_status"`
	TriggeredBy uuid.UUID              `json:"triggered_by"`
	Timestamp   time.Time              `json:"timestamp"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
}
