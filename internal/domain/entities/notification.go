package entities

import (
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationAlertEscalated   NotificationType = "alert_escalated"
	NotificationSTRFiled         NotificationType = "str_filed"
	NotificationApprovalRequired NotificationType = "approval_required"
	NotificationScreeningHit     NotificationType = "screening_hit"
	NotificationKYCSubmitted     NotificationType = "kyc_submitted"
)

// Notification is an in-app message for one user.
type Notification struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	OrgID        uuid.UUID        `json:"org_id" db:"org_id"`
	UserID       *uuid.UUID       `json:"user_id" db:"user_id"` // nil broadcasts to the organisation
	Type         NotificationType `json:"type" db:"type"`
	Title        string           `json:"title" db:"title"`
	TitleAR      string           `json:"title_ar" db:"title_ar"`
	Message      string           `json:"message" db:"message"`
	MessageAR    string           `json:"message_ar" db:"message_ar"`
	ResourceType string           `json:"resource_type" db:"resource_type"`
	ResourceID   *uuid.UUID       `json:"resource_id" db:"resource_id"`
	IsRead       bool             `json:"is_read" db:"is_read"`
	ReadAt       *time.Time       `json:"read_at" db:"read_at"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
}
