package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/trous-aml/trous_service/internal/domain/workflow"
)

type ScreeningType string

const (
	ScreeningTypeSanctions    ScreeningType = "sanctions"
	ScreeningTypePEP          ScreeningType = "pep"
	ScreeningTypeAdverseMedia ScreeningType = "adverse_media"
)

// AllScreeningTypes is the set of checks run for every customer.
var AllScreeningTypes = []ScreeningType{ScreeningTypeSanctions, ScreeningTypePEP, ScreeningTypeAdverseMedia}

type ScreeningStatus string

const (
	ScreeningStatusClear         ScreeningStatus = "clear"
	ScreeningStatusHit           ScreeningStatus = "hit"
	ScreeningStatusPossibleMatch ScreeningStatus = "possible_match"
	ScreeningStatusError         ScreeningStatus = "error"
)

// Reviewable is true for outcomes an officer must decide on.
func (s ScreeningStatus) Reviewable() bool {
	return s == ScreeningStatusHit || s == ScreeningStatusPossibleMatch
}

type ReviewDecision string

const (
	ReviewConfirmedHit  ReviewDecision = "confirmed_hit"
	ReviewFalsePositive ReviewDecision = "false_positive"
	ReviewEscalated     ReviewDecision = "escalated"
)

// ReviewPending is the review state of a result without a decision.
const ReviewPending ReviewDecision = "pending"

// ScreeningReviewMachine: a pending review takes exactly one decision.
var ScreeningReviewMachine = workflow.NewMachine("screening result", map[ReviewDecision][]ReviewDecision{
	ReviewPending:       {ReviewConfirmedHit, ReviewFalsePositive, ReviewEscalated},
	ReviewConfirmedHit:  {},
	ReviewFalsePositive: {},
	ReviewEscalated:     {},
})

func (d ReviewDecision) Valid() bool {
	return d == ReviewConfirmedHit || d == ReviewFalsePositive || d == ReviewEscalated
}

// CustomerFlag is the status recorded on the customer for this decision.
func (d ReviewDecision) CustomerFlag() string {
	switch d {
	case ReviewConfirmedHit:
		return FlagConfirmed
	case ReviewFalsePositive:
		return FlagCleared
	default:
		return FlagEscalated
	}
}

// ScreeningResult is one provider check against one customer. Review fields are
// set at most once.
type ScreeningResult struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	OrgID          uuid.UUID       `json:"org_id" db:"org_id"`
	CustomerID     uuid.UUID       `json:"customer_id" db:"customer_id"`
	ScreeningType  ScreeningType   `json:"screening_type" db:"screening_type"`
	Provider       string          `json:"provider" db:"provider"`
	Status         ScreeningStatus `json:"status" db:"status"`
	MatchedLists   pq.StringArray  `json:"matched_lists" db:"matched_lists"`
	MatchScore     float64         `json:"match_score" db:"match_score"`
	RawResponse    string          `json:"raw_response" db:"raw_response"`
	ScreenedAt     time.Time       `json:"screened_at" db:"screened_at"`
	ReviewedByID   *uuid.UUID      `json:"reviewed_by_id" db:"reviewed_by_id"`
	ReviewDecision *ReviewDecision `json:"review_decision" db:"review_decision"`
	ReviewedAt     *time.Time      `json:"reviewed_at" db:"reviewed_at"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`

	Customer *Customer `json:"customer,omitempty" db:"-"`
}

// ReviewState is the decision, or ReviewPending when none is recorded.
func (r *ScreeningResult) ReviewState() ReviewDecision {
	if r.ReviewDecision == nil {
		return ReviewPending
	}
	return *r.ReviewDecision
}

// IsReviewed reports whether a decision has been recorded.
func (r *ScreeningResult) IsReviewed() bool {
	return r.ReviewDecision != nil
}

// ReviewScreeningInput is the body of POST /screening-results/:id/review.
type ReviewScreeningInput struct {
	Decision ReviewDecision `json:"decision" binding:"required,oneof=confirmed_hit false_positive escalated"`
}

// ScreeningStats are the counters above the screening list.
type ScreeningStats struct {
	TotalScreened int `json:"total_screened" db:"total_screened"`
	PendingReview int `json:"pending_review" db:"pending_review"`
	ConfirmedHits int `json:"confirmed_hits" db:"confirmed_hits"`
}

// BatchScreeningResult summarises a re-screening run.
type BatchScreeningResult struct {
	Screened int `json:"screened"`
	Hits     int `json:"hits"`
	Clear    int `json:"clear"`
}

// ScreeningMatch is a provider answer before it is persisted.
type ScreeningMatch struct {
	Status       ScreeningStatus
	MatchedLists []string
	MatchScore   float64
	RawResponse  string
}
