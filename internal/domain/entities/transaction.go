package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeDeposit    TransactionType = "deposit"
	TransactionTypeWithdrawal TransactionType = "withdrawal"
	TransactionTypeTransfer   TransactionType = "transfer"
	TransactionTypePayment    TransactionType = "payment"
)

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFlagged   TransactionStatus = "flagged"
	TransactionStatusReversed  TransactionStatus = "reversed"
)

// Transaction is a customer money movement recorded for monitoring.
type Transaction struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	OrgID      uuid.UUID         `json:"org_id" db:"org_id"`
	CustomerID uuid.UUID         `json:"customer_id" db:"customer_id"`
	Amount     decimal.Decimal   `json:"amount" db:"amount"`
	Currency   string            `json:"currency" db:"currency"`
	TxType     TransactionType   `json:"tx_type" db:"tx_type"`
	TxDate     time.Time         `json:"tx_date" db:"tx_date"`
	Status     TransactionStatus `json:"status" db:"status"`
	Reference  string            `json:"reference" db:"reference"`
	Notes      string            `json:"notes" db:"notes"`
	CreatedBy  uuid.UUID         `json:"created_by" db:"created_by"`
	CreatedAt  time.Time         `json:"created_at" db:"created_at"`
}

// CreateTransactionInput is the body of POST /customers/:id/transactions.
type CreateTransactionInput struct {
	Amount    decimal.Decimal   `json:"amount" binding:"required"`
	Currency  string            `json:"currency" binding:"required,len=3"`
	TxType    TransactionType   `json:"tx_type" binding:"required,oneof=deposit withdrawal transfer payment"`
	TxDate    *time.Time        `json:"tx_date"`
	Status    TransactionStatus `json:"status" binding:"omitempty,oneof=pending completed flagged reversed"`
	Reference string            `json:"reference" binding:"max=100"`
	Notes     string            `json:"notes"`
}
