package customer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

const (
	entity          = "customer"
	defaultCurrency = "SAR"
)

type Service struct {
	customers    repositories.CustomerRepository
	transactions repositories.TransactionRepository
	audit        audit.Recorder
	logger       *zap.Logger
	clock        func() time.Time
}

func NewService(customers repositories.CustomerRepository, transactions repositories.TransactionRepository, auditRecorder audit.Recorder, logger *zap.Logger) *Service {
	return &Service{
		customers:    customers,
		transactions: transactions,
		audit:        auditRecorder,
		logger:       logger,
		clock:        func() time.Time { return time.Now().UTC() },
	}
}

func duplicate() error {
	return apperrors.Conflict(
		"a customer with this national ID or commercial registration already exists",
		"يوجد عميل مسجل بنفس رقم الهوية أو السجل التجاري")
}

// Create registers a customer entered directly by an administrator.
func (s *Service) Create(ctx context.Context, actor entities.Actor, input entities.CustomerInput) (*entities.Customer, error) {
	input.Normalize()
	c := &entities.Customer{
		ID:               uuid.New(),
		OrgID:            actor.OrgID,
		CustomerIdentity: input.CustomerIdentity,
		RiskLevel:        input.RiskLevel,
		CreatedBy:        actor.UserID,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.customers.Create(ctx, c); err != nil {
		if errors.Is(err, repositories.ErrUniqueViolation) {
			return nil, duplicate()
		}
		return nil, fmt.Errorf("failed to create customer: %w", err)
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionCreate, "customer", &c.ID, map[string]interface{}{
		"customer_type": string(c.CustomerType),
		"risk_level":    string(c.RiskLevel),
	}); err != nil {
		s.logger.Warn("failed to audit customer creation", zap.Error(err))
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, actor entities.Actor, id uuid.UUID) (*entities.Customer, error) {
	c, err := s.customers.GetByID(ctx, actor.OrgID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	if c == nil {
		return nil, apperrors.NotFound(entity)
	}
	return c, nil
}

// List filters by type, risk level and a name/ID search; stats count every
// customer of the organisation by risk level.
func (s *Service) List(ctx context.Context, actor entities.Actor, params entities.ListParams) (entities.Page[*entities.Customer], error) {
	params.Normalize()
	items, total, err := s.customers.List(ctx, actor.OrgID, params)
	if err != nil {
		return entities.Page[*entities.Customer]{}, fmt.Errorf("failed to list customers: %w", err)
	}
	stats, err := s.customers.Stats(ctx, actor.OrgID)
	if err != nil {
		return entities.Page[*entities.Customer]{}, fmt.Errorf("failed to get customer stats: %w", err)
	}
	page := entities.NewPage(items, total, params)
	page.Stats = stats
	return page, nil
}

// Update replaces identity fields and the risk level. The customer type never
// changes; screening flags are owned by screening reviews and are kept.
func (s *Service) Update(ctx context.Context, actor entities.Actor, id uuid.UUID, input entities.CustomerInput) (*entities.Customer, error) {
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	input.Normalize()
	if input.CustomerType != c.CustomerType {
		return nil, apperrors.NewLocalizedValidationError("customer_type",
			"customer type cannot be changed", "لا يمكن تغيير نوع العميل")
	}

	previousLevel := c.RiskLevel
	c.CustomerIdentity = input.CustomerIdentity
	c.RiskLevel = input.RiskLevel
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if err := s.customers.Update(ctx, c); err != nil {
		if errors.Is(err, repositories.ErrUniqueViolation) {
			return nil, duplicate()
		}
		return nil, fmt.Errorf("failed to update customer: %w", err)
	}

	metadata := map[string]interface{}{}
	if previousLevel != c.RiskLevel {
		metadata["risk_level_from"] = string(previousLevel)
		metadata["risk_level_to"] = string(c.RiskLevel)
	}
	if err := s.audit.Record(ctx, actor, entities.AuditActionUpdate, "customer", &c.ID, metadata); err != nil {
		s.logger.Warn("failed to audit customer update", zap.Error(err))
	}

	if previousLevel != c.RiskLevel {
		s.logger.Info("Customer risk level changed",
			zap.String("customer_id", c.ID.String()),
			zap.String("from", string(previousLevel)),
			zap.String("to", string(c.RiskLevel)),
		)
	}
	return c, nil
}

// AddTransaction records a money movement for the external monitoring engine.
func (s *Service) AddTransaction(ctx context.Context, actor entities.Actor, customerID uuid.UUID, input entities.CreateTransactionInput) (*entities.Transaction, error) {
	c, err := s.Get(ctx, actor, customerID)
	if err != nil {
		return nil, err
	}
	if !input.Amount.IsPositive() {
		return nil, apperrors.NewLocalizedValidationError("amount", "amount must be greater than 0", "يجب أن يكون المبلغ أكبر من صفر")
	}
	currency := strings.ToUpper(strings.TrimSpace(input.Currency))
	if currency == "" {
		currency = defaultCurrency
	}
	if len(currency) != 3 || strings.Trim(currency, "ABCDEFGHIJKLMNOPQRSTUVWXYZ") != "" {
		return nil, apperrors.NewLocalizedValidationError("currency",
			"currency must be a 3-letter ISO 4217 code", "يجب أن يكون رمز العملة من ثلاثة أحرف")
	}
	switch input.TxType {
	case entities.TransactionTypeDeposit, entities.TransactionTypeWithdrawal,
		entities.TransactionTypeTransfer, entities.TransactionTypePayment:
	default:
		return nil, apperrors.NewLocalizedValidationError("tx_type",
			"transaction type must be deposit, withdrawal, transfer or payment", "نوع العملية غير صالح")
	}
	status := input.Status
	if status == "" {
		status = entities.TransactionStatusCompleted
	}

	now := s.clock()
	txDate := now
	if input.TxDate != nil {
		txDate = input.TxDate.UTC()
	}

	tx := &entities.Transaction{
		ID:         uuid.New(),
		OrgID:      actor.OrgID,
		CustomerID: c.ID,
		Amount:     input.Amount,
		Currency:   currency,
		TxType:     input.TxType,
		TxDate:     txDate,
		Status:     status,
		Reference:  strings.TrimSpace(input.Reference),
		Notes:      input.Notes,
		CreatedBy:  actor.UserID,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := s.audit.Record(ctx, actor, entities.AuditActionCreate, "transaction", &tx.ID, map[string]interface{}{
		"customer_id": c.ID.String(),
		"amount":      tx.Amount.String(),
		"currency":    tx.Currency,
	}); err != nil {
		s.logger.Warn("failed to audit transaction", zap.Error(err))
	}
	return tx, nil
}

func (s *Service) ListTransactions(ctx context.Context, actor entities.Actor, customerID uuid.UUID, params entities.ListParams) (entities.Page[*entities.Transaction], error) {
	if _, err := s.Get(ctx, actor, customerID); err != nil {
		return entities.Page[*entities.Transaction]{}, err
	}
	params.Normalize()
	items, total, err := s.transactions.ListByCustomer(ctx, actor.OrgID, customerID, params)
	if err != nil {
		return entities.Page[*entities.Transaction]{}, fmt.Errorf("failed to list transactions: %w", err)
	}
	return entities.NewPage(items, total, params), nil
}
