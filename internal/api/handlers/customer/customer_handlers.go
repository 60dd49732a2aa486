package customer

import (
	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/customer"
	"github.com/trous-aml/trous_service/pkg/logger"
)

// Handler serves the customer register and each customer's transactions.
type Handler struct {
	customerService *customer.Service
	logger          *logger.Logger
}

func NewHandler(customerService *customer.Service, log *logger.Logger) *Handler {
	return &Handler{customerService: customerService, logger: log}
}

// ListCustomers handles GET /api/v1/customers
// @Summary List customers
// @Tags Customers
// @Produce json
// @Param search query string false "Name, national ID or nationality"
// @Param risk_level query string false "low, medium, high or critical"
// @Param status query string false "Customer status"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /customers [get]
func (h *Handler) ListCustomers(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.customerService.List(c.Request.Context(), actor, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// CreateCustomer handles POST /api/v1/customers
// @Summary Register a customer directly
// @Tags Customers
// @Accept json
// @Produce json
// @Param request body entities.CustomerInput true "Customer"
// @Success 201 {object} entities.Customer
// @Failure 400 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /customers [post]
func (h *Handler) CreateCustomer(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	var input entities.CustomerInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	cust, err := h.customerService.Create(c.Request.Context(), actor, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondCreated(c, cust)
}

// GetCustomer handles GET /api/v1/customers/:id
func (h *Handler) GetCustomer(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	cust, err := h.customerService.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, cust)
}

// UpdateCustomer handles PUT /api/v1/customers/:id
func (h *Handler) UpdateCustomer(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.CustomerInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	cust, err := h.customerService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, cust)
}

// ListTransactions handles GET /api/v1/customers/:id/transactions
func (h *Handler) ListTransactions(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.customerService.ListTransactions(c.Request.Context(), actor, id, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// AddTransaction handles POST /api/v1/customers/:id/transactions
// @Summary Record a customer transaction
// @Tags Customers
// @Accept json
// @Produce json
// @Param id path string true "Customer ID"
// @Param request body entities.CreateTransactionInput true "Transaction"
// @Success 201 {object} entities.Transaction
// @Failure 400 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /customers/{id}/transactions [post]
func (h *Handler) AddTransaction(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.CreateTransactionInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	tx, err := h.customerService.AddTransaction(c.Request.Context(), actor, id, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondCreated(c, tx)
}
