package policy

import (
	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/policy"
	"github.com/trous-aml/trous_service/pkg/logger"
)

type Handler struct {
	policyService *policy.Service
	logger        *logger.Logger
}

func NewHandler(policyService *policy.Service, log *logger.Logger) *Handler {
	return &Handler{policyService: policyService, logger: log}
}

// ListPolicies handles GET /api/v1/policies
func (h *Handler) ListPolicies(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.policyService.List(c.Request.Context(), actor, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// CreatePolicy handles POST /api/v1/policies
// @Summary Draft a bilingual policy document
// @Tags Policies
// @Accept json
// @Produce json
// @Param request body entities.PolicyInput true "Policy"
// @Success 201 {object} entities.Policy
// @Security BearerAuth
// @Router /policies [post]
func (h *Handler) CreatePolicy(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	var input entities.PolicyInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	p, err := h.policyService.Create(c.Request.Context(), actor, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondCreated(c, p)
}

// GetPolicy handles GET /api/v1/policies/:id
func (h *Handler) GetPolicy(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.policyService.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, p)
}

// UpdatePolicy handles PUT /api/v1/policies/:id. Only drafts are editable.
func (h *Handler) UpdatePolicy(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.PolicyInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	p, err := h.policyService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, p)
}

// ApprovePolicy handles PATCH /api/v1/policies/:id/approve
// @Summary Approve a policy
// @Description The approver must differ from the author.
// @Tags Policies
// @Produce json
// @Param id path string true "Policy ID"
// @Success 200 {object} entities.Policy
// @Failure 403 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /policies/{id}/approve [patch]
func (h *Handler) ApprovePolicy(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	p, err := h.policyService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, p)
}
