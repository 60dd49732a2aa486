package riskassessment

import (
	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/riskassessment"
	"github.com/trous-aml/trous_service/pkg/logger"
)

type Handler struct {
	assessmentService *riskassessment.Service
	logger            *logger.Logger
}

func NewHandler(assessmentService *riskassessment.Service, log *logger.Logger) *Handler {
	return &Handler{assessmentService: assessmentService, logger: log}
}

func (h *Handler) ListAssessments(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.assessmentService.List(c.Request.Context(), actor, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// CreateAssessment handles POST /api/v1/risk-assessments
// @Summary Start an enterprise-wide risk assessment draft
// @Tags Risk Assessments
// @Produce json
// @Success 201 {object} entities.RiskAssessment
// @Security BearerAuth
// @Router /risk-assessments [post]
func (h *Handler) CreateAssessment(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}

	a, err := h.assessmentService.Create(c.Request.Context(), actor)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondCreated(c, a)
}

func (h *Handler) GetAssessment(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.assessmentService.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, a)
}

// AddFactor handles POST /api/v1/risk-assessments/:id/factors
// @Summary Add a scored risk factor
// @Description Residual score is inherent risk times control effectiveness over five. The overall score is recomputed.
// @Tags Risk Assessments
// @Accept json
// @Produce json
// @Param id path string true "Assessment ID"
// @Param request body entities.AddRiskFactorInput true "Factor"
// @Success 201 {object} entities.RiskAssessment
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /risk-assessments/{id}/factors [post]
func (h *Handler) AddFactor(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.AddRiskFactorInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	a, err := h.assessmentService.AddFactor(c.Request.Context(), actor, id, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondCreated(c, a)
}

// UpdateFactor handles PATCH /api/v1/risk-assessments/:id/factors/:factorId
func (h *Handler) UpdateFactor(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	factorID, ok := common.ParsePathUUID(c, "factorId")
	if !ok {
		return
	}
	var input entities.UpdateRiskFactorInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	a, err := h.assessmentService.UpdateFactor(c.Request.Context(), actor, id, factorID, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, a)
}

// ApproveAssessment handles PATCH /api/v1/risk-assessments/:id/approve
func (h *Handler) ApproveAssessment(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.assessmentService.Approve(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, a)
}

// RequestApproval handles POST /api/v1/risk-assessments/:id/request-approval
func (h *Handler) RequestApproval(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.assessmentService.RequestApproval(c.Request.Context(), actor, id); err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, gin.H{"requested": true})
}
