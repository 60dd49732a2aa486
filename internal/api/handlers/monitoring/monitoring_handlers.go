package monitoring

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/monitoring"
	"github.com/trous-aml/trous_service/pkg/logger"
)

type Handler struct {
	ruleService *monitoring.Service
	logger      *logger.Logger
}

func NewHandler(ruleService *monitoring.Service, log *logger.Logger) *Handler {
	return &Handler{ruleService: ruleService, logger: log}
}

// ListRules handles GET /api/v1/monitoring-rules
// @Summary List monitoring rules
// @Tags Monitoring
// @Produce json
// @Success 200 {array} entities.MonitoringRule
// @Security BearerAuth
// @Router /monitoring-rules [get]
func (h *Handler) ListRules(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}

	rules, err := h.ruleService.List(c.Request.Context(), actor)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, rules)
}

// CreateRule handles POST /api/v1/monitoring-rules
// @Summary Create a monitoring rule
// @Tags Monitoring
// @Accept json
// @Produce json
// @Param request body entities.CreateMonitoringRuleInput true "Rule"
// @Success 201 {object} entities.MonitoringRule
// @Failure 400 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /monitoring-rules [post]
func (h *Handler) CreateRule(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	var input entities.CreateMonitoringRuleInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	rule, err := h.ruleService.Create(c.Request.Context(), actor, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondCreated(c, rule)
}

func (h *Handler) GetRule(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	rule, err := h.ruleService.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, rule)
}

// UpdateRule handles PATCH /api/v1/monitoring-rules/:id
func (h *Handler) UpdateRule(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.UpdateMonitoringRuleInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	rule, err := h.ruleService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, rule)
}

// DeleteRule handles DELETE /api/v1/monitoring-rules/:id
func (h *Handler) DeleteRule(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.ruleService.Delete(c.Request.Context(), actor, id); err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}
