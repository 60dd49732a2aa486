package screening

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/screening"
	"github.com/trous-aml/trous_service/pkg/logger"
)

type Handler struct {
	screeningService *screening.Service
	logger           *logger.Logger
}

func NewHandler(screeningService *screening.Service, log *logger.Logger) *Handler {
	return &Handler{screeningService: screeningService, logger: log}
}

type batchRequest struct {
	CustomerIDs []uuid.UUID `json:"customer_ids" binding:"omitempty,max=500"`
	Limit       int         `json:"limit" binding:"omitempty,min=1,max=500"`
}

// ListResults handles GET /api/v1/screening-results
// @Summary List screening results
// @Tags Screening
// @Produce json
// @Param status query string false "clear, hit, possible_match or error"
// @Param customer_id query string false "Customer ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /screening-results [get]
func (h *Handler) ListResults(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.screeningService.List(c.Request.Context(), actor, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// GetResult handles GET /api/v1/screening-results/:id
func (h *Handler) GetResult(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	result, err := h.screeningService.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, result)
}

// ReviewResult handles POST /api/v1/screening-results/:id/review
// @Summary Record a reviewer decision on a screening hit
// @Tags Screening
// @Accept json
// @Produce json
// @Param id path string true "Screening result ID"
// @Param request body entities.ReviewScreeningInput true "Decision"
// @Success 200 {object} entities.ScreeningResult
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /screening-results/{id}/review [post]
func (h *Handler) ReviewResult(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.ReviewScreeningInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	result, err := h.screeningService.Review(c.Request.Context(), actor, id, input.Decision)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, result)
}

// Batch handles POST /api/v1/screening/batch. Without customer_ids the
// customers due for screening are taken, up to limit.
func (h *Handler) Batch(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	var input batchRequest
	if c.Request.ContentLength != 0 && !common.BindJSON(c, h.logger, &input) {
		return
	}

	result, err := h.screeningService.Batch(c.Request.Context(), actor, input.CustomerIDs, input.Limit)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	h.logger.Info("Batch screening finished",
		"org_id", actor.OrgID.String(),
		"screened", result.Screened,
		"hits", result.Hits,
	)
	common.RespondOK(c, result)
}
