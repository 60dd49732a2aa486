package strcase

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/strcase"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
	"github.com/trous-aml/trous_service/pkg/logger"
)

type Handler struct {
	strService *strcase.Service
	logger     *logger.Logger
}

func NewHandler(strService *strcase.Service, log *logger.Logger) *Handler {
	return &Handler{strService: strService, logger: log}
}

// ListCases handles GET /api/v1/str-cases
// @Summary List suspicious transaction report cases
// @Tags STR
// @Produce json
// @Param status query string false "Draft, Under Investigation, Filed to FIU or Closed"
// @Param customer_id query string false "Customer ID"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /str-cases [get]
func (h *Handler) ListCases(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.strService.List(c.Request.Context(), actor, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// CreateCase handles POST /api/v1/str-cases
func (h *Handler) CreateCase(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	var input entities.CreateSTRCaseInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	strCase, err := h.strService.Create(c.Request.Context(), actor, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondCreated(c, strCase)
}

// GetCase handles GET /api/v1/str-cases/:id
func (h *Handler) GetCase(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	strCase, err := h.strService.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, strCase)
}

// UpdateCase handles PATCH /api/v1/str-cases/:id
// @Summary Update investigation notes, goAML report fields or status
// @Description Status moves forward one step at a time: Draft, Under Investigation, Filed to FIU, Closed. A Closed case rejects every change, notes included.
// @Tags STR
// @Accept json
// @Produce json
// @Param id path string true "STR case ID"
// @Param request body entities.UpdateSTRCaseInput true "Changes"
// @Success 200 {object} entities.STRCase
// @Failure 403 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /str-cases/{id} [patch]
func (h *Handler) UpdateCase(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.UpdateSTRCaseInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	strCase, err := h.strService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, strCase)
}

// ExportGoAML handles GET /api/v1/str-cases/:id/export-goaml
// @Summary Download the goAML XML report
// @Tags STR
// @Produce application/xml
// @Param id path string true "STR case ID"
// @Success 200 {string} string "goAML XML"
// @Failure 422 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /str-cases/{id}/export-goaml [get]
func (h *Handler) ExportGoAML(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	export, err := h.strService.ExportGoAML(c.Request.Context(), actor, id)
	if err != nil {
		if apperrors.IsCode(err, apperrors.CodeMissingFields) {
			common.RespondAppErrorStatus(c, h.logger, err, http.StatusUnprocessableEntity)
			return
		}
		common.RespondAppError(c, h.logger, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, export.Filename))
	c.Data(http.StatusOK, "application/xml; charset=utf-8", export.Content)
}
