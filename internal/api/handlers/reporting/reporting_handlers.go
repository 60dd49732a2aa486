package reporting

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/services/reporting"
	"github.com/trous-aml/trous_service/pkg/logger"
)

type Handler struct {
	reportingService *reporting.Service
	logger           *logger.Logger
}

func NewHandler(reportingService *reporting.Service, log *logger.Logger) *Handler {
	return &Handler{reportingService: reportingService, logger: log}
}

// GetDashboard handles GET /api/v1/dashboard
// @Summary Compliance dashboard
// @Description Counters by risk, status and severity, the latest governance documents and the inspection readiness checklist.
// @Tags Reporting
// @Produce json
// @Success 200 {object} reporting.Dashboard
// @Security BearerAuth
// @Router /dashboard [get]
func (h *Handler) GetDashboard(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}

	dashboard, err := h.reportingService.Dashboard(c.Request.Context(), actor)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, dashboard)
}

// GetInspectionPack handles GET /api/v1/inspection-pack. Pass download=true
// to receive it as an attachment.
// @Summary Regulator inspection pack
// @Tags Reporting
// @Produce json
// @Param download query bool false "Serve as attachment"
// @Success 200 {object} reporting.InspectionPack
// @Failure 409 {object} entities.ErrorResponse "missing_fields lists the absent prerequisites"
// @Security BearerAuth
// @Router /inspection-pack [get]
func (h *Handler) GetInspectionPack(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	download := common.ParseBoolParam(c, "download", false)

	pack, err := h.reportingService.InspectionPack(c.Request.Context(), actor)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	if download {
		c.Header("Content-Disposition",
			fmt.Sprintf(`attachment; filename="inspection-pack-%s.json"`, pack.GeneratedAt.Format("2006-01-02")))
	}
	common.RespondOK(c, pack)
}
