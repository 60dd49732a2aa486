package alert

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/alert"
	"github.com/trous-aml/trous_service/pkg/logger"
)

// OrgHeader names the tenant of a signed ingest request.
const OrgHeader = "X-Org-ID"

type Handler struct {
	alertService *alert.Service
	logger       *logger.Logger
}

func NewHandler(alertService *alert.Service, log *logger.Logger) *Handler {
	return &Handler{alertService: alertService, logger: log}
}

// ListAlerts handles GET /api/v1/alerts
// @Summary List monitoring alerts
// @Description Returns a page of alerts with per-status counters in stats.
// @Tags Alerts
// @Produce json
// @Param status query string false "open, under_review, escalated or closed"
// @Param severity query string false "low, medium, high or critical"
// @Param customer_id query string false "Customer ID"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /alerts [get]
func (h *Handler) ListAlerts(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.alertService.List(c.Request.Context(), actor, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// GetAlert handles GET /api/v1/alerts/:id
func (h *Handler) GetAlert(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.alertService.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, a)
}

// UpdateAlert handles PATCH /api/v1/alerts/:id
// @Summary Move an alert through triage
// @Tags Alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param request body entities.UpdateAlertInput true "Transition"
// @Success 200 {object} entities.Alert
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /alerts/{id} [patch]
func (h *Handler) UpdateAlert(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.UpdateAlertInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	a, err := h.alertService.Update(c.Request.Context(), actor, id, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, a)
}

// IngestAlert handles POST /api/v1/alerts for an authenticated admin.
func (h *Handler) IngestAlert(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	h.ingest(c, actor)
}

// IngestSignedAlert handles POST /api/v1/webhooks/alerts. The request has
// already passed signature verification; the tenant comes from X-Org-ID.
// @Summary Ingest an alert from the monitoring engine
// @Tags Alerts
// @Accept json
// @Produce json
// @Param X-Org-ID header string true "Organization ID"
// @Param X-Trous-Signature header string true "HMAC-SHA256 of timestamp.nonce.body"
// @Param X-Trous-Timestamp header int true "Unix seconds"
// @Param X-Trous-Nonce header string true "Single-use nonce"
// @Param request body entities.IngestAlertInput true "Alert"
// @Success 201 {object} entities.Alert
// @Failure 401 {object} entities.ErrorResponse
// @Router /webhooks/alerts [post]
func (h *Handler) IngestSignedAlert(c *gin.Context) {
	orgID, err := uuid.Parse(c.GetHeader(OrgHeader))
	if err != nil || orgID == uuid.Nil {
		common.RespondError(c, http.StatusBadRequest, "INVALID_ORG",
			"X-Org-ID header must be an organization ID", "يجب أن يحتوي الترويسة X-Org-ID على معرف منشأة صالح")
		return
	}
	h.ingest(c, entities.SystemActor(orgID))
}

func (h *Handler) ingest(c *gin.Context, actor entities.Actor) {
	var input entities.IngestAlertInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	a, err := h.alertService.Ingest(c.Request.Context(), actor, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	h.logger.Info("Alert ingested",
		"alert_id", a.ID.String(),
		"org_id", actor.OrgID.String(),
		"severity", string(a.Severity),
	)
	common.RespondCreated(c, a)
}
