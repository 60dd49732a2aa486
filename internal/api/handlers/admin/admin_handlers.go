package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/organization"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
	"github.com/trous-aml/trous_service/pkg/logger"
)

// defaultVerifyWindow is the period verified when no range is given.
const defaultVerifyWindow = 30 * 24 * time.Hour

// Handler serves organization settings and the audit trail.
type Handler struct {
	orgService   *organization.Service
	auditService *audit.Service
	logger       *logger.Logger
	now          func() time.Time
}

func NewHandler(orgService *organization.Service, auditService *audit.Service, log *logger.Logger) *Handler {
	return &Handler{
		orgService:   orgService,
		auditService: auditService,
		logger:       log,
		now:          time.Now,
	}
}

// GetOrganization handles GET /api/v1/organization
func (h *Handler) GetOrganization(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}

	org, err := h.orgService.Get(c.Request.Context(), actor)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, org)
}

// UpdateOrganization handles PATCH /api/v1/organization
// @Summary Update organization names and goAML entity ID
// @Tags Admin
// @Accept json
// @Produce json
// @Param request body entities.UpdateOrganizationInput true "Changes"
// @Success 200 {object} entities.Organization
// @Security BearerAuth
// @Router /organization [patch]
func (h *Handler) UpdateOrganization(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	var input entities.UpdateOrganizationInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	org, err := h.orgService.Update(c.Request.Context(), actor, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, org)
}

// ListAuditLogs handles GET /api/v1/audit-logs
// @Summary Browse the audit trail
// @Tags Admin
// @Produce json
// @Param type query string false "Resource type"
// @Param page query int false "Page number"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /audit-logs [get]
func (h *Handler) ListAuditLogs(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.auditService.List(c.Request.Context(), actor, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// VerifyAuditLogs handles GET /api/v1/audit-logs/verify
// @Summary Verify the audit hash chain over a period
// @Tags Admin
// @Produce json
// @Param from query string false "RFC3339 start, default 30 days ago"
// @Param to query string false "RFC3339 end, default now"
// @Success 200 {object} audit.IntegrityVerificationResult
// @Security BearerAuth
// @Router /audit-logs/verify [get]
func (h *Handler) VerifyAuditLogs(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}

	end := h.now().UTC()
	start := end.Add(-defaultVerifyWindow)
	if !parseTime(c, "from", &start) || !parseTime(c, "to", &end) {
		return
	}

	result, err := h.auditService.VerifyIntegrity(c.Request.Context(), actor, start, end)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	if result.IntegrityStatus != "verified" {
		h.logger.Warn("Audit trail integrity check failed",
			"org_id", actor.OrgID.String(),
			"status", result.IntegrityStatus,
			"tampered", len(result.TamperedLogs),
			"broken_links", len(result.BrokenLinks),
		)
	}
	common.RespondOK(c, result)
}

func parseTime(c *gin.Context, param string, dst *time.Time) bool {
	raw := c.Query(param)
	if raw == "" {
		return true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		common.RespondError(c, http.StatusBadRequest, string(apperrors.CodeValidation),
			param+" must be an RFC3339 timestamp", "يجب أن يكون "+param+" تاريخاً بصيغة RFC3339")
		return false
	}
	*dst = t
	return true
}
