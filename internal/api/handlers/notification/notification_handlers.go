package notification

import (
	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	"github.com/trous-aml/trous_service/pkg/logger"
)

type Handler struct {
	notificationService *notification.Service
	logger              *logger.Logger
}

func NewHandler(notificationService *notification.Service, log *logger.Logger) *Handler {
	return &Handler{notificationService: notificationService, logger: log}
}

// ListNotifications handles GET /api/v1/notifications
// @Summary List the caller's notifications
// @Description Includes organisation-wide broadcasts. Pass unread=true for unread only.
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Unread only"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /notifications [get]
func (h *Handler) ListNotifications(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.notificationService.List(c.Request.Context(), actor, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// UnreadCount handles GET /api/v1/notifications/unread-count
func (h *Handler) UnreadCount(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), actor)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, gin.H{"count": count})
}

// MarkRead handles PATCH /api/v1/notifications/:id/read
func (h *Handler) MarkRead(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), actor, id); err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, gin.H{"id": id, "read": true})
}

// MarkAllRead handles POST /api/v1/notifications/mark-all-read
func (h *Handler) MarkAllRead(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}

	updated, err := h.notificationService.MarkAllRead(c.Request.Context(), actor)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, gin.H{"updated": updated})
}
