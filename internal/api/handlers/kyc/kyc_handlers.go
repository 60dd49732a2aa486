package kyc

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/kyc"
	"github.com/trous-aml/trous_service/pkg/logger"
)

type Handler struct {
	kycService *kyc.Service
	logger     *logger.Logger
}

func NewHandler(kycService *kyc.Service, log *logger.Logger) *Handler {
	return &Handler{
		kycService: kycService,
		logger:     log,
	}
}

type rejectRequest struct {
	Reason string `json:"reason" binding:"max=2000"`
}

// ListRequests handles GET /api/v1/kyc-requests
// @Summary List KYC requests
// @Tags KYC
// @Produce json
// @Param status query string false "Generated, Pending, Approved or Rejected"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} map[string]interface{}
// @Security BearerAuth
// @Router /kyc-requests [get]
func (h *Handler) ListRequests(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	params, ok := common.ListParams(c)
	if !ok {
		return
	}

	page, err := h.kycService.List(c.Request.Context(), actor, params)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, page)
}

// CreateRequest handles POST /api/v1/kyc-requests
// @Summary Generate a KYC form link
// @Description Creates a single-use public form link. The raw token is returned once and stored only as a hash.
// @Tags KYC
// @Accept json
// @Produce json
// @Param request body entities.CreateKYCRequestInput true "Recipient"
// @Success 201 {object} entities.CreateKYCRequestResult
// @Failure 400 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /kyc-requests [post]
func (h *Handler) CreateRequest(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}

	var input entities.CreateKYCRequestInput
	if c.Request.ContentLength != 0 && !common.BindJSON(c, h.logger, &input) {
		return
	}

	result, err := h.kycService.Create(c.Request.Context(), actor, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondCreated(c, result)
}

// GetRequest handles GET /api/v1/kyc-requests/:id
func (h *Handler) GetRequest(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}

	req, err := h.kycService.Get(c.Request.Context(), actor, id)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, req)
}

// ApproveRequest handles POST /api/v1/kyc-requests/:id/approve
// @Summary Approve a submitted KYC request
// @Description Creates the customer with the given risk level and runs advisory screening. A hit does not block approval.
// @Tags KYC
// @Accept json
// @Produce json
// @Param id path string true "KYC request ID"
// @Param request body entities.ApproveKYCInput true "Risk level"
// @Success 200 {object} entities.ApproveKYCResult
// @Failure 409 {object} entities.ErrorResponse
// @Security BearerAuth
// @Router /kyc-requests/{id}/approve [post]
func (h *Handler) ApproveRequest(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input entities.ApproveKYCInput
	if !common.BindJSON(c, h.logger, &input) {
		return
	}

	result, err := h.kycService.Approve(c.Request.Context(), actor, id, input)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, result)
}

// RejectRequest handles POST /api/v1/kyc-requests/:id/reject
func (h *Handler) RejectRequest(c *gin.Context) {
	actor, ok := common.RequireActor(c)
	if !ok {
		return
	}
	id, ok := common.ParsePathUUID(c, "id")
	if !ok {
		return
	}
	var input rejectRequest
	if c.Request.ContentLength != 0 && !common.BindJSON(c, h.logger, &input) {
		return
	}

	req, err := h.kycService.Reject(c.Request.Context(), actor, id, input.Reason)
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, req)
}

// GetPublicForm handles GET /api/v1/kyc/public/:token
// @Summary Load the public KYC form
// @Tags KYC Public
// @Produce json
// @Param token path string true "Form token"
// @Success 200 {object} entities.PublicKYCForm
// @Failure 404 {object} entities.ErrorResponse
// @Failure 410 {object} entities.ErrorResponse
// @Router /kyc/public/{token} [get]
func (h *Handler) GetPublicForm(c *gin.Context) {
	form, err := h.kycService.PublicForm(c.Request.Context(), c.Param("token"))
	if err != nil {
		common.RespondAppError(c, h.logger, err)
		return
	}
	common.RespondOK(c, form)
}

// SubmitPublicForm handles POST /api/v1/kyc/public/:token. A link accepts
// exactly one submission.
// @Summary Submit the public KYC form
// @Tags KYC Public
// @Accept json
// @Produce json
// @Param token path string true "Form token"
// @Param request body entities.CustomerIdentity true "Identity"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} entities.ErrorResponse
// @Failure 409 {object} entities.ErrorResponse
// @Router /kyc/public/{token} [post]
func (h *Handler) SubmitPublicForm(c *gin.Context) {
	token := c.Param("token")
	var identity entities.CustomerIdentity
	if !common.BindJSON(c, h.logger, &identity) {
		return
	}

	req, err := h.kycService.Submit(c.Request.Context(), token, identity, c.ClientIP())
	if err != nil {
		h.logger.Warn("KYC form submission rejected",
			"token_hash", common.RedactPII(token),
			"national_id", common.MaskIdentifier(identity.NationalID),
			"error", err,
		)
		common.RespondAppError(c, h.logger, err)
		return
	}

	h.logger.Info("KYC form submitted", "kyc_request_id", req.ID.String(), "org_id", req.OrgID.String())
	c.JSON(http.StatusOK, gin.H{"data": gin.H{
		"id":     req.ID,
		"status": req.Status,
	}})
}
