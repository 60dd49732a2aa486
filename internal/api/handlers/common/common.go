package common

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
	"github.com/trous-aml/trous_service/pkg/i18n"
	"github.com/trous-aml/trous_service/pkg/logger"
	"github.com/trous-aml/trous_service/pkg/validation"
)

// Context keys set by the authentication and request id middleware.
const (
	ActorKey     = "actor"
	UserIDKey    = "user_id"
	RequestIDKey = "request_id"
)

// SetActor stores the authenticated caller on the request.
func SetActor(c *gin.Context, actor entities.Actor) {
	c.Set(ActorKey, actor)
	c.Set(UserIDKey, actor.UserID.String())
}

// GetActor returns the caller stored by the authentication middleware.
func GetActor(c *gin.Context) (entities.Actor, bool) {
	v, ok := c.Get(ActorKey)
	if !ok {
		return entities.Actor{}, false
	}
	actor, ok := v.(entities.Actor)
	return actor, ok
}

// RequireActor returns the caller or writes 401.
func RequireActor(c *gin.Context) (entities.Actor, bool) {
	actor, ok := GetActor(c)
	if !ok {
		RespondUnauthorized(c)
		return entities.Actor{}, false
	}
	return actor, true
}

// Locale is the caller's locale, falling back to Accept-Language for
// unauthenticated requests.
func Locale(c *gin.Context) i18n.Locale {
	if actor, ok := GetActor(c); ok && actor.Locale != "" {
		return actor.Locale
	}
	return i18n.Match(c.GetHeader("Accept-Language"))
}

func GetRequestID(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// RespondData writes the success envelope.
func RespondData(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{"data": data})
}

func RespondOK(c *gin.Context, data interface{}) {
	RespondData(c, http.StatusOK, data)
}

func RespondCreated(c *gin.Context, data interface{}) {
	RespondData(c, http.StatusCreated, data)
}

// RespondError writes the error envelope in the request locale.
func RespondError(c *gin.Context, status int, code, en, ar string) {
	msg := i18n.Pick(Locale(c), en, ar)
	c.AbortWithStatusJSON(status, entities.ErrorResponse{Code: code, Error: msg, Message: msg})
}

func RespondUnauthorized(c *gin.Context) {
	RespondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Authentication required", "يلزم تسجيل الدخول")
}

func RespondForbidden(c *gin.Context) {
	RespondError(c, http.StatusForbidden, string(apperrors.CodeForbidden),
		"You do not have permission to perform this action", "ليس لديك صلاحية لتنفيذ هذا الإجراء")
}

// RespondAppError maps a service error to its status. Business errors carry
// their own localized message; anything else is logged and reported as 500.
func RespondAppError(c *gin.Context, log *logger.Logger, err error) {
	RespondAppErrorStatus(c, log, err, 0)
}

// RespondAppErrorStatus is RespondAppError with the status of a business
// error overridden when status is non-zero.
func RespondAppErrorStatus(c *gin.Context, log *logger.Logger, err error, status int) {
	appErr, ok := apperrors.As(err)
	if !ok {
		log.Error("Request failed",
			"error", err,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", GetRequestID(c),
		)
		RespondError(c, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", "حدث خطأ غير متوقع")
		return
	}

	if status == 0 {
		status = appErr.HTTPStatus()
	}
	msg := appErr.Localized(Locale(c))
	body := entities.ErrorResponse{Code: string(appErr.Code), Error: msg, Message: msg}
	if len(appErr.Fields) > 0 {
		body.MissingFields = appErr.Fields
	}
	if appErr.Field != "" {
		body.Details = map[string]interface{}{"field": appErr.Field}
	}
	c.AbortWithStatusJSON(status, body)
}

// BindJSON binds and validates the body, writing 400 on failure.
func BindJSON(c *gin.Context, log *logger.Logger, obj interface{}) bool {
	if err := validation.BindJSON(c, obj); err != nil {
		RespondAppError(c, log, err)
		return false
	}
	return true
}

// ParsePathUUID parses a UUID path parameter, writing 400 on failure.
func ParsePathUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		RespondError(c, http.StatusBadRequest, string(apperrors.CodeValidation),
			"Invalid "+param+" format", "صيغة المعرف "+param+" غير صالحة")
		return uuid.Nil, false
	}
	return id, true
}

// ParseIntParam parses a query parameter to int with default value
func ParseIntParam(c *gin.Context, param string, defaultVal int) int {
	if val := c.Query(param); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// ParseBoolParam parses a query parameter to bool with default value
func ParseBoolParam(c *gin.Context, param string, defaultVal bool) bool {
	if val := c.Query(param); val != "" {
		return val == "true" || val == "1" || val == "yes"
	}
	return defaultVal
}

// ListParams reads the shared list query parameters. An unparsable
// customer_id is reported with 400.
func ListParams(c *gin.Context) (entities.ListParams, bool) {
	params := entities.ListParams{
		Page:       ParseIntParam(c, "page", 1),
		PageSize:   ParseIntParam(c, "page_size", entities.DefaultPageSize),
		Status:     c.Query("status"),
		Severity:   c.Query("severity"),
		Search:     c.Query("search"),
		Type:       c.Query("type"),
		RiskLevel:  c.Query("risk_level"),
		UnreadOnly: ParseBoolParam(c, "unread", false),
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, string(apperrors.CodeValidation),
				"Invalid customer_id format", "صيغة معرف العميل غير صالحة")
			return params, false
		}
		params.CustomerID = &id
	}
	params.Normalize()
	return params, true
}
