package common

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
	"github.com/trous-aml/trous_service/pkg/i18n"
	"github.com/trous-aml/trous_service/pkg/logger"
)

func TestRedactPII(t *testing.T) {
	hashed := RedactPII("test@example.com")
	assert.Len(t, hashed, 64)
	assert.Equal(t, hashed, RedactPII("test@example.com"))
	assert.Empty(t, RedactPII(""))
}

func TestMaskIdentifier(t *testing.T) {
	assert.Equal(t, "******7890", MaskIdentifier("1234567890"))
	assert.Equal(t, "***", MaskIdentifier("123"))
	assert.Equal(t, "", MaskIdentifier(""))
}

func testContext(acceptLanguage string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/api/v1/str-cases", nil)
	if acceptLanguage != "" {
		c.Request.Header.Set("Accept-Language", acceptLanguage)
	}
	return c, w
}

func TestRespondAppError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		lang     string
		status   int
		code     string
		contains string
	}{
		{
			name:     "not found in english",
			err:      apperrors.NotFound("STR case"),
			status:   http.StatusNotFound,
			code:     "NOT_FOUND",
			contains: "STR case not found",
		},
		{
			name:     "missing fields carry the list",
			err:      apperrors.MissingFields([]string{"report_type", "reason_for_suspicion"}),
			status:   http.StatusBadRequest,
			code:     "MISSING_FIELDS",
			contains: `"missing_fields":["report_type","reason_for_suspicion"]`,
		},
		{
			name:     "arabic locale",
			err:      apperrors.Forbidden("creator cannot approve", "لا يمكن لمنشئ السياسة اعتمادها"),
			lang:     "ar-SA",
			status:   http.StatusForbidden,
			code:     "FORBIDDEN",
			contains: "لا يمكن لمنشئ السياسة اعتمادها",
		},
		{
			name:     "infrastructure error is hidden",
			err:      errors.New("pq: connection reset"),
			status:   http.StatusInternalServerError,
			code:     "INTERNAL_ERROR",
			contains: "An unexpected error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, w := testContext(tt.lang)
			RespondAppError(c, logger.NewNop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			assert.Contains(t, w.Body.String(), `"code":"`+tt.code+`"`)
			assert.Contains(t, w.Body.String(), tt.contains)
			assert.NotContains(t, w.Body.String(), "pq:")
		})
	}
}

func TestRespondAppErrorStatus_Override(t *testing.T) {
	c, w := testContext("")
	RespondAppErrorStatus(c, logger.NewNop(), apperrors.MissingFields([]string{"report_type"}), http.StatusUnprocessableEntity)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestActorRoundTrip(t *testing.T) {
	c, _ := testContext("")
	_, ok := GetActor(c)
	assert.False(t, ok)

	actor := entities.Actor{UserID: uuid.New(), OrgID: uuid.New(), Role: entities.RoleOfficer, Locale: i18n.Arabic}
	SetActor(c, actor)

	got, ok := GetActor(c)
	require.True(t, ok)
	assert.Equal(t, actor, got)
	assert.Equal(t, actor.UserID.String(), c.GetString(UserIDKey))
	assert.Equal(t, i18n.Arabic, Locale(c))
}

func TestListParams(t *testing.T) {
	gin.SetMode(gin.TestMode)
	customerID := uuid.New()

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?page=2&page_size=500&status=open&customer_id="+customerID.String(), nil)
	params, ok := ListParams(c)
	require.True(t, ok)
	assert.Equal(t, 2, params.Page)
	assert.Equal(t, entities.MaxPageSize, params.PageSize)
	assert.Equal(t, "open", params.Status)
	require.NotNil(t, params.CustomerID)
	assert.Equal(t, customerID, *params.CustomerID)

	w = httptest.NewRecorder()
	c, _ = gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?customer_id=abc", nil)
	_, ok = ListParams(c)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
