package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/pkg/logger"
	"github.com/trous-aml/trous_service/pkg/security"
)

// Headers of a signed monitoring engine request.
const (
	SignatureHeader = "X-Trous-Signature"
	TimestampHeader = "X-Trous-Timestamp"
	NonceHeader     = "X-Trous-Nonce"
)

// SignedRequest admits machine-to-machine requests signed with the shared
// ingest secret. The body is restored for the handler.
func SignedRequest(verifier *security.SignatureVerifier, allowlist *security.IPAllowlist, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		if !allowlist.Allowed(clientIP) {
			log.Warn("Signed request from address outside allowlist", "client_ip", clientIP)
			common.RespondError(c, http.StatusForbidden, "IP_NOT_ALLOWED",
				"Request origin not authorized", "مصدر الطلب غير مصرح له")
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			common.RespondError(c, http.StatusBadRequest, "INVALID_BODY",
				"Failed to read request body", "تعذرت قراءة جسم الطلب")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		timestamp, _ := strconv.ParseInt(c.GetHeader(TimestampHeader), 10, 64)
		err = verifier.Verify(c.Request.Context(), body, c.GetHeader(SignatureHeader), c.GetHeader(NonceHeader), timestamp)
		if err == nil {
			c.Next()
			return
		}

		switch {
		case errors.Is(err, security.ErrMissingSignature), errors.Is(err, security.ErrBadSignature),
			errors.Is(err, security.ErrStaleTimestamp), errors.Is(err, security.ErrReplayed):
			log.Warn("Signed request rejected", "error", err, "client_ip", clientIP)
			common.RespondError(c, http.StatusUnauthorized, "SIGNATURE_INVALID",
				"Request signature or replay validation failed", "فشل التحقق من توقيع الطلب")
		default:
			log.Error("Signed request verification failed", "error", err)
			common.RespondError(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE",
				"Service temporarily unavailable", "الخدمة غير متاحة مؤقتاً")
		}
	}
}
