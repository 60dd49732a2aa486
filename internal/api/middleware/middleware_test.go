package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/pkg/auth"
	"github.com/trous-aml/trous_service/pkg/logger"
	"github.com/trous-aml/trous_service/pkg/security"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func init() {
	gin.SetMode(gin.TestMode)
}

func TestPublicRateLimiter_AllowsWithinLimit(t *testing.T) {
	limiter := NewPublicRateLimiter(5, 5)

	router := gin.New()
	router.Use(limiter.Limit())
	router.GET("/kyc/public/:token", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodGet, "/kyc/public/abc", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, "Request %d should be allowed", i+1)
	}
}

func TestPublicRateLimiter_BlocksExcessRequests(t *testing.T) {
	limiter := NewPublicRateLimiter(3, 3)

	router := gin.New()
	router.Use(limiter.Limit())
	router.POST("/kyc/public/:token", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/kyc/public/abc", nil)
		req.RemoteAddr = "192.168.1.1:12345"
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	req := httptest.NewRequest(http.MethodPost, "/kyc/public/abc", nil)
	req.RemoteAddr = "192.168.1.1:12345"
	req.Header.Set("Accept-Language", "ar")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMITED")
	assert.Contains(t, w.Body.String(), "عدد كبير جداً من الطلبات")
	assert.Equal(t, "20", w.Header().Get("Retry-After"))

	// a different IP has its own bucket
	req = httptest.NewRequest(http.MethodPost, "/kyc/public/abc", nil)
	req.RemoteAddr = "192.168.1.2:12345"
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPublicRateLimiter_SweepsIdleVisitors(t *testing.T) {
	limiter := NewPublicRateLimiter(1, 1)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return now }

	assert.True(t, limiter.allow("a"))
	assert.False(t, limiter.allow("a"))

	now = now.Add(idleLimiterTTL + time.Minute)
	assert.True(t, limiter.allow("b"))
	assert.Len(t, limiter.visitors, 1)
}

func authRouter(tokens TokenValidator, guards ...gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(Authentication(tokens, logger.NewNop()))
	handlers := append(guards, func(c *gin.Context) {
		actor, _ := common.GetActor(c)
		c.JSON(http.StatusOK, gin.H{"role": actor.Role, "locale": actor.Locale})
	})
	router.GET("/api/v1/alerts", handlers...)
	return router
}

func TestAuthentication(t *testing.T) {
	jwtService := auth.NewJWTService(testSecret, "trous")
	token := func(role, locale string) string {
		tok, err := jwtService.Generate(uuid.New(), uuid.New(), role, locale, time.Hour)
		require.NoError(t, err)
		return tok
	}
	other := auth.NewJWTService("ffffffffffffffffffffffffffffffff", "trous")
	forged, err := other.Generate(uuid.New(), uuid.New(), "admin", "", time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		lang   string
		status int
		body   string
	}{
		{name: "missing header", status: http.StatusUnauthorized},
		{name: "not a bearer", header: "Basic abc", status: http.StatusUnauthorized},
		{name: "forged", header: "Bearer " + forged, status: http.StatusUnauthorized},
		{name: "unknown role", header: "Bearer " + token("auditor", ""), status: http.StatusForbidden},
		{name: "officer", header: "Bearer " + token("officer", "ar"), status: http.StatusOK, body: `"locale":"ar"`},
		{name: "header wins over claim", header: "Bearer " + token("viewer", "ar"), lang: "en-US", status: http.StatusOK, body: `"locale":"en"`},
	}

	router := authRouter(jwtService)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			if tt.lang != "" {
				req.Header.Set("Accept-Language", tt.lang)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)
			assert.Equal(t, tt.status, w.Code)
			if tt.body != "" {
				assert.Contains(t, w.Body.String(), tt.body)
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	jwtService := auth.NewJWTService(testSecret, "trous")
	router := authRouter(jwtService, RequireAdmin())

	for role, want := range map[string]int{
		"admin":   http.StatusOK,
		"officer": http.StatusForbidden,
		"viewer":  http.StatusForbidden,
	} {
		tok, err := jwtService.Generate(uuid.New(), uuid.New(), role, "", time.Hour)
		require.NoError(t, err)
		req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
		req.Header.Set("Authorization", "Bearer "+tok)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, role)
	}
}

func TestRequireWrite_NoActor(t *testing.T) {
	router := gin.New()
	router.GET("/x", RequireWrite(), func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestID(t *testing.T) {
	router := gin.New()
	router.Use(RequestID())
	router.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, common.GetRequestID(c)) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, w.Header().Get("X-Request-ID"), w.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("X-Request-ID", "req-42")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "req-42", w.Body.String())
}

func TestRecovery(t *testing.T) {
	router := gin.New()
	router.Use(Recovery(logger.NewNop()))
	router.GET("/boom", func(c *gin.Context) { panic("nil map") })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "INTERNAL_ERROR")
}

func TestCORS(t *testing.T) {
	router := gin.New()
	router.Use(CORS([]string{"https://dashboard.trous.sa"}))
	router.GET("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodOptions, "/x", nil)
	req.Header.Set("Origin", "https://dashboard.trous.sa")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dashboard.trous.sa", w.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set("Origin", "https://evil.example")
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaxBodySize(t *testing.T) {
	router := gin.New()
	router.Use(MaxBodySize(16))
	router.POST("/x", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{"padding":"0123456789"}`)))
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/x", strings.NewReader(`{}`)))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTimeoutMiddleware(t *testing.T) {
	router := gin.New()
	router.Use(TimeoutMiddleware(10 * time.Millisecond))
	router.GET("/slow", func(c *gin.Context) {
		<-c.Request.Context().Done()
	})
	router.GET("/fast", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		assert.True(t, ok)
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fast", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSignedRequest(t *testing.T) {
	verifier := security.NewSignatureVerifier(security.VerifierConfig{Secret: testSecret, MaxSkew: time.Minute},
		security.NewMemoryNonceStore(), zap.NewNop())
	allowlist, err := security.NewIPAllowlist([]string{"10.0.0.0/8"})
	require.NoError(t, err)

	router := gin.New()
	router.POST("/ingest", SignedRequest(verifier, allowlist, logger.NewNop()), func(c *gin.Context) {
		body, _ := c.GetRawData()
		c.String(http.StatusAccepted, string(body))
	})

	body := `{"customer_id":"c-1"}`
	send := func(remote, nonce, signature string, ts int64) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/ingest", strings.NewReader(body))
		req.RemoteAddr = remote
		req.Header.Set(NonceHeader, nonce)
		req.Header.Set(TimestampHeader, strconv.FormatInt(ts, 10))
		req.Header.Set(SignatureHeader, signature)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	ts := time.Now().Unix()
	sig := "sha256=" + security.Sign([]byte(testSecret), ts, "n-1", []byte(body))

	w := send("10.1.2.3:5000", "n-1", sig, ts)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, body, w.Body.String(), "body is restored for the handler")

	w = send("10.1.2.3:5000", "n-1", sig, ts)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "replay")

	w = send("10.1.2.3:5000", "n-2", sig, ts)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "signature bound to nonce")

	w = send("172.16.0.1:5000", "n-3", "sha256="+security.Sign([]byte(testSecret), ts, "n-3", []byte(body)), ts)
	assert.Equal(t, http.StatusForbidden, w.Code)
}
