package routes

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/trous-aml/trous_service/docs"
	"github.com/trous-aml/trous_service/internal/api/handlers"
	"github.com/trous-aml/trous_service/internal/api/middleware"
	"github.com/trous-aml/trous_service/internal/infrastructure/di"
	"github.com/trous-aml/trous_service/pkg/metrics"
	"github.com/trous-aml/trous_service/pkg/tracing"
	"github.com/trous-aml/trous_service/pkg/validation"
)

// Version is reported by /health.
const Version = "1.0.0"

// NewHandlers builds every HTTP handler from the container's services.
func NewHandlers(c *di.Container) *handlers.Set {
	log := c.Logger
	return &handlers.Set{
		Health:         handlers.NewHealthHandler(Version, c.HealthChecks()),
		KYC:            handlers.NewKYCHandler(c.KYCService, log),
		Customers:      handlers.NewCustomerHandler(c.CustomerService, log),
		Alerts:         handlers.NewAlertHandler(c.AlertService, log),
		Screening:      handlers.NewScreeningHandler(c.ScreeningService, log),
		Monitoring:     handlers.NewMonitoringHandler(c.MonitoringService, log),
		STRCases:       handlers.NewSTRCaseHandler(c.STRCaseService, log),
		Policies:       handlers.NewPolicyHandler(c.PolicyService, log),
		RiskAssessment: handlers.NewRiskAssessmentHandler(c.RiskAssessmentService, log),
		Reporting:      handlers.NewReportingHandler(c.ReportingService, log),
		Notifications:  handlers.NewNotificationHandler(c.NotificationService, log),
		Admin:          handlers.NewAdminHandler(c.OrganizationService, c.AuditService, log),
	}
}

// SetupRoutes configures all application routes
func SetupRoutes(container *di.Container) *gin.Engine {
	validation.Register()

	cfg := container.Config
	log := container.Logger
	h := NewHandlers(container)

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(log))
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(metrics.GinMiddleware())
	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}
	router.Use(middleware.MaxBodySize(cfg.Server.MaxBodyBytes))
	router.Use(middleware.TimeoutMiddleware(time.Duration(cfg.Server.RequestTimeout) * time.Second))

	router.GET("/health", h.Health.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := router.Group("/api/v1")

	// Public KYC form, no auth, limited per client IP
	publicLimiter := middleware.NewPublicRateLimiter(cfg.RateLimit.PublicRequestsPerMinute, cfg.RateLimit.PublicBurst)
	public := v1.Group("/kyc/public")
	public.Use(publicLimiter.Limit())
	{
		public.GET("/:token", h.KYC.GetPublicForm)
		public.POST("/:token", h.KYC.SubmitPublicForm)
	}

	// Monitoring engine push, verified by signature
	if container.SignatureVerifier != nil {
		webhooks := v1.Group("/webhooks")
		webhooks.Use(middleware.SignedRequest(container.SignatureVerifier, container.IngestAllowlist, log))
		webhooks.POST("/alerts", h.Alerts.IngestSignedAlert)
	}

	api := v1.Group("")
	api.Use(middleware.Authentication(container.Tokens, log))
	api.Use(container.RateLimiter.Middleware())

	registerWorkflowRoutes(api, h)
	registerGovernanceRoutes(api, h)
	registerAccountRoutes(api, h)

	return router
}

// registerWorkflowRoutes mounts KYC, customer, alert, screening and STR
// routes. Viewers read; officers and admins act.
func registerWorkflowRoutes(api *gin.RouterGroup, h *handlers.Set) {
	write := middleware.RequireWrite()
	admin := middleware.RequireAdmin()

	kyc := api.Group("/kyc-requests")
	{
		kyc.GET("", h.KYC.ListRequests)
		kyc.POST("", write, h.KYC.CreateRequest)
		kyc.GET("/:id", h.KYC.GetRequest)
		kyc.POST("/:id/approve", write, h.KYC.ApproveRequest)
		kyc.POST("/:id/reject", write, h.KYC.RejectRequest)
	}

	customers := api.Group("/customers")
	{
		customers.GET("", h.Customers.ListCustomers)
		customers.POST("", write, h.Customers.CreateCustomer)
		customers.GET("/:id", h.Customers.GetCustomer)
		customers.PUT("/:id", write, h.Customers.UpdateCustomer)
		customers.GET("/:id/transactions", h.Customers.ListTransactions)
		customers.POST("/:id/transactions", write, h.Customers.AddTransaction)
	}

	alerts := api.Group("/alerts")
	{
		alerts.GET("", h.Alerts.ListAlerts)
		alerts.POST("", admin, h.Alerts.IngestAlert)
		alerts.GET("/:id", h.Alerts.GetAlert)
		alerts.PATCH("/:id", write, h.Alerts.UpdateAlert)
	}

	results := api.Group("/screening-results")
	{
		results.GET("", h.Screening.ListResults)
		results.GET("/:id", h.Screening.GetResult)
		results.POST("/:id/review", write, h.Screening.ReviewResult)
	}
	api.POST("/screening/batch", write, h.Screening.Batch)

	cases := api.Group("/str-cases")
	{
		cases.GET("", h.STRCases.ListCases)
		cases.POST("", write, h.STRCases.CreateCase)
		cases.GET("/:id", h.STRCases.GetCase)
		cases.PATCH("/:id", write, h.STRCases.UpdateCase)
		cases.GET("/:id/export-goaml", write, h.STRCases.ExportGoAML)
	}
}

// registerGovernanceRoutes mounts rules, policies, assessments and
// reporting. Changes and approvals are admin only.
func registerGovernanceRoutes(api *gin.RouterGroup, h *handlers.Set) {
	admin := middleware.RequireAdmin()

	rules := api.Group("/monitoring-rules")
	{
		rules.GET("", h.Monitoring.ListRules)
		rules.POST("", admin, h.Monitoring.CreateRule)
		rules.GET("/:id", h.Monitoring.GetRule)
		rules.PATCH("/:id", admin, h.Monitoring.UpdateRule)
		rules.DELETE("/:id", admin, h.Monitoring.DeleteRule)
	}

	policies := api.Group("/policies")
	{
		policies.GET("", h.Policies.ListPolicies)
		policies.POST("", admin, h.Policies.CreatePolicy)
		policies.GET("/:id", h.Policies.GetPolicy)
		policies.PUT("/:id", admin, h.Policies.UpdatePolicy)
		policies.PATCH("/:id/approve", admin, h.Policies.ApprovePolicy)
	}

	assessments := api.Group("/risk-assessments")
	{
		assessments.GET("", h.RiskAssessment.ListAssessments)
		assessments.POST("", admin, h.RiskAssessment.CreateAssessment)
		assessments.GET("/:id", h.RiskAssessment.GetAssessment)
		assessments.POST("/:id/factors", admin, h.RiskAssessment.AddFactor)
		assessments.PATCH("/:id/factors/:factorId", admin, h.RiskAssessment.UpdateFactor)
		assessments.PATCH("/:id/approve", admin, h.RiskAssessment.ApproveAssessment)
		assessments.POST("/:id/request-approval", admin, h.RiskAssessment.RequestApproval)
	}

	api.GET("/dashboard", h.Reporting.GetDashboard)
	api.GET("/inspection-pack", h.Reporting.GetInspectionPack)
}

// registerAccountRoutes mounts notifications, organization settings and the
// audit trail.
func registerAccountRoutes(api *gin.RouterGroup, h *handlers.Set) {
	admin := middleware.RequireAdmin()

	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.Notifications.ListNotifications)
		notifications.GET("/unread-count", h.Notifications.UnreadCount)
		notifications.PATCH("/:id/read", h.Notifications.MarkRead)
		notifications.POST("/mark-all-read", h.Notifications.MarkAllRead)
	}

	api.GET("/organization", h.Admin.GetOrganization)
	api.PATCH("/organization", admin, h.Admin.UpdateOrganization)

	auditLogs := api.Group("/audit-logs", admin)
	{
		auditLogs.GET("", h.Admin.ListAuditLogs)
		auditLogs.GET("/verify", h.Admin.VerifyAuditLogs)
	}
}
