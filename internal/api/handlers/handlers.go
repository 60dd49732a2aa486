// Package handlers provides the HTTP request handlers for the Trous API.
// This file re-exports handler types from subpackages and bundles them for
// route registration.
package handlers

import (
	"github.com/trous-aml/trous_service/internal/api/handlers/admin"
	"github.com/trous-aml/trous_service/internal/api/handlers/alert"
	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/api/handlers/customer"
	"github.com/trous-aml/trous_service/internal/api/handlers/kyc"
	"github.com/trous-aml/trous_service/internal/api/handlers/monitoring"
	"github.com/trous-aml/trous_service/internal/api/handlers/notification"
	"github.com/trous-aml/trous_service/internal/api/handlers/policy"
	"github.com/trous-aml/trous_service/internal/api/handlers/reporting"
	"github.com/trous-aml/trous_service/internal/api/handlers/riskassessment"
	"github.com/trous-aml/trous_service/internal/api/handlers/screening"
	"github.com/trous-aml/trous_service/internal/api/handlers/strcase"
)

// Re-export types from subpackages
type (
	KYCHandler            = kyc.Handler
	CustomerHandler       = customer.Handler
	AlertHandler          = alert.Handler
	ScreeningHandler      = screening.Handler
	MonitoringHandler     = monitoring.Handler
	STRCaseHandler        = strcase.Handler
	PolicyHandler         = policy.Handler
	RiskAssessmentHandler = riskassessment.Handler
	ReportingHandler      = reporting.Handler
	NotificationHandler   = notification.Handler
	AdminHandler          = admin.Handler
	HealthHandler         = common.HealthHandler
)

// Re-export constructors from subpackages
var (
	NewKYCHandler            = kyc.NewHandler
	NewCustomerHandler       = customer.NewHandler
	NewAlertHandler          = alert.NewHandler
	NewScreeningHandler      = screening.NewHandler
	NewMonitoringHandler     = monitoring.NewHandler
	NewSTRCaseHandler        = strcase.NewHandler
	NewPolicyHandler         = policy.NewHandler
	NewRiskAssessmentHandler = riskassessment.NewHandler
	NewReportingHandler      = reporting.NewHandler
	NewNotificationHandler   = notification.NewHandler
	NewAdminHandler          = admin.NewHandler
	NewHealthHandler         = common.NewHealthHandler
)

// Set is every handler the router mounts.
type Set struct {
	Health         *HealthHandler
	KYC            *KYCHandler
	Customers      *CustomerHandler
	Alerts         *AlertHandler
	Screening      *ScreeningHandler
	Monitoring     *MonitoringHandler
	STRCases       *STRCaseHandler
	Policies       *PolicyHandler
	RiskAssessment *RiskAssessmentHandler
	Reporting      *ReportingHandler
	Notifications  *NotificationHandler
	Admin          *AdminHandler
}
