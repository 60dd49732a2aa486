package di

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/repositories"
	"github.com/trous-aml/trous_service/internal/domain/services/alert"
	"github.com/trous-aml/trous_service/internal/domain/services/audit"
	"github.com/trous-aml/trous_service/internal/domain/services/customer"
	"github.com/trous-aml/trous_service/internal/domain/services/kyc"
	"github.com/trous-aml/trous_service/internal/domain/services/monitoring"
	"github.com/trous-aml/trous_service/internal/domain/services/notification"
	"github.com/trous-aml/trous_service/internal/domain/services/organization"
	"github.com/trous-aml/trous_service/internal/domain/services/policy"
	"github.com/trous-aml/trous_service/internal/domain/services/reporting"
	"github.com/trous-aml/trous_service/internal/domain/services/riskassessment"
	"github.com/trous-aml/trous_service/internal/domain/services/screening"
	"github.com/trous-aml/trous_service/internal/domain/services/strcase"
	"github.com/trous-aml/trous_service/internal/infrastructure/adapters/email"
	"github.com/trous-aml/trous_service/internal/infrastructure/adapters/events"
	"github.com/trous-aml/trous_service/internal/infrastructure/adapters/watchlist"
	"github.com/trous-aml/trous_service/internal/infrastructure/config"
	pgrepo "github.com/trous-aml/trous_service/internal/infrastructure/repositories"
	"github.com/trous-aml/trous_service/internal/infrastructure/repositories/memory"
	"github.com/trous-aml/trous_service/internal/workers/alert_ingest"
	"github.com/trous-aml/trous_service/pkg/auth"
	"github.com/trous-aml/trous_service/pkg/circuitbreaker"
	"github.com/trous-aml/trous_service/pkg/logger"
	"github.com/trous-aml/trous_service/pkg/ratelimit"
	"github.com/trous-aml/trous_service/pkg/security"
	"github.com/trous-aml/trous_service/pkg/wrappers"
)

// Container holds all application dependencies
type Container struct {
	Config *config.Config
	DB     *sqlx.DB
	Logger *logger.Logger
	ZapLog *zap.Logger

	// Infrastructure, nil when disabled
	Redis         redis.UniversalClient
	Publisher     *events.Publisher
	AlertConsumer *events.Consumer
	Mailer        *email.Mailer

	// Repositories
	OrgRepo          repositories.OrganizationRepository
	CustomerRepo     repositories.CustomerRepository
	TransactionRepo  repositories.TransactionRepository
	KYCRequestRepo   repositories.KYCRequestRepository
	AlertRepo        repositories.AlertRepository
	ScreeningRepo    repositories.ScreeningRepository
	RuleRepo         repositories.MonitoringRuleRepository
	STRCaseRepo      repositories.STRCaseRepository
	PolicyRepo       repositories.PolicyRepository
	AssessmentRepo   repositories.RiskAssessmentRepository
	NotificationRepo repositories.NotificationRepository
	AuditRepo        repositories.AuditRepository

	// Services
	AuditService          *audit.Service
	NotificationService   *notification.Service
	OrganizationService   *organization.Service
	CustomerService       *customer.Service
	ScreeningService      *screening.Service
	KYCService            *kyc.Service
	MonitoringService     *monitoring.Service
	AlertService          *alert.Service
	STRCaseService        *strcase.Service
	PolicyService         *policy.Service
	RiskAssessmentService *riskassessment.Service
	ReportingService      *reporting.Service

	// Request security
	Tokens            *auth.JWTService
	RateLimiter       *ratelimit.DistributedRateLimiter
	SignatureVerifier *security.SignatureVerifier
	IngestAllowlist   *security.IPAllowlist
}

// NewContainer wires every dependency. db is nil for the memory driver.
func NewContainer(cfg *config.Config, db *sqlx.DB, log *logger.Logger) (*Container, error) {
	c := &Container{
		Config: cfg,
		DB:     db,
		Logger: log,
		ZapLog: log.Zap(),
	}

	if err := c.initRepositories(); err != nil {
		return nil, err
	}
	if err := c.initInfrastructure(); err != nil {
		return nil, err
	}
	if err := c.initServices(); err != nil {
		return nil, err
	}
	if err := c.initSecurity(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() error {
	switch c.Config.Database.Driver {
	case "memory":
		store := memory.NewStore()
		c.OrgRepo = store.Organizations()
		c.CustomerRepo = store.Customers()
		c.TransactionRepo = store.Transactions()
		c.KYCRequestRepo = store.KYCRequests()
		c.AlertRepo = store.Alerts()
		c.ScreeningRepo = store.Screenings()
		c.RuleRepo = store.MonitoringRules()
		c.STRCaseRepo = store.STRCases()
		c.PolicyRepo = store.Policies()
		c.AssessmentRepo = store.RiskAssessments()
		c.NotificationRepo = store.Notifications()
		c.AuditRepo = store.Audit()
		c.Logger.Warn("Using in-memory storage, data is lost on restart")
	case "postgres", "":
		if c.DB == nil {
			return fmt.Errorf("postgres driver selected without a database connection")
		}
		c.OrgRepo = pgrepo.NewOrganizationRepository(c.DB)
		c.CustomerRepo = pgrepo.NewCustomerRepository(c.DB)
		c.TransactionRepo = pgrepo.NewTransactionRepository(c.DB)
		c.KYCRequestRepo = pgrepo.NewKYCRequestRepository(c.DB)
		c.AlertRepo = pgrepo.NewAlertRepository(c.DB)
		c.ScreeningRepo = pgrepo.NewScreeningRepository(c.DB)
		c.RuleRepo = pgrepo.NewMonitoringRuleRepository(c.DB)
		c.STRCaseRepo = pgrepo.NewSTRCaseRepository(c.DB)
		c.PolicyRepo = pgrepo.NewPolicyRepository(c.DB)
		c.AssessmentRepo = pgrepo.NewRiskAssessmentRepository(c.DB)
		c.NotificationRepo = pgrepo.NewNotificationRepository(c.DB)
		c.AuditRepo = pgrepo.NewAuditRepository(c.DB)
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Config.Database.Driver)
	}
	return nil
}

func (c *Container) initInfrastructure() error {
	if c.Config.Redis.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     c.Config.Redis.Addr,
			Password: c.Config.Redis.Password,
			DB:       c.Config.Redis.DB,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.Redis = client
		c.Logger.Info("Redis connected", "addr", c.Config.Redis.Addr)
	}

	eventsCfg := events.Config{Brokers: c.Config.Events.Brokers, GroupID: c.Config.Events.GroupID}
	if c.Config.Events.Enabled {
		c.Publisher = events.NewPublisher(eventsCfg, c.ZapLog)
	}
	if c.Config.Events.AlertIngest {
		c.AlertConsumer = events.NewConsumer(eventsCfg, alert_ingest.Topic, c.ZapLog)
	}

	mailer, err := email.NewMailer(email.Config{
		Provider:     c.Config.Email.Provider,
		APIKey:       c.Config.Email.APIKey,
		FromEmail:    c.Config.Email.FromEmail,
		FromName:     c.Config.Email.FromName,
		DashboardURL: c.Config.KYC.PublicBaseURL,
	}, c.ZapLog)
	if err != nil {
		return fmt.Errorf("failed to create mailer: %w", err)
	}
	c.Mailer = mailer
	return nil
}

func (c *Container) initServices() error {
	var publisher audit.EventPublisher
	if c.Publisher != nil {
		publisher = c.Publisher
	}
	c.AuditService = audit.NewService(c.AuditRepo, publisher, c.ZapLog)

	c.NotificationService = notification.NewService(c.NotificationRepo, c.ZapLog)
	if inbox := c.Config.Email.ComplianceInbox; inbox != "" {
		c.NotificationService.WithEscalationMail(c.Mailer, inbox)
	}

	provider, err := c.screeningProvider()
	if err != nil {
		return err
	}

	c.OrganizationService = organization.NewService(c.OrgRepo, c.AuditService, c.ZapLog)
	c.CustomerService = customer.NewService(c.CustomerRepo, c.TransactionRepo, c.AuditService, c.ZapLog)
	c.ScreeningService = screening.NewService(c.ScreeningRepo, c.CustomerRepo, provider, c.AuditService, c.NotificationService, c.ZapLog)
	c.KYCService = kyc.NewService(
		c.KYCRequestRepo,
		c.OrgRepo,
		c.ScreeningService,
		c.Mailer,
		c.AuditService,
		c.NotificationService,
		kyc.Config{PublicBaseURL: c.Config.KYC.PublicBaseURL, LinkTTL: c.Config.KYC.LinkTTL()},
		c.ZapLog,
	)
	c.MonitoringService = monitoring.NewService(c.RuleRepo, c.AuditService, c.ZapLog)
	c.AlertService = alert.NewService(c.AlertRepo, c.CustomerRepo, c.RuleRepo, c.STRCaseRepo, c.AuditService, c.NotificationService, c.ZapLog)
	c.STRCaseService = strcase.NewService(c.STRCaseRepo, c.CustomerRepo, c.OrgRepo, c.AlertService, c.AuditService, c.NotificationService, c.ZapLog)
	c.PolicyService = policy.NewService(c.PolicyRepo, c.AuditService, c.NotificationService, c.ZapLog)
	c.RiskAssessmentService = riskassessment.NewService(c.AssessmentRepo, c.AuditService, c.NotificationService, c.ZapLog)
	c.ReportingService = reporting.NewService(
		c.OrgRepo,
		c.CustomerRepo,
		c.AlertRepo,
		c.STRCaseRepo,
		c.PolicyRepo,
		c.AssessmentRepo,
		c.RuleRepo,
		c.AuditService,
		c.ZapLog,
	)
	return nil
}

// screeningProvider picks the hosted API or local lists and puts a circuit
// breaker in front of it.
func (c *Container) screeningProvider() (screening.Provider, error) {
	var provider screening.Provider
	switch c.Config.Screening.Provider {
	case "http":
		provider = watchlist.NewClient(watchlist.Config{
			BaseURL: c.Config.Screening.BaseURL,
			APIKey:  c.Config.Screening.APIKey,
			Timeout: time.Duration(c.Config.Screening.TimeoutSeconds) * time.Second,
		}, c.ZapLog)
	case "mock", "":
		if path := c.Config.Screening.ListsFile; path != "" {
			lists, err := watchlist.LoadLocalLists(path)
			if err != nil {
				return nil, fmt.Errorf("failed to load screening lists: %w", err)
			}
			provider = lists
		} else {
			provider = watchlist.DefaultLocalLists()
		}
	default:
		return nil, fmt.Errorf("unsupported screening provider: %s", c.Config.Screening.Provider)
	}
	return wrappers.NewScreeningProvider(provider, circuitbreaker.DefaultConfig(""), c.ZapLog), nil
}

func (c *Container) initSecurity() error {
	secret := c.Config.JWT.Secret
	if secret == "" {
		if c.Config.Environment == "production" {
			return fmt.Errorf("jwt secret is required in production")
		}
		generated, err := randomSecret()
		if err != nil {
			return err
		}
		secret = generated
		c.Logger.Warn("JWT secret not configured, generated an ephemeral one; issued tokens will not survive a restart")
	}
	c.Tokens = auth.NewJWTService(secret, c.Config.JWT.Issuer)

	var counter ratelimit.Counter = ratelimit.NewMemoryCounter()
	if c.Redis != nil {
		counter = ratelimit.NewRedisCounter(c.Redis, "ratelimit")
	}
	limiter := ratelimit.NewTieredLimiter(counter, ratelimit.LimitsFromConfig(c.Config.RateLimit))
	c.RateLimiter = ratelimit.NewDistributedRateLimiter(limiter, c.Config.RateLimit, c.ZapLog)

	if c.Config.Ingest.Secret != "" {
		var nonces security.NonceStore = security.NewMemoryNonceStore()
		if c.Redis != nil {
			nonces = security.NewRedisNonceStore(c.Redis, "")
		}
		c.SignatureVerifier = security.NewSignatureVerifier(security.VerifierConfig{
			Secret:   c.Config.Ingest.Secret,
			MaxSkew:  c.Config.Ingest.MaxSkew(),
			NonceTTL: c.Config.Ingest.NonceTTL(),
		}, nonces, c.ZapLog)

		allowlist, err := security.NewIPAllowlist(c.Config.Ingest.AllowedCIDRs)
		if err != nil {
			return fmt.Errorf("invalid ingest allowlist: %w", err)
		}
		c.IngestAllowlist = allowlist
	}
	return nil
}

// Close releases connections held by the container.
func (c *Container) Close() error {
	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if c.AlertConsumer != nil {
		keep(c.AlertConsumer.Close())
	}
	if c.Publisher != nil {
		keep(c.Publisher.Close())
	}
	if c.Redis != nil {
		keep(c.Redis.Close())
	}
	if c.DB != nil {
		keep(c.DB.Close())
	}
	return firstErr
}

func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate jwt secret: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
