package di

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/infrastructure/config"
	"github.com/trous-aml/trous_service/pkg/logger"
)

func memoryConfig() *config.Config {
	return &config.Config{
		Environment: "test",
		Database:    config.DatabaseConfig{Driver: "memory"},
		JWT:         config.JWTConfig{Issuer: "trous"},
		Screening:   config.ScreeningConfig{Provider: "mock"},
		KYC:         config.KYCConfig{PublicBaseURL: "https://app.example.com", LinkTTLHours: 72},
		Email:       config.EmailConfig{Provider: "log", FromEmail: "noreply@example.com"},
	}
}

func TestNewContainer_Memory(t *testing.T) {
	c, err := NewContainer(memoryConfig(), nil, logger.NewNop())
	require.NoError(t, err)

	assert.NotNil(t, c.KYCService)
	assert.NotNil(t, c.ReportingService)
	assert.NotNil(t, c.Tokens)
	assert.NotNil(t, c.RateLimiter)
	assert.Nil(t, c.Publisher)
	assert.Nil(t, c.SignatureVerifier, "ingest route stays off without a secret")
	assert.Empty(t, c.HealthChecks())
	assert.NoError(t, c.Close())
}

func TestNewContainer_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Config)
	}{
		{"postgres without db", func(c *config.Config) { c.Database.Driver = "postgres" }},
		{"unknown driver", func(c *config.Config) { c.Database.Driver = "mysql" }},
		{"unknown screening provider", func(c *config.Config) { c.Screening.Provider = "oracle" }},
		{"missing lists file", func(c *config.Config) { c.Screening.ListsFile = "/does/not/exist.yaml" }},
		{"production without jwt secret", func(c *config.Config) { c.Environment = "production" }},
		{"bad allowlist", func(c *config.Config) {
			c.Ingest.Secret = "0123456789abcdef0123456789abcdef"
			c.Ingest.AllowedCIDRs = []string{"not-a-cidr"}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := memoryConfig()
			tt.mutate(cfg)
			_, err := NewContainer(cfg, nil, logger.NewNop())
			assert.Error(t, err)
		})
	}
}

func TestNewContainer_SignedIngest(t *testing.T) {
	cfg := memoryConfig()
	cfg.Ingest.Secret = "0123456789abcdef0123456789abcdef"
	cfg.Ingest.AllowedCIDRs = []string{"10.0.0.0/8"}

	c, err := NewContainer(cfg, nil, logger.NewNop())
	require.NoError(t, err)
	require.NotNil(t, c.SignatureVerifier)
	assert.True(t, c.IngestAllowlist.Allowed("10.1.2.3"))
	assert.False(t, c.IngestAllowlist.Allowed("192.168.1.1"))
}

func TestBootstrap(t *testing.T) {
	orgID := uuid.New()
	cfg := memoryConfig()
	cfg.Bootstrap = config.BootstrapConfig{OrgID: orgID.String(), NameEN: "Trous Demo", NameAR: "تروس"}

	c, err := NewContainer(cfg, nil, logger.NewNop())
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, c.Bootstrap(ctx))

	org, err := c.OrganizationService.Get(ctx, entities.SystemActor(orgID))
	require.NoError(t, err)
	assert.Equal(t, "Trous Demo", org.NameEN)

	rules, err := c.MonitoringService.List(ctx, entities.SystemActor(orgID))
	require.NoError(t, err)
	assert.NotEmpty(t, rules)

	// a second run leaves the seeded rules alone
	require.NoError(t, c.Bootstrap(ctx))
	again, err := c.MonitoringService.List(ctx, entities.SystemActor(orgID))
	require.NoError(t, err)
	assert.Len(t, again, len(rules))
}

func TestBootstrap_NoOrg(t *testing.T) {
	c, err := NewContainer(memoryConfig(), nil, logger.NewNop())
	require.NoError(t, err)
	assert.NoError(t, c.Bootstrap(context.Background()))
}
