package di

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/trous-aml/trous_service/internal/api/handlers/common"
	"github.com/trous-aml/trous_service/internal/domain/entities"
)

// Bootstrap provisions the configured organisation and seeds its default
// monitoring rules. It is a no-op without bootstrap.org_id.
func (c *Container) Bootstrap(ctx context.Context) error {
	cfg := c.Config.Bootstrap
	if cfg.OrgID == "" {
		return nil
	}
	orgID, err := uuid.Parse(cfg.OrgID)
	if err != nil {
		return fmt.Errorf("invalid bootstrap org id: %w", err)
	}

	if err := c.OrganizationService.Provision(ctx, &entities.Organization{
		ID:            orgID,
		NameEN:        cfg.NameEN,
		NameAR:        cfg.NameAR,
		GoAMLEntityID: cfg.GoAMLEntityID,
	}); err != nil {
		return err
	}

	seeded, err := c.MonitoringService.SeedDefaults(ctx, orgID)
	if err != nil {
		return fmt.Errorf("failed to seed monitoring rules: %w", err)
	}
	c.Logger.Info("Bootstrap organization ready", "org_id", orgID.String(), "rules_seeded", seeded)
	return nil
}

// HealthChecks lists the dependencies checked by /health.
func (c *Container) HealthChecks() map[string]common.Pinger {
	checks := map[string]common.Pinger{}
	if c.DB != nil {
		checks["database"] = c.DB
	}
	if c.Redis != nil {
		checks["redis"] = redisPinger{c.Redis}
	}
	return checks
}

type redisPinger struct {
	client redis.UniversalClient
}

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}
