// Package wrappers decorates external provider clients with circuit breakers.
package wrappers

import (
	"context"

	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/domain/services/screening"
	"github.com/trous-aml/trous_service/pkg/circuitbreaker"
)

// ScreeningProvider fails fast while the wrapped provider keeps erroring.
// The screening service stores an open breaker the same way as any other
// provider failure, as an error result.
type ScreeningProvider struct {
	provider screening.Provider
	cb       *circuitbreaker.CircuitBreaker
	logger   *zap.Logger
}

var _ screening.Provider = (*ScreeningProvider)(nil)

func NewScreeningProvider(provider screening.Provider, cfg circuitbreaker.Config, logger *zap.Logger) *ScreeningProvider {
	if cfg.Name == "" {
		cfg.Name = "screening-" + provider.Name()
	}
	return &ScreeningProvider{
		provider: provider,
		cb:       circuitbreaker.New(cfg, logger),
		logger:   logger,
	}
}

func (p *ScreeningProvider) Name() string {
	return p.provider.Name()
}

func (p *ScreeningProvider) Screen(ctx context.Context, customer *entities.Customer, screeningType entities.ScreeningType) (*entities.ScreeningMatch, error) {
	match, err := circuitbreaker.Do(ctx, p.cb, func(ctx context.Context) (*entities.ScreeningMatch, error) {
		return p.provider.Screen(ctx, customer, screeningType)
	})
	if err != nil {
		p.logger.Debug("Screening call rejected or failed",
			zap.String("breaker", p.cb.Name()),
			zap.String("state", p.cb.State().String()),
			zap.Error(err),
		)
		return nil, err
	}
	return match, nil
}

// State exposes the breaker state for health reporting.
func (p *ScreeningProvider) State() circuitbreaker.State {
	return p.cb.State()
}
