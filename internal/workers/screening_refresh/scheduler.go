// Package screening_refresh re-screens customers whose last screening is older
// than the configured maximum age.
package screening_refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/pkg/logger"
)

type orgLister interface {
	ListIDs(ctx context.Context) ([]uuid.UUID, error)
}

type refresher interface {
	RefreshStale(ctx context.Context, orgID uuid.UUID, maxAge time.Duration, limit int) (*entities.BatchScreeningResult, error)
}

type Config struct {
	// Schedule is a five-field cron expression.
	Schedule  string
	MaxAge    time.Duration
	BatchSize int
	// RunTimeout bounds one run across all organisations.
	RunTimeout time.Duration
}

// Scheduler runs one refresh at a time; a tick that fires while the previous
// run is still going is skipped.
type Scheduler struct {
	cron      *cron.Cron
	orgs      orgLister
	screening refresher
	config    Config
	logger    *logger.Logger
}

func NewScheduler(cfg Config, orgs orgLister, screening refresher, log *logger.Logger) (*Scheduler, error) {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = time.Hour
	}
	if cfg.MaxAge <= 0 {
		return nil, fmt.Errorf("screening refresh max age must be positive")
	}

	cronLog := cronLogger{log}
	s := &Scheduler{
		cron:      cron.New(cron.WithLogger(cronLog), cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog))),
		orgs:      orgs,
		screening: screening,
		config:    cfg,
		logger:    log,
	}
	if _, err := s.cron.AddFunc(cfg.Schedule, func() { s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid screening refresh schedule %q: %w", cfg.Schedule, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.logger.Info("Starting screening refresh scheduler", "schedule", s.config.Schedule)
	s.cron.Start()
}

// Stop prevents new runs and waits for a running one until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return fmt.Errorf("screening refresh still running: %w", ctx.Err())
	}
}

// RunOnce refreshes every organisation. One organisation failing does not
// stop the others.
func (s *Scheduler) RunOnce(ctx context.Context) Summary {
	ctx, cancel := context.WithTimeout(ctx, s.config.RunTimeout)
	defer cancel()

	start := time.Now()
	var summary Summary
	orgIDs, err := s.orgs.ListIDs(ctx)
	if err != nil {
		s.logger.Error("Failed to list organizations for screening refresh", "error", err)
		return summary
	}

	for _, orgID := range orgIDs {
		result, err := s.screening.RefreshStale(ctx, orgID, s.config.MaxAge, s.config.BatchSize)
		if result != nil {
			summary.Screened += result.Screened
			summary.Hits += result.Hits
		}
		if err != nil {
			summary.Failed++
			s.logger.Error("Screening refresh failed", "org_id", orgID.String(), "error", err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		summary.Organizations++
	}

	s.logger.Info("Screening refresh finished",
		"organizations", summary.Organizations,
		"failed", summary.Failed,
		"screened", summary.Screened,
		"hits", summary.Hits,
		"duration", time.Since(start).String(),
	)
	return summary
}

// Summary totals one run.
type Summary struct {
	Organizations int
	Failed        int
	Screened      int
	Hits          int
}

// cronLogger adapts the service logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
