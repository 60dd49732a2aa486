// Package alert_ingest consumes alerts published by the transaction-monitoring
// engine and records them through the alert service.
package alert_ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/infrastructure/adapters/events"
	"github.com/trous-aml/trous_service/pkg/logger"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

const (
	maxAttempts = 3
	retryDelay  = 2 * time.Second
)

// Topic carries one AlertMessage per monitoring hit.
const Topic = "aml.monitoring.alerts"

// AlertMessage is the engine payload: the ingest body plus the tenant.
type AlertMessage struct {
	OrgID uuid.UUID `json:"org_id"`
	entities.IngestAlertInput
}

type source interface {
	Fetch(ctx context.Context) (*events.Message, error)
	Commit(ctx context.Context, msg *events.Message) error
}

type ingester interface {
	Ingest(ctx context.Context, actor entities.Actor, input entities.IngestAlertInput) (*entities.Alert, error)
}

// Processor handles one message at a time. Business rejections and malformed
// payloads are logged and committed; infrastructure failures are retried
// before the message is given up on.
type Processor struct {
	source   source
	alerts   ingester
	logger   *logger.Logger
	delay    time.Duration
	attempts int

	wg             sync.WaitGroup
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
}

func NewProcessor(src source, alerts ingester, log *logger.Logger) *Processor {
	ctx, cancel := context.WithCancel(context.Background())
	return &Processor{
		source:         src,
		alerts:         alerts,
		logger:         log,
		delay:          retryDelay,
		attempts:       maxAttempts,
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}
}

func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting alert ingest processor", "topic", Topic)
	p.wg.Add(1)
	go p.run(ctx)
}

// Shutdown stops fetching and waits for the in-flight message.
func (p *Processor) Shutdown(timeout time.Duration) error {
	p.shutdownCancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}

func (p *Processor) run(ctx context.Context) {
	defer p.wg.Done()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-p.shutdownCtx.Done():
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		msg, err := p.source.Fetch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Error("Failed to fetch alert message", "error", err)
			if !p.sleep(ctx) {
				return
			}
			continue
		}

		p.handle(ctx, msg)
		if err := p.source.Commit(ctx, msg); err != nil && ctx.Err() == nil {
			p.logger.Error("Failed to commit alert message", "error", err, "offset", msg.Offset)
		}
	}
}

// handle returns once the message is ingested, rejected or out of attempts.
func (p *Processor) handle(ctx context.Context, msg *events.Message) {
	var payload AlertMessage
	if err := json.Unmarshal(msg.Value, &payload); err != nil || payload.OrgID == uuid.Nil {
		p.logger.Warn("Dropping malformed alert message",
			"offset", msg.Offset,
			"partition", msg.Partition,
			"error", err,
		)
		return
	}

	actor := entities.SystemActor(payload.OrgID)
	for attempt := 1; attempt <= p.attempts; attempt++ {
		alert, err := p.alerts.Ingest(ctx, actor, payload.IngestAlertInput)
		if err == nil {
			p.logger.Info("Alert ingested from stream",
				"alert_id", alert.ID.String(),
				"org_id", payload.OrgID.String(),
				"offset", msg.Offset,
			)
			return
		}

		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			p.logger.Warn("Alert message rejected",
				"code", string(appErr.Code),
				"error", err,
				"org_id", payload.OrgID.String(),
				"offset", msg.Offset,
			)
			return
		}

		p.logger.Warn("Alert ingest failed, will retry",
			"error", err,
			"attempt", attempt,
			"offset", msg.Offset,
		)
		if attempt == p.attempts || !p.sleep(ctx) {
			break
		}
	}
	p.logger.Error("Alert message given up after retries",
		"offset", msg.Offset,
		"org_id", payload.OrgID.String(),
		"rule_id", payload.MonitoringRuleID.String(),
	)
}

func (p *Processor) sleep(ctx context.Context) bool {
	t := time.NewTimer(p.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
