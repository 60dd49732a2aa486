package alert_ingest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trous-aml/trous_service/internal/domain/entities"
	"github.com/trous-aml/trous_service/internal/infrastructure/adapters/events"
	"github.com/trous-aml/trous_service/pkg/logger"
	apperrors "github.com/trous-aml/trous_service/pkg/errors"
)

type queueSource struct {
	mu        sync.Mutex
	queue     []*events.Message
	committed []int64
}

func (s *queueSource) Fetch(ctx context.Context) (*events.Message, error) {
	s.mu.Lock()
	if len(s.queue) > 0 {
		msg := s.queue[0]
		s.queue = s.queue[1:]
		s.mu.Unlock()
		return msg, nil
	}
	s.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s *queueSource) Commit(ctx context.Context, msg *events.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.committed = append(s.committed, msg.Offset)
	return nil
}

func (s *queueSource) Committed() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int64(nil), s.committed...)
}

type scriptedIngester struct {
	mu     sync.Mutex
	errs   []error
	actors []entities.Actor
	inputs []entities.IngestAlertInput
}

func (i *scriptedIngester) Ingest(ctx context.Context, actor entities.Actor, input entities.IngestAlertInput) (*entities.Alert, error) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.actors = append(i.actors, actor)
	i.inputs = append(i.inputs, input)
	if len(i.errs) > 0 {
		err := i.errs[0]
		i.errs = i.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &entities.Alert{ID: uuid.New()}, nil
}

func (i *scriptedIngester) Calls() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.inputs)
}

func encode(t *testing.T, offset int64, msg AlertMessage) *events.Message {
	t.Helper()
	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	return &events.Message{Offset: offset, Value: raw}
}

func run(t *testing.T, src *queueSource, ing *scriptedIngester, wantCommits int) {
	t.Helper()
	p := NewProcessor(src, ing, logger.NewNop())
	p.delay = time.Millisecond
	p.Start(context.Background())
	require.Eventually(t, func() bool { return len(src.Committed()) == wantCommits }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, p.Shutdown(time.Second))
}

func TestProcessor_IngestsAsSystemActor(t *testing.T) {
	orgID := uuid.New()
	msg := AlertMessage{OrgID: orgID, IngestAlertInput: entities.IngestAlertInput{
		CustomerID: uuid.New(), MonitoringRuleID: uuid.New(), Amount: decimal.NewFromInt(75000), Currency: "SAR",
	}}
	src := &queueSource{queue: []*events.Message{encode(t, 1, msg)}}
	ing := &scriptedIngester{}

	run(t, src, ing, 1)

	require.Equal(t, 1, ing.Calls())
	assert.Equal(t, orgID, ing.actors[0].OrgID)
	assert.True(t, ing.actors[0].IsSystem())
	assert.True(t, ing.inputs[0].Amount.Equal(decimal.NewFromInt(75000)))
	assert.Equal(t, msg.MonitoringRuleID, ing.inputs[0].MonitoringRuleID)
}

func TestProcessor_DropsMalformedAndRejected(t *testing.T) {
	valid := AlertMessage{OrgID: uuid.New(), IngestAlertInput: entities.IngestAlertInput{CustomerID: uuid.New(), MonitoringRuleID: uuid.New()}}
	src := &queueSource{queue: []*events.Message{
		{Offset: 1, Value: []byte("not json")},
		encode(t, 2, AlertMessage{}),
		encode(t, 3, valid),
	}}
	ing := &scriptedIngester{errs: []error{apperrors.NotFound("monitoring rule")}}

	run(t, src, ing, 3)

	assert.Equal(t, []int64{1, 2, 3}, src.Committed())
	assert.Equal(t, 1, ing.Calls(), "business rejections are not retried")
}

func TestProcessor_RetriesInfrastructureErrors(t *testing.T) {
	msg := AlertMessage{OrgID: uuid.New(), IngestAlertInput: entities.IngestAlertInput{CustomerID: uuid.New(), MonitoringRuleID: uuid.New()}}
	src := &queueSource{queue: []*events.Message{encode(t, 9, msg)}}
	dbDown := errors.New("connection refused")
	ing := &scriptedIngester{errs: []error{dbDown, dbDown}}

	run(t, src, ing, 1)
	assert.Equal(t, 3, ing.Calls())
}

func TestProcessor_GivesUpAfterMaxAttempts(t *testing.T) {
	msg := AlertMessage{OrgID: uuid.New(), IngestAlertInput: entities.IngestAlertInput{CustomerID: uuid.New(), MonitoringRuleID: uuid.New()}}
	src := &queueSource{queue: []*events.Message{encode(t, 4, msg)}}
	dbDown := errors.New("connection refused")
	ing := &scriptedIngester{errs: []error{dbDown, dbDown, dbDown, dbDown}}

	run(t, src, ing, 1)
	assert.Equal(t, maxAttempts, ing.Calls())
}
