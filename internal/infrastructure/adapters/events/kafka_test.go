package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.messages = append(w.messages, msgs...)
	return w.err
}

func (w *fakeWriter) Close() error { return nil }

type fakeReader struct {
	queue     []kafka.Message
	committed []int64
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.queue) == 0 {
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.queue[0]
	r.queue = r.queue[1:]
	return msg, nil
}

func (r *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *fakeReader) Close() error { return nil }

func TestPublish_EncodesJSONWithKey(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w, logger: zap.NewNop()}

	err := p.Publish(context.Background(), "aml.workflow.transitions", "case-1", map[string]string{"to_status": "filed"})
	require.NoError(t, err)

	require.Len(t, w.messages, 1)
	msg := w.messages[0]
	assert.Equal(t, "aml.workflow.transitions", msg.Topic)
	assert.Equal(t, []byte("case-1"), msg.Key)
	var decoded map[string]string
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, "filed", decoded["to_status"])
}

func TestPublish_Errors(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("leader not available")}, logger: zap.NewNop()}
	assert.ErrorContains(t, p.Publish(context.Background(), "t", "k", 1), "failed to publish event")

	p = &Publisher{writer: &fakeWriter{}, logger: zap.NewNop()}
	assert.ErrorContains(t, p.Publish(context.Background(), "t", "k", make(chan int)), "failed to marshal event")
}

func TestConsumer_FetchAndCommit(t *testing.T) {
	r := &fakeReader{queue: []kafka.Message{{Topic: "aml.monitoring.alerts", Offset: 7, Key: []byte("k"), Value: []byte(`{}`)}}}
	c := &Consumer{reader: r, topic: "aml.monitoring.alerts"}
	ctx := context.Background()

	msg, err := c.Fetch(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(7), msg.Offset)
	assert.Equal(t, "k", msg.Key)

	require.NoError(t, c.Commit(ctx, msg))
	assert.Equal(t, []int64{7}, r.committed)
}
