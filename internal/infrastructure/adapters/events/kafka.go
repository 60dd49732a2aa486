// Package events moves workflow events over Kafka: transition events out,
// monitoring engine alerts in.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/trous-aml/trous_service/pkg/metrics"
)

type Config struct {
	Brokers      []string
	MaxAttempts  int
	RetryBackoff time.Duration
	// GroupID is the consumer group of the alert ingest reader.
	GroupID string
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Publisher writes JSON-encoded events. It satisfies audit.EventPublisher.
type Publisher struct {
	writer messageWriter
	logger *zap.Logger
}

func NewPublisher(cfg Config, logger *zap.Logger) *Publisher {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 100 * time.Millisecond
	}
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		Compression:            kafka.Gzip,
		RequiredAcks:           kafka.RequireAll,
		MaxAttempts:            cfg.MaxAttempts,
		WriteBackoffMin:        cfg.RetryBackoff,
		WriteBackoffMax:        cfg.RetryBackoff * 10,
	}
	logger.Info("Kafka publisher created", zap.Strings("brokers", cfg.Brokers))
	return &Publisher{writer: writer, logger: logger}
}

// Publish sends value keyed by key, so events of one record stay ordered on
// one partition.
func (p *Publisher) Publish(ctx context.Context, topic, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now().UTC(),
	})
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(topic, "error").Inc()
		p.logger.Error("Failed to publish event",
			zap.String("topic", topic),
			zap.String("key", key),
			zap.Error(err))
		return fmt.Errorf("failed to publish event: %w", err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(topic, "ok").Inc()
	p.logger.Debug("Event published", zap.String("topic", topic), zap.String("key", key))
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Message is a consumed record.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Value     []byte
	Time      time.Time

	raw kafka.Message
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic in a consumer group with explicit commits, so a
// message is redelivered when the process dies before Commit.
type Consumer struct {
	reader messageReader
	topic  string
}

func NewConsumer(cfg Config, topic string, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          topic,
		GroupID:        cfg.GroupID,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0,
		MaxBytes:       10e6,
	})
	logger.Info("Kafka consumer created",
		zap.Strings("brokers", cfg.Brokers),
		zap.String("topic", topic),
		zap.String("group_id", cfg.GroupID))
	return &Consumer{reader: reader, topic: topic}
}

// Fetch blocks until a message arrives or ctx ends.
func (c *Consumer) Fetch(ctx context.Context) (*Message, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	return &Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Key:       string(msg.Key),
		Value:     msg.Value,
		Time:      msg.Time,
		raw:       msg,
	}, nil
}

func (c *Consumer) Commit(ctx context.Context, msg *Message) error {
	if err := c.reader.CommitMessages(ctx, msg.raw); err != nil {
		return fmt.Errorf("failed to commit offset %d: %w", msg.Offset, err)
	}
	return nil
}

func (c *Consumer) Topic() string {
	return c.topic
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
