package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"ridepool/internal/observability"
)

// KafkaDispatcher publishes jobs to a Kafka topic.
type KafkaDispatcher struct {
	writer       *kafka.Writer
	writeTimeout time.Duration
}

var _ Dispatcher = (*KafkaDispatcher)(nil)

// NewKafkaDispatcher creates a dispatcher publishing to topic.
func NewKafkaDispatcher(brokers []string, topic string, writeTimeout time.Duration) *KafkaDispatcher {
	w := kafka.NewWriter(kafka.WriterConfig{Brokers: brokers, Topic: topic, Balancer: &kafka.LeastBytes{}})
	return &KafkaDispatcher{writer: w, writeTimeout: writeTimeout}
}

// Dispatch publishes job.
func (d *KafkaDispatcher) Dispatch(ctx context.Context, job Job) error {
	b, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to encode job: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.writeTimeout)
	defer cancel()

	return d.writer.WriteMessages(ctx, kafka.Message{Key: []byte(job.Key()), Value: b})
}

// Close flushes and closes the writer.
func (d *KafkaDispatcher) Close() error {
	if d.writer == nil {
		return nil
	}
	return d.writer.Close()
}

// MessageReader is the subset of *kafka.Reader used by Consumer.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads jobs from Kafka as part of a consumer group and runs them.
type Consumer struct {
	reader     MessageReader
	handler    Handler
	policy     RetryPolicy
	log        logrus.FieldLogger
	maxBackoff time.Duration
}

// NewConsumer creates a consumer group member for topic.
func NewConsumer(brokers []string, topic, groupID string, handler Handler, policy RetryPolicy, log logrus.FieldLogger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{Brokers: brokers, Topic: topic, GroupID: groupID, MinBytes: 1, MaxBytes: 10e6})
	return NewConsumerWithReader(r, handler, policy, log)
}

// NewConsumerWithReader creates a consumer around an existing reader.
func NewConsumerWithReader(reader MessageReader, handler Handler, policy RetryPolicy, log logrus.FieldLogger) *Consumer {
	return &Consumer{
		reader:     reader,
		handler:    handler,
		policy:     policy,
		log:        log,
		maxBackoff: 30 * time.Second,
	}
}

// Run consumes until ctx is cancelled. A message is committed once its job
// has succeeded or exhausted its retries.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return nil
			}
			c.log.WithError(err).WithField("backoff", backoff).Warn("kafka fetch failed")
			if !sleep(ctx, backoff) {
				return nil
			}
			backoff *= 2
			if backoff > c.maxBackoff {
				backoff = c.maxBackoff
			}
			continue
		}
		backoff = time.Second

		var job Job
		if err := json.Unmarshal(m.Value, &job); err != nil {
			observability.JobsTotal.WithLabelValues("invalid", "dropped").Inc()
			c.log.WithError(err).WithField("offset", m.Offset).Warn("dropping undecodable job")
		} else {
			_ = run(ctx, c.handler, c.policy, c.log, job)
		}

		if ctx.Err() != nil {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			c.log.WithError(err).WithField("offset", m.Offset).Error("failed to commit offset")
		}
	}
}

// Close closes the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
