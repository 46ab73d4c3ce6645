package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Publisher writes events to Kafka. A nil Publisher is valid and drops
// every event, which lets the API run without a broker in development.
type Publisher struct {
	writer *kafka.Writer
	log    *logrus.Logger
}

// NewPublisher builds a publisher over the given brokers. The writer is
// topic-less; each message names its own topic.
func NewPublisher(brokers []string, log *logrus.Logger) *Publisher {
	if len(brokers) == 0 {
		return nil
	}
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 50 * time.Millisecond,
			// Topics are created out of band in production; auto-create
			// keeps local compose setups friction free.
			AllowAutoTopicCreation: true,
		},
		log: log,
	}
}

// Publish writes one event to topic, keyed by project id so per-project
// ordering holds. Failures are logged and swallowed; notification fan-out
// must never fail the request that triggered it.
func (p *Publisher) Publish(ctx context.Context, topic string, event Event) {
	if p == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.log.WithError(err).WithField("topic", topic).Error("encoding event")
		return
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(event.ProjectID),
		Value: payload,
	})
	if err != nil {
		p.log.WithError(err).WithField("topic", topic).Error("publishing event")
	}
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}
