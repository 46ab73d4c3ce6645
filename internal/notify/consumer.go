package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"github.com/maurya-kamminana/taskmaster/internal/models"
)

// NotificationWriter is the slice of the notification repository the
// consumer needs.
type NotificationWriter interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
}

// Consumer reads the notification topics and turns each event into one
// notification row per recipient.
type Consumer struct {
	readers       []*kafka.Reader
	notifications NotificationWriter
	log           *logrus.Logger
}

// NewConsumer builds one reader per topic, all in the given consumer
// group so multiple notifier instances share the work.
func NewConsumer(brokers []string, groupID string, notifications NotificationWriter, log *logrus.Logger) *Consumer {
	c := &Consumer{notifications: notifications, log: log}
	for _, topic := range Topics {
		c.readers = append(c.readers, kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			GroupID: groupID,
			Topic:   topic,
		}))
	}
	return c
}

// Run consumes every topic until ctx is canceled. Malformed messages are
// logged and skipped; insert failures are logged per recipient so one bad
// row does not stall the partition.
func (c *Consumer) Run(ctx context.Context) error {
	errs := make(chan error, len(c.readers))
	for _, r := range c.readers {
		go func(r *kafka.Reader) {
			errs <- c.consume(ctx, r)
		}(r)
	}

	var first error
	for range c.readers {
		if err := <-errs; err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (c *Consumer) consume(ctx context.Context, r *kafka.Reader) error {
	topic := r.Config().Topic
	for {
		msg, err := r.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return fmt.Errorf("reading %s: %w", topic, err)
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			c.log.WithError(err).WithField("topic", topic).Warn("skipping malformed event")
			continue
		}
		c.handle(ctx, topic, event)
	}
}

func (c *Consumer) handle(ctx context.Context, topic string, event Event) {
	kind := typeForTopic(topic)
	for _, recipient := range event.RecipientIDs {
		_, err := c.notifications.Create(ctx, models.Notification{
			UserID:  recipient,
			Type:    kind,
			Message: event.Message,
		})
		if err != nil {
			c.log.WithError(err).WithFields(logrus.Fields{
				"topic": topic,
				"user":  recipient,
			}).Error("inserting notification")
			continue
		}
	}
	c.log.WithFields(logrus.Fields{
		"topic":      topic,
		"project":    event.ProjectID,
		"recipients": len(event.RecipientIDs),
	}).Debug("event fanned out")
}

func typeForTopic(topic string) models.NotificationType {
	switch topic {
	case TopicUserAdded:
		return models.NotifyUserAdded
	case TopicUserRemoved:
		return models.NotifyUserRemoved
	case TopicTaskUpdated:
		return models.NotifyTaskUpdated
	default:
		return models.NotifyCommentAdded
	}
}

// Close closes every topic reader.
func (c *Consumer) Close() error {
	var first error
	for _, r := range c.readers {
		if err := r.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
