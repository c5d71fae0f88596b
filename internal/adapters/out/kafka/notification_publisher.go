// Package kafka publishes delivery notifications to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"time"

	"lastmile/internal/core/domain/services"
	"lastmile/internal/core/ports"

	kafkago "github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
}

// NewWriter creates a writer that keys messages onto partitions by hash, so
// every notification of one delivery keeps its order.
func NewWriter(brokers []string, topic string) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:                   kafkago.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafkago.Hash{},
		RequiredAcks:           kafkago.RequireOne,
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}
}

// NotificationMessage is the JSON payload of one message.
type NotificationMessage struct {
	DeliveryID   string    `json:"delivery_id"`
	TrackingCode string    `json:"tracking_code"`
	Audience     string    `json:"audience"`
	RecipientID  string    `json:"recipient_id,omitempty"`
	Template     string    `json:"template"`
	From         string    `json:"from"`
	To           string    `json:"to"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// NotificationPublisher is a transition hook that turns committed
// transitions into Kafka messages keyed by delivery id.
type NotificationPublisher struct {
	writer MessageWriter
	policy services.NotificationPolicy
}

var _ ports.TransitionHook = (*NotificationPublisher)(nil)

func NewNotificationPublisher(writer MessageWriter, policy services.NotificationPolicy) *NotificationPublisher {
	return &NotificationPublisher{writer: writer, policy: policy}
}

// AfterTransition writes all notifications of one transition in a single batch.
func (p *NotificationPublisher) AfterTransition(ctx context.Context, event ports.TransitionEvent) error {
	notifications := p.policy.NotificationsFor(event.Delivery, event.Transition, event.OccurredAt)
	if len(notifications) == 0 {
		return nil
	}

	msgs := make([]kafkago.Message, 0, len(notifications))
	for _, n := range notifications {
		payload, err := json.Marshal(NotificationMessage{
			DeliveryID:   n.DeliveryID.String(),
			TrackingCode: n.TrackingCode.String(),
			Audience:     string(n.Audience),
			RecipientID:  n.RecipientID,
			Template:     n.Template,
			From:         n.From.String(),
			To:           n.To.String(),
			OccurredAt:   n.OccurredAt.UTC(),
		})
		if err != nil {
			return err
		}
		msgs = append(msgs, kafkago.Message{
			Key:   []byte(n.DeliveryID.String()),
			Value: payload,
			Headers: []kafkago.Header{
				{Key: "audience", Value: []byte(n.Audience)},
				{Key: "template", Value: []byte(n.Template)},
			},
		})
	}

	return p.writer.WriteMessages(ctx, msgs...)
}
