package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of *amqp.Channel used to enqueue messages.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// QueueNotifier hands notifications to an external mailer through a
// RabbitMQ queue. Delivery counts as successful once the broker accepts the
// publish.
type QueueNotifier struct {
	publisher Publisher
	queue     string
}

// NewQueueNotifier builds a notifier publishing to queue via publisher.
func NewQueueNotifier(publisher Publisher, queue string) (*QueueNotifier, error) {
	if publisher == nil {
		return nil, errors.New("rabbitmq publisher is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("notification queue is required")
	}
	return &QueueNotifier{publisher: publisher, queue: queue}, nil
}

// SendOTP enqueues a login/verification code.
func (q *QueueNotifier) SendOTP(ctx context.Context, message Message) error {
	message.Kind = KindOTP
	return q.publish(ctx, message)
}

// SendWelcome enqueues the registration welcome message.
func (q *QueueNotifier) SendWelcome(ctx context.Context, message Message) error {
	message.Kind = KindWelcome
	return q.publish(ctx, message)
}

func (q *QueueNotifier) publish(ctx context.Context, message Message) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	err = q.publisher.PublishWithContext(ctx, "", q.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         message.Kind,
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s notification: %w", message.Kind, err)
	}
	return nil
}
