package infra

import (
	"errors"
	"fmt"
	"strings"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Broker holds the RabbitMQ connection and the channel notifications are
// published on.
type Broker struct {
	conn    *amqp.Connection
	Channel *amqp.Channel
	Queue   string
}

// NewBroker dials url, opens a channel and declares queue as durable so
// messages survive a broker restart.
func NewBroker(url, queue string) (*Broker, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("rabbitmq url is required")
	}
	if strings.TrimSpace(queue) == "" {
		return nil, errors.New("rabbitmq queue is required")
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return &Broker{conn: conn, Channel: ch, Queue: queue}, nil
}

// Healthy reports whether the underlying connection is still open.
func (b *Broker) Healthy() error {
	if b == nil || b.conn == nil || b.conn.IsClosed() {
		return errors.New("rabbitmq connection closed")
	}
	if b.Channel.IsClosed() {
		return errors.New("rabbitmq channel closed")
	}
	return nil
}

// Close releases the channel and connection.
func (b *Broker) Close() error {
	if b.Channel != nil {
		_ = b.Channel.Close()
	}
	if b.conn != nil {
		return b.conn.Close()
	}
	return nil
}
