package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/openfield/identity/internal/models"
)

// Queue names the identity service publishes to.
// Consumers render and deliver, this side only enqueues
const (
	EmailQueue = "identity.emails"
	EventQueue = "identity.events"
)

// Email templates a consumer knows how to render
const (
	TemplatePasswordReset   = "password-reset"
	TemplatePasswordChanged = "password-changed"
)

type EmailMessage struct {
	To       string            `json:"to"`
	Template string            `json:"template"`
	Data     map[string]string `json:"data,omitempty"`
}

type NotificationEvent struct {
	NotificationID int64     `json:"notification_id"`
	UserID         string    `json:"user_id"`
	Message        string    `json:"message"`
	CreatedAt      time.Time `json:"created_at"`
}

// Publisher pushes messages to RabbitMQ durable queues with persistent
// delivery mode, so they survive broker restarts
type Publisher struct {
	conn *amqp.Connection
	ch   *amqp.Channel
}

func Connect(url string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("error while connecting to broker. Err: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("error while opening channel. Err: %w", err)
	}

	// Queue declaration is idempotent
	for _, queue := range []string{EmailQueue, EventQueue} {
		_, err := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		)
		if err != nil {
			_ = ch.Close()
			_ = conn.Close()
			return nil, fmt.Errorf("error while declaring queue %q. Err: %w", queue, err)
		}
	}

	return &Publisher{conn: conn, ch: ch}, nil
}

func (p *Publisher) Close() error {
	if err := p.ch.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

func (p *Publisher) SendPasswordReset(ctx context.Context, email string, token string) error {
	return p.publish(ctx, EmailQueue, EmailMessage{
		To:       email,
		Template: TemplatePasswordReset,
		Data:     map[string]string{"token": token},
	})
}

func (p *Publisher) SendPasswordChanged(ctx context.Context, email string) error {
	return p.publish(ctx, EmailQueue, EmailMessage{
		To:       email,
		Template: TemplatePasswordChanged,
	})
}

func (p *Publisher) NotificationCreated(ctx context.Context, n models.Notification) error {
	return p.publish(ctx, EventQueue, NotificationEvent{
		NotificationID: n.ID,
		UserID:         n.UserID.String(),
		Message:        n.Message,
		CreatedAt:      n.CreatedAt,
	})
}

func (p *Publisher) publish(ctx context.Context, queue string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error while marshaling message. Err: %w", err)
	}

	err = p.ch.PublishWithContext(ctx,
		"",    // default exchange
		queue, // routing key = queue name
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("error while publishing to %q. Err: %w", queue, err)
	}

	return nil
}

// Nop satisfies the publisher interfaces when no broker is configured
type Nop struct{}

func (Nop) SendPasswordReset(context.Context, string, string) error { return nil }
func (Nop) SendPasswordChanged(context.Context, string) error       { return nil }
func (Nop) NotificationCreated(context.Context, models.Notification) error {
	return nil
}
