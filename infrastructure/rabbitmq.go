package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	QueueResumeProcessing = "resume_processing"
	QueueIdentityEvents   = "identity_events"
)

// ResumeProcessingJob asks the worker to extract text from an uploaded resume.
type ResumeProcessingJob struct {
	ResumeFileID string `json:"resume_file_id"`
	UserID       string `json:"user_id"`
}

const (
	IdentityEventPostConfirmation = "post_confirmation"
	IdentityEventUserDeleted      = "user_deleted"
)

// IdentityEvent is published by the identity provider hooks (or the admin
// API) when an account is confirmed or removed.
type IdentityEvent struct {
	Type   string   `json:"type"`
	UserID string   `json:"user_id"`
	Email  string   `json:"email"`
	Name   string   `json:"name"`
	Groups []string `json:"groups"`
}

// Publisher sends a JSON message to a named queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, v any) error
}

type RabbitMQ struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	log     *slog.Logger
}

// NewRabbitMQ connects and declares every queue the service uses.
func NewRabbitMQ(url string, log *slog.Logger) (*RabbitMQ, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	for _, name := range []string{QueueResumeProcessing, QueueIdentityEvents} {
		_, err := ch.QueueDeclare(
			name,  // queue name
			true,  // durable
			false, // delete when unused
			false, // exclusive
			false, // no-wait
			nil,   // args
		)
		if err != nil {
			conn.Close()
			return nil, fmt.Errorf("failed to declare queue %s: %w", name, err)
		}
	}

	log.Info("Connected to RabbitMQ and declared queues")
	return &RabbitMQ{conn: conn, channel: ch, log: log}, nil
}

func (r *RabbitMQ) Publish(ctx context.Context, queue string, v any) error {
	body, err := json.Marshal(v)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return r.channel.PublishWithContext(
		ctx,
		"",    // exchange
		queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// Consume delivers messages from queue to handler until ctx is done.
// A handler error nacks the message without requeueing it.
func (r *RabbitMQ) Consume(ctx context.Context, queue string, handler func(context.Context, []byte) error) error {
	msgs, err := r.channel.ConsumeWithContext(
		ctx,
		queue,
		"",
		false, // auto-ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer for %s: %w", queue, err)
	}

	go func() {
		for d := range msgs {
			deliver(ctx, r.log.With("queue", queue, "message_id", d.MessageId), d, d.Body, handler)
		}
		r.log.Info("Consumer stopped", "queue", queue)
	}()
	return nil
}

// acknowledger is the part of amqp.Delivery that settles a message.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// deliver runs handler on one message body and settles it. Failed messages
// are nacked without requeue so a poison message cannot loop.
func deliver(ctx context.Context, log *slog.Logger, ack acknowledger, body []byte, handler func(context.Context, []byte) error) {
	if err := handler(ctx, body); err != nil {
		log.Error("Message handling failed", "error", err)
		if err := ack.Nack(false, false); err != nil {
			log.Error("Nack failed", "error", err)
		}
		return
	}
	if err := ack.Ack(false); err != nil {
		log.Error("Ack failed", "error", err)
	}
}

// ConsumeJSON decodes each message into T before calling handler.
func ConsumeJSON[T any](ctx context.Context, r *RabbitMQ, queue string, handler func(context.Context, T) error) error {
	return r.Consume(ctx, queue, decodeMessage(handler))
}

func decodeMessage[T any](handler func(context.Context, T) error) func(context.Context, []byte) error {
	return func(ctx context.Context, body []byte) error {
		var msg T
		if err := json.Unmarshal(body, &msg); err != nil {
			return fmt.Errorf("invalid message format: %w", err)
		}
		return handler(ctx, msg)
	}
}

func (r *RabbitMQ) Close() error {
	if err := r.channel.Close(); err != nil {
		r.conn.Close()
		return err
	}
	return r.conn.Close()
}
