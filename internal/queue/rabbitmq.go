package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"resume-gap-analyzer/internal/shared/telemetry"
)

const publishTimeout = 5 * time.Second

type amqpChannel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	Close() error
}

// RabbitMQ publishes and consumes job messages on a durable queue.
type RabbitMQ struct {
	conn    *amqp.Connection
	channel amqpChannel
	queue   string
	// ShutdownTimeout bounds how long Consume waits for in-flight handlers
	// after ctx is cancelled. Zero waits for all of them.
	ShutdownTimeout time.Duration
}

// NewRabbitMQ dials url and declares the durable queue.
func NewRabbitMQ(url, queueName string) (*RabbitMQ, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required")
	}
	queueName = strings.TrimSpace(queueName)
	if queueName == "" {
		return nil, fmt.Errorf("RABBITMQ_QUEUE is required")
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
	q, err := ch.QueueDeclare(
		queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queueName, err)
	}
	return &RabbitMQ{conn: conn, channel: ch, queue: q.Name}, nil
}

// Send publishes a persistent JSON message to the queue.
func (r *RabbitMQ) Send(ctx context.Context, msg Message) error {
	payload, err := EncodeMessage(msg)
	if err != nil {
		return fmt.Errorf("encode rabbitmq message: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = r.channel.PublishWithContext(ctx, "", r.queue, false, false, amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		MessageId:     msg.AnalysisID,
		CorrelationId: msg.RequestID,
		Timestamp:     time.Now().UTC(),
		Body:          payload,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish: %w", err)
	}
	return nil
}

// Consume delivers messages to handle with manual acknowledgement until ctx
// is cancelled or the channel closes. Successful and ErrDrop deliveries are
// acked. Other failures are nacked without requeue so the broker can
// dead-letter them. Handlers do not see ctx's cancellation; in-flight
// deliveries get up to ShutdownTimeout to finish.
func (r *RabbitMQ) Consume(ctx context.Context, prefetch int, handle Handler) error {
	if prefetch < 1 {
		prefetch = 1
	}
	if err := r.channel.Qos(prefetch, 0, false); err != nil {
		return fmt.Errorf("rabbitmq qos: %w", err)
	}
	deliveries, err := r.channel.Consume(r.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("rabbitmq consume: %w", err)
	}

	sem := make(chan struct{}, prefetch)
	var wg sync.WaitGroup
	work := context.WithoutCancel(ctx)
	defer drain(&wg, r.ShutdownTimeout, "rabbitmq.shutdown_timeout")

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				requeue(d)
				return nil
			}
			wg.Add(1)
			go func(d amqp.Delivery) {
				defer wg.Done()
				defer func() { <-sem }()
				settle(work, d, handle)
			}(d)
		}
	}
}

// requeue returns a delivery that was received but never handled.
func requeue(d amqp.Delivery) {
	if err := d.Nack(false, true); err != nil {
		telemetry.Error("rabbitmq.nack_failed", map[string]any{"message_id": d.MessageId, "error": err.Error()})
	}
}

func settle(ctx context.Context, d amqp.Delivery, handle Handler) {
	attempt := 1
	if d.Redelivered {
		attempt = 2
	}
	err := handle(ctx, Delivery{Body: d.Body, MessageID: d.MessageId, Attempt: attempt})
	switch {
	case settled(err):
		if ackErr := d.Ack(false); ackErr != nil {
			telemetry.Error("rabbitmq.ack_failed", map[string]any{"message_id": d.MessageId, "error": ackErr.Error()})
		}
	default:
		if nackErr := d.Nack(false, false); nackErr != nil {
			telemetry.Error("rabbitmq.nack_failed", map[string]any{"message_id": d.MessageId, "error": nackErr.Error()})
		}
	}
}

// Close closes the channel and connection.
func (r *RabbitMQ) Close() error {
	var errs []error
	if r.channel != nil {
		errs = append(errs, r.channel.Close())
	}
	if r.conn != nil {
		errs = append(errs, r.conn.Close())
	}
	return errors.Join(errs...)
}

var _ Client = (*RabbitMQ)(nil)
