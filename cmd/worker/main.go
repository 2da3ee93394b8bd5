package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"resume-gap-analyzer/internal/bootstrap"
	"resume-gap-analyzer/internal/queue"
	"resume-gap-analyzer/internal/shared/config"
	"resume-gap-analyzer/internal/shared/telemetry"
	"resume-gap-analyzer/internal/workerproc"
)

// consumer is implemented by queue.SQSConsumer and queue.RabbitMQ.
type consumer interface {
	Consume(ctx context.Context, concurrency int, handle queue.Handler) error
}

var errRetry = errors.New("analysis left for redelivery")

func main() {
	cfg := config.Load()
	telemetry.Init(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.Build(cfg)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer app.Close()

	src, err := newConsumer(ctx, cfg, app)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}

	telemetry.Info("worker.started", map[string]any{
		"backend":            cfg.QueueBackend,
		"concurrency":        cfg.WorkerConcurrency,
		"visibility_seconds": int(cfg.VisibilityTimeout.Seconds()),
	})
	err = src.Consume(ctx, cfg.WorkerConcurrency, handler(cfg.QueueBackend, app.AnalysesService))
	telemetry.Info("worker.shutdown", map[string]any{"timeout": cfg.ShutdownTimeout.String()})
	if err != nil {
		telemetry.Error("worker.stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

func newConsumer(ctx context.Context, cfg config.Config, app *bootstrap.App) (consumer, error) {
	switch cfg.QueueBackend {
	case config.QueueRabbitMQ:
		if app.Rabbit == nil {
			return nil, errors.New("rabbitmq client not configured")
		}
		app.Rabbit.ShutdownTimeout = cfg.ShutdownTimeout
		return app.Rabbit, nil
	case config.QueueSQS:
		return queue.NewSQSConsumer(ctx, cfg.SQSQueueURL, cfg.AWSRegion, cfg.VisibilityTimeout, cfg.ShutdownTimeout)
	default:
		return nil, fmt.Errorf("QUEUE_BACKEND must be %s or %s", config.QueueSQS, config.QueueRabbitMQ)
	}
}

// handler maps a workerproc disposition onto queue settlement.
func handler(transport string, proc workerproc.Processor) queue.Handler {
	return func(ctx context.Context, d queue.Delivery) error {
		disp := workerproc.Dispatch(ctx, proc, workerproc.Delivery{
			Body:         string(d.Body),
			Transport:    transport,
			MessageID:    d.MessageID,
			ReceiveCount: d.Attempt,
		})
		switch disp {
		case workerproc.Ack:
			return nil
		case workerproc.Drop:
			return queue.ErrDrop
		default:
			return errRetry
		}
	}
}
