package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cvpipe/resume-worker/internal/domain"
	"github.com/cvpipe/resume-worker/internal/metrics"
	"github.com/cvpipe/resume-worker/shared/rabbitmq"
)

// Config holds worker wiring and runtime limits.
type Config struct {
	RabbitClient   *rabbitmq.Client
	Orchestrator   *Orchestrator
	MaxRetries     int
	JobTimeout     time.Duration
	ReconnectDelay time.Duration
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// Worker drives the consume loop: it reads deliveries from the broker, runs
// each through the consumer on its own goroutine, and reconnects with a fixed
// delay when the connection drops. In-flight jobs are bounded by the
// channel's prefetch limit.
type Worker struct {
	rabbitClient   *rabbitmq.Client
	consumer       *Consumer
	workerID       string
	jobTimeout     time.Duration
	reconnectDelay time.Duration
	logger         *slog.Logger

	wg sync.WaitGroup
}

func NewWorker(cfg *Config) *Worker {
	w := &Worker{
		rabbitClient:   cfg.RabbitClient,
		workerID:       fmt.Sprintf("resume-worker-%s", uuid.New().String()[:8]),
		jobTimeout:     cfg.JobTimeout,
		reconnectDelay: cfg.ReconnectDelay,
		logger:         cfg.Logger,
	}
	if w.jobTimeout <= 0 {
		w.jobTimeout = 5 * time.Minute
	}
	if w.reconnectDelay <= 0 {
		w.reconnectDelay = 5 * time.Second
	}

	orchestrator := cfg.Orchestrator
	w.consumer = NewConsumer(cfg.RabbitClient, func(ctx context.Context, job domain.Job) error {
		jobCtx, cancel := context.WithTimeout(ctx, w.jobTimeout)
		defer cancel()
		return orchestrator.Process(jobCtx, job)
	}, cfg.MaxRetries, cfg.Logger, cfg.Metrics)

	return w
}

// Start consumes until the context is canceled, surviving connection loss by
// reconnecting and re-establishing the consumer. It blocks.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Duration("job_timeout", w.jobTimeout),
	)

	for {
		deliveries, err := w.rabbitClient.Consume(w.workerID)
		if err != nil {
			return fmt.Errorf("failed to start consuming: %w", err)
		}

		if done := w.consumeLoop(ctx, deliveries); done {
			w.wg.Wait()
			w.logger.Info("Worker stopped", slog.String("worker_id", w.workerID))
			return nil
		}

		if err := w.reconnect(ctx); err != nil {
			w.wg.Wait()
			return err
		}
	}
}

// consumeLoop dispatches deliveries until the context ends (returns true) or
// the connection drops (returns false).
func (w *Worker) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) bool {
	closeCh := w.rabbitClient.NotifyClose()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Worker context canceled, draining in-flight jobs")
			return true

		case amqpErr := <-closeCh:
			w.logger.Warn("RabbitMQ connection lost",
				slog.Any("error", amqpErr),
			)
			return false

		case d, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return false
			}
			w.wg.Add(1)
			// Detached from ctx so cancellation stops intake without
			// aborting in-flight jobs; the per-job timeout still bounds them.
			jobCtx := context.WithoutCancel(ctx)
			go func() {
				defer w.wg.Done()
				w.consumer.HandleDelivery(jobCtx, d)
			}()
		}
	}
}

// reconnect re-establishes the broker connection with a fixed delay between
// attempts, honoring context cancellation.
func (w *Worker) reconnect(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(w.reconnectDelay):
		}

		if err := w.rabbitClient.Reconnect(); err != nil {
			w.logger.Error("Failed to reconnect to RabbitMQ",
				slog.Any("error", err),
				slog.Duration("retry_in", w.reconnectDelay),
			)
			continue
		}

		w.logger.Info("RabbitMQ connection re-established")
		return nil
	}
}

// Healthy reports whether the worker can receive deliveries.
func (w *Worker) Healthy() bool {
	return w.rabbitClient.IsConnected()
}
