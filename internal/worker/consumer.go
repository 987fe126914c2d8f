package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cvpipe/resume-worker/internal/domain"
	"github.com/cvpipe/resume-worker/internal/metrics"
)

const retryCountHeader = "x-retry-count"

// handlerFunc processes one decoded job. A nil return acknowledges the
// delivery; an error triggers the retry/dead-letter policy.
type handlerFunc func(ctx context.Context, job domain.Job) error

// publisher republishes a failed delivery with updated headers.
type publisher interface {
	Publish(ctx context.Context, body []byte, contentType string, headers amqp.Table) error
}

// action is the outcome of the retry decision for a failed delivery.
type action int

const (
	actionRetry action = iota
	actionDeadLetter
)

// decide picks the retry action for a failed delivery that has already been
// redelivered retries times.
func decide(retries, maxRetries int) action {
	if retries < maxRetries {
		return actionRetry
	}
	return actionDeadLetter
}

// retryCount reads the x-retry-count header, defaulting to 0 when absent or
// of an unexpected type. AMQP table values arrive as various integer widths
// depending on the publisher.
func retryCount(headers amqp.Table) int {
	v, ok := headers[retryCountHeader]
	if !ok {
		return 0
	}
	switch n := v.(type) {
	case int:
		return n
	case int8:
		return int(n)
	case int16:
		return int(n)
	case int32:
		return int(n)
	case int64:
		return int(n)
	case float32:
		return int(n)
	case float64:
		return int(n)
	}
	return 0
}

// Consumer turns queue deliveries into handler invocations and applies the
// bounded-retry policy: a failed delivery is republished with an incremented
// x-retry-count header until the limit, then rejected without requeue so the
// broker dead-letters it.
type Consumer struct {
	publisher  publisher
	handler    handlerFunc
	maxRetries int
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

func NewConsumer(pub publisher, handler handlerFunc, maxRetries int, logger *slog.Logger, m *metrics.Metrics) *Consumer {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Consumer{
		publisher:  pub,
		handler:    handler,
		maxRetries: maxRetries,
		logger:     logger,
		metrics:    m,
	}
}

// HandleDelivery processes one delivery end to end, including its
// acknowledgment. It never requeues via the broker: requeue would redeliver
// without incrementing the retry header.
func (c *Consumer) HandleDelivery(ctx context.Context, d amqp.Delivery) {
	c.metrics.JobsConsumed.Inc()

	var job domain.Job
	var handleErr error
	if err := json.Unmarshal(d.Body, &job); err != nil {
		handleErr = fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	} else if job.JobID == "" {
		handleErr = fmt.Errorf("%w: missing jobId", domain.ErrInvalidPayload)
	} else {
		handleErr = c.handler(ctx, job)
	}

	if handleErr == nil {
		if err := d.Ack(false); err != nil {
			c.logger.Error("Failed to ack delivery",
				slog.String("job_id", job.JobID),
				slog.Any("error", err),
			)
		}
		return
	}

	retries := retryCount(d.Headers)
	switch decide(retries, c.maxRetries) {
	case actionRetry:
		c.requeue(ctx, d, job.JobID, retries, handleErr)
	case actionDeadLetter:
		c.logger.Error("Job exhausted retries, dead-lettering",
			slog.String("job_id", job.JobID),
			slog.Int("retries", retries),
			slog.Any("error", handleErr),
		)
		if err := d.Nack(false, false); err != nil {
			c.logger.Error("Failed to nack delivery",
				slog.String("job_id", job.JobID),
				slog.Any("error", err),
			)
			return
		}
		c.metrics.JobsDeadLettered.Inc()
	}
}

// requeue republishes a copy of the delivery with the retry header
// incremented, then acks the original. If the republish fails the original
// is nacked with requeue so the message is not lost.
func (c *Consumer) requeue(ctx context.Context, d amqp.Delivery, jobID string, retries int, cause error) {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[retryCountHeader] = int32(retries + 1)

	c.logger.Warn("Job failed, republishing for retry",
		slog.String("job_id", jobID),
		slog.Int("retry", retries+1),
		slog.Int("max_retries", c.maxRetries),
		slog.Any("error", cause),
	)

	if err := c.publisher.Publish(ctx, d.Body, d.ContentType, headers); err != nil {
		c.logger.Error("Failed to republish delivery, requeueing original",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		if nackErr := d.Nack(false, true); nackErr != nil {
			c.logger.Error("Failed to nack delivery",
				slog.String("job_id", jobID),
				slog.Any("error", nackErr),
			)
		}
		return
	}

	if err := d.Ack(false); err != nil {
		c.logger.Error("Failed to ack delivery after republish",
			slog.String("job_id", jobID),
			slog.Any("error", err),
		)
		return
	}
	c.metrics.JobsRetried.Inc()
}
