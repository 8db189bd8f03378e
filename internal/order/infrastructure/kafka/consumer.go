package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/sofa-storefront/internal/order/domain"
	"github.com/dmehra2102/sofa-storefront/pkg/apperr"
	"github.com/dmehra2102/sofa-storefront/pkg/idempotency"
	"github.com/dmehra2102/sofa-storefront/pkg/tracing"
)

const (
	eventPaymentCompleted = "PaymentCompleted"
	eventPaymentFailed    = "PaymentFailed"
)

type Reader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type OutcomeApplier interface {
	ApplyPaymentOutcome(ctx context.Context, orderID string, outcome domain.PaymentOutcome) error
}

// paymentEvent is the part of a payment.events payload the order side reads.
type paymentEvent struct {
	AttemptID string `json:"attemptId"`
	OrderID   string `json:"orderId"`
	Reason    string `json:"reason"`
}

const (
	defaultRetryBackoff = 500 * time.Millisecond
	maxRetryBackoff     = 30 * time.Second
)

// Consumer applies finished payment attempts from payment.events to orders.
// An offset is committed only once its outcome is applied, so a message that
// keeps failing holds its partition until it succeeds or the consumer stops.
type Consumer struct {
	log     *slog.Logger
	reader  Reader
	svc     OutcomeApplier
	idem    *idempotency.Store
	tracer  trace.Tracer
	backoff time.Duration
}

type Option func(*Consumer)

// WithRetryBackoff sets the first wait before a failed message is retried.
// The wait doubles on every failure up to 30s.
func WithRetryBackoff(d time.Duration) Option {
	return func(c *Consumer) { c.backoff = d }
}

func NewConsumer(log *slog.Logger, brokers []string, topic, group string, svc OutcomeApplier, idem *idempotency.Store, opts ...Option) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		Topic:   topic,
		GroupID: group,
	})
	return NewConsumerWithReader(log, r, svc, idem, opts...)
}

func NewConsumerWithReader(log *slog.Logger, r Reader, svc OutcomeApplier, idem *idempotency.Store, opts ...Option) *Consumer {
	c := &Consumer{
		log:     log,
		reader:  r,
		svc:     svc,
		idem:    idem,
		tracer:  otel.Tracer("order-payment-consumer"),
		backoff: defaultRetryBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run consumes until ctx is done. A cancelled context is a clean stop.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.reader.Close()

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			return err
		}
		if !c.deliver(ctx, msg) {
			return nil
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			c.log.Error("commit failed", "topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset, "err", err)
		}
	}
}

// deliver processes msg until it is applied, skipped as a duplicate or
// dropped as unprocessable. It reports false when ctx ends first; the offset
// then stays uncommitted and the message is redelivered.
func (c *Consumer) deliver(ctx context.Context, msg kafka.Message) bool {
	key := c.idem.Key(msg.Topic, msg.Partition, msg.Offset)
	log := c.log.With("topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	claimed := false
	wait := c.backoff

	for {
		err := c.claim(ctx, key, &claimed)
		if err == nil && !claimed {
			log.Info("duplicate message skipped", "key", key)
			return true
		}
		if err == nil {
			if err = c.handle(ctx, msg); err == nil {
				return true
			}
			if rerr := c.idem.Release(context.WithoutCancel(ctx), key); rerr != nil {
				log.Warn("release idempotency key failed", "key", key, "err", rerr)
			} else {
				claimed = false
			}
		}

		log.Error("message not processed, retrying", "backoff", wait, "err", err)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(wait):
		}
		wait = min(wait*2, maxRetryBackoff)
	}
}

// claim takes key unless this delivery already holds it. claimed stays false
// when another delivery got there first.
func (c *Consumer) claim(ctx context.Context, key string, claimed *bool) error {
	if *claimed {
		return nil
	}
	seen, err := c.idem.Seen(ctx, key)
	if err != nil {
		return fmt.Errorf("idempotency check: %w", err)
	}
	*claimed = !seen
	return nil
}

// handle applies the outcome carried by msg. Messages that can never be
// applied are logged and dropped; the returned error is worth a retry.
func (c *Consumer) handle(ctx context.Context, msg kafka.Message) error {
	eventType := tracing.HeaderValue(msg.Headers, "event_type")
	if eventType != eventPaymentCompleted && eventType != eventPaymentFailed {
		return nil
	}

	msgCtx := tracing.ExtractKafkaHeaders(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "Consume"+eventType)
	defer span.End()

	var event paymentEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		c.log.Error("unmarshal failed", "event_type", eventType, "err", err)
		return nil
	}
	if event.OrderID == "" {
		return nil
	}

	outcome := domain.PaymentOutcome{
		AttemptID: event.AttemptID,
		Succeeded: eventType == eventPaymentCompleted,
		Reason:    event.Reason,
	}
	if err := c.svc.ApplyPaymentOutcome(msgCtx, event.OrderID, outcome); err != nil {
		span.RecordError(err)
		if apperr.KindOf(err) != apperr.KindInternal {
			c.log.Error("payment outcome rejected", "order_id", event.OrderID, "attempt_id", event.AttemptID, "err", err)
			return nil
		}
		return fmt.Errorf("apply payment outcome to order %s: %w", event.OrderID, err)
	}
	c.log.Info("payment outcome applied", "order_id", event.OrderID, "attempt_id", event.AttemptID, "event_type", eventType)
	return nil
}
