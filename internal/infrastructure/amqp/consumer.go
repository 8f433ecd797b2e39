// Package amqpinfra consumes notification events published by other services.
package amqpinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/matching-sms-api/internal/domain"
	"github.com/matching-sms-api/internal/pkg/validate"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	prefetch       = 20
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// Handler processes one decoded event. Any error rejects the message.
type Handler func(ctx context.Context, ev domain.NotificationEvent) error

type Consumer struct {
	url    string
	queue  string
	handle Handler
}

func NewConsumer(url, queue string, handle Handler) *Consumer {
	return &Consumer{url: url, queue: queue, handle: handle}
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting with
// exponential backoff whenever the connection or channel drops.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := initialBackoff
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			slog.Warn("event consumer: dial failed", "queue", c.queue, "retry_in", backoff, "err", err)
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = initialBackoff

		err = c.session(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Warn("event consumer: session ended, reconnecting", "queue", c.queue, "err", err)
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) session(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(prefetch, 0, false); err != nil {
		slog.Warn("event consumer: set qos failed", "err", err)
	}
	if _, err := ch.QueueDeclare(c.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", c.queue, err)
	}
	msgs, err := ch.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}
	slog.Info("event consumer started", "queue", c.queue)
	return c.drain(ctx, msgs)
}

func (c *Consumer) drain(ctx context.Context, msgs <-chan amqp.Delivery) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			c.handleDelivery(ctx, d)
		}
	}
}

// handleDelivery acks processed events and rejects everything else without
// requeueing. Failed dispatches are already recorded in the notification log.
func (c *Consumer) handleDelivery(ctx context.Context, d amqp.Delivery) {
	ev, err := decodeEvent(d.Body)
	if err == nil {
		err = c.handle(ctx, ev)
	}
	if err != nil {
		slog.Error("event consumer: rejecting message", "queue", c.queue, "user_id", ev.UserID, "type", ev.Type, "err", err)
		_ = d.Nack(false, false)
		return
	}
	_ = d.Ack(false)
}

func decodeEvent(body []byte) (domain.NotificationEvent, error) {
	var ev domain.NotificationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return ev, fmt.Errorf("decode event: %v: %w", err, domain.ErrValidation)
	}
	if err := validate.Struct(ev); err != nil {
		return ev, err
	}
	if !ev.Type.Valid() {
		return ev, fmt.Errorf("unknown notification type %q: %w", ev.Type, domain.ErrValidation)
	}
	return ev, nil
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
