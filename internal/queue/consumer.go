package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// StartConsumer consumes the lifecycle queue and writes one structured
// log line per event.  It reconnects with exponential backoff and only
// returns when ctx is cancelled.  Malformed messages are rejected without
// requeue so a poison message cannot spin the loop.
func StartConsumer(ctx context.Context, url, queue string, log zerolog.Logger) error {
	if queue == "" {
		queue = DefaultQueue
	}
	log = log.With().Str("component", "lifecycle-consumer").Str("queue", queue).Logger()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn().Err(err).Dur("retry_in", backoff).Msg("dial broker failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, log)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		log.Warn().Err(err).Msg("consume loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, log zerolog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn().Err(err).Msg("set QoS failed")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := handleMessage(log, d.Body); err != nil {
				log.Error().Err(err).Msg("handle message failed")
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

func handleMessage(log zerolog.Logger, body []byte) error {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	switch ev.Type {
	case TypeContactCreated, TypeRequestStatusChanged:
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	if ev.PostingID == "" || ev.RequesterID == "" {
		return errors.New("event without posting or requester")
	}

	e := log.Info().
		Str("event_id", ev.ID).
		Str("type", ev.Type).
		Str("posting_id", ev.PostingID).
		Str("owner_id", ev.OwnerID).
		Str("requester_id", ev.RequesterID).
		Str("status", ev.Status).
		Str("occurred_at", ev.OccurredAt)
	if ev.PreviousStatus != "" {
		e = e.Str("previous_status", ev.PreviousStatus)
	}
	e.Msg("lifecycle event")
	return nil
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
