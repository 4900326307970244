package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DefaultQueue is the durable queue lifecycle events are routed to.
const DefaultQueue = "match.lifecycle"

const (
	// DefaultDialTimeout bounds connecting and the AMQP handshake.
	DefaultDialTimeout = 2 * time.Second
	// DefaultRetryBackoff is how long Publish fails fast after a failed dial.
	DefaultRetryBackoff = 5 * time.Second
)

// ErrBrokerUnavailable is returned while the publisher is backing off
// after a failed dial.
var ErrBrokerUnavailable = errors.New("broker unavailable")

// Publisher sends lifecycle events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// NoopPublisher drops every event.  It is used when no broker is
// configured.
type NoopPublisher struct{}

// Publish implements Publisher.
func (NoopPublisher) Publish(context.Context, Event) error { return nil }

// AMQPPublisher publishes events as persistent JSON messages on the
// default exchange.  The connection is opened lazily and reopened after a
// failure.  Dialing is bounded by the dial timeout and the caller's
// deadline, and a failed dial is not retried until the backoff elapses.
type AMQPPublisher struct {
	url         string
	queue       string
	dialTimeout time.Duration
	backoff     time.Duration
	now         func() time.Time

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

// PublisherOption customises an AMQPPublisher.
type PublisherOption func(*AMQPPublisher)

// WithDialTimeout sets the connect and handshake bound.
func WithDialTimeout(d time.Duration) PublisherOption {
	return func(p *AMQPPublisher) { p.dialTimeout = d }
}

// WithRetryBackoff sets the fail-fast window after a failed dial.
func WithRetryBackoff(d time.Duration) PublisherOption {
	return func(p *AMQPPublisher) { p.backoff = d }
}

// NewAMQPPublisher returns a publisher for url.  An empty queue name
// selects DefaultQueue.
func NewAMQPPublisher(url, queue string, opts ...PublisherOption) *AMQPPublisher {
	if queue == "" {
		queue = DefaultQueue
	}
	p := &AMQPPublisher{
		url:         url,
		queue:       queue,
		dialTimeout: DefaultDialTimeout,
		backoff:     DefaultRetryBackoff,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Publish implements Publisher.  Errors are returned for the caller to
// log; the publisher itself never panics.
func (p *AMQPPublisher) Publish(ctx context.Context, ev Event) error {
	msg, err := encode(ev)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		return err
	}
	if err := ch.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		msg,
	); err != nil {
		p.reset()
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}
	return nil
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
	return nil
}

// channel returns an open channel, dialing when needed.  p.mu must be held.
func (p *AMQPPublisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.reset()

	if now := p.now(); now.Before(p.retryAt) {
		return nil, fmt.Errorf("%w: retry in %s", ErrBrokerUnavailable, p.retryAt.Sub(now).Round(time.Millisecond))
	}
	timeout := p.dialTimeout
	if dl, ok := ctx.Deadline(); ok {
		if left := time.Until(dl); left < timeout {
			timeout = left
		}
	}
	if timeout <= 0 {
		return nil, context.DeadlineExceeded
	}

	ch, err := p.open(timeout)
	if err != nil {
		p.retryAt = p.now().Add(p.backoff)
		return nil, err
	}
	p.retryAt = time.Time{}
	return ch, nil
}

func (p *AMQPPublisher) open(timeout time.Duration) (*amqp.Channel, error) {
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", p.queue, err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *AMQPPublisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}

func encode(ev Event) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}, nil
}
