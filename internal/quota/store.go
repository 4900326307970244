package quota

import (
	"context"
	"time"
)

// CounterStore is the shared key-value store holding quota counters.  It
// offers plain get and put-with-expiry; nothing about it is atomic.
type CounterStore interface {
	// Get returns the counter at key; found is false when it is absent
	// or expired.
	Get(ctx context.Context, key string) (value int, found bool, err error)
	// Put stores value at key with the given time to live.
	Put(ctx context.Context, key string, value int, ttl time.Duration) error
}

// AtomicConsumer is implemented by stores that can check the limit and
// increment in one step.  Used only when the evaluator runs in strict mode.
type AtomicConsumer interface {
	// Consume increments the counter at key unless it already reached
	// limit.  It returns the value after the call and whether it was
	// incremented.
	Consume(ctx context.Context, key string, limit int, ttl time.Duration) (current int, admitted bool, err error)
}
