// Package quota implements per-user, per-action, per-period usage
// ceilings.  Evaluation is check-and-consume: an admitted evaluation
// always spends one unit, whatever the caller does next.
package quota

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/kdufoot/matchfinder/internal/metrics"
)

// Limit is the ceiling of one action kind.
type Limit struct {
	Limit  int    `yaml:"limit" json:"limit"`
	Period Period `yaml:"period" json:"period"`
}

// Table maps action kinds (permission strings) to their limit.  Actions
// missing from the table are unlimited.
type Table map[string]Limit

// DefaultTable is the production quota table.
func DefaultTable() Table {
	return Table{
		"videos:analyze":      {Limit: 3, Period: Daily},
		"videos:analyze:long": {Limit: 10, Period: Daily},
		"sessions:adapt":      {Limit: 3, Period: Monthly},
		"matches:create":      {Limit: 50, Period: Monthly},
	}
}

// Validate rejects non-positive limits and unknown periods.
func (t Table) Validate() error {
	for action, l := range t {
		if l.Limit < 1 {
			return fmt.Errorf("quota %q: limit must be positive, got %d", action, l.Limit)
		}
		if !l.Period.Valid() {
			return fmt.Errorf("quota %q: unknown period %q", action, l.Period)
		}
	}
	return nil
}

// Decision is the outcome of one evaluation.  For denied evaluations
// Current is the value read from the store (equal to or above Limit).
type Decision struct {
	Admitted  bool
	Unlimited bool
	Current   int
	Limit     int
	ResetAt   time.Time
}

// ExceededError reports a denied evaluation to callers that work with errors.
type ExceededError struct {
	Action  string
	Current int
	Limit   int
	ResetAt time.Time
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("quota exceeded for %s: %d/%d until %s", e.Action, e.Current, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// Err returns an *ExceededError for a denied decision and nil otherwise.
func (d Decision) Err(action string) error {
	if d.Admitted {
		return nil
	}
	return &ExceededError{Action: action, Current: d.Current, Limit: d.Limit, ResetAt: d.ResetAt}
}

// Evaluator checks and consumes quota against a CounterStore.
type Evaluator struct {
	store  CounterStore
	table  Table
	strict bool
	now    func() time.Time
}

// Option customises an Evaluator.
type Option func(*Evaluator)

// WithClock sets the time source used for period keys.
func WithClock(now func() time.Time) Option {
	return func(e *Evaluator) { e.now = now }
}

// WithStrict makes the evaluator use the store's atomic consume when the
// store implements AtomicConsumer.  Without it, concurrent evaluations can
// overshoot the limit because read and write are two store operations.
func WithStrict(strict bool) Option {
	return func(e *Evaluator) { e.strict = strict }
}

// NewEvaluator returns an Evaluator over store with the given table.
func NewEvaluator(store CounterStore, table Table, opts ...Option) *Evaluator {
	if table == nil {
		table = Table{}
	}
	e := &Evaluator{store: store, table: table, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the configured limit of action, if any.
func (e *Evaluator) Limits(action string) (Limit, bool) {
	l, ok := e.table[action]
	return l, ok
}

// Evaluate checks the counter of (userID, action, current period) and
// increments it when below the limit.  Store failures are returned as is.
func (e *Evaluator) Evaluate(ctx context.Context, userID, action string) (Decision, error) {
	cfg, ok := e.table[action]
	if !ok {
		metrics.QuotaDecisions.WithLabelValues(action, "unlimited").Inc()
		return Decision{Admitted: true, Unlimited: true}, nil
	}

	now := e.now()
	key := CounterKey(userID, action, cfg.Period.Key(now))
	ttl := cfg.Period.TTL(now)
	d := Decision{Limit: cfg.Limit, ResetAt: cfg.Period.ResetAt(now)}

	if ac, ok := e.store.(AtomicConsumer); ok && e.strict {
		current, admitted, err := ac.Consume(ctx, key, cfg.Limit, ttl)
		if err != nil {
			return Decision{}, err
		}
		d.Current, d.Admitted = current, admitted
		e.record(ctx, userID, action, d)
		return d, nil
	}

	current, _, err := e.store.Get(ctx, key)
	if err != nil {
		return Decision{}, err
	}
	if current >= cfg.Limit {
		d.Current = current
		e.record(ctx, userID, action, d)
		return d, nil
	}
	if err := e.store.Put(ctx, key, current+1, ttl); err != nil {
		return Decision{}, err
	}
	d.Current, d.Admitted = current+1, true
	e.record(ctx, userID, action, d)
	return d, nil
}

func (e *Evaluator) record(ctx context.Context, userID, action string, d Decision) {
	result := "admitted"
	if !d.Admitted {
		result = "denied"
		zerolog.Ctx(ctx).Info().
			Str("user_id", userID).
			Str("action", action).
			Int("current", d.Current).
			Int("limit", d.Limit).
			Msg("quota: limit reached")
	}
	metrics.QuotaDecisions.WithLabelValues(action, result).Inc()
}
