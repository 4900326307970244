package quota

import (
	"fmt"
	"time"
)

// Period is the rolling window a quota counter lives in.  Periods follow
// the UTC calendar.
type Period string

const (
	Daily   Period = "daily"
	Monthly Period = "monthly"
)

// Valid reports whether p is a known period.
func (p Period) Valid() bool { return p == Daily || p == Monthly }

// Key returns the period key for t: "YYYY-MM-DD" for daily quotas and
// "YYYY-MM" for monthly ones.
func (p Period) Key(t time.Time) string {
	t = t.UTC()
	if p == Monthly {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

// ResetAt returns the instant the period containing t ends: the next UTC
// midnight, or the first day of the next month.
func (p Period) ResetAt(t time.Time) time.Time {
	t = t.UTC()
	if p == Monthly {
		return time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}

// TTL returns the time left in the period containing t, rounded up to a
// whole second and never below one second.
func (p Period) TTL(t time.Time) time.Duration {
	left := p.ResetAt(t).Sub(t)
	secs := (left + time.Second - 1) / time.Second
	if secs < 1 {
		secs = 1
	}
	return secs * time.Second
}

// CounterKey composes the counter store key for a user, action and period key.
func CounterKey(userID, action, periodKey string) string {
	return fmt.Sprintf("quota:%s:%s:%s", userID, action, periodKey)
}
