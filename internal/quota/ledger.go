// Package quota tracks a rolling daily cost budget for a metered external
// API. The ledger is advisory bookkeeping: the provider's own quota response
// stays authoritative, since a local counter can desynchronize across
// restarts.
package quota

import (
	"sync"
	"time"
)

// Ledger accumulates usage against a daily limit that resets at a fixed hour
// in a reference timezone. All methods are safe for concurrent use.
type Ledger struct {
	mu          sync.Mutex
	used        int
	limit       int
	resetHour   int
	loc         *time.Location
	periodStart time.Time

	now func() time.Time
}

// Status is a point-in-time snapshot of the budget.
type Status struct {
	Used      int
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// CanAfford reports whether an operation of the given cost fits the
// remaining budget.
func (s Status) CanAfford(cost int) bool {
	return cost <= s.Remaining
}

// New creates a Ledger with the given daily limit, reset hour (0-23) and
// IANA timezone. An unknown timezone falls back to UTC.
func New(limit, resetHour int, timezone string) *Ledger {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	if resetHour < 0 || resetHour > 23 {
		resetHour = 0
	}
	l := &Ledger{
		limit:     limit,
		resetHour: resetHour,
		loc:       loc,
		now:       time.Now,
	}
	l.periodStart = l.periodStartFor(l.now())
	return l
}

// Status lazily applies any pending reset before answering, so a ledger that
// has been idle past the boundary still reports a fresh budget.
func (l *Ledger) Status() Status {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	return Status{
		Used:      l.used,
		Limit:     l.limit,
		Remaining: max(0, l.limit-l.used),
		ResetAt:   l.periodStart.AddDate(0, 0, 1),
	}
}

// Record adds cost to the current period. It never blocks and never fails.
func (l *Ledger) Record(cost int) {
	if cost <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rollLocked()
	l.used += cost
}

// rollLocked resets the counter when the clock has crossed into a new
// period. Caller holds l.mu.
func (l *Ledger) rollLocked() {
	current := l.periodStartFor(l.now())
	if current.After(l.periodStart) {
		l.used = 0
		l.periodStart = current
	}
}

// periodStartFor returns the most recent reset boundary at or before t.
func (l *Ledger) periodStartFor(t time.Time) time.Time {
	t = t.In(l.loc)
	start := time.Date(t.Year(), t.Month(), t.Day(), l.resetHour, 0, 0, 0, l.loc)
	if start.After(t) {
		start = start.AddDate(0, 0, -1)
	}
	return start
}
