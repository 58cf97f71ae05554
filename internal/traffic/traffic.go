// Package traffic keeps sliding windows of request outcomes per proxy route.
// It is the single source for health (degraded, overloaded) and the rate-limit gauges.
package traffic

import (
	"sync"
	"time"
)

// Outcome is the result class of one proxied request.
type Outcome int

const (
	Success Outcome = iota
	Error
	Denied
)

// Retention bounds memory; every window queried must fit inside it.
const Retention = 5 * time.Minute

var defaultTracker = NewTracker()

// Record records an outcome for route on the process-wide tracker.
func Record(route string, o Outcome) {
	defaultTracker.Record(route, o)
}

// CountsFor returns counts for route within window. An empty route sums every route.
func CountsFor(route string, window time.Duration) Counts {
	return defaultTracker.Counts(route, window)
}

// Reset clears the process-wide tracker. For tests only.
func Reset() {
	defaultTracker.Reset()
}

// Counts is a snapshot of outcomes inside a window.
type Counts struct {
	Success int
	Errors  int
	Denied  int
}

// Total counts every outcome, denials included.
func (c Counts) Total() int {
	return c.Success + c.Errors + c.Denied
}

// ErrorPct is errors over (successes + errors) as a percentage. Denials are excluded:
// a 429 says nothing about provider health. Returns 0 when nothing was served.
func (c Counts) ErrorPct() float64 {
	served := c.Success + c.Errors
	if served == 0 {
		return 0
	}
	return float64(c.Errors) * 100 / float64(served)
}

type event struct {
	at      time.Time
	outcome Outcome
}

// Tracker holds timestamped outcomes per route.
type Tracker struct {
	mu     sync.Mutex
	now    func() time.Time
	events map[string][]event
}

// NewTracker returns an empty tracker using the wall clock.
func NewTracker() *Tracker {
	return &Tracker{now: time.Now, events: make(map[string][]event)}
}

// Record appends an outcome for route and prunes entries past retention.
func (t *Tracker) Record(route string, o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.events[route] = append(prune(t.events[route], now.Add(-Retention)), event{at: now, outcome: o})
}

// Counts tallies outcomes for route (or all routes when route is "") not older than window.
func (t *Tracker) Counts(route string, window time.Duration) Counts {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	var c Counts
	tally := func(evs []event) {
		for _, e := range evs {
			if e.at.Before(cutoff) {
				continue
			}
			switch e.outcome {
			case Success:
				c.Success++
			case Error:
				c.Errors++
			case Denied:
				c.Denied++
			}
		}
	}
	if route != "" {
		tally(t.events[route])
		return c
	}
	for _, evs := range t.events {
		tally(evs)
	}
	return c
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.events = make(map[string][]event)
}

// prune drops the leading events older than cutoff. Events are appended in time order.
func prune(evs []event, cutoff time.Time) []event {
	i := 0
	for ; i < len(evs) && evs[i].at.Before(cutoff); i++ {
	}
	if i > 0 {
		return append(evs[:0], evs[i:]...)
	}
	return evs
}
