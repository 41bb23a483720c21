package scheduler

import (
	"fmt"
	"sync"
	"time"

	"github.com/i474232898/infonaytto/internal/dashboard"
)

// Tracker remembers the last successful update per source and decides what is due.
type Tracker struct {
	mu          sync.RWMutex
	policies    map[dashboard.Kind]Policy
	lastSuccess map[dashboard.Kind]time.Time
}

// NewTracker validates policies and returns a Tracker with no recorded successes.
func NewTracker(policies map[dashboard.Kind]Policy) (*Tracker, error) {
	copied := make(map[dashboard.Kind]Policy, len(policies))
	for kind, p := range policies {
		if p.Interval <= 0 {
			return nil, fmt.Errorf("scheduler: interval for %s must be positive, got %s", kind, p.Interval)
		}
		copied[kind] = p
	}
	return &Tracker{
		policies:    copied,
		lastSuccess: make(map[dashboard.Kind]time.Time),
	}, nil
}

// IsDue reports whether kind should be fetched at now: it has never succeeded or its
// interval has elapsed, and its eligibility predicate holds. Kinds without a policy are
// never due.
func (t *Tracker) IsDue(kind dashboard.Kind, now time.Time) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	p, ok := t.policies[kind]
	if !ok {
		return false
	}

	last, seen := t.lastSuccess[kind]
	if seen && now.Sub(last) < p.Interval {
		return false
	}
	if p.Eligible != nil && !p.Eligible(now) {
		return false
	}
	return true
}

// MarkSuccess records a successful update of kind at at.
func (t *Tracker) MarkSuccess(kind dashboard.Kind, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.lastSuccess[kind] = at
}

// LastSuccess returns when kind last succeeded.
func (t *Tracker) LastSuccess(kind dashboard.Kind) (time.Time, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	at, ok := t.lastSuccess[kind]
	return at, ok
}

// SetInterval changes the refresh interval of kind, keeping its eligibility predicate.
func (t *Tracker) SetInterval(kind dashboard.Kind, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: interval for %s must be positive, got %s", kind, interval)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	p := t.policies[kind]
	p.Interval = interval
	t.policies[kind] = p
	return nil
}
