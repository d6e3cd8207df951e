// Package ratelimit implements fixed-window request limiting across multiple
// independent named tiers.
//
// This is a single-instance, in-memory limiter intended for basic abuse
// prevention on a single server: it bounds per-client request rate for a
// coarse general tier, a narrow authentication tier, and a very narrow
// resource-creation tier. It does not protect against distributed attacks;
// that belongs to an upstream WAF or CDN.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Tier is one independent limiting configuration.
type Tier struct {
	// Window is the fixed window duration. When a window expires the
	// counter resets wholesale and the window start advances.
	Window time.Duration
	// Max is the ceiling of allowed requests per key within one window.
	Max int
}

// Well-known tier names. Callers may register additional tiers.
const (
	TierGeneral = "general"
	TierAuth    = "auth"
	TierCreate  = "create"
)

// DefaultTiers mirrors the documented safe defaults: a wide DDoS backstop,
// an anti-brute-force auth tier, and a creation tier for expensive writes.
func DefaultTiers() map[string]Tier {
	return map[string]Tier{
		TierGeneral: {Window: 15 * time.Minute, Max: 50},
		TierAuth:    {Window: 15 * time.Minute, Max: 5},
		TierCreate:  {Window: time.Minute, Max: 3},
	}
}

// Result is the verdict for a single request.
type Result struct {
	Allowed bool
	// RetryAfter is the remaining time until the window resets. Only
	// meaningful when Allowed is false.
	RetryAfter time.Duration
}

type window struct {
	start time.Time
	count int
}

// Limiter tracks fixed windows per (client key, tier). All state is guarded
// by one mutex, so concurrent checks on the same key never lose an increment
// and every increment is visible to the next check.
type Limiter struct {
	mu      sync.Mutex
	tiers   map[string]Tier
	windows map[string]*window

	// now is injectable for tests.
	now func() time.Time
}

type Option func(*Limiter)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) {
		l.now = now
	}
}

// New creates a Limiter with the given tiers and starts a background
// eviction goroutine that drops idle windows. ctx cancels the goroutine on
// shutdown.
func New(ctx context.Context, tiers map[string]Tier, opts ...Option) *Limiter {
	l := &Limiter{
		tiers:   make(map[string]Tier, len(tiers)),
		windows: make(map[string]*window),
		now:     time.Now,
	}
	for name, t := range tiers {
		l.tiers[name] = t
	}
	for _, o := range opts {
		o(l)
	}
	go l.cleanup(ctx)
	return l
}

// Check records one request for key under the named tier and returns the
// verdict. An unknown tier fails closed: the request is denied rather than
// silently unmetered.
func (l *Limiter) Check(key, tier string) Result {
	l.mu.Lock()
	defer l.mu.Unlock()

	t, ok := l.tiers[tier]
	if !ok {
		return Result{Allowed: false, RetryAfter: time.Minute}
	}

	now := l.now()
	mapKey := tier + "\x00" + key

	w, ok := l.windows[mapKey]
	if !ok || now.Sub(w.start) >= t.Window {
		w = &window{start: now}
		l.windows[mapKey] = w
	}

	if w.count >= t.Max {
		return Result{
			Allowed:    false,
			RetryAfter: t.Window - now.Sub(w.start),
		}
	}
	w.count++
	return Result{Allowed: true}
}

// cleanup periodically evicts windows whose tier window has long elapsed.
func (l *Limiter) cleanup(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.evictStale()
		}
	}
}

func (l *Limiter) evictStale() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	maxWindow := time.Duration(0)
	for _, t := range l.tiers {
		if t.Window > maxWindow {
			maxWindow = t.Window
		}
	}
	for k, w := range l.windows {
		if now.Sub(w.start) >= 2*maxWindow {
			delete(l.windows, k)
		}
	}
}
