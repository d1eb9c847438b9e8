// SPDX-FileCopyrightText: 2026 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"k8s.io/utils/clock"

	"github.com/telekom/mailguard/pkg/metrics"
)

// DefaultSweepInterval is how often expired entries are removed.
const DefaultSweepInterval = 5 * time.Minute

// Ceiling names one of the four independent limits.
type Ceiling string

const (
	RecipientMinute Ceiling = "recipient-minute"
	RecipientHour   Ceiling = "recipient-hour"
	GlobalMinute    Ceiling = "global-minute"
	GlobalHour      Ceiling = "global-hour"
)

const (
	globalMinuteKey = "global:minute"
	globalHourKey   = "global:hour"
)

// Limits holds the four ceilings.
type Limits struct {
	RecipientPerMinute int `json:"recipientPerMinute"`
	RecipientPerHour   int `json:"recipientPerHour"`
	GlobalPerMinute    int `json:"globalPerMinute"`
	GlobalPerHour      int `json:"globalPerHour"`
}

// DefaultLimits returns 5/min and 20/h per recipient, 100/min and 500/h globally.
func DefaultLimits() Limits {
	return Limits{
		RecipientPerMinute: 5,
		RecipientPerHour:   20,
		GlobalPerMinute:    100,
		GlobalPerHour:      500,
	}
}

// withDefaults replaces non-positive limits with their defaults.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.RecipientPerMinute <= 0 {
		l.RecipientPerMinute = d.RecipientPerMinute
	}
	if l.RecipientPerHour <= 0 {
		l.RecipientPerHour = d.RecipientPerHour
	}
	if l.GlobalPerMinute <= 0 {
		l.GlobalPerMinute = d.GlobalPerMinute
	}
	if l.GlobalPerHour <= 0 {
		l.GlobalPerHour = d.GlobalPerHour
	}
	return l
}

// Config holds guard configuration
type Config struct {
	Limits Limits
	// SweepInterval is how often expired entries are removed
	SweepInterval time.Duration
}

// DefaultConfig returns DefaultLimits swept every DefaultSweepInterval.
func DefaultConfig() Config {
	return Config{Limits: DefaultLimits(), SweepInterval: DefaultSweepInterval}
}

// Decision is the outcome of a quota check.
type Decision struct {
	Allowed bool `json:"allowed"`
	// Ceiling is the violated limit; empty when allowed.
	Ceiling    Ceiling       `json:"ceiling,omitempty"`
	Reason     string        `json:"reason,omitempty"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
}

// RetryAfterMs returns RetryAfter in whole milliseconds, rounded up.
func (d Decision) RetryAfterMs() int64 {
	return (d.RetryAfter + time.Millisecond - 1).Milliseconds()
}

// Stats is a point-in-time view of the guard. Expired entries count as zero.
type Stats struct {
	EntriesCount      int `json:"entriesCount"`
	GlobalMinuteCount int `json:"globalMinuteCount"`
	GlobalHourCount   int `json:"globalHourCount"`
}

// Guard enforces the per-recipient and global ceilings.
type Guard struct {
	store  Store
	clock  clock.WithTicker
	config Config
	log    *zap.SugaredLogger

	mu      sync.Mutex
	done    chan struct{}
	wg      sync.WaitGroup
	running bool
}

// Option customizes a Guard.
type Option func(*Guard)

// WithStore replaces the default MemoryStore.
func WithStore(s Store) Option {
	return func(g *Guard) { g.store = s }
}

// WithClock replaces the real clock.
func WithClock(c clock.WithTicker) Option {
	return func(g *Guard) { g.clock = c }
}

// WithLogger sets the logger used by the sweep task.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(g *Guard) { g.log = log }
}

// New creates a guard. The sweep task is not started; call Start.
func New(cfg Config, opts ...Option) *Guard {
	cfg.Limits = cfg.Limits.withDefaults()
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}

	g := &Guard{
		config: cfg,
		clock:  clock.RealClock{},
		log:    zap.NewNop().Sugar(),
	}
	for _, o := range opts {
		o(g)
	}
	if g.store == nil {
		g.store = NewMemoryStore()
	}
	g.log = g.log.Named("quota")
	return g
}

// Config returns a copy of the current configuration
func (g *Guard) Config() Config {
	return g.config
}

type ceilingSpec struct {
	name   Ceiling
	key    string
	window time.Duration
	limit  int
	reason string
}

// ceilings returns the checks for recipient in evaluation order: narrowest
// scope first.
func ceilings(recipient string, l Limits) [4]ceilingSpec {
	return [4]ceilingSpec{
		{
			name:   RecipientMinute,
			key:    "recipient:" + recipient + ":minute",
			window: time.Minute,
			limit:  l.RecipientPerMinute,
			reason: fmt.Sprintf("Rate limit exceeded for %s: maximum %d emails per minute", recipient, l.RecipientPerMinute),
		},
		{
			name:   RecipientHour,
			key:    "recipient:" + recipient + ":hour",
			window: time.Hour,
			limit:  l.RecipientPerHour,
			reason: fmt.Sprintf("Rate limit exceeded for %s: maximum %d emails per hour", recipient, l.RecipientPerHour),
		},
		{
			name:   GlobalMinute,
			key:    globalMinuteKey,
			window: time.Minute,
			limit:  l.GlobalPerMinute,
			reason: fmt.Sprintf("Global rate limit exceeded: maximum %d emails per minute", l.GlobalPerMinute),
		},
		{
			name:   GlobalHour,
			key:    globalHourKey,
			window: time.Hour,
			limit:  l.GlobalPerHour,
			reason: fmt.Sprintf("Global rate limit exceeded: maximum %d emails per hour", l.GlobalPerHour),
		},
	}
}

// Check consumes one unit of quota for recipient under the configured limits.
func (g *Guard) Check(recipient string) Decision {
	return g.CheckLimits(recipient, g.config.Limits)
}

// CheckLimits consumes one unit of quota for recipient under limits. Ceilings
// are checked in order and the first violation stops evaluation; ceilings
// passed before the violation stay incremented.
func (g *Guard) CheckLimits(recipient string, limits Limits) Decision {
	limits = limits.withDefaults()
	for _, c := range ceilings(recipient, limits) {
		if retryAfter, ok := g.consume(c.key, c.window, c.limit); !ok {
			metrics.MailQuotaDenied.WithLabelValues(string(c.name)).Inc()
			return Decision{Ceiling: c.name, Reason: c.reason, RetryAfter: retryAfter}
		}
	}
	metrics.MailQuotaAllowed.Inc()
	return Decision{Allowed: true}
}

// CheckBatch checks recipients in order and returns the first denial.
// Recipients before it keep their consumed quota; later ones are untouched.
func (g *Guard) CheckBatch(recipients []string) Decision {
	return g.CheckBatchLimits(recipients, g.config.Limits)
}

// CheckBatchLimits is CheckBatch with explicit limits.
func (g *Guard) CheckBatchLimits(recipients []string, limits Limits) Decision {
	for _, r := range recipients {
		if d := g.CheckLimits(r, limits); !d.Allowed {
			return d
		}
	}
	return Decision{Allowed: true}
}

// consume performs the fixed-window check-and-increment for key. It returns
// false and the time until the window resets when the limit is reached.
func (g *Guard) consume(key string, window time.Duration, limit int) (time.Duration, bool) {
	now := g.clock.Now()
	var (
		allowed    bool
		retryAfter time.Duration
	)
	g.store.Update(key, func(cur Entry, ok bool) Entry {
		if !ok || cur.Expired(now) {
			allowed = true
			return Entry{Count: 1, ResetAt: now.Add(window)}
		}
		if cur.Count >= limit {
			retryAfter = cur.ResetAt.Sub(now)
			return cur
		}
		allowed = true
		cur.Count++
		return cur
	})
	return retryAfter, allowed
}

// Stats returns the live entry count and the global counters.
func (g *Guard) Stats() Stats {
	now := g.clock.Now()
	var s Stats
	g.store.Range(func(key string, e Entry) bool {
		if e.Expired(now) {
			return true
		}
		s.EntriesCount++
		switch key {
		case globalMinuteKey:
			s.GlobalMinuteCount = e.Count
		case globalHourKey:
			s.GlobalHourCount = e.Count
		}
		return true
	})
	return s
}

// ResetAll clears every counter. Intended for tests.
func (g *Guard) ResetAll() {
	g.store.Reset()
}

// Sweep removes expired entries and returns how many were removed.
func (g *Guard) Sweep() int {
	return g.store.Sweep(g.clock.Now())
}

// Start launches the periodic sweep. Calling Start on a running guard is a no-op.
func (g *Guard) Start() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.running {
		return
	}
	g.running = true
	g.done = make(chan struct{})

	ticker := g.clock.NewTicker(g.config.SweepInterval)
	g.wg.Add(1)
	go g.sweepLoop(ticker, g.done)
	g.log.Infow("Quota sweep started", "interval", g.config.SweepInterval.String())
}

// Stop stops the sweep and waits for it to exit. Safe to call more than once.
func (g *Guard) Stop() {
	g.mu.Lock()
	if !g.running {
		g.mu.Unlock()
		return
	}
	g.running = false
	close(g.done)
	g.mu.Unlock()

	g.wg.Wait()
	g.log.Info("Quota sweep stopped")
}

func (g *Guard) sweepLoop(ticker clock.Ticker, done <-chan struct{}) {
	defer g.wg.Done()
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C():
			if n := g.Sweep(); n > 0 {
				g.log.Debugw("Removed expired quota entries", "removed", n, "remaining", g.store.Len())
			}
		}
	}
}
