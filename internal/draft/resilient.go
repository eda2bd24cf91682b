package draft

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/kiranaops/bolbill/internal/cart"
)

// ErrStoreOpen is returned internally when the primary store's breaker is
// open and calls are being short-circuited to the fallback.
var ErrStoreOpen = errors.New("draft store breaker is open")

// ResilientConfig tunes the [Resilient] store's breaker.
type ResilientConfig struct {
	// MaxFailures is the number of consecutive primary failures before the
	// breaker opens. Default: 3.
	MaxFailures int

	// ResetTimeout is how long the breaker stays open before the next call
	// probes the primary again. Default: 30s.
	ResetTimeout time.Duration
}

// Resilient is a [Store] that protects the intake pipeline from a slow or
// unreachable primary (typically PostgreSQL). Writes that fail on the
// primary land in the in-memory fallback so the current counter keeps its
// draft; after MaxFailures consecutive failures the primary is skipped
// entirely until ResetTimeout elapses, then a single call probes it.
//
// Reads prefer the primary and fall back to memory, so a draft saved during
// an outage is still restorable on the same counter.
type Resilient struct {
	primary  Store
	fallback *MemStore

	maxFailures  int
	resetTimeout time.Duration

	mu          sync.Mutex
	failures    int
	openedAt    time.Time
	open        bool
	lastWarning time.Time
}

var _ Store = (*Resilient)(nil)

// NewResilient wraps primary with a breaker and an in-memory fallback.
// Zero-value config fields get defaults.
func NewResilient(primary Store, cfg ResilientConfig) *Resilient {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 3
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	return &Resilient{
		primary:      primary,
		fallback:     NewMemStore(),
		maxFailures:  cfg.MaxFailures,
		resetTimeout: cfg.ResetTimeout,
	}
}

// Save implements [Store]. The fallback copy is written unconditionally so a
// primary failure never loses the current counter's draft.
func (r *Resilient) Save(ctx context.Context, sessionID string, snap cart.Snapshot) error {
	if err := r.fallback.Save(ctx, sessionID, snap); err != nil {
		return err
	}
	return r.execute(func() error {
		return r.primary.Save(ctx, sessionID, snap)
	})
}

// Load implements [Store]. When the primary is unavailable the in-memory
// copy answers, which covers drafts saved during the current outage.
func (r *Resilient) Load(ctx context.Context, sessionID string) (cart.Snapshot, bool, error) {
	var snap cart.Snapshot
	var found bool
	err := r.execute(func() error {
		var err error
		snap, found, err = r.primary.Load(ctx, sessionID)
		return err
	})
	if err == nil {
		return snap, found, nil
	}
	return r.fallback.Load(ctx, sessionID)
}

// Delete implements [Store].
func (r *Resilient) Delete(ctx context.Context, sessionID string) error {
	if err := r.fallback.Delete(ctx, sessionID); err != nil {
		return err
	}
	return r.execute(func() error {
		return r.primary.Delete(ctx, sessionID)
	})
}

// Ping reports primary health for readiness probes, bypassing the breaker.
func (r *Resilient) Ping(ctx context.Context) error {
	if p, ok := r.primary.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// execute runs fn against the primary unless the breaker is open. A call
// after ResetTimeout probes the primary; success closes the breaker.
func (r *Resilient) execute(fn func() error) error {
	r.mu.Lock()
	if r.open {
		if time.Since(r.openedAt) < r.resetTimeout {
			r.mu.Unlock()
			return ErrStoreOpen
		}
		// Probe: leave the breaker open but let this call through.
	}
	r.mu.Unlock()

	err := fn()

	r.mu.Lock()
	defer r.mu.Unlock()
	if err != nil {
		r.failures++
		r.openedAt = time.Now()
		if !r.open && r.failures >= r.maxFailures {
			r.open = true
			slog.Warn("draft store breaker opened",
				"consecutive_failures", r.failures,
				"reset_timeout", r.resetTimeout,
			)
		} else if r.open && time.Since(r.lastWarning) > r.resetTimeout {
			r.lastWarning = time.Now()
			slog.Warn("draft store still unreachable", "consecutive_failures", r.failures)
		}
		return err
	}
	if r.open {
		slog.Info("draft store breaker closed after successful probe")
	}
	r.open = false
	r.failures = 0
	return nil
}
