package dispatch

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kiranaops/bolbill/internal/command"
	"github.com/kiranaops/bolbill/internal/observe"
)

// State is the listener's lifecycle position.
type State int

const (
	// StateIdle accepts no input. The listener starts and ends here.
	StateIdle State = iota

	// StateListening accumulates final fragments and processes them.
	StateListening

	// StateFlushing is the transient state during cancellation: the
	// remaining accumulated text is processed exactly once, then the
	// listener returns to idle and discards further input.
	StateFlushing
)

// String returns the lowercase state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateListening:
		return "listening"
	case StateFlushing:
		return "flushing"
	}
	return "unknown"
}

// processor is the slice of [Dispatcher] the listener needs.
type processor interface {
	Process(ctx context.Context, s *Session, raw string, reprocess bool) ([]command.ResolvedCommand, error)
}

// Listener drives one session's intake lifecycle. Speech acquisition
// delivers interim and final fragments; only finals are appended to the
// accumulating buffer. Each final triggers a processing pass over the whole
// buffer, serialized by an in-flight flag: a fragment arriving mid-pass is
// deferred and the buffer is re-processed once the current pass completes.
//
// A silence timeout auto-flushes the buffer; [Cancel] flushes the remaining
// text exactly once and then drops all further input.
//
// Methods are safe to call from the acquisition goroutine concurrently with
// the silence timer.
type Listener struct {
	proc    processor
	session *Session
	metrics *observe.Metrics

	silenceTimeout time.Duration

	mu       sync.Mutex
	state    State
	finals   []string
	silence  *time.Timer
	inFlight bool
	pending  bool
	ctx      context.Context
}

// NewListener returns an idle listener for the session. silenceTimeout is
// the delay after the last fragment before an automatic flush; constrained
// devices configure a longer one.
func NewListener(proc processor, session *Session, metrics *observe.Metrics, silenceTimeout time.Duration) *Listener {
	return &Listener{
		proc:           proc,
		session:        session,
		metrics:        metrics,
		silenceTimeout: silenceTimeout,
	}
}

// State returns the current lifecycle state.
func (l *Listener) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Start moves the listener to the listening state. A no-op unless idle.
func (l *Listener) Start(ctx context.Context) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateIdle {
		return
	}
	l.state = StateListening
	l.ctx = ctx
	l.armSilenceLocked()
	l.metrics.ActiveSessions.Add(ctx, 1)
}

// OnFragment feeds one transcript fragment. Interim fragments only reset
// the silence timer; final fragments are appended to the buffer and trigger
// a processing pass. Fragments are dropped unless listening.
func (l *Listener) OnFragment(text string, final bool) {
	l.mu.Lock()
	if l.state != StateListening {
		l.mu.Unlock()
		return
	}
	l.armSilenceLocked()
	if !final || strings.TrimSpace(text) == "" {
		l.mu.Unlock()
		return
	}
	l.finals = append(l.finals, strings.TrimSpace(text))
	l.mu.Unlock()

	l.run()
}

// Cancel flushes any accumulated text through the pipeline exactly once,
// then returns the listener to idle and discards further input. Repeated
// calls are no-ops.
func (l *Listener) Cancel() {
	l.mu.Lock()
	if l.state != StateListening {
		l.mu.Unlock()
		return
	}
	l.state = StateFlushing
	if l.silence != nil {
		l.silence.Stop()
	}
	ctx := l.ctx
	l.mu.Unlock()

	l.run()

	l.mu.Lock()
	l.state = StateIdle
	l.finals = nil
	l.mu.Unlock()

	l.session.Reset()
	l.metrics.ActiveSessions.Add(ctx, -1)
}

// armSilenceLocked (re)starts the silence timer. Must be called with l.mu
// held.
func (l *Listener) armSilenceLocked() {
	if l.silence != nil {
		l.silence.Stop()
	}
	l.silence = time.AfterFunc(l.silenceTimeout, l.onSilence)
}

// onSilence fires when no fragment arrived for the silence timeout: the
// accumulated buffer is flushed and the listener keeps listening.
func (l *Listener) onSilence() {
	l.mu.Lock()
	if l.state != StateListening {
		l.mu.Unlock()
		return
	}
	l.armSilenceLocked()
	l.mu.Unlock()

	l.run()
}

// run executes processing passes until the buffer is quiescent. Only one
// goroutine processes at a time; others mark the work pending and return.
func (l *Listener) run() {
	l.mu.Lock()
	if l.state == StateIdle {
		l.mu.Unlock()
		return
	}
	if l.inFlight {
		l.pending = true
		l.mu.Unlock()
		return
	}
	l.inFlight = true

	for {
		raw := strings.Join(l.finals, " ")
		ctx := l.ctx
		l.mu.Unlock()

		if raw != "" {
			if _, err := l.proc.Process(ctx, l.session, raw, false); err != nil {
				observe.Logger(ctx).Error("processing pass failed",
					"session", l.session.ID, "error", err)
			}
		}

		l.mu.Lock()
		if !l.pending {
			l.inFlight = false
			l.mu.Unlock()
			return
		}
		l.pending = false
	}
}
