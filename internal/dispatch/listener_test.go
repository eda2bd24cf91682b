package dispatch_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kiranaops/bolbill/internal/command"
	"github.com/kiranaops/bolbill/internal/dispatch"
)

// fakeProcessor records every processing pass the listener triggers.
type fakeProcessor struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeProcessor) Process(ctx context.Context, s *dispatch.Session, raw string, reprocess bool) ([]command.ResolvedCommand, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, raw)
	return nil, nil
}

func (f *fakeProcessor) snapshot() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.calls))
	copy(out, f.calls)
	return out
}

func newTestListener(t *testing.T, timeout time.Duration) (*dispatch.Listener, *fakeProcessor) {
	t.Helper()
	proc := &fakeProcessor{}
	l := dispatch.NewListener(proc, dispatch.NewSession("counter-1"), testMetrics(t), timeout)
	return l, proc
}

func TestListener_DropsInputWhenIdle(t *testing.T) {
	t.Parallel()

	l, proc := newTestListener(t, time.Hour)
	l.OnFragment("2 kg chini", true)

	if calls := proc.snapshot(); len(calls) != 0 {
		t.Errorf("idle listener processed %v, want nothing", calls)
	}
	if l.State() != dispatch.StateIdle {
		t.Errorf("state = %v, want idle", l.State())
	}
}

func TestListener_AccumulatesFinalsOnly(t *testing.T) {
	t.Parallel()

	l, proc := newTestListener(t, time.Hour)
	l.Start(context.Background())

	l.OnFragment("2 kg", false) // interim, ignored
	l.OnFragment("2 kg chini", true)
	l.OnFragment("aur namak", true)

	calls := proc.snapshot()
	want := []string{"2 kg chini", "2 kg chini aur namak"}
	if len(calls) != len(want) {
		t.Fatalf("passes = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("pass %d = %q, want %q", i, calls[i], want[i])
		}
	}
	if l.State() != dispatch.StateListening {
		t.Errorf("state = %v, want listening", l.State())
	}
}

func TestListener_CancelFlushesOnceThenDiscards(t *testing.T) {
	t.Parallel()

	l, proc := newTestListener(t, time.Hour)
	l.Start(context.Background())
	l.OnFragment("2 kg chini", true)

	l.Cancel()
	afterCancel := len(proc.snapshot())
	if afterCancel != 2 {
		t.Errorf("passes after cancel = %d, want 2 (fragment + flush)", afterCancel)
	}
	if l.State() != dispatch.StateIdle {
		t.Errorf("state = %v, want idle after cancel", l.State())
	}

	// Further input and repeated cancels are discarded.
	l.OnFragment("aur namak", true)
	l.Cancel()
	if got := len(proc.snapshot()); got != afterCancel {
		t.Errorf("passes = %d, want unchanged %d", got, afterCancel)
	}
}

func TestListener_SilenceTimeoutAutoFlushes(t *testing.T) {
	t.Parallel()

	l, proc := newTestListener(t, 30*time.Millisecond)
	l.Start(context.Background())
	l.OnFragment("2 kg chini", true)

	deadline := time.Now().Add(2 * time.Second)
	for len(proc.snapshot()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("silence timeout never flushed, passes = %v", proc.snapshot())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if l.State() != dispatch.StateListening {
		t.Errorf("state = %v, want still listening after silence flush", l.State())
	}
}

func TestListener_StartIsIdempotent(t *testing.T) {
	t.Parallel()

	l, proc := newTestListener(t, time.Hour)
	ctx := context.Background()
	l.Start(ctx)
	l.Start(ctx)

	l.OnFragment("chini", true)
	if calls := proc.snapshot(); len(calls) != 1 {
		t.Errorf("passes = %v, want exactly one", calls)
	}
}
