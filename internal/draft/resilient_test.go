package draft

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiranaops/bolbill/internal/cart"
	"github.com/kiranaops/bolbill/internal/units"
)

// flakyStore is a Store whose calls fail while failing is set.
type flakyStore struct {
	inner   *MemStore
	failing bool
	calls   int
}

func (f *flakyStore) Save(ctx context.Context, id string, snap cart.Snapshot) error {
	f.calls++
	if f.failing {
		return errors.New("connection refused")
	}
	return f.inner.Save(ctx, id, snap)
}

func (f *flakyStore) Load(ctx context.Context, id string) (cart.Snapshot, bool, error) {
	f.calls++
	if f.failing {
		return cart.Snapshot{}, false, errors.New("connection refused")
	}
	return f.inner.Load(ctx, id)
}

func (f *flakyStore) Delete(ctx context.Context, id string) error {
	f.calls++
	if f.failing {
		return errors.New("connection refused")
	}
	return f.inner.Delete(ctx, id)
}

func sampleSnapshot(qty float64) cart.Snapshot {
	return cart.Snapshot{Lines: []cart.Line{{
		ProductID: "p1", ProductName: "sugar", Quantity: qty, Unit: units.Kilogram,
	}}}
}

func TestResilient_PassesThroughWhenHealthy(t *testing.T) {
	t.Parallel()

	primary := &flakyStore{inner: NewMemStore()}
	r := NewResilient(primary, ResilientConfig{})
	ctx := context.Background()

	if err := r.Save(ctx, "counter-1", sampleSnapshot(2)); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snap, found, err := primary.inner.Load(ctx, "counter-1")
	if err != nil || !found {
		t.Fatalf("primary Load = found=%v err=%v, want draft on primary", found, err)
	}
	if snap.Lines[0].Quantity != 2 {
		t.Errorf("primary draft quantity = %v, want 2", snap.Lines[0].Quantity)
	}
}

func TestResilient_FallbackKeepsDraftDuringOutage(t *testing.T) {
	t.Parallel()

	primary := &flakyStore{inner: NewMemStore(), failing: true}
	r := NewResilient(primary, ResilientConfig{MaxFailures: 3})
	ctx := context.Background()

	if err := r.Save(ctx, "counter-1", sampleSnapshot(2)); err == nil {
		t.Fatal("Save should report the primary failure")
	}

	// The draft must still be restorable from the fallback.
	snap, found, err := r.Load(ctx, "counter-1")
	if err != nil || !found {
		t.Fatalf("Load = found=%v err=%v, want fallback draft", found, err)
	}
	if snap.Lines[0].Quantity != 2 {
		t.Errorf("fallback draft quantity = %v, want 2", snap.Lines[0].Quantity)
	}
}

func TestResilient_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	primary := &flakyStore{inner: NewMemStore(), failing: true}
	r := NewResilient(primary, ResilientConfig{MaxFailures: 3, ResetTimeout: time.Hour})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_ = r.Save(ctx, "counter-1", sampleSnapshot(float64(i + 1)))
	}
	callsAtOpen := primary.calls

	// The breaker is open now; further calls must skip the primary.
	_ = r.Save(ctx, "counter-1", sampleSnapshot(9))
	if primary.calls != callsAtOpen {
		t.Errorf("primary calls = %d, want unchanged %d while open", primary.calls, callsAtOpen)
	}

	// The fallback still absorbs the write.
	snap, found, _ := r.Load(ctx, "counter-1")
	if !found || snap.Lines[0].Quantity != 9 {
		t.Errorf("fallback draft = %+v found=%v, want quantity 9", snap, found)
	}
}

func TestResilient_ProbeClosesBreaker(t *testing.T) {
	t.Parallel()

	primary := &flakyStore{inner: NewMemStore(), failing: true}
	r := NewResilient(primary, ResilientConfig{MaxFailures: 1, ResetTimeout: 10 * time.Millisecond})
	ctx := context.Background()

	_ = r.Save(ctx, "counter-1", sampleSnapshot(1))
	primary.failing = false
	time.Sleep(20 * time.Millisecond)

	// First call after the reset timeout probes the primary and closes.
	if err := r.Save(ctx, "counter-1", sampleSnapshot(4)); err != nil {
		t.Fatalf("probe Save: %v", err)
	}
	snap, found, err := primary.inner.Load(ctx, "counter-1")
	if err != nil || !found || snap.Lines[0].Quantity != 4 {
		t.Errorf("primary draft = %+v found=%v err=%v, want quantity 4", snap, found, err)
	}
}
