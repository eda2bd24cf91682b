package transcript_test

import (
	"testing"

	"github.com/kiranaops/bolbill/internal/transcript"
)

func TestNormalize_Folding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"major minor weight", "1 kg 200 g sugar", "1.2kg sugar"},
		{"minor minor weight", "sugar 500g 200g", "sugar 0.7kg"},
		{"volume", "milk 1 litre 250 ml", "milk 1.25l"},
		{"lowercase and trim", "  Do Kilo CHINI  ", "do kilo chini"},
		{"no compound untouched", "2 kg chini aur namak", "2 kg chini aur namak"},
		{"mixed categories not folded", "1 kg 200 ml", "1 kg 200 ml"},
		{"two compounds", "1kg 500g chini aur 1 litre 500 ml doodh", "1.5kg chini aur 1.5l doodh"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := transcript.Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestShieldArena(t *testing.T) {
	t.Parallel()

	a := transcript.NewShieldArena()
	a.Shield(transcript.Span{Start: 5, Length: 10}, "")

	if !a.Shielded(transcript.Span{Start: 8, Length: 2}) {
		t.Error("Shielded(inner span)=false, want true")
	}
	if a.Shielded(transcript.Span{Start: 15, Length: 3}) {
		t.Error("Shielded(adjacent span)=true, want false")
	}
	if !a.Covers(5) || a.Covers(15) {
		t.Errorf("Covers(5)=%v Covers(15)=%v, want true false", a.Covers(5), a.Covers(15))
	}

	// Zero-length spans must not shield anything.
	a.Shield(transcript.Span{Start: 20, Length: 0}, "")
	if a.Covers(20) {
		t.Error("Covers(20)=true after zero-length shield, want false")
	}

	a.Reset()
	if a.Shielded(transcript.Span{Start: 8, Length: 2}) {
		t.Error("Shielded after Reset=true, want false")
	}
}

func TestSpanGeometry(t *testing.T) {
	t.Parallel()

	a := transcript.Span{Start: 0, Length: 5}
	b := transcript.Span{Start: 8, Length: 4}

	if d := a.Distance(b); d != 3 {
		t.Errorf("Distance=%d, want 3", d)
	}
	if d := b.Distance(a); d != 3 {
		t.Errorf("Distance reversed=%d, want 3", d)
	}
	if a.Overlaps(b) {
		t.Error("Overlaps=true for disjoint spans, want false")
	}

	u := a.Union(b)
	if u.Start != 0 || u.End() != 12 {
		t.Errorf("Union=%+v, want [0,12)", u)
	}
}

func TestNew_FoldingSkipsConsumedRanges(t *testing.T) {
	t.Parallel()

	arena := transcript.NewShieldArena()
	tr := transcript.New("chini 500 g", arena)
	tr.Consume(transcript.Span{Start: 0, Length: 11})

	// The grown transcript spells a compound across the consumed range;
	// folding it would rewrite the text the recorded span points at.
	tr = transcript.New("chini 500 g 200 g", arena)
	if tr.Normalized != "chini 500 g 200 g" {
		t.Errorf("Normalized=%q, want unfolded %q", tr.Normalized, "chini 500 g 200 g")
	}

	// A compound clear of consumed ranges still folds.
	tr = transcript.New("chini 500 g aur 1 kg 200 g doodh", arena)
	if tr.Normalized != "chini 500 g aur 1.2kg doodh" {
		t.Errorf("Normalized=%q, want %q", tr.Normalized, "chini 500 g aur 1.2kg doodh")
	}
}

func TestNew_AttachesArena(t *testing.T) {
	t.Parallel()

	tr := transcript.New("Do Kilo Chini", nil)
	if tr.Normalized != "do kilo chini" {
		t.Errorf("Normalized=%q, want %q", tr.Normalized, "do kilo chini")
	}
	if tr.Shield == nil {
		t.Fatal("Shield is nil, want fresh arena")
	}
}
