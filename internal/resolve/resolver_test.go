package resolve_test

import (
	"testing"

	"github.com/kiranaops/bolbill/internal/catalog"
	"github.com/kiranaops/bolbill/internal/resolve"
	"github.com/kiranaops/bolbill/internal/units"
)

func testProducts() []catalog.Product {
	return []catalog.Product{
		{ID: "p1", Name: "sugar", NativeUnit: units.Kilogram, SellingPrice: 50},
		{ID: "p2", Name: "salt", NativeUnit: units.Kilogram, SellingPrice: 20},
		{ID: "p3", Name: "basmati rice", NativeUnit: units.Kilogram, SellingPrice: 90},
		{ID: "p4", Name: "sunflower oil", NativeUnit: units.Litre, SellingPrice: 140},
		{ID: "p5", Name: "milk", NativeUnit: units.Litre, SellingPrice: 60},
	}
}

func TestResolve_Stages(t *testing.T) {
	t.Parallel()

	r := resolve.New()
	products := testProducts()

	tests := []struct {
		name      string
		spoken    string
		wantID    string
		wantStage string
	}{
		{"vocabulary substitution", "chini", "p1", "vocabulary"},
		{"exact equality", "salt", "p2", "exact"},
		{"exact is case-insensitive", "Basmati Rice", "p3", "exact"},
		{"prefix at word boundary", "sugar lena hai", "p1", "prefix"},
		{"word overlap", "basmati wala rice", "p3", "word-overlap"},
		{"fuzzy edit distance", "sugur", "p1", "fuzzy"},
		{"phonetic confusion", "shooga", "p1", "phonetic+exact"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			m, ok := r.Resolve(tt.spoken, products)
			if !ok {
				t.Fatalf("Resolve(%q) did not match, want product %q", tt.spoken, tt.wantID)
			}
			if m.Product.ID != tt.wantID {
				t.Errorf("Resolve(%q) = %q (%s), want product %q", tt.spoken, m.Product.Name, m.Stage, tt.wantID)
			}
			if m.Stage != tt.wantStage {
				t.Errorf("Resolve(%q) stage = %q, want %q", tt.spoken, m.Stage, tt.wantStage)
			}
		})
	}
}

func TestResolve_Unmatched(t *testing.T) {
	t.Parallel()

	r := resolve.New()
	products := testProducts()

	for _, spoken := range []string{"", "   ", "washing machine", "xyzzy"} {
		if m, ok := r.Resolve(spoken, products); ok {
			t.Errorf("Resolve(%q) = %q, want no match", spoken, m.Product.Name)
		}
	}

	if _, ok := r.Resolve("sugar", nil); ok {
		t.Error("Resolve against empty catalog matched, want no match")
	}
}

func TestResolve_CustomVocabulary(t *testing.T) {
	t.Parallel()

	r := resolve.New(resolve.WithVocabulary(map[string]string{
		"meetha": "sugar",
	}))
	m, ok := r.Resolve("meetha", testProducts())
	if !ok || m.Product.ID != "p1" {
		t.Fatalf("Resolve(%q) = %+v ok=%v, want sugar via custom vocabulary", "meetha", m, ok)
	}
}

func TestResolve_FuzzyThreshold(t *testing.T) {
	t.Parallel()

	products := []catalog.Product{
		{ID: "p1", Name: "sugar", NativeUnit: units.Kilogram, SellingPrice: 50},
	}

	// "sugir" has edit distance 1 from "sugar": score 0.8 with the default
	// threshold accepts it, a raised threshold rejects it.
	if _, ok := resolve.New().Resolve("sugir", products); !ok {
		t.Error("default threshold rejected a one-edit variant")
	}
	strict := resolve.New(resolve.WithFuzzyThreshold(0.9))
	if m, ok := strict.Resolve("sugir", products); ok && m.Stage == "fuzzy" {
		t.Errorf("threshold 0.9 accepted fuzzy score 0.8: %+v", m)
	}
}

func TestResolve_CatalogOrderBreaksTies(t *testing.T) {
	t.Parallel()

	products := []catalog.Product{
		{ID: "first", Name: "masala chai", NativeUnit: units.Piece, SellingPrice: 10},
		{ID: "second", Name: "masala mix", NativeUnit: units.Piece, SellingPrice: 15},
	}

	r := resolve.New()
	m, ok := r.Resolve("masala thing chai mix", products)
	if !ok {
		t.Fatal("Resolve did not match, want word-overlap winner")
	}
	if m.Product.ID != "first" {
		t.Errorf("Resolve tie went to %q, want catalog-first product", m.Product.ID)
	}
}
