package kmerseq

import "testing"

func mustSpacer(t *testing.T, k, w int, gaps []int) *Spacer {
	t.Helper()
	sp, err := NewSpacer(k, w, gaps)
	if err != nil {
		t.Fatalf("NewSpacer(%d,%d,%v): %v", k, w, gaps, err)
	}
	return sp
}

// S1 — canonical k-mer. k=3, no gaps, input ACGTA.
func TestEveryWindowCanonical_S1(t *testing.T) {
	sp := mustSpacer(t, 3, 3, nil)
	enc := NewEncoder(sp, EveryWindow, true, Lexicographic)
	hits := enc.EveryWindowKmers([]byte("ACGTA"))
	if len(hits) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(hits))
	}
	want := []string{"ACG", "ACG", "GTA"}
	for i, h := range hits {
		got := string(Decode(h.Code, 3))
		if got != want[i] {
			t.Errorf("window %d: got %s, want %s", i, got, want[i])
		}
	}
}

// S2 — ambiguity carry. k=3, c=3, input ACNGT.
func TestAmbiguityCarry_S2(t *testing.T) {
	sp := mustSpacer(t, 3, 3, nil)
	enc := NewEncoder(sp, EveryWindow, true, Lexicographic)
	hits := enc.EveryWindowKmers([]byte("ACNGT"))
	if len(hits) != 3 {
		t.Fatalf("expected 3 windows, got %d", len(hits))
	}
	for i, h := range hits {
		if h.Code != Ambiguous {
			t.Errorf("window %d: expected Ambiguous, got %x", i, h.Code)
		}
	}
}

// S3 — single hit. k=3, input ACG.
func TestSingleWindow_S3(t *testing.T) {
	sp := mustSpacer(t, 3, 3, nil)
	enc := NewEncoder(sp, EveryWindow, true, Lexicographic)
	hits := enc.EveryWindowKmers([]byte("ACG"))
	if len(hits) != 1 {
		t.Fatalf("expected 1 window, got %d", len(hits))
	}
	if hits[0].Code == Ambiguous {
		t.Fatalf("expected a concrete k-mer")
	}
}

func TestSpacerGaps(t *testing.T) {
	// k=2, w=4, one gap of 2 between the two positions: positions {0,3}.
	sp := mustSpacer(t, 2, 4, []int{2})
	if sp.Positions[0] != 0 || sp.Positions[1] != 3 {
		t.Fatalf("unexpected positions: %v", sp.Positions)
	}
	enc := NewEncoder(sp, EveryWindow, false, Lexicographic)
	hits := enc.EveryWindowKmers([]byte("ACGT"))
	if len(hits) != 1 {
		t.Fatalf("expected 1 window, got %d", len(hits))
	}
	// selected bases are seq[0] and seq[3]: 'A','T'
	if string(Decode(hits[0].Code, 2)) != "AT" {
		t.Errorf("got %s, want AT", Decode(hits[0].Code, 2))
	}
}

func TestMinimizerSuppressesAllAmbiguous(t *testing.T) {
	sp := mustSpacer(t, 3, 3, nil)
	enc := NewEncoder(sp, Minimizer, true, Lexicographic)
	hits := enc.Minimizers([]byte("NNNNN"))
	if len(hits) != 0 {
		t.Errorf("expected no minimizer emissions, got %d", len(hits))
	}
}

func TestMinimizerEmitsSomething(t *testing.T) {
	sp := mustSpacer(t, 3, 5, []int{1, 1})
	enc := NewEncoder(sp, Minimizer, true, Lexicographic)
	hits := enc.Minimizers([]byte("ACGTACGTACGT"))
	if len(hits) == 0 {
		t.Errorf("expected at least one minimizer emission")
	}
}

func TestInvalidSpacer(t *testing.T) {
	if _, err := NewSpacer(0, 3, nil); err == nil {
		t.Errorf("expected error for k=0")
	}
	if _, err := NewSpacer(3, 2, nil); err == nil {
		t.Errorf("expected error for w<k")
	}
	if _, err := NewSpacer(3, 5, []int{1}); err == nil {
		t.Errorf("expected error for wrong gap sum")
	}
}
