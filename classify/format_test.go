package classify

import (
	"bytes"
	"strings"
	"testing"
)

func testBuffer() *bytes.Buffer { return &bytes.Buffer{} }

// S3 — a classified read's Kraken line.
func TestFormatKrakenClassified(t *testing.T) {
	r := Result{Taxon: 42, LSeq: 1, Trace: []int64{42}}
	got := string(FormatKraken("read1", r))
	want := "C\tread1\t42\t1\t42:1\n\x00"
	if got != want {
		t.Fatalf("FormatKraken = %q, want %q", got, want)
	}
}

// S2-adjacent — an unclassified read's Kraken line starts with U and its
// runs degenerate to "0:0".
func TestFormatKrakenUnclassified(t *testing.T) {
	r := Result{Taxon: 0, LSeq: 3, Trace: []int64{0, 0, 0}, Missing: 3}
	got := string(FormatKraken("read2", r))
	if !strings.HasPrefix(got, "U\tread2\t0\t3\tM:3\t0:0\n") {
		t.Fatalf("FormatKraken = %q", got)
	}
}

// S6 — paired run-length encoding: trace [42,42,0] + mate trace [-1,-1].
func TestAppendTaxaRunsPaired(t *testing.T) {
	buf := testBuffer()
	appendTaxaRuns(1, []int64{42, 42, 0, -1, -1}, buf)
	got := buf.String()
	want := "42:2\tU:1\tA:2\n"
	if got != want {
		t.Fatalf("appendTaxaRuns = %q, want %q", got, want)
	}
}

func TestAppendTaxaRunsUnclassifiedIsDegenerate(t *testing.T) {
	buf := testBuffer()
	appendTaxaRuns(0, []int64{1, 1, 1}, buf)
	if got := buf.String(); got != "0:0\n" {
		t.Fatalf("appendTaxaRuns = %q, want 0:0\\n", got)
	}
}

func TestAppendCountsSuppressesZero(t *testing.T) {
	buf := testBuffer()
	appendCounts(0, 'M', buf)
	if buf.Len() != 0 {
		t.Fatalf("expected no output for zero count, got %q", buf.String())
	}
	appendCounts(5, 'A', buf)
	if got := buf.String(); got != "A:5\t" {
		t.Fatalf("appendCounts = %q, want A:5\\t", got)
	}
}

func TestFormatFASTQUnpaired(t *testing.T) {
	r := Result{Taxon: 7, LSeq: 4, Trace: []int64{7, 7, 7, 7}}
	got := string(FormatFASTQ("r1", []byte("ACGT"), []byte("IIII"), "", nil, nil, r, false))
	want := "@r1 C\t7\t4\n" + "ACGT\n+\nIIII\n" + "\x00"
	if got != want {
		t.Fatalf("FormatFASTQ = %q, want %q", got, want)
	}
}

func TestFormatFASTQPairedSharesComment(t *testing.T) {
	r := Result{Taxon: 9, LSeq: 6, Trace: []int64{9, 9, 9, 9, 9, 9}}
	got := string(FormatFASTQ("r1", []byte("AAA"), []byte("III"), "r2", []byte("CCC"), []byte("JJJ"), r, false))
	if !strings.Contains(got, "@r1 C\t9\t6\n") || !strings.Contains(got, "@r2 C\t9\t6\n") {
		t.Fatalf("FormatFASTQ paired = %q", got)
	}
}

func TestShouldEmit(t *testing.T) {
	if !ShouldEmit(Result{Taxon: 1}, false) {
		t.Errorf("classified read should always emit")
	}
	if ShouldEmit(Result{Taxon: 0}, false) {
		t.Errorf("unclassified read should not emit unless emitAll")
	}
	if !ShouldEmit(Result{Taxon: 0}, true) {
		t.Errorf("unclassified read should emit when emitAll")
	}
}
