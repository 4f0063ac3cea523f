// Package classify implements per-read classification, the Kraken/FASTQ
// record formatter, and the chunked classify driver.
package classify

import (
	"sync/atomic"

	"github.com/svpipaliya/bonsai/kmerseq"
	"github.com/svpipaliya/bonsai/taxonomy"
)

// Lookup is the read side of a k-mer table; kmerdb.ClassifyTable satisfies
// it directly.
type Lookup interface {
	Get(code uint64) (uint32, bool)
}

// maxHistCount is the saturation ceiling for a single taxon's hit count
// (spec §3's "saturates at 65535").
const maxHistCount = ^uint16(0)

// Result is one read's (or read pair's) classification scratch: the
// per-window trace, the ambiguous/missing tallies, the hit histogram, and
// the final resolved taxon. It is thread-local per spec §3's ownership
// rule ("per-read scratch ... is thread-local").
type Result struct {
	Trace     []int64
	Ambig     int
	Missing   int
	Histogram taxonomy.Histogram
	Taxon     uint32
	LSeq      int // total sequence length classified (both mates if paired)
}

// accumulate runs enc's every-window encoding over seq and folds it into r:
// ambiguous windows push -1 and bump Ambig; misses push 0 and bump Missing;
// hits push the taxon and bump its histogram count (saturating). Any
// shortfall between the expected window count and what the encoder
// actually emitted is padded with -1 and counted as ambiguous, per spec
// §4.6 step 3.
func accumulate(seq []byte, enc *kmerseq.Encoder, tbl Lookup, r *Result) {
	c := enc.CoveredWidth()
	expected := len(seq) - c + 1
	if expected < 0 {
		expected = 0
	}

	hits := enc.EveryWindowKmers(seq)
	for _, h := range hits {
		if h.Code == kmerseq.Ambiguous {
			r.Trace = append(r.Trace, -1)
			r.Ambig++
			continue
		}
		taxon, ok := tbl.Get(h.Code)
		if !ok {
			r.Trace = append(r.Trace, 0)
			r.Missing++
			continue
		}
		r.Trace = append(r.Trace, int64(taxon))
		if r.Histogram == nil {
			r.Histogram = make(taxonomy.Histogram, 8)
		}
		if r.Histogram[taxon] < maxHistCount {
			r.Histogram[taxon]++
		}
	}

	if shortfall := expected - len(hits); shortfall > 0 {
		for i := 0; i < shortfall; i++ {
			r.Trace = append(r.Trace, -1)
		}
		r.Ambig += shortfall
	}
	r.LSeq += len(seq)
}

// Classify runs per-read classification (spec §4.6) for a single read, or
// a read and its mate if mateSeq is non-nil, resolving the final taxon via
// the taxonomy's tree resolver. counters, if non-nil, receives an atomic
// classified/unclassified increment (the "classified_[2]" pair from
// original_source/bonsai/include/classifier.h).
func Classify(seq, mateSeq []byte, enc *kmerseq.Encoder, tbl Lookup, tax *taxonomy.Taxonomy, counters *Counters) Result {
	r := Result{}
	accumulate(seq, enc, tbl, &r)
	if mateSeq != nil {
		accumulate(mateSeq, enc, tbl, &r)
	}

	r.Taxon = tax.Resolve(r.Histogram)

	if counters != nil {
		counters.record(r.Taxon != 0)
	}
	return r
}

// Counters is the classified/unclassified pair, updated with atomic
// increments so many classify workers can share one instance safely
// (spec §5's "two-element classified/unclassified counter").
type Counters struct {
	classified   uint64
	unclassified uint64
}

func (c *Counters) record(classified bool) {
	if classified {
		atomic.AddUint64(&c.classified, 1)
	} else {
		atomic.AddUint64(&c.unclassified, 1)
	}
}

// Counts returns the current (classified, unclassified) totals.
func (c *Counters) Counts() (classified, unclassified uint64) {
	return atomic.LoadUint64(&c.classified), atomic.LoadUint64(&c.unclassified)
}
