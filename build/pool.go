package build

import (
	"sync"
	"sync/atomic"

	"github.com/shenwei356/go-logging"

	"github.com/svpipaliya/bonsai/kmerseq"
	"github.com/svpipaliya/bonsai/taxonomy"
)

var log = logging.MustGetLogger("build")

// Genome names one reference file's taxon and how to read its records.
// Open performs the (possibly compressed) file read and is where a worker
// blocks, per spec §5's "workers block on compressed-I/O reads".
type Genome struct {
	Taxon uint32
	Open  func() ([]kmerseq.Record, error)
}

// Pool drives the build engine's bounded-concurrency pipeline: at most N
// genome-reader tasks run at once, while a single reducer (the caller of
// Build, which never runs concurrently with itself) performs LCA merges
// serially into the shared table. This replaces the source's
// std::async+is_ready poll loop with a semaphore channel plus a single
// result-draining goroutine, grounded on other_examples/kshedden-muscato's
// muscato_screen.go (limit chan bool + hitchan), per spec §9's redesign
// note.
type Pool struct {
	N             int
	EncoderFactory func() *kmerseq.Encoder

	Submitted uint64
	Completed uint64
}

// NewPool returns a Pool with N concurrent genome readers, each using an
// Encoder built fresh by encoderFactory (a worker's Encoder is not shared,
// mirroring classify's thread-local Encoder clone in spec §4.8).
func NewPool(n int, encoderFactory func() *kmerseq.Encoder) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{N: n, EncoderFactory: encoderFactory}
}

type genomeResult struct {
	index int
	taxon uint32
	set   *GenomeSet
	err   error
}

// Merger is the LCA-merge side of a k-mer table; both kmerdb.ClassifyTable
// and kmerdb.TaxDepthTable satisfy it, so Build works for either variant.
type Merger interface {
	Merge(code uint64, taxid uint32, tax *taxonomy.Taxonomy)
}

// Build reads every genome, extracts its k-mer set concurrently (bounded
// by N in-flight), and folds each completed set into tbl via the LCA merge
// rule, serially, as completions arrive. Completion order is
// non-deterministic; correctness does not depend on it (spec §4.4).
// Each completed set is released immediately after merging to bound peak
// memory near N*max_set_size + table_size, per spec's memory discipline
// note. Build returns the first genome-read error encountered, after all
// already-admitted genomes finish (admitted tasks are never abandoned
// mid-flight).
func (p *Pool) Build(genomes []Genome, tax *taxonomy.Taxonomy, tbl Merger) error {
	limit := make(chan struct{}, p.N)
	results := make(chan genomeResult, p.N)
	var wg sync.WaitGroup
	var aborted int32

	go func() {
		for i, g := range genomes {
			if atomic.LoadInt32(&aborted) != 0 {
				break
			}
			limit <- struct{}{}
			atomic.AddUint64(&p.Submitted, 1)
			wg.Add(1)
			go func(i int, g Genome) {
				defer wg.Done()
				defer func() { <-limit }()

				enc := p.EncoderFactory()
				records, err := g.Open()
				if err != nil {
					results <- genomeResult{index: i, taxon: g.Taxon, err: err}
					return
				}
				set := ExtractGenomeSet(g.Taxon, records, enc)
				results <- genomeResult{index: i, taxon: g.Taxon, set: set}
			}(i, g)
		}
		wg.Wait()
		close(results)
	}()

	var firstErr error
	for r := range results {
		atomic.AddUint64(&p.Completed, 1)
		if r.err != nil {
			log.Warningf("genome %d (taxon %d): %s", r.index, r.taxon, r.err)
			if firstErr == nil {
				firstErr = r.err
				atomic.StoreInt32(&aborted, 1)
			}
			continue
		}
		for _, code := range r.set.Kmers {
			tbl.Merge(code, r.set.Taxon, tax)
		}
		r.set.Kmers = nil // release before the next genome finishes reading
	}
	return firstErr
}
