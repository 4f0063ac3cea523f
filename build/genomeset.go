// Package build implements the build engine's genome set extraction and
// the bounded-concurrency worker pool that folds per-genome k-mer sets
// into the global table under the LCA merge rule.
package build

import (
	"github.com/twotwotwo/sorts/sortutil"

	"github.com/svpipaliya/bonsai/kmerseq"
)

// GenomeSet is one reference genome's distinct selected k-mers, labeled
// with its taxon (spec §2's "genome set builder").
type GenomeSet struct {
	Taxon uint32
	Kmers []uint64 // distinct, sorted ascending
}

// ExtractGenomeSet walks every record of a genome through enc, collecting
// the distinct non-ambiguous codes it yields, and returns them sorted.
// Sorting is not required for correctness (LCA merge is associative and
// commutative, spec §4.4) but makes fold order deterministic for tests and
// improves locality during the fold, the same role twotwotwo/sorts plays
// in the teacher's union/common commands.
func ExtractGenomeSet(taxon uint32, records []kmerseq.Record, enc *kmerseq.Encoder) *GenomeSet {
	seen := make(map[uint64]struct{}, 1<<16)
	for _, rec := range records {
		for _, hit := range enc.Encode(rec.Seq) {
			if hit.Code == kmerseq.Ambiguous {
				continue
			}
			seen[hit.Code] = struct{}{}
		}
	}

	kmers := make([]uint64, 0, len(seen))
	for k := range seen {
		kmers = append(kmers, k)
	}
	sortutil.Uint64s(kmers)

	return &GenomeSet{Taxon: taxon, Kmers: kmers}
}
