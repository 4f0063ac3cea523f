package kmerdb

import "fmt"

// ErrMissingKmer is a fatal build error: a k-mer produced by a genome's
// every-window/minimizer walk has no entry in the full map being merged
// against (spec §4.3's minimized-map merger, §7's input-data fatals).
type ErrMissingKmer struct {
	Kmer uint64
}

func (e *ErrMissingKmer) Error() string {
	return fmt.Sprintf("kmerdb: missing kmer %#x in full map; check spacer/k consistency with the database", e.Kmer)
}
