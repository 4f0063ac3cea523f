// Package kmerdb implements the k-mer table: a concurrent-read,
// single-writer map from 64-bit k-mer to taxon id (or a packed
// depth/taxon word), the LCA merge rule that folds genome sets into it,
// and its on-disk open-addressed serialization.
package kmerdb

import (
	"github.com/shenwei356/go-logging"

	"github.com/svpipaliya/bonsai/taxonomy"
)

var log = logging.MustGetLogger("kmerdb")

// ClassifyTable maps a canonical k-mer to the single taxon id resolved for
// it (spec §4.3's "classify table").
type ClassifyTable struct {
	K int
	m map[uint64]uint32
}

// NewClassifyTable creates an empty table for k-mers of width k.
func NewClassifyTable(k int) *ClassifyTable {
	return &ClassifyTable{K: k, m: make(map[uint64]uint32, 1<<20)}
}

// Get looks up a k-mer's taxon.
func (t *ClassifyTable) Get(code uint64) (uint32, bool) {
	taxon, ok := t.m[code]
	return taxon, ok
}

// Len returns the number of distinct k-mers stored.
func (t *ClassifyTable) Len() int { return len(t.m) }

// Merge folds a single (kmer, taxid) contribution into the table under the
// LCA merge rule (spec §4.3): absent key inserts; a present key whose
// value differs from taxid is overwritten with lca(prev, taxid), or with
// the taxonomy root (with a warning) if that LCA is unknown.
func (t *ClassifyTable) Merge(code uint64, taxid uint32, tax *taxonomy.Taxonomy) {
	prev, ok := t.m[code]
	if !ok {
		t.m[code] = taxid
		return
	}
	if prev == taxid {
		return
	}
	m := tax.LCA(prev, taxid)
	if m == taxonomy.Unknown {
		log.Warningf("missing taxid %d or %d, setting lca to tree root", prev, taxid)
		t.m[code] = taxonomy.Root
		return
	}
	t.m[code] = m
}

// TaxDepthTable maps a canonical k-mer to a packed (depth,taxon) word, the
// tax-depth variant named in spec §4.3, grounded exactly on
// original_source/lib/feature_min.h's TDencode/TDtax/TDdepth macros.
type TaxDepthTable struct {
	K int
	m map[uint64]uint64
}

// NewTaxDepthTable creates an empty tax-depth table for k-mers of width k.
func NewTaxDepthTable(k int) *TaxDepthTable {
	return &TaxDepthTable{K: k, m: make(map[uint64]uint64, 1<<20)}
}

// EncodeTaxDepth packs depth and taxon into the table's 64-bit value shape:
// ordering by the raw value ascending is equivalent to ordering by depth
// descending (ties broken toward the smaller taxon id).
func EncodeTaxDepth(depth, taxon uint32) uint64 {
	return uint64(^depth)<<32 | uint64(taxon)
}

// DecodeTaxDepth splits a packed value back into depth and taxon.
func DecodeTaxDepth(v uint64) (depth, taxon uint32) {
	taxon = uint32(v)
	depth = ^uint32(v >> 32)
	return
}

// Get looks up a k-mer's packed (depth,taxon) value.
func (t *TaxDepthTable) Get(code uint64) (uint64, bool) {
	v, ok := t.m[code]
	return v, ok
}

// Len returns the number of distinct k-mers stored.
func (t *TaxDepthTable) Len() int { return len(t.m) }

// Map exposes the underlying kmer -> packed(depth,taxon) map, for use as
// the "full map" in the minimized-map merger (spec §4.3's alternative
// merge path).
func (t *TaxDepthTable) Map() map[uint64]uint64 { return t.m }

// NewTaxDepthTableFromMap wraps an already-built kmer -> packed value map
// (e.g. the output accumulator of repeated MergeFromFullMap calls) as a
// TaxDepthTable.
func NewTaxDepthTableFromMap(k int, m map[uint64]uint64) *TaxDepthTable {
	return &TaxDepthTable{K: k, m: m}
}

// Merge folds a single (kmer, taxid) contribution under the same LCA rule
// as ClassifyTable.Merge, re-encoding the winning taxon's depth each time.
func (t *TaxDepthTable) Merge(code uint64, taxid uint32, tax *taxonomy.Taxonomy) {
	prev, ok := t.m[code]
	if !ok {
		t.m[code] = EncodeTaxDepth(tax.Depth(taxid), taxid)
		return
	}
	_, prevTaxon := DecodeTaxDepth(prev)
	if prevTaxon == taxid {
		return
	}
	m := tax.LCA(prevTaxon, taxid)
	if m == taxonomy.Unknown {
		log.Warningf("missing taxid %d or %d, setting lca to tree root", prevTaxon, taxid)
		t.m[code] = EncodeTaxDepth(tax.Depth(taxonomy.Root), taxonomy.Root)
		return
	}
	t.m[code] = EncodeTaxDepth(tax.Depth(m), m)
}

// MergeFromFullMap implements the minimized-map merger (spec §4.3): for
// each k-mer in a per-genome set, look up its value in a precomputed full
// map and insert it into out unless already present. A k-mer missing from
// full is a fatal build error, named (not swallowed) so the caller can
// abort with file/identifier context per spec §7.
func MergeFromFullMap(out map[uint64]uint64, genomeSet []uint64, full map[uint64]uint64) error {
	for _, code := range genomeSet {
		if _, ok := out[code]; ok {
			continue
		}
		v, ok := full[code]
		if !ok {
			return &ErrMissingKmer{Kmer: code}
		}
		out[code] = v
	}
	return nil
}
