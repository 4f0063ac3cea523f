package build

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/svpipaliya/bonsai/kmerdb"
	"github.com/svpipaliya/bonsai/kmerseq"
	"github.com/svpipaliya/bonsai/taxonomy"
)

func testEncoderFactory() func() *kmerseq.Encoder {
	return func() *kmerseq.Encoder {
		sp, _ := kmerseq.NewSpacer(3, 3, nil)
		return kmerseq.NewEncoder(sp, kmerseq.EveryWindow, true, kmerseq.Lexicographic)
	}
}

func TestExtractGenomeSetDedupsAndSorts(t *testing.T) {
	sp, _ := kmerseq.NewSpacer(3, 3, nil)
	enc := kmerseq.NewEncoder(sp, kmerseq.EveryWindow, true, kmerseq.Lexicographic)
	set := ExtractGenomeSet(1, []kmerseq.Record{{Name: "r1", Seq: []byte("ACGTACGT")}}, enc)
	for i := 1; i < len(set.Kmers); i++ {
		if set.Kmers[i-1] > set.Kmers[i] {
			t.Fatalf("kmers not sorted ascending: %v", set.Kmers)
		}
	}
	seen := map[uint64]bool{}
	for _, k := range set.Kmers {
		if seen[k] {
			t.Fatalf("duplicate kmer %d in genome set", k)
		}
		seen[k] = true
	}
}

func buildTestTaxonomy() *taxonomy.Taxonomy {
	tax := taxonomy.New(1)
	tax.AddNode(1, 1, "root")
	tax.AddNode(3, 1, "")
	tax.AddNode(5, 3, "")
	tax.AddNode(7, 3, "")
	return tax
}

// S4 — LCA merge, driven through the full Pool rather than Merge directly.
func TestPoolBuildFoldsUnderLCA(t *testing.T) {
	tax := buildTestTaxonomy()
	tbl := kmerdb.NewClassifyTable(3)
	pool := NewPool(2, testEncoderFactory())

	genomes := []Genome{
		{Taxon: 5, Open: func() ([]kmerseq.Record, error) {
			return []kmerseq.Record{{Name: "g5", Seq: []byte("ACG")}}, nil
		}},
		{Taxon: 7, Open: func() ([]kmerseq.Record, error) {
			return []kmerseq.Record{{Name: "g7", Seq: []byte("ACG")}}, nil
		}},
	}

	if err := pool.Build(genomes, tax, tbl); err != nil {
		t.Fatalf("Build: %v", err)
	}

	kc, _ := kmerseq.NewKmerCode([]byte("ACG"))
	canon := kc.Canonical().Code
	got, ok := tbl.Get(canon)
	if !ok || got != 3 {
		t.Fatalf("Get(ACG canonical) = (%d,%v), want (3,true)", got, ok)
	}
	if pool.Completed != 2 {
		t.Errorf("Completed = %d, want 2", pool.Completed)
	}
}

func TestPoolBuildPropagatesReadError(t *testing.T) {
	tax := buildTestTaxonomy()
	tbl := kmerdb.NewClassifyTable(3)
	pool := NewPool(2, testEncoderFactory())

	wantErr := errors.New("boom")
	genomes := []Genome{
		{Taxon: 5, Open: func() ([]kmerseq.Record, error) { return nil, wantErr }},
	}

	if err := pool.Build(genomes, tax, tbl); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPoolBuildConcurrencyBound(t *testing.T) {
	tax := buildTestTaxonomy()
	tbl := kmerdb.NewClassifyTable(3)
	pool := NewPool(1, testEncoderFactory())

	var inFlight, maxInFlight int32
	genomes := make([]Genome, 10)
	for i := range genomes {
		genomes[i] = Genome{Taxon: 5, Open: func() ([]kmerseq.Record, error) {
			n := atomic.AddInt32(&inFlight, 1)
			defer atomic.AddInt32(&inFlight, -1)
			for {
				m := atomic.LoadInt32(&maxInFlight)
				if n <= m || atomic.CompareAndSwapInt32(&maxInFlight, m, n) {
					break
				}
			}
			return []kmerseq.Record{{Name: "g", Seq: []byte("ACGTACGT")}}, nil
		}}
	}
	if err := pool.Build(genomes, tax, tbl); err != nil {
		t.Fatalf("Build: %v", err)
	}
	if maxInFlight > int32(pool.N) {
		t.Errorf("max in-flight genome reads = %d, want <= %d", maxInFlight, pool.N)
	}
	if pool.Completed != uint64(len(genomes)) {
		t.Errorf("Completed = %d, want %d", pool.Completed, len(genomes))
	}
}
