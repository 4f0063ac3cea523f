package classify

import (
	"bytes"
	"io"
	"testing"

	"github.com/svpipaliya/bonsai/kmerseq"
	"github.com/svpipaliya/bonsai/taxonomy"
)

type fakeTable map[uint64]uint32

func (t fakeTable) Get(code uint64) (uint32, bool) {
	v, ok := t[code]
	return v, ok
}

func driverTestTaxonomy() *taxonomy.Taxonomy {
	tax := taxonomy.New(1)
	tax.AddNode(1, 1, "root")
	tax.AddNode(42, 1, "")
	return tax
}

func driverTestEncoderFactory() func() *kmerseq.Encoder {
	return func() *kmerseq.Encoder {
		sp, _ := kmerseq.NewSpacer(3, 3, nil)
		return kmerseq.NewEncoder(sp, kmerseq.EveryWindow, true, kmerseq.Lexicographic)
	}
}

func codeOf(t *testing.T, seq string) uint64 {
	t.Helper()
	kc, err := kmerseq.NewKmerCode([]byte(seq))
	if err != nil {
		t.Fatalf("NewKmerCode(%q): %v", seq, err)
	}
	return kc.Canonical().Code
}

// sliceChunkReader hands out one fixed slice of reads, then signals EOF.
type sliceChunkReader struct {
	reads []ChunkRead
	done  bool
}

func (r *sliceChunkReader) ReadChunk(n int) ([]ChunkRead, error) {
	if r.done {
		return nil, io.EOF
	}
	r.done = true
	return r.reads, nil
}

func TestDriverOrdersOutputByOriginalPosition(t *testing.T) {
	tbl := fakeTable{codeOf(t, "ACG"): 42}
	reads := make([]ChunkRead, 0, 20)
	for i := 0; i < 20; i++ {
		reads = append(reads, ChunkRead{Name: string(rune('a' + i)), Seq: []byte("ACG")})
	}

	d := &Driver{
		EncoderFactory: driverTestEncoderFactory(),
		Lookup:         tbl,
		Tax:            driverTestTaxonomy(),
		Counters:       &Counters{},
		N:              4,
		ChunkSize:      20,
		PerSet:         2,
		Kraken:         true,
	}

	var buf bytes.Buffer
	if err := d.Run(&sliceChunkReader{reads: reads}, &buf); err != nil {
		t.Fatalf("Run: %v", err)
	}

	lines := bytes.Split(bytes.TrimRight(buf.Bytes(), "\x00"), []byte("\x00"))
	if len(lines) != len(reads) {
		t.Fatalf("got %d output records, want %d", len(lines), len(reads))
	}
	for i, line := range lines {
		want := "C\t" + string(rune('a'+i)) + "\t42\t3\t42:1\n"
		if string(line) != want {
			t.Fatalf("record %d = %q, want %q", i, line, want)
		}
	}
}

func TestDriverSkipsUnclassifiedWithoutEmitAll(t *testing.T) {
	tbl := fakeTable{} // no hits, everything is a miss
	reads := []ChunkRead{{Name: "r1", Seq: []byte("ACG")}}

	d := &Driver{
		EncoderFactory: driverTestEncoderFactory(),
		Lookup:         tbl,
		Tax:            driverTestTaxonomy(),
		N:              1,
		ChunkSize:      10,
		PerSet:         4,
		Kraken:         true,
	}

	var buf bytes.Buffer
	if err := d.Run(&sliceChunkReader{reads: reads}, &buf); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if buf.Len() != 0 {
		t.Fatalf("expected no output, got %q", buf.String())
	}
}

func TestDriverEmitAllIncludesUnclassified(t *testing.T) {
	tbl := fakeTable{}
	reads := []ChunkRead{{Name: "r1", Seq: []byte("ACG")}}

	d := &Driver{
		EncoderFactory: driverTestEncoderFactory(),
		Lookup:         tbl,
		Tax:            driverTestTaxonomy(),
		N:              1,
		ChunkSize:      10,
		PerSet:         4,
		Kraken:         true,
		EmitAll:        true,
	}

	var buf bytes.Buffer
	if err := d.Run(&sliceChunkReader{reads: reads}, &buf); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected output with EmitAll set")
	}
	if got := buf.Bytes()[0]; got != 'U' {
		t.Fatalf("first byte = %q, want 'U'", got)
	}
}

// §8.7 — concurrent classify of the same input with any thread count yields
// byte-identical concatenated output.
func TestDriverOutputIsThreadCountInvariant(t *testing.T) {
	tbl := fakeTable{codeOf(t, "ACG"): 42}
	reads := make([]ChunkRead, 0, 37)
	for i := 0; i < 37; i++ {
		reads = append(reads, ChunkRead{Name: string(rune('A' + i%26)), Seq: []byte("ACG")})
	}

	run := func(n int) []byte {
		d := &Driver{
			EncoderFactory: driverTestEncoderFactory(),
			Lookup:         tbl,
			Tax:            driverTestTaxonomy(),
			Counters:       &Counters{},
			N:              n,
			ChunkSize:      37,
			PerSet:         4,
			Kraken:         true,
		}
		var buf bytes.Buffer
		if err := d.Run(&sliceChunkReader{reads: reads}, &buf); err != nil {
			t.Fatalf("Run(N=%d): %v", n, err)
		}
		return buf.Bytes()
	}

	base := run(1)
	for _, n := range []int{2, 4, 8} {
		if got := run(n); !bytes.Equal(got, base) {
			t.Fatalf("output with N=%d differs from N=1", n)
		}
	}
}
