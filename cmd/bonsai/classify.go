// Copyright © 2018 Wei Shen <shenwei356@gmail.com>
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.

package main

import (
	"fmt"
	"os"
	"runtime"
	"strings"

	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/svpipaliya/bonsai/classify"
	"github.com/svpipaliya/bonsai/kmerdb"
	"github.com/svpipaliya/bonsai/kmerseq"
	"github.com/svpipaliya/bonsai/taxonomy"
)

// taxDepthLookup adapts kmerdb.TaxDepthTable to classify.Lookup by
// discarding the packed depth and returning only the taxon.
type taxDepthLookup struct{ tbl *kmerdb.TaxDepthTable }

func (l taxDepthLookup) Get(code uint64) (uint32, bool) {
	v, ok := l.tbl.Get(code)
	if !ok {
		return 0, false
	}
	_, taxon := kmerdb.DecodeTaxDepth(v)
	return taxon, true
}

// loadLookup opens a database file written by either `build` variant,
// trying the plain classify table first and falling back to the
// tax-depth table on a format mismatch.
func loadLookup(path string) (classify.Lookup, int, error) {
	if tbl, err := kmerdb.LoadClassifyTable(path); err == nil {
		return tbl, tbl.K, nil
	} else if !strings.Contains(err.Error(), "tax-depth table") {
		return nil, 0, err
	}
	tbl, err := kmerdb.LoadTaxDepthTable(path)
	if err != nil {
		return nil, 0, err
	}
	return taxDepthLookup{tbl: tbl}, tbl.K, nil
}

var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "classify reads against a k-mer -> taxon table",
	Long: `classify reads against a k-mer -> taxon table

Each read (or read pair) is classified independently by resolving its
per-window taxon hits against the taxonomy tree, and written out in
Kraken or FASTQ-comment format.
`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		runtime.GOMAXPROCS(opt.NumCPUs)

		w := getFlagPositiveInt(cmd, "spacer-width")
		gaps := parseGaps(getFlagString(cmd, "gaps"))
		canonical := getFlagBool(cmd, "canonical")
		taxDumpFile := expandPath(getFlagString(cmd, "tax-dump"))
		dbFile := expandPath(getFlagString(cmd, "db"))
		read2 := getFlagString(cmd, "read2")
		outFile := getFlagString(cmd, "out-file")
		format := getFlagString(cmd, "format")
		emitAll := getFlagBool(cmd, "emit-all")
		verbose := getFlagBool(cmd, "fastq-verbose")
		chunkSize := getFlagPositiveInt(cmd, "chunk-size")
		perSet := getFlagPositiveInt(cmd, "per-set")

		if format != "kraken" && format != "fastq" {
			checkError(fmt.Errorf("--format must be kraken or fastq, got %q", format))
		}

		files := getFileList(args)
		if len(files) != 1 {
			checkError(fmt.Errorf("classify takes exactly one read file argument"))
		}

		tax, err := taxonomy.NewFromNCBI(taxDumpFile)
		checkError(err)

		lookup, k, err := loadLookup(dbFile)
		checkError(err)

		mode := kmerseq.EveryWindow // classify always uses every-window semantics
		encoderFactory := func() *kmerseq.Encoder {
			sp, err := kmerseq.NewSpacer(k, w, gaps)
			checkError(err)
			return kmerseq.NewEncoder(sp, mode, canonical, kmerseq.Lexicographic)
		}

		cr, err := newFastxChunkReader(files[0], read2)
		checkError(err)

		var out *os.File
		if outFile == "-" || outFile == "" {
			out = os.Stdout
		} else {
			out, err = os.Create(outFile)
			checkError(err)
			defer out.Close()
		}

		counters := &classify.Counters{}
		driver := &classify.Driver{
			EncoderFactory: encoderFactory,
			Lookup:         lookup,
			Tax:            tax,
			Counters:       counters,
			N:              opt.NumCPUs,
			ChunkSize:      chunkSize,
			PerSet:         perSet,
			Kraken:         format == "kraken",
			Verbose:        verbose,
			EmitAll:        emitAll,
		}

		checkError(driver.Run(cr, out))

		classified, unclassified := counters.Counts()
		log.Infof("classified %s reads, %s unclassified",
			humanize.Comma(int64(classified)), humanize.Comma(int64(unclassified)))
	},
}

func init() {
	RootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().IntP("spacer-width", "w", 31, "spaced-seed covered width")
	classifyCmd.Flags().String("gaps", "", "comma-separated inter-position gap counts (k-1 values summing to w-k; may be empty when w == k)")
	classifyCmd.Flags().BoolP("canonical", "C", true, "canonicalize k-mers (must match the database's build setting)")
	classifyCmd.Flags().String("tax-dump", "", "NCBI-style taxonomy dump file (nodes.dmp)")
	classifyCmd.Flags().String("db", "", "k-mer database file produced by build")
	classifyCmd.Flags().String("read2", "", "second mate file, for paired-end reads")
	classifyCmd.Flags().StringP("out-file", "o", "-", "output file (\"-\" for stdout)")
	classifyCmd.Flags().String("format", "kraken", "output record format: kraken or fastq")
	classifyCmd.Flags().Bool("emit-all", false, "emit unclassified reads too, not just classified ones")
	classifyCmd.Flags().Bool("fastq-verbose", false, "include run-length taxa in FASTQ comments")
	classifyCmd.Flags().Int("chunk-size", 65536, "number of reads classified per chunk")
	classifyCmd.Flags().Int("per-set", 256, "reads per worker group within a chunk (must be a power of two)")
}
