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
	"runtime"

	humanize "github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/shenwei356/bio/seqio/fastx"
	"github.com/spf13/cobra"

	"github.com/svpipaliya/bonsai/build"
	"github.com/svpipaliya/bonsai/kmerdb"
	"github.com/svpipaliya/bonsai/kmerseq"
	"github.com/svpipaliya/bonsai/taxonomy"
)

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "build a k-mer -> taxon classification table from reference genomes",
	Long: `build a k-mer -> taxon classification table from reference genomes

Each genome file's taxon is resolved from its first record's header via
the seq2taxid map. K-mers shared between genomes of different taxa are
folded to their lowest common ancestor.
`,
	Run: func(cmd *cobra.Command, args []string) {
		opt := getOptions(cmd)
		runtime.GOMAXPROCS(opt.NumCPUs)

		k := getFlagPositiveInt(cmd, "kmer-len")
		w := getFlagPositiveInt(cmd, "spacer-width")
		gaps := parseGaps(getFlagString(cmd, "gaps"))
		canonical := getFlagBool(cmd, "canonical")
		taxDepth := getFlagBool(cmd, "tax-depth")
		taxDumpFile := expandPath(getFlagString(cmd, "tax-dump"))
		seq2taxidFile := expandPath(getFlagString(cmd, "seq2taxid"))
		outFile := getFlagString(cmd, "out-file")
		fullMapFile := expandPath(getFlagString(cmd, "full-map"))

		tax, err := taxonomy.NewFromNCBI(taxDumpFile)
		checkError(err)

		seq2taxid, err := loadSeq2Taxid(seq2taxidFile)
		checkError(err)

		files := getFileList(args)
		if isStdin(files[0]) {
			checkError(fmt.Errorf("build requires genome files, not stdin"))
		}

		mode := kmerseq.EveryWindow
		if w > k {
			mode = kmerseq.Minimizer
		}
		encoderFactory := func() *kmerseq.Encoder {
			sp, err := kmerseq.NewSpacer(k, w, gaps)
			checkError(err)
			return kmerseq.NewEncoder(sp, mode, canonical, kmerseq.Lexicographic)
		}

		genomes := make([]build.Genome, 0, len(files))
		for _, file := range files {
			name, err := peekFirstRecordName(file)
			checkError(errors.Wrapf(err, "reading first record of %s", file))
			taxid, err := lookupTaxid(seq2taxid, name)
			checkError(errors.Wrapf(err, "resolving taxid for %s", file))
			genomes = append(genomes, build.Genome{Taxon: taxid, Open: genomeReader(file)})
		}

		if fullMapFile != "" {
			runFullMapMerge(genomes, encoderFactory, fullMapFile, outFile, k, canonical)
			return
		}

		pool := build.NewPool(opt.NumCPUs, encoderFactory)

		var classifyTbl *kmerdb.ClassifyTable
		var taxDepthTbl *kmerdb.TaxDepthTable
		var merger build.Merger
		if taxDepth {
			taxDepthTbl = kmerdb.NewTaxDepthTable(k)
			merger = taxDepthTbl
		} else {
			classifyTbl = kmerdb.NewClassifyTable(k)
			merger = classifyTbl
		}

		if opt.Verbose {
			log.Infof("building table from %d genomes", len(genomes))
		}
		checkError(pool.Build(genomes, tax, merger))

		if taxDepth {
			checkError(kmerdb.SaveTaxDepthTable(outFile, taxDepthTbl, canonical))
			log.Infof("built %s k-mers into %s", humanize.Comma(int64(taxDepthTbl.Len())), outFile)
		} else {
			checkError(kmerdb.SaveClassifyTable(outFile, classifyTbl, canonical))
			log.Infof("built %s k-mers into %s", humanize.Comma(int64(classifyTbl.Len())), outFile)
		}
	},
}

// runFullMapMerge implements the minimized-map merger (spec §4.3's
// "alternative path"): each genome's distinct selected k-mers are looked
// up in a precomputed full kmer -> packed(depth,taxon) map (itself a
// previously built tax-depth table) and inserted into the output map
// unless already present. A k-mer absent from the full map is a fatal
// build error; its message names the missing k-mer and the genome's taxon,
// not the genome's file name.
func runFullMapMerge(genomes []build.Genome, encoderFactory func() *kmerseq.Encoder, fullMapFile, outFile string, k int, canonical bool) {
	fullTbl, err := kmerdb.LoadTaxDepthTable(fullMapFile)
	checkError(errors.Wrapf(err, "loading full map %s", fullMapFile))
	full := fullTbl.Map()

	out := make(map[uint64]uint64, 1<<20)
	enc := encoderFactory()
	for _, g := range genomes {
		records, err := g.Open()
		checkError(err)
		set := build.ExtractGenomeSet(g.Taxon, records, enc)
		err = kmerdb.MergeFromFullMap(out, set.Kmers, full)
		checkError(errors.Wrapf(err, "merging genome for taxon %d against full map", g.Taxon))
	}

	outTbl := kmerdb.NewTaxDepthTableFromMap(k, out)
	checkError(kmerdb.SaveTaxDepthTable(outFile, outTbl, canonical))
	log.Infof("merged %s k-mers into %s via the full-map path", humanize.Comma(int64(outTbl.Len())), outFile)
}

func init() {
	RootCmd.AddCommand(buildCmd)

	buildCmd.Flags().IntP("kmer-len", "k", 31, "k-mer length")
	buildCmd.Flags().IntP("spacer-width", "w", 31, "spaced-seed covered width (w > k enables minimizer selection)")
	buildCmd.Flags().String("gaps", "", "comma-separated inter-position gap counts (k-1 values summing to w-k; may be empty when w == k)")
	buildCmd.Flags().BoolP("canonical", "C", true, "canonicalize k-mers (min of forward/reverse-complement)")
	buildCmd.Flags().Bool("tax-depth", false, "build a tax-depth table (kmer -> packed taxon+depth) instead of a plain classify table")
	buildCmd.Flags().String("tax-dump", "", "NCBI-style taxonomy dump file (nodes.dmp)")
	buildCmd.Flags().String("seq2taxid", "", "tab-delimited accession -> taxid map")
	buildCmd.Flags().StringP("out-file", "o", "out.bnsdb", "output table file")
	buildCmd.Flags().String("full-map", "", "precomputed full tax-depth table to merge genomes against (enables the minimized-map merge path instead of direct LCA folding)")
}

// peekFirstRecordName opens file just long enough to read its first
// record's header, used to resolve the genome's taxon before the full
// genome is read by the build pool.
func peekFirstRecordName(file string) (string, error) {
	reader, err := fastx.NewDefaultReader(file)
	if err != nil {
		return "", err
	}
	rec, err := reader.Read()
	if err != nil {
		return "", err
	}
	return string(rec.Name), nil
}
