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
	"io"

	"github.com/shenwei356/bio/seqio/fastx"

	"github.com/svpipaliya/bonsai/classify"
	"github.com/svpipaliya/bonsai/kmerseq"
)

// genomeReader reads every record of a single (possibly gzipped) FASTA/Q
// file into kmerseq.Records, grounded on unikmer/cmd/count.go's
// fastx.NewDefaultReader loop. Reading a whole genome at once matches the
// build engine's per-genome Open contract (build.Genome.Open).
func genomeReader(file string) func() ([]kmerseq.Record, error) {
	return func() ([]kmerseq.Record, error) {
		reader, err := fastx.NewDefaultReader(file)
		if err != nil {
			return nil, err
		}
		var records []kmerseq.Record
		for {
			rec, err := reader.Read()
			if err != nil {
				if err == io.EOF {
					break
				}
				return nil, err
			}
			records = append(records, kmerseq.Record{
				Name: string(rec.Name),
				Seq:  append([]byte(nil), rec.Seq.Seq...),
				Qual: append([]byte(nil), rec.Seq.Qual...),
			})
		}
		return records, nil
	}
}

// fastxChunkReader adapts one (or two, for paired-end) fastx.Reader
// streams into classify.ChunkReader, reading up to n records per call.
type fastxChunkReader struct {
	r1, r2 *fastx.Reader
	paired bool
}

// newFastxChunkReader opens file1 (and file2, if non-empty, for paired-end
// reads) as the classify driver's read source.
func newFastxChunkReader(file1, file2 string) (*fastxChunkReader, error) {
	r1, err := fastx.NewDefaultReader(file1)
	if err != nil {
		return nil, err
	}
	cr := &fastxChunkReader{r1: r1}
	if file2 != "" {
		r2, err := fastx.NewDefaultReader(file2)
		if err != nil {
			return nil, err
		}
		cr.r2 = r2
		cr.paired = true
	}
	return cr, nil
}

func (cr *fastxChunkReader) ReadChunk(n int) ([]classify.ChunkRead, error) {
	reads := make([]classify.ChunkRead, 0, n)
	var err error
	for i := 0; i < n; i++ {
		var rec1 *fastx.Record
		rec1, err = cr.r1.Read()
		if err != nil {
			break
		}
		read := classify.ChunkRead{
			Name: string(rec1.Name),
			Seq:  append([]byte(nil), rec1.Seq.Seq...),
			Qual: append([]byte(nil), rec1.Seq.Qual...),
		}
		if cr.paired {
			rec2, err2 := cr.r2.Read()
			if err2 != nil {
				err = err2
				break
			}
			read.Name2 = string(rec2.Name)
			read.Seq2 = append([]byte(nil), rec2.Seq.Seq...)
			read.Qual2 = append([]byte(nil), rec2.Seq.Qual...)
		}
		reads = append(reads, read)
	}
	if err == io.EOF {
		return reads, io.EOF
	}
	return reads, err
}
