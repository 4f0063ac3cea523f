package classify

import (
	"bytes"
	"strconv"
)

// appendTaxaRun writes one label:count token, grounded exactly on
// original_source/bonsai/include/classifier.h's append_taxa_run: 0 maps to
// 'U' (miss), -1 maps to 'A' (ambiguous), anything else is the decimal
// taxon.
func appendTaxaRun(lastTaxon int64, run int, buf *bytes.Buffer) {
	switch lastTaxon {
	case 0:
		buf.WriteByte('U')
	case -1:
		buf.WriteByte('A')
	default:
		buf.WriteString(strconv.FormatInt(lastTaxon, 10))
	}
	buf.WriteByte(':')
	buf.WriteString(strconv.Itoa(run))
	buf.WriteByte('\t')
}

// appendTaxaRuns run-length-encodes trace into buf, terminated with a
// newline (not a trailing tab). If taxon is 0 the whole thing degenerates
// to "0:0\n", per append_taxa_runs.
func appendTaxaRuns(taxon uint32, trace []int64, buf *bytes.Buffer) {
	if taxon == 0 || len(trace) == 0 {
		buf.WriteString("0:0\n")
		return
	}
	last := trace[0]
	run := 1
	for i := 1; i < len(trace); i++ {
		if trace[i] == last {
			run++
			continue
		}
		appendTaxaRun(last, run, buf)
		last = trace[i]
		run = 1
	}
	appendTaxaRun(last, run, buf)
	b := buf.Bytes()
	b[len(b)-1] = '\n' // replace the trailing tab with a newline
}

// appendCounts writes "<ch>:<count>\t", but only when count is nonzero,
// grounded on append_counts.
func appendCounts(count int, ch byte, buf *bytes.Buffer) {
	if count == 0 {
		return
	}
	buf.WriteByte(ch)
	buf.WriteByte(':')
	buf.WriteString(strconv.Itoa(count))
	buf.WriteByte('\t')
}

// FormatKraken renders one Kraken-style tab record for name/r, terminated
// with newline and a NUL byte (spec §4.7).
func FormatKraken(name string, r Result) []byte {
	buf := &bytes.Buffer{}
	if r.Taxon != 0 {
		buf.WriteByte('C')
	} else {
		buf.WriteByte('U')
	}
	buf.WriteByte('\t')
	buf.WriteString(name)
	buf.WriteByte('\t')
	buf.WriteString(strconv.FormatUint(uint64(r.Taxon), 10))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.LSeq))
	buf.WriteByte('\t')
	appendCounts(r.Missing, 'M', buf)
	appendCounts(r.Ambig, 'A', buf)
	appendTaxaRuns(r.Taxon, r.Trace, buf)
	buf.WriteByte(0)
	return buf.Bytes()
}

// classificationComment builds the shared "C|U\t<taxid>\t<l_seq>\t..."
// substring attached (verbatim) to both mates of a pair, per
// append_fastq_classification's cms/cme comment reuse.
func classificationComment(r Result, verbose bool) []byte {
	buf := &bytes.Buffer{}
	if r.Taxon != 0 {
		buf.WriteByte('C')
	} else {
		buf.WriteByte('U')
	}
	buf.WriteByte('\t')
	buf.WriteString(strconv.FormatUint(uint64(r.Taxon), 10))
	buf.WriteByte('\t')
	buf.WriteString(strconv.Itoa(r.LSeq))
	buf.WriteByte('\t')
	appendCounts(r.Missing, 'M', buf)
	appendCounts(r.Ambig, 'A', buf)
	if verbose {
		appendTaxaRuns(r.Taxon, r.Trace, buf)
	} else {
		b := buf.Bytes()
		b[len(b)-1] = '\n'
	}
	return buf.Bytes()
}

// FormatFASTQ renders a FASTQ record (or pair) for r. name2/seq2/qual2 are
// empty when the read is unpaired; otherwise the mate gets the identical
// comment substring, per append_fastq_classification.
func FormatFASTQ(name string, seq, qual []byte, name2 string, seq2, qual2 []byte, r Result, verbose bool) []byte {
	comment := classificationComment(r, verbose)

	buf := &bytes.Buffer{}
	buf.WriteByte('@')
	buf.WriteString(name)
	buf.WriteByte(' ')
	buf.Write(comment)
	buf.Write(seq)
	buf.WriteString("\n+\n")
	buf.Write(qual)
	buf.WriteByte('\n')

	if name2 != "" {
		buf.WriteByte('@')
		buf.WriteString(name2)
		buf.WriteByte(' ')
		buf.Write(comment)
		buf.Write(seq2)
		buf.WriteString("\n+\n")
		buf.Write(qual2)
		buf.WriteByte('\n')
	}
	buf.WriteByte(0)
	return buf.Bytes()
}

// ShouldEmit reports whether a record should be written at all, per spec
// §4.7's "Emission is gated by taxon != 0 OR emit_all".
func ShouldEmit(r Result, emitAll bool) bool {
	return r.Taxon != 0 || emitAll
}
