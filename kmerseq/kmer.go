// Copyright © 2018-2020 Wei Shen <shenwei356@gmail.com>
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

// Package kmerseq implements the spaced-seed k-mer codec: 2-bit nucleotide
// packing, canonicalization, and the spacer-driven encoder that extracts
// k-mers from a nucleotide sequence.
package kmerseq

import "errors"

// ErrKOverflow means K is outside [1,32].
var ErrKOverflow = errors.New("kmerseq: K (1-32) overflow")

// ErrIllegalBase means a byte outside {A,C,G,T} (case-insensitive) was seen
// where a concrete base was required.
var ErrIllegalBase = errors.New("kmerseq: illegal base")

// Ambiguous is the sentinel k-mer code ("BF") for a window poisoned by a
// non-ACGT base. It is never a valid encoded k-mer since Encode only ever
// sets the low 2*k bits.
const Ambiguous uint64 = ^uint64(0)

// baseCode maps a single base letter to its 2-bit code. Unlike a general
// k-mer counter, a classifier must not silently fold degenerate IUPAC
// letters (N, R, Y, ...) into a concrete base: any of them marks the
// window ambiguous, so this accepts only A/C/G/T.
func baseCode(b byte) (code uint64, ok bool) {
	switch b {
	case 'A', 'a':
		return 0, true
	case 'C', 'c':
		return 1, true
	case 'G', 'g':
		return 2, true
	case 'T', 't':
		return 3, true
	default:
		return 0, false
	}
}

// Encode packs a concrete-base byte slice (length 1..32) into a 2-bit kmer
// code. It fails with ErrIllegalBase on the first non-ACGT byte.
func Encode(kmer []byte) (uint64, error) {
	k := len(kmer)
	if k == 0 || k > 32 {
		return 0, ErrKOverflow
	}
	var code uint64
	for i := range kmer {
		b, ok := baseCode(kmer[k-1-i])
		if !ok {
			return 0, ErrIllegalBase
		}
		code |= b << uint(i*2)
	}
	return code, nil
}

var bit2base = [4]byte{'A', 'C', 'G', 'T'}

// Decode converts a packed code back to its base letters.
func Decode(code uint64, k int) []byte {
	if k <= 0 || k > 32 {
		panic(ErrKOverflow)
	}
	kmer := make([]byte, k)
	for i := 0; i < k; i++ {
		kmer[k-1-i] = bit2base[code&3]
		code >>= 2
	}
	return kmer
}

// Reverse returns the code of the reversed (not complemented) sequence.
func Reverse(code uint64, k int) (c uint64) {
	for i := 0; i < k; i++ {
		c <<= 2
		c |= code & 3
		code >>= 2
	}
	return
}

// Complement returns the code of the complemented (not reversed) sequence.
func Complement(code uint64, k int) (c uint64) {
	for i := 0; i < k; i++ {
		c |= (code&3 ^ 3) << uint(i<<1)
		code >>= 2
	}
	return
}

// RevComp returns the code of the reverse-complement sequence.
func RevComp(code uint64, k int) (c uint64) {
	for i := 0; i < k; i++ {
		c <<= 2
		c |= code&3 ^ 3
		code >>= 2
	}
	return
}

// KmerCode is a packed k-mer together with its width.
type KmerCode struct {
	Code uint64
	K    int
}

// NewKmerCode encodes kmer into a KmerCode.
func NewKmerCode(kmer []byte) (KmerCode, error) {
	code, err := Encode(kmer)
	if err != nil {
		return KmerCode{}, err
	}
	return KmerCode{code, len(kmer)}, nil
}

// Equal reports whether two KmerCodes represent the same k-mer.
func (kcode KmerCode) Equal(other KmerCode) bool {
	return kcode.K == other.K && kcode.Code == other.Code
}

// Rev returns the KmerCode of the reversed sequence.
func (kcode KmerCode) Rev() KmerCode {
	return KmerCode{Reverse(kcode.Code, kcode.K), kcode.K}
}

// Comp returns the KmerCode of the complemented sequence.
func (kcode KmerCode) Comp() KmerCode {
	return KmerCode{Complement(kcode.Code, kcode.K), kcode.K}
}

// RevComp returns the KmerCode of the reverse-complement sequence.
func (kcode KmerCode) RevComp() KmerCode {
	return KmerCode{RevComp(kcode.Code, kcode.K), kcode.K}
}

// Canonical returns min(kcode, kcode.RevComp()), comparing packed codes.
func (kcode KmerCode) Canonical() KmerCode {
	rc := kcode.RevComp()
	if rc.Code < kcode.Code {
		return rc
	}
	return kcode
}

// Bytes returns the k-mer's base letters.
func (kcode KmerCode) Bytes() []byte {
	return Decode(kcode.Code, kcode.K)
}

// String returns the k-mer's base letters as a string.
func (kcode KmerCode) String() string {
	return string(Decode(kcode.Code, kcode.K))
}
