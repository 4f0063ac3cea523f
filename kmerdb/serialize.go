package kmerdb

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/cespare/xxhash"
	"github.com/klauspost/pgzip"
)

// Magic identifies a bonsai k-mer database file, the way unikmer's
// serialization.go tags its own binary format.
var Magic = [8]byte{'b', 'n', 's', 'a', 'i', 'd', 'b', '1'}

const (
	mainVersion  uint8 = 1
	minorVersion uint8 = 0
)

// Flag bits recorded in the Header.
const (
	FlagCanonical = 1 << iota
	FlagTaxDepth
)

var be = binary.BigEndian

// Header is the fixed-size preamble of a database file: magic, version,
// K, flags, then the open-addressed table's shape (bucket count and
// element count, from which the load factor is recoverable).
type Header struct {
	MainVersion  uint8
	MinorVersion uint8
	K            uint8
	Flag         uint32
	NumBuckets   uint64
	Count        uint64
}

func (h Header) String() string {
	return fmt.Sprintf("bonsai k-mer database v%d.%d, K=%d, flag=%d, %d/%d buckets occupied",
		h.MainVersion, h.MinorVersion, h.K, h.Flag, h.Count, h.NumBuckets)
}

// ErrInvalidFileFormat means the magic number didn't match.
var ErrInvalidFileFormat = fmt.Errorf("kmerdb: invalid database file format")

func nextPow2(n uint64) uint64 {
	if n == 0 {
		return 1
	}
	p := uint64(1)
	for p < n {
		p <<= 1
	}
	return p
}

func keyBytes(buf []byte, k uint64) []byte {
	be.PutUint64(buf, k)
	return buf
}

func bucketFor(key, mask uint64) uint64 {
	buf := make([]byte, 8)
	return xxhash.Sum64(keyBytes(buf, key)) & mask
}

// writeHeader writes the magic number and Header.
func writeHeader(w io.Writer, h Header) error {
	if err := binary.Write(w, be, Magic); err != nil {
		return err
	}
	return binary.Write(w, be, h)
}

func readHeader(r io.Reader) (Header, error) {
	var m [8]byte
	if err := binary.Read(r, be, &m); err != nil {
		return Header{}, err
	}
	if m != Magic {
		return Header{}, ErrInvalidFileFormat
	}
	var h Header
	if err := binary.Read(r, be, &h); err != nil {
		return Header{}, err
	}
	return h, nil
}

// writeBitmap writes a packed occupied-slot bitmap, one bit per bucket.
func writeBitmap(w io.Writer, occupied []bool) error {
	nbytes := (len(occupied) + 7) / 8
	buf := make([]byte, nbytes)
	for i, o := range occupied {
		if o {
			buf[i/8] |= 1 << uint(i%8)
		}
	}
	_, err := w.Write(buf)
	return err
}

func readBitmap(r io.Reader, n uint64) ([]bool, error) {
	nbytes := (n + 7) / 8
	buf := make([]byte, nbytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	occupied := make([]bool, n)
	for i := range occupied {
		occupied[i] = buf[i/8]&(1<<uint(i%8)) != 0
	}
	return occupied, nil
}

// SaveClassifyTable writes tbl to path as a gzip-compressed (pgzip)
// open-addressed database file: header, flag bitmap, keys, then 32-bit
// taxon values, per spec §6's external database file format.
func SaveClassifyTable(path string, tbl *ClassifyTable, canonical bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := pgzip.NewWriter(f)
	defer gw.Close()

	capacity := nextPow2(uint64(float64(len(tbl.m))/0.75) + 1)
	mask := capacity - 1
	keys := make([]uint64, capacity)
	values := make([]uint32, capacity)
	occupied := make([]bool, capacity)

	for k, v := range tbl.m {
		idx := bucketFor(k, mask)
		for occupied[idx] {
			idx = (idx + 1) & mask
		}
		occupied[idx] = true
		keys[idx] = k
		values[idx] = v
	}

	flag := uint32(0)
	if canonical {
		flag |= FlagCanonical
	}
	header := Header{MainVersion: mainVersion, MinorVersion: minorVersion, K: uint8(tbl.K), Flag: flag, NumBuckets: capacity, Count: uint64(len(tbl.m))}
	if err := writeHeader(gw, header); err != nil {
		return err
	}
	if err := writeBitmap(gw, occupied); err != nil {
		return err
	}
	if err := binary.Write(gw, be, keys); err != nil {
		return err
	}
	return binary.Write(gw, be, values)
}

// LoadClassifyTable reads a database file written by SaveClassifyTable.
func LoadClassifyTable(path string) (*ClassifyTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := pgzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	header, err := readHeader(gr)
	if err != nil {
		return nil, err
	}
	if header.Flag&FlagTaxDepth != 0 {
		return nil, fmt.Errorf("kmerdb: file is a tax-depth table, not a classify table")
	}
	occupied, err := readBitmap(gr, header.NumBuckets)
	if err != nil {
		return nil, err
	}
	keys := make([]uint64, header.NumBuckets)
	if err := binary.Read(gr, be, keys); err != nil {
		return nil, err
	}
	values := make([]uint32, header.NumBuckets)
	if err := binary.Read(gr, be, values); err != nil {
		return nil, err
	}

	tbl := NewClassifyTable(int(header.K))
	for i, o := range occupied {
		if o {
			tbl.m[keys[i]] = values[i]
		}
	}
	return tbl, nil
}

// SaveTaxDepthTable writes tbl to path the same way as SaveClassifyTable,
// with 64-bit packed values and FlagTaxDepth set.
func SaveTaxDepthTable(path string, tbl *TaxDepthTable, canonical bool) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	gw := pgzip.NewWriter(f)
	defer gw.Close()

	capacity := nextPow2(uint64(float64(len(tbl.m))/0.75) + 1)
	mask := capacity - 1
	keys := make([]uint64, capacity)
	values := make([]uint64, capacity)
	occupied := make([]bool, capacity)

	for k, v := range tbl.m {
		idx := bucketFor(k, mask)
		for occupied[idx] {
			idx = (idx + 1) & mask
		}
		occupied[idx] = true
		keys[idx] = k
		values[idx] = v
	}

	flag := uint32(FlagTaxDepth)
	if canonical {
		flag |= FlagCanonical
	}
	header := Header{MainVersion: mainVersion, MinorVersion: minorVersion, K: uint8(tbl.K), Flag: flag, NumBuckets: capacity, Count: uint64(len(tbl.m))}
	if err := writeHeader(gw, header); err != nil {
		return err
	}
	if err := writeBitmap(gw, occupied); err != nil {
		return err
	}
	if err := binary.Write(gw, be, keys); err != nil {
		return err
	}
	return binary.Write(gw, be, values)
}

// LoadTaxDepthTable reads a database file written by SaveTaxDepthTable.
func LoadTaxDepthTable(path string) (*TaxDepthTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gr, err := pgzip.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer gr.Close()

	header, err := readHeader(gr)
	if err != nil {
		return nil, err
	}
	if header.Flag&FlagTaxDepth == 0 {
		return nil, fmt.Errorf("kmerdb: file is a classify table, not a tax-depth table")
	}
	occupied, err := readBitmap(gr, header.NumBuckets)
	if err != nil {
		return nil, err
	}
	keys := make([]uint64, header.NumBuckets)
	if err := binary.Read(gr, be, keys); err != nil {
		return nil, err
	}
	values := make([]uint64, header.NumBuckets)
	if err := binary.Read(gr, be, values); err != nil {
		return nil, err
	}

	tbl := NewTaxDepthTable(int(header.K))
	for i, o := range occupied {
		if o {
			tbl.m[keys[i]] = values[i]
		}
	}
	return tbl, nil
}
