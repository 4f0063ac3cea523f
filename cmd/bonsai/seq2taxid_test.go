package main

import "testing"

func TestAccessionFromHeaderOldRefseq(t *testing.T) {
	got := accessionFromHeader(">gi|556503834|ref|NC_000913.3| Escherichia coli str. K-12")
	want := "NC_000913.3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAccessionFromHeaderPlain(t *testing.T) {
	got := accessionFromHeader(">NC_000913.3 Escherichia coli str. K-12")
	want := "NC_000913.3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestAccessionFromHeaderNoDescription(t *testing.T) {
	got := accessionFromHeader("NC_000913.3")
	want := "NC_000913.3"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestLookupTaxidMissing(t *testing.T) {
	m := map[string]uint32{"NC_000913.3": 511145}
	if _, err := lookupTaxid(m, ">NC_999999.1 unknown organism"); err == nil {
		t.Errorf("expected error for unmapped accession")
	}
	taxid, err := lookupTaxid(m, ">NC_000913.3 Escherichia coli str. K-12")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if taxid != 511145 {
		t.Errorf("got taxid %d, want 511145", taxid)
	}
}
