package taxonomy

import "testing"

func buildTestTaxonomy() *Taxonomy {
	t := New(1)
	t.AddNode(1, 1, "root")
	t.AddNode(3, 1, "")
	t.AddNode(5, 3, "")
	t.AddNode(7, 3, "")
	t.AddNode(9, 1, "")
	t.AddNode(10, 9, "")
	t.AddNode(11, 9, "")
	return t
}

// S4 — LCA merge. Taxonomy: 5->3->1, 7->3->1.
func TestLCA_S4(t *testing.T) {
	tax := buildTestTaxonomy()
	if got := tax.LCA(5, 7); got != 3 {
		t.Errorf("LCA(5,7) = %d, want 3", got)
	}
}

func TestLCASameTaxon(t *testing.T) {
	tax := buildTestTaxonomy()
	if got := tax.LCA(5, 5); got != 5 {
		t.Errorf("LCA(5,5) = %d, want 5", got)
	}
}

func TestLCAUnknown(t *testing.T) {
	tax := buildTestTaxonomy()
	if got := tax.LCA(5, 999); got != Unknown {
		t.Errorf("LCA(5,999) = %d, want Unknown", got)
	}
}

func TestDepth(t *testing.T) {
	tax := buildTestTaxonomy()
	if d := tax.Depth(1); d != 0 {
		t.Errorf("Depth(root) = %d, want 0", d)
	}
	if d := tax.Depth(5); d != 2 {
		t.Errorf("Depth(5) = %d, want 2", d)
	}
	if d := tax.Depth(999); d != Unknown {
		t.Errorf("Depth(unknown) = %d, want Unknown", d)
	}
}

func TestPathToRoot(t *testing.T) {
	tax := buildTestTaxonomy()
	path := tax.PathToRoot(5)
	want := []uint32{5, 3, 1}
	if len(path) != len(want) {
		t.Fatalf("PathToRoot(5) = %v, want %v", path, want)
	}
	for i := range want {
		if path[i] != want[i] {
			t.Errorf("PathToRoot(5)[%d] = %d, want %d", i, path[i], want[i])
		}
	}
}

func TestPathToRootMissingParentIsOwnRoot(t *testing.T) {
	tax := buildTestTaxonomy()
	path := tax.PathToRoot(42)
	if len(path) != 1 || path[0] != 42 {
		t.Errorf("PathToRoot(unregistered) = %v, want [42]", path)
	}
}

// S5 — tree resolver tiebreak.
func TestResolve_S5(t *testing.T) {
	tax := buildTestTaxonomy()
	h := Histogram{10: 2, 11: 2}
	if got := tax.Resolve(h); got != 9 {
		t.Errorf("Resolve({10:2,11:2}) = %d, want 9", got)
	}
}

func TestResolveEmpty(t *testing.T) {
	tax := buildTestTaxonomy()
	if got := tax.Resolve(Histogram{}); got != 0 {
		t.Errorf("Resolve(empty) = %d, want 0", got)
	}
}
