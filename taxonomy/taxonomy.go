// Package taxonomy implements the taxonomy graph: an in-memory parent map
// with depth, root-path and lowest-common-ancestor queries, plus the tree
// resolver used by classify to turn a hit histogram into one taxon.
package taxonomy

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shenwei356/breader"
)

// Unknown is the sentinel returned by Depth and LCA when a taxon id is not
// present in the graph. Callers resolving an LCA must map it to Root and
// warn, per the merge rule.
const Unknown uint32 = ^uint32(0)

// Root is the reserved taxon id for the tree's root.
const Root uint32 = 1

// Taxonomy holds parent/rank relationships for a set of taxa.
type Taxonomy struct {
	rootNode uint32
	maxTaxid uint32

	parent map[uint32]uint32
	rank   map[uint32]string

	cacheLCA bool
	lcaCache map[uint64]uint32
}

// New builds an empty Taxonomy with the given root id. Use AddNode to
// populate it, or NewFromNCBI/NewFromDump to load one from a file.
func New(root uint32) *Taxonomy {
	return &Taxonomy{
		rootNode: root,
		parent:   map[uint32]uint32{root: root},
	}
}

// AddNode records taxon's parent and (optional) rank label.
func (t *Taxonomy) AddNode(taxon, parent uint32, rank string) {
	t.parent[taxon] = parent
	if rank != "" {
		if t.rank == nil {
			t.rank = make(map[uint32]string)
		}
		t.rank[taxon] = rank
	}
	if taxon == parent {
		t.rootNode = taxon
	}
	if taxon > t.maxTaxid {
		t.maxTaxid = taxon
	}
}

// NewFromNCBI parses a nodes.dmp as distributed in NCBI's taxdump.tar.gz:
// tab-pipe-separated, child in column 1, parent in column 3.
func NewFromNCBI(file string) (*Taxonomy, error) {
	return NewFromDump(file, 1, 3, 5)
}

// NewFromDump loads a taxonomy from a tab-delimited dump file. Columns are
// 1-based; rankColumn may be 0 to skip loading ranks. This is the "taxonomy
// dump" external collaborator named in spec §6 — parsing is not part of
// the classifier core but this loader is provided for cmd/bonsai.
func NewFromDump(file string, childColumn, parentColumn, rankColumn int) (*Taxonomy, error) {
	if childColumn < 1 || parentColumn < 1 {
		return nil, fmt.Errorf("taxonomy: illegal column index")
	}
	minColumns := childColumn
	if parentColumn > minColumns {
		minColumns = parentColumn
	}
	if rankColumn > minColumns {
		minColumns = rankColumn
	}

	type record struct {
		Taxid  uint32
		Parent uint32
		Rank   string
	}

	parseFunc := func(line string) (interface{}, bool, error) {
		items := strings.Split(line, "\t")
		if len(items) < minColumns {
			return nil, false, nil
		}
		child, e := strconv.Atoi(strings.TrimSpace(items[childColumn-1]))
		if e != nil {
			return nil, false, e
		}
		parent, e := strconv.Atoi(strings.TrimSpace(items[parentColumn-1]))
		if e != nil {
			return nil, false, e
		}
		rank := ""
		if rankColumn > 0 && rankColumn-1 < len(items) {
			rank = strings.TrimSpace(items[rankColumn-1])
		}
		return record{Taxid: uint32(child), Parent: uint32(parent), Rank: rank}, true, nil
	}

	reader, err := breader.NewBufferedReader(file, 8, 100, parseFunc)
	if err != nil {
		return nil, fmt.Errorf("taxonomy: %s", err)
	}

	t := &Taxonomy{parent: make(map[uint32]uint32, 1024)}
	for chunk := range reader.Ch {
		if chunk.Err != nil {
			return nil, fmt.Errorf("taxonomy: %s", chunk.Err)
		}
		for _, data := range chunk.Data {
			rec := data.(record)
			t.AddNode(rec.Taxid, rec.Parent, rec.Rank)
		}
	}
	return t, nil
}

// MaxTaxid returns the largest taxon id seen while loading.
func (t *Taxonomy) MaxTaxid() uint32 { return t.maxTaxid }

// Root returns the taxonomy's root id.
func (t *Taxonomy) Root() uint32 { return t.rootNode }

// CacheLCA enables memoizing LCA query results, mirroring the teacher's
// opt-in LCA cache (taxonomy.go's CacheLCA/lcaCache).
func (t *Taxonomy) CacheLCA() {
	t.cacheLCA = true
	if t.lcaCache == nil {
		t.lcaCache = make(map[uint64]uint32, 1024)
	}
}

// Parent returns taxon's parent and whether taxon is known.
func (t *Taxonomy) Parent(taxon uint32) (uint32, bool) {
	p, ok := t.parent[taxon]
	return p, ok
}

// Rank returns taxon's rank label, if known.
func (t *Taxonomy) Rank(taxon uint32) string {
	if t.rank == nil {
		return ""
	}
	return t.rank[taxon]
}

// Depth returns taxon's distance to the root (root depth == 0). Unknown
// taxa return Unknown.
func (t *Taxonomy) Depth(taxon uint32) uint32 {
	var d uint32
	node := taxon
	for {
		parent, ok := t.parent[node]
		if !ok {
			return Unknown
		}
		if parent == node {
			return d
		}
		node = parent
		d++
	}
}

// PathToRoot returns the ordered path from taxon up to the root, inclusive
// of both endpoints. A taxon with no recorded parent is treated as its own
// root for the walk (spec §4.5), so the path is just [taxon].
func (t *Taxonomy) PathToRoot(taxon uint32) []uint32 {
	path := []uint32{taxon}
	node := taxon
	for {
		parent, ok := t.parent[node]
		if !ok || parent == node {
			return path
		}
		path = append(path, parent)
		node = parent
	}
}

// LCA returns the lowest common ancestor of a and b: it records every
// ancestor of a (a included) up to the root, then walks b up until it
// reaches the first recorded node. If b's walk ends at a root without
// meeting a's line, the taxonomy's root is returned. Unknown taxa cause
// Unknown to be returned; callers must map that to Root and warn.
func (t *Taxonomy) LCA(a, b uint32) uint32 {
	if a == b {
		if _, ok := t.parent[a]; !ok {
			return Unknown
		}
		return a
	}

	var query uint64
	if t.cacheLCA {
		query = pack2uint32(a, b)
		if c, ok := t.lcaCache[query]; ok {
			return c
		}
	}

	seenA := make(map[uint32]struct{}, 16)

	node := a
	for {
		parent, ok := t.parent[node]
		if !ok {
			return Unknown
		}
		seenA[node] = struct{}{}
		if parent == node {
			break
		}
		node = parent
	}

	node = b
	for {
		if _, ok := seenA[node]; ok {
			if t.cacheLCA {
				t.lcaCache[query] = node
			}
			return node
		}
		parent, ok := t.parent[node]
		if !ok {
			return Unknown
		}
		if parent == node {
			break
		}
		node = parent
	}

	if t.cacheLCA {
		t.lcaCache[query] = t.rootNode
	}
	return t.rootNode
}

func pack2uint32(a, b uint32) uint64 {
	if a < b {
		return (uint64(a) << 32) | uint64(b)
	}
	return (uint64(b) << 32) | uint64(a)
}
