package taxonomy

import "sort"

// Histogram is a taxon hit count map for a single read (or read pair).
// Bounded and saturating per spec §3/§5; callers are responsible for the
// saturation discipline, Resolve only reads it.
type Histogram map[uint32]uint16

// Resolve implements the tree resolver (spec §4.5): for each taxon with a
// positive count, its root-path accumulates that count at every node along
// the path. The taxon with the maximum accumulated score wins; ties break
// by deeper node first, then by smallest taxon id. Resolve returns 0 when
// H is empty or sums to nothing.
func (t *Taxonomy) Resolve(h Histogram) uint32 {
	if len(h) == 0 {
		return 0
	}

	scores := make(map[uint32]uint64, len(h)*2)
	depths := make(map[uint32]uint32, len(h)*2)

	for taxon, count := range h {
		if count == 0 {
			continue
		}
		path := t.PathToRoot(taxon)
		for i, node := range path {
			scores[node] += uint64(count)
			if _, ok := depths[node]; !ok {
				depths[node] = uint32(len(path) - 1 - i)
			}
		}
	}
	if len(scores) == 0 {
		return 0
	}

	candidates := make([]uint32, 0, len(scores))
	for node := range scores {
		candidates = append(candidates, node)
	}
	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if scores[a] != scores[b] {
			return scores[a] > scores[b]
		}
		if depths[a] != depths[b] {
			return depths[a] > depths[b]
		}
		return a < b
	})

	best := candidates[0]
	if scores[best] == 0 {
		return 0
	}
	return best
}
