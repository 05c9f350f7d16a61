// Package filter restricts a corpus to the members of a predicate set.
//
// A GroupIndex holds one roaring bitmap of corpus positions per group
// identifier. Restricting by a predicate unions the member bitmaps of its
// identifiers and materializes the result as a Candidates list, which is the
// reduced index space a search runs in. Candidates.Global maps a reduced
// position back to the corpus-global index.
package filter

import "github.com/RoaringBitmap/roaring/v2"

// GroupIndex maps group identifiers to the corpus positions carrying them.
// It is immutable after construction and safe for concurrent use.
type GroupIndex struct {
	groups map[int64]*roaring.Bitmap
}

// NewGroupIndex builds the index for groupIDs, where groupIDs[i] is the group
// of corpus position i.
func NewGroupIndex(groupIDs []int64) *GroupIndex {
	groups := make(map[int64]*roaring.Bitmap)

	// Contiguous runs are added as ranges; this is the common layout.
	start := 0
	for i := 1; i <= len(groupIDs); i++ {
		if i < len(groupIDs) && groupIDs[i] == groupIDs[start] {
			continue
		}
		g := groupIDs[start]
		bm, ok := groups[g]
		if !ok {
			bm = roaring.New()
			groups[g] = bm
		}
		bm.AddRange(uint64(start), uint64(i))
		start = i
	}

	for _, bm := range groups {
		bm.RunOptimize()
	}

	return &GroupIndex{groups: groups}
}

// Members returns the number of corpus positions in group g.
func (gi *GroupIndex) Members(g int64) int {
	bm, ok := gi.groups[g]
	if !ok {
		return 0
	}
	return int(bm.GetCardinality())
}

// Restrict returns the corpus positions whose group is in predicate.
// Identifiers without members contribute nothing, so a predicate that names
// no indexed group yields an empty Candidates.
func (gi *GroupIndex) Restrict(predicate []int64) *Candidates {
	bms := make([]*roaring.Bitmap, 0, len(predicate))
	for _, g := range predicate {
		if bm, ok := gi.groups[g]; ok {
			bms = append(bms, bm)
		}
	}

	var union *roaring.Bitmap
	switch len(bms) {
	case 0:
		return &Candidates{}
	case 1:
		union = bms[0]
	default:
		union = roaring.FastOr(bms...)
	}

	return &Candidates{global: union.ToArray()}
}

// Candidates is a predicate-restricted view of the corpus. Position i in the
// reduced space corresponds to corpus index Global(i); positions are in
// ascending corpus order.
type Candidates struct {
	global []uint32
}

// Len returns the number of candidates.
func (c *Candidates) Len() int {
	return len(c.global)
}

// Empty reports whether no corpus vector matched.
func (c *Candidates) Empty() bool {
	return c.Len() == 0
}

// Global maps a reduced-space position to its corpus-global index.
func (c *Candidates) Global(local int) int32 {
	return int32(c.global[local])
}

// Each calls fn for every candidate with its reduced-space and corpus-global
// index, in ascending order.
func (c *Candidates) Each(fn func(local int, global uint32)) {
	for i, g := range c.global {
		fn(i, g)
	}
}
