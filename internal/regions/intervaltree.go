package regions

import "sort"

// IntervalTree provides O(log n + k) point-overlap queries over the regions
// of one chromosome using a sorted slice with a prefix-max of end
// coordinates. It is built once and never modified.
type IntervalTree struct {
	regions []*Region
	maxEnd  []int64 // maxEnd[i] = max(End) for regions[:i+1]
}

// BuildIntervalTree creates an interval tree from a slice of regions.
func BuildIntervalTree(regions []*Region) *IntervalTree {
	if len(regions) == 0 {
		return &IntervalTree{}
	}

	sorted := make([]*Region, len(regions))
	copy(sorted, regions)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	maxEnd := make([]int64, len(sorted))
	maxEnd[0] = sorted[0].End
	for i := 1; i < len(sorted); i++ {
		maxEnd[i] = max(sorted[i].End, maxEnd[i-1])
	}

	return &IntervalTree{regions: sorted, maxEnd: maxEnd}
}

// FindOverlaps returns the regions containing the 1-based position pos, in
// ascending start order.
func (t *IntervalTree) FindOverlaps(pos int64) []*Region {
	if len(t.regions) == 0 {
		return nil
	}

	// In 0-based half-open terms the base is [pos-1, pos); a region
	// contains it when Start < pos && End >= pos.
	hi := sort.Search(len(t.regions), func(i int) bool {
		return t.regions[i].Start >= pos
	})

	var result []*Region
	for i := hi - 1; i >= 0; i-- {
		// Nothing at or before i reaches pos.
		if t.maxEnd[i] < pos {
			break
		}
		if t.regions[i].End >= pos {
			result = append(result, t.regions[i])
		}
	}

	// Restore ascending order; the scan above walks backwards.
	for i, j := 0, len(result)-1; i < j; i, j = i+1, j-1 {
		result[i], result[j] = result[j], result[i]
	}
	return result
}

// Len returns the number of regions in the tree.
func (t *IntervalTree) Len() int {
	return len(t.regions)
}
