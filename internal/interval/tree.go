package interval

import "sort"

// Tree provides overlap queries over a sorted slice of features.
// Features are loaded once and never modified after build.
type Tree[T any] struct {
	items  []entry[T]
	maxEnd []int64 // maxEnd[i] = max(end) for items[:i+1]
}

type entry[T any] struct {
	start, end int64
	value      T
}

// Feature is one element handed to NewTree.
type Feature[T any] struct {
	Start, End int64
	Value      T
}

// NewTree builds a tree from features using 1-based closed coordinates.
func NewTree[T any](features []Feature[T]) *Tree[T] {
	if len(features) == 0 {
		return &Tree[T]{}
	}
	items := make([]entry[T], len(features))
	for i, f := range features {
		items[i] = entry[T]{start: f.Start, end: f.End, value: f.Value}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].start != items[j].start {
			return items[i].start < items[j].start
		}
		return items[i].end < items[j].end
	})

	maxEnd := make([]int64, len(items))
	maxEnd[0] = items[0].end
	for i := 1; i < len(items); i++ {
		maxEnd[i] = max(maxEnd[i-1], items[i].end)
	}
	return &Tree[T]{items: items, maxEnd: maxEnd}
}

// Len returns the number of features in the tree.
func (t *Tree[T]) Len() int { return len(t.items) }

// Overlapping returns every feature intersecting [start, end] in start order.
func (t *Tree[T]) Overlapping(start, end int64) []T {
	if len(t.items) == 0 {
		return nil
	}
	// Candidates are [0, hi): everything starting at or before end.
	hi := sort.Search(len(t.items), func(i int) bool {
		return t.items[i].start > end
	})

	var found []int
	for i := hi - 1; i >= 0; i-- {
		// No feature in items[:i+1] reaches start.
		if t.maxEnd[i] < start {
			break
		}
		if t.items[i].end >= start {
			found = append(found, i)
		}
	}
	if len(found) == 0 {
		return nil
	}
	out := make([]T, len(found))
	for k, i := range found {
		out[len(found)-1-k] = t.items[i].value
	}
	return out
}

// Contains returns every feature covering pos.
func (t *Tree[T]) Contains(pos int64) []T {
	return t.Overlapping(pos, pos)
}

// Any reports whether at least one feature intersects [start, end].
func (t *Tree[T]) Any(start, end int64) bool {
	hi := sort.Search(len(t.items), func(i int) bool {
		return t.items[i].start > end
	})
	return hi > 0 && t.maxEnd[hi-1] >= start
}

// Previous returns the feature with the greatest end strictly before pos.
func (t *Tree[T]) Previous(pos int64) (T, int64, bool) {
	var zero T
	hi := sort.Search(len(t.items), func(i int) bool {
		return t.items[i].start >= pos
	})
	best := -1
	for i := hi - 1; i >= 0; i-- {
		if best >= 0 && t.maxEnd[i] <= t.items[best].end {
			break
		}
		if t.items[i].end < pos && (best < 0 || t.items[i].end > t.items[best].end) {
			best = i
		}
	}
	if best < 0 {
		return zero, 0, false
	}
	return t.items[best].value, t.items[best].end, true
}

// Next returns the first feature starting strictly after pos.
func (t *Tree[T]) Next(pos int64) (T, int64, bool) {
	var zero T
	i := sort.Search(len(t.items), func(i int) bool {
		return t.items[i].start > pos
	})
	if i == len(t.items) {
		return zero, 0, false
	}
	return t.items[i].value, t.items[i].start, true
}

// Index partitions trees by contig ID.
type Index[T any] struct {
	trees map[int]*Tree[T]
}

// NewIndex builds one tree per contig from the given features.
func NewIndex[T any](byContig map[int][]Feature[T]) *Index[T] {
	idx := &Index[T]{trees: make(map[int]*Tree[T], len(byContig))}
	for c, fs := range byContig {
		idx.trees[c] = NewTree(fs)
	}
	return idx
}

// Tree returns the tree for a contig, or nil.
func (x *Index[T]) Tree(contigID int) *Tree[T] {
	if x == nil {
		return nil
	}
	return x.trees[contigID]
}

// Overlapping returns features on the interval's contig that intersect it.
func (x *Index[T]) Overlapping(i Interval) []T {
	t := x.Tree(i.Contig)
	if t == nil {
		return nil
	}
	o := i.ToOneBased()
	return t.Overlapping(o.Start, o.End)
}

// Any reports whether any feature intersects the interval.
func (x *Index[T]) Any(i Interval) bool {
	t := x.Tree(i.Contig)
	if t == nil {
		return false
	}
	o := i.ToOneBased()
	return t.Any(o.Start, o.End)
}

// Len returns the total number of features across all contigs.
func (x *Index[T]) Len() int {
	if x == nil {
		return 0
	}
	n := 0
	for _, t := range x.trees {
		n += t.Len()
	}
	return n
}
