package interval

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLength(t *testing.T) {
	assert.Equal(t, int64(1001), New(1, 1000, 2000).Length())
	assert.Equal(t, int64(1), New(1, 100, 100).Length())
	// Insertion point: end before start.
	assert.Equal(t, int64(1), New(1, 101, 100).Length())
	// BED half-open [999, 2000) is 1-based [1000, 2000].
	bed := Interval{Contig: 1, Start: 999, End: 2000, System: ZeroBased}
	assert.Equal(t, int64(1001), bed.Length())
	assert.Equal(t, New(1, 1000, 2000), bed.ToOneBased())
}

func TestJaccard(t *testing.T) {
	tests := []struct {
		name string
		x, y Interval
		want float64
	}{
		{"identical", New(1, 100, 200), New(1, 100, 200), 1},
		{"different contig", New(1, 100, 200), New(2, 100, 200), 0},
		{"disjoint", New(1, 100, 200), New(1, 300, 400), 0},
		{"half", New(1, 1, 100), New(1, 51, 150), 50.0 / 150.0},
		{"contained", New(1, 1010, 1990), New(1, 1000, 2000), 981.0 / 1001.0},
		{"adjacent", New(1, 1, 10), New(1, 11, 20), 1.0 / 19.0},
		{"point in region", New(1, 50, 50), New(1, 1, 100), 1.0 / 100.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Jaccard(tt.x, tt.y), 1e-9)
			assert.InDelta(t, tt.want, Jaccard(tt.y, tt.x), 1e-9)
		})
	}
}

func TestJaccardBounds(t *testing.T) {
	var ivs []Interval
	for s := int64(1); s <= 40; s += 7 {
		for e := s - 1; e <= s+30; e += 5 {
			ivs = append(ivs, New(3, s, e))
		}
	}
	for _, x := range ivs {
		assert.Equal(t, 1.0, Jaccard(x, x), "self similarity of %v", x)
		for _, y := range ivs {
			j := Jaccard(x, y)
			assert.GreaterOrEqual(t, j, 0.0)
			assert.LessOrEqual(t, j, 1.0)
			r := ReciprocalOverlap(x, y)
			assert.GreaterOrEqual(t, r, 0.0)
			assert.LessOrEqual(t, r, 1.0)
			assert.GreaterOrEqual(t, r, j, "reciprocal overlap is never below jaccard")
		}
	}
}

func TestReciprocalOverlap(t *testing.T) {
	assert.InDelta(t, 0.5, ReciprocalOverlap(New(1, 1, 100), New(1, 1, 200)), 1e-9)
	assert.InDelta(t, 0.5, ReciprocalOverlap(New(1, 1, 200), New(1, 1, 100)), 1e-9)
	assert.Equal(t, 0.0, ReciprocalOverlap(New(1, 1, 200), New(2, 1, 100)))
}

func TestMargins(t *testing.T) {
	inner, outer := Margins(981, 0.85)
	assert.Equal(t, int64(147), inner)
	assert.Equal(t, int64(173), outer)

	for _, length := range []int64{1, 2, 10, 1000, 250000} {
		prevOuter := int64(0)
		for _, sim := range []float64{1, 0.99, 0.9, 0.8, 0.5, 0.25, 0.01} {
			in, out := Margins(length, sim)
			assert.GreaterOrEqual(t, in, int64(1))
			assert.GreaterOrEqual(t, out, int64(1))
			assert.GreaterOrEqual(t, out, prevOuter, "outer margin grows as similarity drops")
			prevOuter = out
		}
	}

	// Out of range thresholds clamp to an exact match window.
	for _, sim := range []float64{0, -1, 1.5} {
		in, out := Margins(100, sim)
		assert.Equal(t, int64(1), in)
		assert.Equal(t, int64(1), out)
	}
}

func TestSearchWindow(t *testing.T) {
	query := New(1, 1010, 1990)
	w := SearchWindow(query, 0.85, 248956422)
	assert.Equal(t, Window{Contig: 1, StartMin: 837, StartMax: 1157, EndMin: 1843, EndMax: 2163}, w)
	assert.True(t, w.Contains(New(1, 1000, 2000)))
	assert.False(t, w.Contains(New(2, 1000, 2000)))
	assert.False(t, w.Contains(New(1, 500, 2000)))

	// Clamped to contig bounds.
	w = SearchWindow(New(25, 10, 16000), 0.5, 16569)
	assert.Equal(t, int64(1), w.StartMin)
	assert.Equal(t, int64(16569), w.EndMax)
}

func TestTreeOverlapping(t *testing.T) {
	tree := NewTree([]Feature[string]{
		{Start: 1, End: 1000, Value: "long"},
		{Start: 5, End: 6, Value: "short"},
		{Start: 400, End: 600, Value: "mid"},
		{Start: 2000, End: 3000, Value: "far"},
	})
	require.Equal(t, 4, tree.Len())

	// The long feature must be found even though a later short one ends early.
	assert.Equal(t, []string{"long", "mid"}, tree.Contains(500))
	assert.Equal(t, []string{"long", "short"}, tree.Contains(5))
	assert.Equal(t, []string{"long", "mid", "far"}, tree.Overlapping(550, 2500))
	assert.Nil(t, tree.Overlapping(1001, 1999))
	assert.True(t, tree.Any(999, 1500))
	assert.False(t, tree.Any(1001, 1999))

	empty := NewTree[string](nil)
	assert.Nil(t, empty.Contains(1))
	assert.False(t, empty.Any(1, 10))
}

func TestTreeNearest(t *testing.T) {
	tree := NewTree([]Feature[string]{
		{Start: 100, End: 5000, Value: "a"},
		{Start: 200, End: 300, Value: "b"},
		{Start: 8000, End: 9000, Value: "c"},
	})

	v, end, ok := tree.Previous(6000)
	require.True(t, ok)
	assert.Equal(t, "a", v)
	assert.Equal(t, int64(5000), end)

	v, start, ok := tree.Next(6000)
	require.True(t, ok)
	assert.Equal(t, "c", v)
	assert.Equal(t, int64(8000), start)

	_, _, ok = tree.Previous(50)
	assert.False(t, ok)
	_, _, ok = tree.Next(9500)
	assert.False(t, ok)
}

func TestIndex(t *testing.T) {
	idx := NewIndex(map[int][]Feature[int]{
		1: {{Start: 10, End: 20, Value: 1}},
		2: {{Start: 10, End: 20, Value: 2}, {Start: 15, End: 40, Value: 3}},
	})
	assert.Equal(t, 3, idx.Len())
	assert.Equal(t, []int{2, 3}, idx.Overlapping(New(2, 18, 18)))
	assert.True(t, idx.Any(New(1, 20, 30)))
	assert.False(t, idx.Any(New(3, 1, 100)))

	var nilIdx *Index[int]
	assert.Nil(t, nilIdx.Overlapping(New(1, 1, 1)))
	assert.Equal(t, 0, nilIdx.Len())
}
