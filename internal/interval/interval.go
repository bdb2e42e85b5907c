// Package interval provides genomic interval geometry: overlap similarity
// metrics, tolerance windows and an immutable overlap index.
package interval

import "math"

// CoordinateSystem tags how Start and End should be interpreted.
type CoordinateSystem uint8

const (
	// OneBased is the VCF/GTF convention: 1-based, fully closed.
	OneBased CoordinateSystem = iota
	// ZeroBased is the BED convention: 0-based, half open.
	ZeroBased
)

// Interval is a region on a single contig.
type Interval struct {
	Contig int
	Start  int64
	End    int64
	System CoordinateSystem
}

// New returns a 1-based fully closed interval.
func New(contigID int, start, end int64) Interval {
	return Interval{Contig: contigID, Start: start, End: end}
}

// ToOneBased converts the interval to the 1-based fully closed convention.
func (i Interval) ToOneBased() Interval {
	if i.System == ZeroBased {
		return Interval{Contig: i.Contig, Start: i.Start + 1, End: i.End, System: OneBased}
	}
	return i
}

// Length returns the number of bases covered. Zero-width features
// (insertion points) count as 1 so ratios stay defined.
func (i Interval) Length() int64 {
	o := i.ToOneBased()
	if n := o.End - o.Start + 1; n > 0 {
		return n
	}
	return 1
}

// Overlaps reports whether the two intervals share at least one base.
func (i Interval) Overlaps(o Interval) bool {
	a, b := i.ToOneBased(), o.ToOneBased()
	return a.Contig == b.Contig && a.Start <= b.End && b.Start <= a.End
}

// intersection returns the overlap length of two 1-based intervals on the
// same contig. Adjacent or zero-width features report 1; a positive gap
// between them reports 0.
func intersection(a, b Interval) int64 {
	n := min(a.End, b.End) - max(a.Start, b.Start) + 1
	if n < 0 {
		return 0
	}
	return max(n, 1)
}

// Jaccard returns intersection-over-union of two intervals in [0, 1].
// Intervals on different contigs score 0.
func Jaccard(x, y Interval) float64 {
	if x.Contig != y.Contig {
		return 0
	}
	a, b := x.ToOneBased(), y.ToOneBased()
	inter := intersection(a, b)
	if inter == 0 {
		return 0
	}
	inter = min(inter, a.Length(), b.Length())
	return float64(inter) / float64(a.Length()+b.Length()-inter)
}

// ReciprocalOverlap returns min(intersection/lenX, intersection/lenY).
func ReciprocalOverlap(x, y Interval) float64 {
	if x.Contig != y.Contig {
		return 0
	}
	a, b := x.ToOneBased(), y.ToOneBased()
	inter := intersection(a, b)
	if inter == 0 {
		return 0
	}
	inter = min(inter, a.Length(), b.Length())
	return math.Min(float64(inter)/float64(a.Length()), float64(inter)/float64(b.Length()))
}

// Margins returns the inner and outer boundary margins for a region of the
// given length such that any region whose boundaries fall outside them cannot
// reach minSimilarity. Both margins are at least 1. minSimilarity outside
// (0, 1] is clamped to 1.
func Margins(length int64, minSimilarity float64) (inner, outer int64) {
	if minSimilarity <= 0 || minSimilarity > 1 || math.IsNaN(minSimilarity) {
		minSimilarity = 1
	}
	l := float64(length)
	inner = int64(math.Round(l * (1 - minSimilarity)))
	outer = int64(math.Round(l/minSimilarity - l))
	return max(inner, 1), max(outer, 1)
}

// Window constrains where the start and end of a matching region may fall.
type Window struct {
	Contig             int
	StartMin, StartMax int64
	EndMin, EndMax     int64
}

// SearchWindow builds the tolerance window around region for minSimilarity.
// contigLength clamps the window upper bounds when positive.
func SearchWindow(region Interval, minSimilarity float64, contigLength int64) Window {
	r := region.ToOneBased()
	inner, outer := Margins(r.Length(), minSimilarity)
	w := Window{
		Contig:   r.Contig,
		StartMin: max(r.Start-outer, 1),
		StartMax: r.Start + inner,
		EndMin:   max(r.End-inner, 1),
		EndMax:   r.End + outer,
	}
	if contigLength > 0 {
		w.StartMax = min(w.StartMax, contigLength)
		w.EndMax = min(w.EndMax, contigLength)
	}
	return w
}

// Contains reports whether both boundaries of i fall inside the window.
func (w Window) Contains(i Interval) bool {
	o := i.ToOneBased()
	return o.Contig == w.Contig &&
		o.Start >= w.StartMin && o.Start <= w.StartMax &&
		o.End >= w.EndMin && o.End <= w.EndMax
}
