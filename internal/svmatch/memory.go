package svmatch

import (
	"sort"

	"github.com/inodb/vibe-prio/internal/interval"
)

// MemorySource serves candidates from an in-memory interval index.
type MemorySource struct {
	freqs   *interval.Index[Candidate]
	clinvar *interval.Index[Candidate]
}

// NewMemorySource indexes candidates by contig. Entries with an empty
// Source are treated as ClinVar records.
func NewMemorySource(cands []Candidate) *MemorySource {
	freqs := make(map[int][]interval.Feature[Candidate])
	clinvar := make(map[int][]interval.Feature[Candidate])
	for _, c := range cands {
		iv := c.Interval.ToOneBased()
		f := interval.Feature[Candidate]{Start: iv.Start, End: iv.End, Value: c}
		if c.Source == "" {
			clinvar[iv.Contig] = append(clinvar[iv.Contig], f)
		} else {
			freqs[iv.Contig] = append(freqs[iv.Contig], f)
		}
	}
	return &MemorySource{freqs: interval.NewIndex(freqs), clinvar: interval.NewIndex(clinvar)}
}

// Frequencies implements Source.
func (m *MemorySource) Frequencies(w interval.Window) ([]Candidate, error) {
	return inWindow(m.freqs, w), nil
}

// ClinVar implements Source.
func (m *MemorySource) ClinVar(w interval.Window) ([]Candidate, error) {
	return inWindow(m.clinvar, w), nil
}

func inWindow(idx *interval.Index[Candidate], w interval.Window) []Candidate {
	tree := idx.Tree(w.Contig)
	if tree == nil {
		return nil
	}
	var out []Candidate
	for _, c := range tree.Overlapping(w.StartMin, w.EndMax) {
		if w.Contains(c.Interval) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Interval.ToOneBased(), out[j].Interval.ToOneBased()
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		if a.End != b.End {
			return a.End < b.End
		}
		return out[i].ID < out[j].ID
	})
	return out
}
