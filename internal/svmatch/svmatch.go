// Package svmatch associates imprecise structural variants with population
// catalogue entries by boundary-margin search and Jaccard similarity.
package svmatch

import (
	"math"

	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/interval"
	"github.com/inodb/vibe-prio/internal/popdata"
)

// DefaultMinSimilarity is the Jaccard threshold used when none is configured.
const DefaultMinSimilarity = 0.85

// Candidate is one catalogue entry returned by a Source.
type Candidate struct {
	// Source is the frequency catalogue; empty for ClinVar entries.
	Source   popdata.FrequencySource
	Interval interval.Interval
	Type     allele.VariantType
	ID       string
	// Count is the allele or observation count, 0 when unknown.
	Count        int
	Percent      float32
	HasFrequency bool
	ClinSig      popdata.ClinSig
}

// Source returns catalogue entries whose boundaries fall inside a window.
// Implementations return candidates in a stable order.
type Source interface {
	Frequencies(w interval.Window) ([]Candidate, error)
	ClinVar(w interval.Window) ([]Candidate, error)
}

// Matcher finds the best catalogue match for structural variants.
type Matcher struct {
	sources       []Source
	assembly      contig.Assembly
	minSimilarity float64
	logger        *zap.Logger
}

// New creates a matcher over sources, queried in the given order.
// minSimilarity outside (0, 1] falls back to DefaultMinSimilarity.
func New(assembly contig.Assembly, minSimilarity float64, sources ...Source) *Matcher {
	if minSimilarity <= 0 || minSimilarity > 1 || math.IsNaN(minSimilarity) {
		minSimilarity = DefaultMinSimilarity
	}
	return &Matcher{
		sources:       sources,
		assembly:      assembly,
		minSimilarity: minSimilarity,
		logger:        zap.NewNop(),
	}
}

// SetLogger sets the logger for source query failures.
func (m *Matcher) SetLogger(l *zap.Logger) {
	m.logger = l
}

// MinSimilarity returns the configured Jaccard threshold.
func (m *Matcher) MinSimilarity() float64 {
	return m.minSimilarity
}

// Window returns the tolerance window searched for v.
func (m *Matcher) Window(v allele.Variant) interval.Window {
	return interval.SearchWindow(v.Interval(), m.minSimilarity, contig.Length(m.assembly, v.Contig))
}

type scored struct {
	c     Candidate
	score float64
}

// Frequency returns the best matching frequency record for v among the
// requested catalogues. Candidates score sqrt(count * jaccard). A best match
// without a numeric frequency yields an identifier-only result.
func (m *Matcher) Frequency(v allele.Variant, requested map[popdata.FrequencySource]bool) popdata.FrequencyData {
	if len(requested) == 0 || v.Contig == contig.Unknown {
		return popdata.EmptyFrequency()
	}
	cands := m.collect(v, func(s Source, w interval.Window) ([]Candidate, error) {
		return s.Frequencies(w)
	})

	var pool []scored
	for _, c := range cands {
		if !requested[c.Source] {
			continue
		}
		j := interval.Jaccard(v.Interval(), c.Interval)
		if j < m.minSimilarity {
			continue
		}
		pool = append(pool, scored{c: c, score: math.Sqrt(float64(c.Count) * j)})
	}
	top, ok := best(pool)
	if !ok {
		return popdata.EmptyFrequency()
	}
	if !top.HasFrequency {
		return popdata.NewFrequencyData(top.ID)
	}
	return popdata.NewFrequencyData(top.ID, popdata.Frequency{
		Source:  top.Source,
		Percent: top.Percent,
		AC:      top.Count,
	})
}

// Pathogenicity returns the ClinVar interpretation of the most similar
// catalogued structural variant.
func (m *Matcher) Pathogenicity(v allele.Variant) popdata.PathogenicityData {
	if v.Contig == contig.Unknown {
		return popdata.EmptyPathogenicity()
	}
	cands := m.collect(v, func(s Source, w interval.Window) ([]Candidate, error) {
		return s.ClinVar(w)
	})

	var pool []scored
	for _, c := range cands {
		j := interval.Jaccard(v.Interval(), c.Interval)
		if j < m.minSimilarity {
			continue
		}
		pool = append(pool, scored{c: c, score: j})
	}
	top, ok := best(pool)
	if !ok {
		return popdata.EmptyPathogenicity()
	}
	return popdata.NewPathogenicityData(popdata.ClinVarData{
		AlleleID:     top.ID,
		Significance: top.ClinSig,
	})
}

// collect queries every source and keeps candidates of the same base type.
func (m *Matcher) collect(v allele.Variant, query func(Source, interval.Window) ([]Candidate, error)) []Candidate {
	w := m.Window(v)
	base := v.Type.Base()
	var out []Candidate
	for i, s := range m.sources {
		cands, err := query(s, w)
		if err != nil {
			m.logger.Debug("structural variant query failed",
				zap.Int("source", i),
				zap.String("variant", v.Key().String()),
				zap.Error(err))
			continue
		}
		for _, c := range cands {
			if c.Type.Base() == base {
				out = append(out, c)
			}
		}
	}
	return out
}

// best groups candidates by score rounded to four decimals and returns the
// first member of the highest group.
func best(pool []scored) (Candidate, bool) {
	if len(pool) == 0 {
		return Candidate{}, false
	}
	top := pool[0]
	topScore := round4(top.score)
	for _, s := range pool[1:] {
		if r := round4(s.score); r > topScore {
			top, topScore = s, r
		}
	}
	return top.c, true
}

func round4(x float64) float64 {
	return math.RoundToEven(x*1e4) / 1e4
}
