package popdata

import (
	"fmt"
	"math"
	"strings"
)

// PathogenicitySource names a variant effect predictor.
type PathogenicitySource string

const (
	PolyPhen       PathogenicitySource = "POLYPHEN"
	SIFT           PathogenicitySource = "SIFT"
	MutationTaster PathogenicitySource = "MUTATION_TASTER"
	REVEL          PathogenicitySource = "REVEL"
	MVP            PathogenicitySource = "MVP"
	AlphaMissense  PathogenicitySource = "ALPHA_MISSENSE"
	MCAP           PathogenicitySource = "M_CAP"
	MPC            PathogenicitySource = "MPC"
	PrimateAI      PathogenicitySource = "PRIMATE_AI"
	REMM           PathogenicitySource = "REMM"
	CADD           PathogenicitySource = "CADD"
	SpliceAI       PathogenicitySource = "SPLICE_AI"
)

// AllPathogenicitySources lists every known predictor.
var AllPathogenicitySources = []PathogenicitySource{
	PolyPhen, SIFT, MutationTaster, REVEL, MVP, AlphaMissense, MCAP, MPC, PrimateAI,
	REMM, CADD, SpliceAI,
}

// ParsePathogenicitySource resolves a predictor name case-insensitively.
func ParsePathogenicitySource(s string) (PathogenicitySource, error) {
	u := PathogenicitySource(strings.ToUpper(strings.TrimSpace(s)))
	for _, src := range AllPathogenicitySources {
		if src == u {
			return src, nil
		}
	}
	return "", fmt.Errorf("unknown pathogenicity source %q", s)
}

// MissenseOnly reports whether the predictor is trained only on missense
// variants.
func (s PathogenicitySource) MissenseOnly() bool {
	switch s {
	case PolyPhen, SIFT, MutationTaster, REVEL, MVP, AlphaMissense, MCAP, MPC, PrimateAI:
		return true
	}
	return false
}

// NonCodingOnly reports whether the predictor scores only non-coding variants.
func (s PathogenicitySource) NonCodingOnly() bool {
	return s == REMM
}

// NormalizeScore maps a predictor's raw score onto [0, 1] with 1 the most
// pathogenic. SIFT is inverted and CADD PHRED scores are converted back to
// a rank fraction.
func NormalizeScore(s PathogenicitySource, raw float64) float32 {
	var v float64
	switch s {
	case SIFT:
		v = 1 - raw
	case CADD:
		v = 1 - math.Pow(10, -raw/10)
	default:
		v = raw
	}
	return float32(math.Max(0, math.Min(1, v)))
}

// Pathogenicity is one predictor score, normalized so that 1 is most
// pathogenic.
type Pathogenicity struct {
	Source PathogenicitySource
	Score  float32
}

// PathogenicityData is the set of predictor scores and the ClinVar record
// for one allele. The zero value means "not looked up".
type PathogenicityData struct {
	ClinVar  ClinVarData
	scores   []Pathogenicity
	resolved bool
}

// EmptyPathogenicity returns the resolved-but-empty sentinel.
func EmptyPathogenicity() PathogenicityData {
	return PathogenicityData{resolved: true}
}

// NewPathogenicityData builds resolved data, keeping the first score seen
// for each predictor.
func NewPathogenicityData(clinvar ClinVarData, scores ...Pathogenicity) PathogenicityData {
	pd := PathogenicityData{ClinVar: clinvar, resolved: true}
	for _, s := range scores {
		pd.add(s)
	}
	return pd
}

func (pd *PathogenicityData) add(p Pathogenicity) {
	for _, existing := range pd.scores {
		if existing.Source == p.Source {
			return
		}
	}
	pd.scores = append(pd.scores, p)
}

// IsResolved reports whether a lookup has been performed.
func (pd PathogenicityData) IsResolved() bool { return pd.resolved }

// IsEmpty reports whether no score and no ClinVar record is known.
func (pd PathogenicityData) IsEmpty() bool { return len(pd.scores) == 0 && pd.ClinVar.IsEmpty() }

// Scores returns a copy of the predictor scores.
func (pd PathogenicityData) Scores() []Pathogenicity {
	out := make([]Pathogenicity, len(pd.scores))
	copy(out, pd.scores)
	return out
}

// Get returns the score of one predictor.
func (pd PathogenicityData) Get(src PathogenicitySource) (Pathogenicity, bool) {
	for _, p := range pd.scores {
		if p.Source == src {
			return p, true
		}
	}
	return Pathogenicity{}, false
}

// MostPathogenic returns the highest scoring predictor.
func (pd PathogenicityData) MostPathogenic() (Pathogenicity, bool) {
	if len(pd.scores) == 0 {
		return Pathogenicity{}, false
	}
	best := pd.scores[0]
	for _, p := range pd.scores[1:] {
		if p.Score > best.Score {
			best = p
		}
	}
	return best, true
}

// Filter keeps only the given predictors. The ClinVar record is retained.
func (pd PathogenicityData) Filter(sources map[PathogenicitySource]bool) PathogenicityData {
	out := PathogenicityData{ClinVar: pd.ClinVar, resolved: pd.resolved}
	for _, p := range pd.scores {
		if sources[p.Source] {
			out.scores = append(out.scores, p)
		}
	}
	return out
}

// Merge unions two data sets; entries already in pd win.
func (pd PathogenicityData) Merge(other PathogenicityData) PathogenicityData {
	out := PathogenicityData{ClinVar: pd.ClinVar, resolved: pd.resolved || other.resolved}
	if out.ClinVar.IsEmpty() {
		out.ClinVar = other.ClinVar
	}
	out.scores = append(out.scores, pd.scores...)
	for _, p := range other.scores {
		out.add(p)
	}
	return out
}
