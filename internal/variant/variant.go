// Package variant holds per-sample genotype calls and the evaluation record
// produced for each decomposed allele.
package variant

import (
	"strconv"
	"strings"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/annotate"
	"github.com/inodb/vibe-prio/internal/popdata"
)

// AlleleCall is a genotype allele scoped to a single alternate allele.
type AlleleCall uint8

const (
	NoCall AlleleCall = iota
	Ref
	Alt
	// OtherAlt is an allele present at the site but not the one evaluated.
	OtherAlt
)

func (c AlleleCall) String() string {
	switch c {
	case Ref:
		return "0"
	case Alt:
		return "1"
	case OtherAlt:
		return "-"
	}
	return "."
}

// Zygosity summarises a genotype with respect to the evaluated allele.
type Zygosity uint8

const (
	ZygosityUnknown Zygosity = iota
	HomRef
	Het
	HomAlt
	Hemizygous
)

func (z Zygosity) String() string {
	switch z {
	case HomRef:
		return "HOM_REF"
	case Het:
		return "HET"
	case HomAlt:
		return "HOM_ALT"
	case Hemizygous:
		return "HEMI"
	}
	return "UNKNOWN"
}

// SampleGenotype is one sample's calls for the evaluated allele. CN and MCC
// are -1 when the sample carries no copy-number field.
type SampleGenotype struct {
	Calls  []AlleleCall
	Phased bool
	CN     int
	MCC    int
}

// Empty returns a genotype with no calls and no copy-number signal.
func Empty() SampleGenotype {
	return SampleGenotype{CN: -1, MCC: -1}
}

// HasAlt reports whether any call is the evaluated allele.
func (g SampleGenotype) HasAlt() bool {
	for _, c := range g.Calls {
		if c == Alt {
			return true
		}
	}
	return false
}

// HasCopyNumber reports whether the sample carries a CN value.
func (g SampleGenotype) HasCopyNumber() bool {
	return g.CN >= 0
}

// Zygosity classifies the calls. Copy-number-only samples report Het when
// CN differs from 2 and HomRef when it equals 2.
func (g SampleGenotype) Zygosity() Zygosity {
	if len(g.Calls) == 0 {
		if !g.HasCopyNumber() {
			return ZygosityUnknown
		}
		if g.CN == 2 {
			return HomRef
		}
		return Het
	}
	alts, refs := 0, 0
	for _, c := range g.Calls {
		switch c {
		case Alt:
			alts++
		case Ref:
			refs++
		case NoCall:
			if len(g.Calls) > 1 {
				continue
			}
			return ZygosityUnknown
		}
	}
	switch {
	case alts == 0 && refs == 0:
		return ZygosityUnknown
	case alts == 0:
		return HomRef
	case len(g.Calls) == 1:
		return Hemizygous
	case alts == len(g.Calls):
		return HomAlt
	}
	return Het
}

// String renders the calls the way a VCF GT field would, with "-" for
// alleles that belong to another alternate.
func (g SampleGenotype) String() string {
	if len(g.Calls) == 0 {
		if g.HasCopyNumber() {
			return "CN" + strconv.Itoa(g.CN)
		}
		return "."
	}
	sep := "/"
	if g.Phased {
		sep = "|"
	}
	parts := make([]string, len(g.Calls))
	for i, c := range g.Calls {
		parts[i] = c.String()
	}
	return strings.Join(parts, sep)
}

// Evaluation is the resolved result for one allele and one gene.
type Evaluation struct {
	Variant allele.Variant
	Gene    annotate.GeneAnnotation
	// Annotated is false when the annotation step produced nothing, e.g.
	// for unknown contigs or engine failures.
	Annotated     bool
	Frequency     popdata.FrequencyData
	Pathogenicity popdata.PathogenicityData
	Whitelisted   bool

	RecordID string
	Chrom    string // contig name as written in the input
	Qual     float64
	Filter   string
	AltIndex int // 1-based index into the record's ALT list

	Samples   []string
	Genotypes []SampleGenotype

	FrequencyScore     float64
	PathogenicityScore float64
	Score              float64
}

// GeneSymbol returns the annotated gene symbol, or "".
func (e *Evaluation) GeneSymbol() string {
	return e.Gene.GeneSymbol
}

// Effect returns the annotated effect, or sequence_variant when unannotated.
func (e *Evaluation) Effect() annotate.Effect {
	if !e.Annotated || e.Gene.Effect == "" {
		return annotate.EffectSequenceVariant
	}
	return e.Gene.Effect
}

// Genotype returns the genotype of the named sample.
func (e *Evaluation) Genotype(sample string) (SampleGenotype, bool) {
	for i, s := range e.Samples {
		if s == sample && i < len(e.Genotypes) {
			return e.Genotypes[i], true
		}
	}
	return SampleGenotype{}, false
}

// PassedFilter reports whether the input record passed all filters.
func (e *Evaluation) PassedFilter() bool {
	return e.Filter == "" || e.Filter == "." || e.Filter == "PASS"
}
