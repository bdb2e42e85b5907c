package prioritize

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/variant"
)

// InheritanceMode is a mode of inheritance a gene is scored under.
type InheritanceMode string

const (
	AutosomalDominant  InheritanceMode = "AD"
	AutosomalRecessive InheritanceMode = "AR"
	XDominant          InheritanceMode = "XD"
	XRecessive         InheritanceMode = "XR"
	Mitochondrial      InheritanceMode = "MT"
	AnyMode            InheritanceMode = "ANY"
)

// AllModes lists every inheritance mode.
var AllModes = []InheritanceMode{
	AutosomalDominant, AutosomalRecessive, XDominant, XRecessive, Mitochondrial, AnyMode,
}

// ParseInheritanceMode accepts mode abbreviations case-insensitively.
func ParseInheritanceMode(s string) (InheritanceMode, error) {
	m := InheritanceMode(strings.ToUpper(strings.TrimSpace(s)))
	for _, mode := range AllModes {
		if mode == m {
			return mode, nil
		}
	}
	return "", fmt.Errorf("unknown inheritance mode %q", s)
}

// IsRecessive reports whether two affected alleles are required.
func (m InheritanceMode) IsRecessive() bool {
	return m == AutosomalRecessive || m == XRecessive
}

func (m InheritanceMode) allowsContig(id int) bool {
	switch m {
	case AutosomalDominant, AutosomalRecessive:
		return id >= 1 && id <= 22
	case XDominant, XRecessive:
		return id == contig.X
	case Mitochondrial:
		return id == contig.M
	}
	return true
}

// alleleWeight returns how many affected alleles the proband carries for e
// under mode m: 0 when incompatible, 2 for homozygous or hemizygous calls in
// recessive modes, 1 otherwise. An absent or unknown proband genotype is
// treated as one affected allele.
func alleleWeight(m InheritanceMode, e *variant.Evaluation, proband string) int {
	if !m.allowsContig(e.Variant.Contig) {
		return 0
	}
	z := variant.ZygosityUnknown
	if g, ok := e.Genotype(proband); ok {
		z = g.Zygosity()
	}
	switch z {
	case variant.HomRef:
		return 0
	case variant.HomAlt, variant.Hemizygous:
		if m.IsRecessive() {
			return 2
		}
	}
	return 1
}

// Compatible reports whether the proband's genotype for e fits mode m.
func Compatible(m InheritanceMode, e *variant.Evaluation, proband string) bool {
	return alleleWeight(m, e, proband) > 0
}
