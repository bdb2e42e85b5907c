package allele

import (
	"strconv"
	"strings"
)

// VariantType classifies the shape of a normalized variant.
type VariantType uint8

const (
	UnknownType VariantType = iota
	SNV
	MNV
	Deletion
	Insertion
	Duplication
	Inversion
	Delins

	// Symbolic structural types.
	SVDeletion
	MobileElementDeletion
	SVDuplication
	TandemDuplication
	SVInsertion
	MobileElementInsertion
	SVInversion
	CNV
	CNVGain
	CNVLoss
	Breakend
)

var typeNames = [...]string{
	UnknownType:            "UNKNOWN",
	SNV:                    "SNV",
	MNV:                    "MNV",
	Deletion:               "DELETION",
	Insertion:              "INSERTION",
	Duplication:            "DUPLICATION",
	Inversion:              "INVERSION",
	Delins:                 "DELINS",
	SVDeletion:             "DEL",
	MobileElementDeletion:  "DEL:ME",
	SVDuplication:          "DUP",
	TandemDuplication:      "DUP:TANDEM",
	SVInsertion:            "INS",
	MobileElementInsertion: "INS:ME",
	SVInversion:            "INV",
	CNV:                    "CNV",
	CNVGain:                "CNV:GAIN",
	CNVLoss:                "CNV:LOSS",
	Breakend:               "BND",
}

func (t VariantType) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return typeNames[UnknownType]
}

// IsStructural reports whether t is one of the symbolic structural types.
func (t VariantType) IsStructural() bool {
	return t >= SVDeletion && t <= Breakend
}

// Base collapses structural subtypes onto the type used to match population
// catalogue entries.
func (t VariantType) Base() VariantType {
	switch t {
	case MobileElementDeletion:
		return SVDeletion
	case TandemDuplication:
		return SVDuplication
	case MobileElementInsertion:
		return SVInsertion
	case CNVGain, CNVLoss:
		return CNV
	}
	return t
}

// ParseType is the inverse of VariantType.String. Unrecognised names fall
// back to ClassifySymbolic so catalogue spellings such as "DEL:ME:ALU" work.
func ParseType(s string) VariantType {
	u := strings.ToUpper(strings.TrimSpace(s))
	for t, name := range typeNames {
		if name == u {
			return VariantType(t)
		}
	}
	return ClassifySymbolic(u, "")
}

// Classify assigns a sequence variant type. Tests run in priority order:
// deletion, inversion, duplication, insertion, substitution, delins.
func Classify(ref, alt string) VariantType {
	rl, al := len(ref), len(alt)
	switch {
	case rl > al && (strings.HasPrefix(ref, alt) || strings.HasSuffix(ref, alt)):
		return Deletion
	case rl == al && rl > 1 && alt == ReverseComplement(ref):
		return Inversion
	case al > rl && rl > 0 && strings.HasPrefix(alt, ref) && repeatsOf(alt, ref[0]):
		return Duplication
	case al > rl && (strings.HasPrefix(alt, ref) || strings.HasSuffix(alt, ref)):
		return Insertion
	case rl == al && rl == 1:
		return SNV
	case rl == al:
		return MNV
	}
	return Delins
}

func repeatsOf(s string, b byte) bool {
	for i := 0; i < len(s); i++ {
		if s[i] != b {
			return false
		}
	}
	return true
}

// ClassifySymbolic maps a symbolic ALT tag (with or without angle brackets)
// and an SVTYPE value to a structural type. The tag wins when both resolve.
func ClassifySymbolic(tag, svtype string) VariantType {
	if t := symbolicType(tag); t != UnknownType {
		return t
	}
	return symbolicType(svtype)
}

func symbolicType(s string) VariantType {
	s = strings.ToUpper(strings.Trim(strings.TrimSpace(s), "<>"))
	switch {
	case s == "":
		return UnknownType
	case s == "DEL":
		return SVDeletion
	case strings.HasPrefix(s, "DEL:ME"):
		return MobileElementDeletion
	case s == "DUP:TANDEM":
		return TandemDuplication
	case s == "DUP" || strings.HasPrefix(s, "DUP:"):
		return SVDuplication
	case strings.HasPrefix(s, "INS:ME"):
		return MobileElementInsertion
	case s == "INS" || strings.HasPrefix(s, "INS:"):
		return SVInsertion
	case s == "INV":
		return SVInversion
	case s == "CNV":
		return CNV
	case s == "CNV:GAIN":
		return CNVGain
	case s == "CNV:LOSS":
		return CNVLoss
	case s == "BND" || s == "TRA":
		return Breakend
	case strings.HasPrefix(s, "CN"):
		n, err := strconv.Atoi(s[2:])
		if err != nil || n < 0 {
			return UnknownType
		}
		switch {
		case n < 2:
			return CNVLoss
		case n > 2:
			return CNVGain
		}
		return CNV
	case strings.HasPrefix(s, "DEL:"):
		return SVDeletion
	}
	return UnknownType
}

// StructuralInput carries the raw fields of a symbolic VCF allele.
type StructuralInput struct {
	Contig int
	Pos    int64
	Ref    string
	Alt    string
	// End is the INFO END value, or 0 when absent.
	End int64
	// SVLen is the INFO SVLEN value, or 0 when absent.
	SVLen  int64
	SVType string
	CIPos  [2]int64
	CIEnd  [2]int64
}

// NormalizeStructural builds a symbolic variant from END, SVLEN and SVTYPE.
func NormalizeStructural(in StructuralInput) (Variant, error) {
	ref, alt := strings.ToUpper(in.Ref), strings.ToUpper(in.Alt)
	malformed := func(reason string) error {
		return &MalformedAlleleError{Contig: in.Contig, Pos: in.Pos, Ref: ref, Alt: alt, Reason: reason}
	}
	if in.Pos < 1 {
		return Variant{}, malformed("position must be positive")
	}
	if !IsSymbolic(alt) {
		return Variant{}, malformed("not a symbolic allele")
	}

	var vt VariantType
	if strings.HasPrefix(alt, "<") {
		vt = ClassifySymbolic(alt, in.SVType)
	} else {
		vt = Breakend
	}
	if vt == UnknownType {
		return Variant{}, malformed("unrecognised structural type")
	}

	span := in.SVLen
	if span < 0 {
		span = -span
	}
	end := in.End
	if end == 0 {
		switch {
		case vt.Base() == SVInsertion || vt == Breakend:
			end = in.Pos
		case span > 0:
			end = in.Pos + span
		default:
			end = in.Pos
		}
	}
	if end < in.Pos {
		return Variant{}, malformed("END precedes POS")
	}

	change := in.SVLen
	switch vt.Base() {
	case SVDeletion:
		if change == 0 {
			change = end - in.Pos
		}
		if change > 0 {
			change = -change
		}
	case SVDuplication:
		if change == 0 {
			change = end - in.Pos
		}
		if change < 0 {
			change = -change
		}
	case CNV:
		switch {
		case vt == CNVLoss && change == 0:
			change = -(end - in.Pos)
		case vt == CNVGain && change == 0:
			change = end - in.Pos
		}
	case SVInversion, Breakend:
		change = 0
	}

	return Variant{
		Contig:       in.Contig,
		Pos:          in.Pos,
		End:          end,
		Ref:          ref,
		Alt:          alt,
		ChangeLength: change,
		Type:         vt,
		Symbolic:     true,
		CIPos:        in.CIPos,
		CIEnd:        in.CIEnd,
	}, nil
}
