// Package allele normalizes and classifies single-allele variants.
package allele

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/interval"
)

// Key is the canonical identity of an allele used for every store lookup.
// Two variants are data-equivalent iff their keys are equal.
type Key struct {
	Contig int
	Pos    int64
	Ref    string
	Alt    string
}

// String renders the key as "chrom-pos-ref-alt".
func (k Key) String() string {
	return fmt.Sprintf("%s-%d-%s-%s", contig.Name(k.Contig), k.Pos, k.Ref, k.Alt)
}

// Variant is a normalized single-allele variant. It is immutable once
// returned by Normalize or NormalizeStructural.
type Variant struct {
	Contig int
	Pos    int64 // 1-based start
	End    int64 // 1-based inclusive end
	Ref    string
	Alt    string
	// ChangeLength is negative for net deletions and positive for net
	// insertions and duplications.
	ChangeLength int64
	Type         VariantType
	Symbolic     bool
	CIPos        [2]int64
	CIEnd        [2]int64
}

// Key returns the lookup key for the variant.
func (v Variant) Key() Key {
	return Key{Contig: v.Contig, Pos: v.Pos, Ref: v.Ref, Alt: v.Alt}
}

// Interval returns the reference span of the variant.
func (v Variant) Interval() interval.Interval {
	return interval.New(v.Contig, v.Pos, v.End)
}

// Length returns the reference span length, at least 1.
func (v Variant) Length() int64 {
	return v.Interval().Length()
}

// IsStructural reports whether the variant is described by type and span.
func (v Variant) IsStructural() bool {
	return v.Symbolic || v.Type.IsStructural()
}

// Trim removes the shared suffix and then the shared prefix of ref and alt,
// keeping at least one base in each. pos advances by the number of leading
// bases removed.
func Trim(pos int64, ref, alt string) (int64, string, string) {
	for len(ref) > 1 && len(alt) > 1 && ref[len(ref)-1] == alt[len(alt)-1] {
		ref, alt = ref[:len(ref)-1], alt[:len(alt)-1]
	}
	for len(ref) > 1 && len(alt) > 1 && ref[0] == alt[0] {
		ref, alt = ref[1:], alt[1:]
		pos++
	}
	return pos, ref, alt
}

// Normalize builds a minimal sequence-level variant from raw VCF alleles.
func Normalize(contigID int, pos int64, ref, alt string) (Variant, error) {
	ref, alt = strings.ToUpper(ref), strings.ToUpper(alt)
	malformed := func(reason string) error {
		return &MalformedAlleleError{Contig: contigID, Pos: pos, Ref: ref, Alt: alt, Reason: reason}
	}
	if IsSymbolic(alt) {
		return Variant{}, malformed("symbolic allele")
	}
	if err := validate(ref); err != "" {
		return Variant{}, malformed("ref " + err)
	}
	if err := validate(alt); err != "" {
		return Variant{}, malformed("alt " + err)
	}
	if ref == alt {
		return Variant{}, malformed("ref and alt are identical")
	}
	if pos < 1 {
		return Variant{}, malformed("position must be positive")
	}

	p, r, a := Trim(pos, ref, alt)
	return Variant{
		Contig:       contigID,
		Pos:          p,
		End:          p + int64(len(r)) - 1,
		Ref:          r,
		Alt:          a,
		ChangeLength: int64(len(a) - len(r)),
		Type:         Classify(r, a),
	}, nil
}

func validate(s string) string {
	switch s {
	case "":
		return "is empty"
	case ".":
		return "is missing"
	case "*":
		return "is an upstream deletion"
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case 'A', 'C', 'G', 'T', 'N':
		default:
			return fmt.Sprintf("has invalid base %q", s[i])
		}
	}
	return ""
}

// IsSymbolic reports whether alt is a symbolic (<DEL>) or breakend allele.
func IsSymbolic(alt string) bool {
	if strings.HasPrefix(alt, "<") && strings.HasSuffix(alt, ">") {
		return true
	}
	if strings.ContainsAny(alt, "[]") {
		return true
	}
	return len(alt) > 1 && (alt[0] == '.' || alt[len(alt)-1] == '.')
}

// ReverseComplement returns the reverse complement of a DNA sequence.
func ReverseComplement(seq string) string {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = Complement(seq[n-1-i])
	}
	return string(out)
}

// Complement returns the complement of a single base.
func Complement(base byte) byte {
	switch base {
	case 'A':
		return 'T'
	case 'T':
		return 'A'
	case 'G':
		return 'C'
	case 'C':
		return 'G'
	case 'a':
		return 't'
	case 't':
		return 'a'
	case 'g':
		return 'c'
	case 'c':
		return 'g'
	}
	return 'N'
}

// MalformedAlleleError reports an allele that cannot be normalized.
type MalformedAlleleError struct {
	Contig int
	Pos    int64
	Ref    string
	Alt    string
	Reason string
}

func (e *MalformedAlleleError) Error() string {
	return fmt.Sprintf("malformed allele %s:%d %s>%s: %s", contig.Name(e.Contig), e.Pos, e.Ref, e.Alt, e.Reason)
}
