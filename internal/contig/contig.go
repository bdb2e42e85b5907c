// Package contig maps chromosome names to stable small integer identifiers.
package contig

import (
	"fmt"
	"strconv"
	"strings"
)

// Well-known contig identifiers. Autosomes use their own number (1-22).
const (
	Unknown = 0
	X       = 23
	Y       = 24
	M       = 25
)

// Contig describes a single chromosome of a genome assembly.
type Contig struct {
	ID     int
	Name   string
	Length int64
}

// Assembly identifies a supported human genome assembly.
type Assembly int

const (
	HG19 Assembly = iota + 1
	HG38
)

func (a Assembly) String() string {
	switch a {
	case HG19:
		return "hg19"
	case HG38:
		return "hg38"
	}
	return "unknown"
}

// ParseAssembly accepts hg19/GRCh37 and hg38/GRCh38 (case-insensitive).
func ParseAssembly(s string) (Assembly, error) {
	switch strings.ToLower(s) {
	case "hg19", "grch37":
		return HG19, nil
	case "hg38", "grch38":
		return HG38, nil
	}
	return 0, fmt.Errorf("unsupported genome assembly %q", s)
}

var names = func() [26]string {
	var n [26]string
	for i := 1; i <= 22; i++ {
		n[i] = strconv.Itoa(i)
	}
	n[X], n[Y], n[M] = "X", "Y", "MT"
	return n
}()

// lengths are indexed by contig ID; index 0 is unused.
var lengths = map[Assembly][26]int64{
	HG19: {0,
		249250621, 243199373, 198022430, 191154276, 180915260, 171115067,
		159138663, 146364022, 141213431, 135534747, 135006516, 133851895,
		115169878, 107349540, 102531392, 90354753, 81195210, 78077248,
		59128983, 63025520, 48129895, 51304566,
		155270560, 59373566, 16569,
	},
	HG38: {0,
		248956422, 242193529, 198295559, 190214555, 181538259, 170805979,
		159345973, 145138636, 138394717, 133797422, 135086622, 133275309,
		114364328, 107043718, 101991189, 90338345, 83257441, 80373285,
		58617616, 64444167, 46709983, 50818468,
		156040895, 57227415, 16569,
	},
}

// ID returns the contig identifier for a chromosome name, or Unknown (0).
func ID(name string) int {
	n := strings.TrimSpace(name)
	if len(n) > 3 && strings.EqualFold(n[:3], "chr") {
		n = n[3:]
	}
	switch strings.ToUpper(n) {
	case "X":
		return X
	case "Y":
		return Y
	case "M", "MT":
		return M
	}
	if id, err := strconv.Atoi(n); err == nil {
		if id >= 1 && id <= 22 {
			return id
		}
		return Unknown
	}
	return accessionID(n)
}

// accessionID handles RefSeq (NC_000001.11) and GenBank (CM000663.2) names.
// Versions are ignored so both assemblies resolve through the same table.
func accessionID(n string) int {
	base := n
	if i := strings.IndexByte(base, '.'); i >= 0 {
		base = base[:i]
	}
	switch {
	case base == "NC_012920":
		return M
	case strings.HasPrefix(base, "NC_0000"):
		id, err := strconv.Atoi(base[len("NC_0000"):])
		if err == nil && id >= 1 && id <= Y {
			return id
		}
	case strings.HasPrefix(base, "CM000"):
		num, err := strconv.Atoi(base[len("CM000"):])
		if err == nil && num >= 663 && num <= 686 {
			return num - 662
		}
	}
	return Unknown
}

// Name returns the canonical name for a contig ID, or "" if unknown.
func Name(id int) string {
	if id <= 0 || id >= len(names) {
		return ""
	}
	return names[id]
}

// Lookup returns the contig for an ID in the given assembly.
func Lookup(a Assembly, id int) (Contig, bool) {
	ls, ok := lengths[a]
	if !ok || id <= 0 || id >= len(ls) {
		return Contig{}, false
	}
	return Contig{ID: id, Name: names[id], Length: ls[id]}, true
}

// Length returns the contig length in the given assembly, or 0 if unknown.
func Length(a Assembly, id int) int64 {
	c, _ := Lookup(a, id)
	return c.Length
}

// Resolve is like ID but reports unrecognised names as an error.
func Resolve(name string) (int, error) {
	if id := ID(name); id != Unknown {
		return id, nil
	}
	return Unknown, &UnknownContigError{Name: name}
}

// UnknownContigError is returned for chromosome names missing from the registry.
type UnknownContigError struct {
	Name string
}

func (e *UnknownContigError) Error() string {
	return fmt.Sprintf("unknown contig %q", e.Name)
}
