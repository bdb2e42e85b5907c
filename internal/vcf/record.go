package vcf

import (
	"strconv"
	"strings"
)

// Record is a single VCF data line with all of its alternate alleles.
type Record struct {
	Chrom  string                 // Chromosome name (e.g., "12", "chr12")
	Pos    int64                  // 1-based genomic position
	ID     string                 // Variant identifier (e.g., rs ID)
	Ref    string                 // Reference allele
	Alt    string                 // Comma-separated alternate alleles
	Qual   float64                // Quality score
	Filter string                 // Filter status (PASS or filter name)
	Info   map[string]interface{} // INFO field key-value pairs
	Format []string               // FORMAT keys, GT first when present
	// Samples holds one slice of FORMAT values per sample column.
	Samples [][]string

	RawInfo       string // INFO column as read
	SampleColumns string // FORMAT and sample columns as read, tab-joined
}

// Alts returns the alternate alleles in input order.
func (r *Record) Alts() []string {
	if r.Alt == "" {
		return nil
	}
	return strings.Split(r.Alt, ",")
}

// InfoString returns the raw value of an INFO key.
func (r *Record) InfoString(key string) (string, bool) {
	v, ok := r.Info[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// InfoFlag reports whether a flag-type INFO key is present.
func (r *Record) InfoFlag(key string) bool {
	_, ok := r.Info[key]
	return ok
}

// InfoInt parses the first comma-separated element of an INFO value.
func (r *Record) InfoInt(key string) (int64, bool) {
	return r.InfoIntAt(key, 0)
}

// InfoIntAt parses the i-th comma-separated element of an INFO value, as
// used for Number=A fields where element i belongs to ALT i+1.
func (r *Record) InfoIntAt(key string, i int) (int64, bool) {
	s, ok := r.InfoString(key)
	if !ok || i < 0 {
		return 0, false
	}
	parts := strings.Split(s, ",")
	if i >= len(parts) {
		return 0, false
	}
	n, err := strconv.ParseInt(parts[i], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// ConfidenceInterval parses a two-element interval such as CIPOS=-10,20.
// Missing or malformed values yield [0, 0].
func (r *Record) ConfidenceInterval(key string) [2]int64 {
	s, ok := r.InfoString(key)
	if !ok {
		return [2]int64{}
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return [2]int64{}
	}
	lo, err1 := strconv.ParseInt(parts[0], 10, 64)
	hi, err2 := strconv.ParseInt(parts[1], 10, 64)
	if err1 != nil || err2 != nil {
		return [2]int64{}
	}
	return [2]int64{lo, hi}
}

// NumSamples returns the number of sample columns.
func (r *Record) NumSamples() int {
	return len(r.Samples)
}

// SampleValue returns the FORMAT value for key in the given sample column.
// Missing keys, trailing dropped fields and "." all yield "".
func (r *Record) SampleValue(sample int, key string) string {
	if sample < 0 || sample >= len(r.Samples) {
		return ""
	}
	for i, k := range r.Format {
		if k != key {
			continue
		}
		fields := r.Samples[sample]
		if i >= len(fields) || fields[i] == "." {
			return ""
		}
		return fields[i]
	}
	return ""
}
