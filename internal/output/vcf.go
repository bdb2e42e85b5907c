package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-prio/internal/variant"
	"github.com/inodb/vibe-prio/internal/vcf"
)

// prioFields are the PRIO sub-fields in output order.
var prioFields = []string{
	"Allele",
	"Gene",
	"Gene_ID",
	"Effect",
	"IMPACT",
	"MAX_FREQ",
	"WHITELISTED",
	"FREQ_SCORE",
	"PATH_SCORE",
	"SCORE",
}

// VCFWriter copies input records to VCF output with a PRIO INFO field
// holding one entry per evaluation.
type VCFWriter struct {
	w           *bufio.Writer
	headerLines []string // original VCF header lines (## and #CHROM)
}

// NewVCFWriter creates a new VCF output writer.
func NewVCFWriter(w io.Writer, headerLines []string) *VCFWriter {
	return &VCFWriter{
		w:           bufio.NewWriter(w),
		headerLines: headerLines,
	}
}

// WriteHeader writes the original header lines with a PRIO INFO line
// inserted before #CHROM. An existing PRIO definition is replaced.
func (vw *VCFWriter) WriteHeader() error {
	prioLine := fmt.Sprintf(
		"##INFO=<ID=PRIO,Number=.,Type=String,Description=\"Variant prioritization from vibe-prio. Format: %s\">",
		strings.Join(prioFields, "|"),
	)

	for _, line := range vw.headerLines {
		if strings.HasPrefix(line, "##INFO=<ID=PRIO,") {
			continue
		}
		if strings.HasPrefix(line, "#CHROM") {
			if _, err := vw.w.WriteString(prioLine + "\n"); err != nil {
				return err
			}
		}
		if _, err := vw.w.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Write writes rec with its evaluations. A record without evaluations is
// copied with any stale PRIO field removed.
func (vw *VCFWriter) Write(rec *vcf.Record, evals []*variant.Evaluation) error {
	var lb strings.Builder
	lb.Grow(256)

	lb.WriteString(rec.Chrom)
	lb.WriteByte('\t')
	lb.WriteString(strconv.FormatInt(rec.Pos, 10))
	lb.WriteByte('\t')
	lb.WriteString(dot(rec.ID))
	lb.WriteByte('\t')
	lb.WriteString(rec.Ref)
	lb.WriteByte('\t')
	lb.WriteString(dot(rec.Alt))
	lb.WriteByte('\t')
	if rec.Qual != 0 {
		lb.WriteString(strconv.FormatFloat(rec.Qual, 'g', -1, 64))
	} else {
		lb.WriteByte('.')
	}
	lb.WriteByte('\t')
	lb.WriteString(dot(rec.Filter))
	lb.WriteByte('\t')

	info := stripInfo(rec.RawInfo, "PRIO")
	switch {
	case len(evals) == 0:
		lb.WriteString(info)
	case info == ".":
		lb.WriteString("PRIO=")
	default:
		lb.WriteString(info)
		lb.WriteString(";PRIO=")
	}
	alts := rec.Alts()
	for i, e := range evals {
		if i > 0 {
			lb.WriteByte(',')
		}
		writePrioEntry(&lb, e, alts)
	}

	if rec.SampleColumns != "" {
		lb.WriteByte('\t')
		lb.WriteString(rec.SampleColumns)
	}

	lb.WriteByte('\n')
	_, err := vw.w.WriteString(lb.String())
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (vw *VCFWriter) Flush() error {
	return vw.w.Flush()
}

// stripInfo removes key, flag or key=value, from a raw INFO string.
func stripInfo(rawInfo, key string) string {
	if rawInfo == "" || rawInfo == "." {
		return "."
	}
	if !strings.Contains(rawInfo, key) {
		return rawInfo
	}

	var b strings.Builder
	for _, field := range strings.Split(rawInfo, ";") {
		if field == key || strings.HasPrefix(field, key+"=") || field == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(';')
		}
		b.WriteString(field)
	}
	if b.Len() == 0 {
		return "."
	}
	return b.String()
}

// writePrioEntry writes one evaluation as a pipe-delimited PRIO entry. The
// allele is written as it appears in the record's ALT column.
func writePrioEntry(b *strings.Builder, e *variant.Evaluation, alts []string) {
	allele := e.Variant.Alt
	if e.AltIndex >= 1 && e.AltIndex <= len(alts) {
		allele = alts[e.AltIndex-1]
	}
	b.WriteString(allele)
	b.WriteByte('|')
	b.WriteString(e.GeneSymbol())
	b.WriteByte('|')
	b.WriteString(e.Gene.GeneID)
	b.WriteByte('|')
	b.WriteString(string(e.Effect()))
	b.WriteByte('|')
	b.WriteString(e.Effect().Impact())
	b.WriteByte('|')
	if e.Frequency.HasFrequencies() {
		b.WriteString(strconv.FormatFloat(float64(e.Frequency.MaxFrequency()), 'f', 4, 64))
	}
	b.WriteByte('|')
	if e.Whitelisted {
		b.WriteString("YES")
	}
	b.WriteByte('|')
	b.WriteString(formatScore(e.FrequencyScore))
	b.WriteByte('|')
	b.WriteString(formatScore(e.PathogenicityScore))
	b.WriteByte('|')
	b.WriteString(formatScore(e.Score))
}

func dot(s string) string {
	if s == "" {
		return "."
	}
	return s
}
