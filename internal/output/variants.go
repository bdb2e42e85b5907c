// Package output writes prioritization results as tab-delimited files.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-prio/internal/annotate"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/variant"
)

// VariantColumns is the header of the variant file.
var VariantColumns = []string{
	"#CHROM",
	"POS",
	"ID",
	"REF",
	"ALT",
	"TYPE",
	"FILTER",
	"GENE",
	"GENE_ID",
	"EFFECT",
	"IMPACT",
	"DISTANCE",
	"HGVSc",
	"HGVSp",
	"MAX_FREQ",
	"FREQUENCIES",
	"PATHOGENICITY",
	"CLNSIG",
	"CLINVAR_STARS",
	"WHITELISTED",
	"FREQ_SCORE",
	"PATH_SCORE",
	"SCORE",
	"GENOTYPES",
}

// VariantWriter writes one line per evaluation.
type VariantWriter struct {
	w *bufio.Writer
}

// NewVariantWriter creates a variant writer.
func NewVariantWriter(w io.Writer) *VariantWriter {
	return &VariantWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (vw *VariantWriter) WriteHeader() error {
	_, err := vw.w.WriteString(strings.Join(VariantColumns, "\t") + "\n")
	return err
}

// Write writes a single evaluation.
func (vw *VariantWriter) Write(e *variant.Evaluation) error {
	v := e.Variant

	chrom := e.Chrom
	if chrom == "" {
		chrom = contig.Name(v.Contig)
	}
	filter := e.Filter
	if filter == "" {
		filter = "."
	}

	distance := "-"
	if e.Annotated && e.Gene.Effect.HasDistance() && e.Gene.Distance != annotate.NoTranscriptModel {
		distance = strconv.Itoa(e.Gene.Distance)
	}

	var hgvsc, hgvsp string
	if len(e.Gene.Transcripts) > 0 {
		hgvsc, hgvsp = e.Gene.Transcripts[0].HGVSc, e.Gene.Transcripts[0].HGVSp
	}

	maxFreq := "-"
	var freqs []string
	for _, f := range e.Frequency.Frequencies() {
		freqs = append(freqs, fmt.Sprintf("%s=%.4f", f.Source, f.Percent))
	}
	if e.Frequency.HasFrequencies() {
		maxFreq = fmt.Sprintf("%.4f", e.Frequency.MaxFrequency())
	}

	var paths []string
	for _, p := range e.Pathogenicity.Scores() {
		paths = append(paths, fmt.Sprintf("%s=%.3f", p.Source, p.Score))
	}

	stars := "-"
	if !e.Pathogenicity.ClinVar.IsEmpty() {
		stars = strconv.Itoa(e.Pathogenicity.ClinVar.Stars())
	}

	whitelisted := "-"
	if e.Whitelisted {
		whitelisted = "YES"
	}

	values := []string{
		chrom,
		strconv.FormatInt(v.Pos, 10),
		dash(e.RecordID),
		v.Ref,
		v.Alt,
		v.Type.String(),
		filter,
		dash(e.GeneSymbol()),
		dash(e.Gene.GeneID),
		string(e.Effect()),
		e.Effect().Impact(),
		distance,
		dash(hgvsc),
		dash(hgvsp),
		maxFreq,
		dash(strings.Join(freqs, ",")),
		dash(strings.Join(paths, ",")),
		dash(string(e.Pathogenicity.ClinVar.Significance)),
		stars,
		whitelisted,
		formatScore(e.FrequencyScore),
		formatScore(e.PathogenicityScore),
		formatScore(e.Score),
		genotypes(e),
	}

	_, err := vw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (vw *VariantWriter) Flush() error {
	return vw.w.Flush()
}

func genotypes(e *variant.Evaluation) string {
	parts := make([]string, 0, len(e.Genotypes))
	for i, g := range e.Genotypes {
		name := strconv.Itoa(i + 1)
		if i < len(e.Samples) {
			name = e.Samples[i]
		}
		parts = append(parts, name+"="+g.String())
	}
	return dash(strings.Join(parts, ","))
}

func formatScore(x float64) string {
	return strconv.FormatFloat(x, 'f', 4, 64)
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
