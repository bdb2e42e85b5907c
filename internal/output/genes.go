package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/vibe-prio/internal/prioritize"
)

// GeneColumns is the header of the gene ranking file.
var GeneColumns = []string{
	"#RANK",
	"GENE",
	"GENE_ID",
	"MODE",
	"COMBINED_SCORE",
	"PHENOTYPE_SCORE",
	"VARIANT_SCORE",
	"CONTRIBUTING_VARIANTS",
}

// GeneWriter writes ranked gene scores.
type GeneWriter struct {
	w *bufio.Writer
}

// NewGeneWriter creates a gene ranking writer.
func NewGeneWriter(w io.Writer) *GeneWriter {
	return &GeneWriter{w: bufio.NewWriter(w)}
}

// WriteHeader writes the header line.
func (gw *GeneWriter) WriteHeader() error {
	_, err := gw.w.WriteString(strings.Join(GeneColumns, "\t") + "\n")
	return err
}

// Write writes one ranked gene score. Contributing variants are listed by
// allele key.
func (gw *GeneWriter) Write(g prioritize.GeneScore) error {
	pheno := "-"
	if g.HasPhenotype {
		pheno = formatScore(g.Phenotype)
	}
	keys := make([]string, len(g.Contributing))
	for i, e := range g.Contributing {
		keys[i] = e.Variant.Key().String()
	}

	values := []string{
		strconv.Itoa(g.Rank),
		g.GeneSymbol,
		dash(g.GeneID),
		string(g.Mode),
		formatScore(g.Combined),
		pheno,
		formatScore(g.Variant),
		dash(strings.Join(keys, ",")),
	}
	_, err := gw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteAll writes the header and every gene score.
func (gw *GeneWriter) WriteAll(scores []prioritize.GeneScore) error {
	if err := gw.WriteHeader(); err != nil {
		return err
	}
	for _, g := range scores {
		if err := gw.Write(g); err != nil {
			return err
		}
	}
	return gw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (gw *GeneWriter) Flush() error {
	return gw.w.Flush()
}
