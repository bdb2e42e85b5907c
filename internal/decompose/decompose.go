// Package decompose splits multi-allele VCF records into normalized,
// annotated single-allele evaluations.
package decompose

import (
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/annotate"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/variant"
	"github.com/inodb/vibe-prio/internal/vcf"
)

// Annotator turns a normalized allele into gene annotations.
type Annotator interface {
	Annotate(v allele.Variant) []annotate.GeneAnnotation
}

// Decomposer turns records into evaluations.
type Decomposer struct {
	annotator Annotator
	samples   []string
	logger    *zap.Logger
}

// New creates a decomposer for records carrying the given sample columns.
func New(a Annotator, samples []string) *Decomposer {
	return &Decomposer{
		annotator: a,
		samples:   samples,
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger for skipped alleles.
func (d *Decomposer) SetLogger(l *zap.Logger) {
	d.logger = l
}

// Decompose returns one evaluation per observed alternate allele and gene,
// in ALT order. skipped counts alleles dropped because they could not be
// normalized or use the breakend model.
func (d *Decomposer) Decompose(rec *vcf.Record) (evals []*variant.Evaluation, skipped int) {
	contigID := contig.ID(rec.Chrom)
	if contigID == contig.Unknown {
		d.logger.Debug("unknown contig",
			zap.String("chrom", rec.Chrom),
			zap.Int64("pos", rec.Pos))
	}

	gts := parseGenotypes(rec)
	sitesOnly := rec.NumSamples() == 0

	for i, alt := range rec.Alts() {
		altIdx := i + 1
		if alt == "." || alt == "*" {
			continue
		}
		if !sitesOnly && !observed(gts, altIdx) {
			continue
		}

		v, err := d.normalize(rec, contigID, altIdx, alt)
		if err != nil {
			d.logger.Warn("skipping allele",
				zap.String("chrom", rec.Chrom),
				zap.Int64("pos", rec.Pos),
				zap.String("ref", rec.Ref),
				zap.String("alt", alt),
				zap.Error(err))
			skipped++
			continue
		}
		if v.Type == allele.Breakend {
			d.logger.Warn("skipping breakend allele",
				zap.String("chrom", rec.Chrom),
				zap.Int64("pos", rec.Pos),
				zap.String("alt", alt))
			skipped++
			continue
		}

		genotypes := make([]variant.SampleGenotype, len(gts))
		for s, g := range gts {
			genotypes[s] = g.scoped(altIdx)
		}

		base := variant.Evaluation{
			Variant:   v,
			RecordID:  rec.ID,
			Chrom:     rec.Chrom,
			Qual:      rec.Qual,
			Filter:    rec.Filter,
			AltIndex:  altIdx,
			Samples:   d.samples,
			Genotypes: genotypes,
		}

		genes := d.annotator.Annotate(v)
		if len(genes) == 0 {
			e := base
			evals = append(evals, &e)
			continue
		}
		for _, g := range genes {
			e := base
			e.Gene = g
			e.Annotated = true
			evals = append(evals, &e)
		}
	}
	return evals, skipped
}

func (d *Decomposer) normalize(rec *vcf.Record, contigID, altIdx int, alt string) (allele.Variant, error) {
	if !allele.IsSymbolic(alt) {
		return allele.Normalize(contigID, rec.Pos, rec.Ref, alt)
	}
	in := allele.StructuralInput{
		Contig: contigID,
		Pos:    rec.Pos,
		Ref:    rec.Ref,
		Alt:    alt,
		CIPos:  rec.ConfidenceInterval("CIPOS"),
		CIEnd:  rec.ConfidenceInterval("CIEND"),
	}
	in.End, _ = rec.InfoInt("END")
	in.SVLen, _ = rec.InfoIntAt("SVLEN", altIdx-1)
	in.SVType, _ = rec.InfoString("SVTYPE")
	return allele.NormalizeStructural(in)
}

// rawGenotype is a sample's GT as allele indices (-1 for no-call).
type rawGenotype struct {
	indices []int
	phased  bool
	cn      int
	mcc     int
}

func (g rawGenotype) scoped(altIdx int) variant.SampleGenotype {
	sg := variant.SampleGenotype{Phased: g.phased, CN: g.cn, MCC: g.mcc}
	if len(g.indices) > 0 {
		sg.Calls = make([]variant.AlleleCall, len(g.indices))
	}
	for i, idx := range g.indices {
		switch {
		case idx < 0:
			sg.Calls[i] = variant.NoCall
		case idx == 0:
			sg.Calls[i] = variant.Ref
		case idx == altIdx:
			sg.Calls[i] = variant.Alt
		default:
			sg.Calls[i] = variant.OtherAlt
		}
	}
	return sg
}

func observed(gts []rawGenotype, altIdx int) bool {
	for _, g := range gts {
		if g.cn >= 0 {
			return true
		}
		for _, idx := range g.indices {
			if idx == altIdx {
				return true
			}
		}
	}
	return false
}

func parseGenotypes(rec *vcf.Record) []rawGenotype {
	gts := make([]rawGenotype, rec.NumSamples())
	for s := range gts {
		gts[s] = rawGenotype{
			cn:  intField(rec.SampleValue(s, "CN")),
			mcc: intField(rec.SampleValue(s, "MCC")),
		}
		gt := rec.SampleValue(s, "GT")
		if gt == "" {
			continue
		}
		gts[s].phased = strings.Contains(gt, "|")
		for _, a := range strings.FieldsFunc(gt, func(r rune) bool { return r == '/' || r == '|' }) {
			idx, err := strconv.Atoi(a)
			if err != nil {
				idx = -1
			}
			gts[s].indices = append(gts[s].indices, idx)
		}
	}
	return gts
}

func intField(s string) int {
	if s == "" {
		return -1
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return -1
	}
	return n
}
