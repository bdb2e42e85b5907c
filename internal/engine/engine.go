package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/annotate"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/interval"
)

// Engine annotates variants against an in-memory set of transcript models.
// It is safe for concurrent use once built.
type Engine struct {
	assembly contig.Assembly
	index    *interval.Index[*Transcript]
	count    int
}

// New indexes transcripts by contig.
func New(assembly contig.Assembly, transcripts []*Transcript) *Engine {
	byContig := make(map[int][]interval.Feature[*Transcript])
	for _, t := range transcripts {
		byContig[t.Contig] = append(byContig[t.Contig], interval.Feature[*Transcript]{
			Start: t.Start,
			End:   t.End,
			Value: t,
		})
	}
	return &Engine{
		assembly: assembly,
		index:    interval.NewIndex(byContig),
		count:    len(transcripts),
	}
}

// Load builds an engine from a GENCODE GTF and, optionally, the matching
// transcript FASTA used for protein-level effects.
func Load(assembly contig.Assembly, gtfPath, fastaPath string, logger *zap.Logger) (*Engine, error) {
	transcripts, err := LoadGTF(gtfPath)
	if err != nil {
		return nil, fmt.Errorf("load transcripts: %w", err)
	}

	if fastaPath != "" {
		seqs, err := LoadCDS(fastaPath)
		if err != nil {
			return nil, fmt.Errorf("load CDS sequences: %w", err)
		}
		attached := 0
		for _, t := range transcripts {
			if s, ok := seqs[t.ID]; ok && t.IsProteinCoding() {
				t.CDSSequence = s
				attached++
			}
		}
		logger.Info("loaded CDS sequences",
			zap.Int("sequences", len(seqs)),
			zap.Int("attached", attached))
	}

	logger.Info("loaded transcript models",
		zap.String("assembly", assembly.String()),
		zap.Int("transcripts", len(transcripts)))
	return New(assembly, transcripts), nil
}

// Assembly returns the assembly the transcript models are built on.
func (e *Engine) Assembly() contig.Assembly {
	return e.assembly
}

// Len returns the number of indexed transcripts.
func (e *Engine) Len() int {
	return e.count
}

// Annotate returns one annotation per transcript within flankDistance of
// v. When none is that close, the nearest transcript on the contig is
// reported as intergenic. An empty result means the contig has no models.
func (e *Engine) Annotate(v allele.Variant) ([]annotate.TranscriptAnnotation, error) {
	if v.End < v.Pos {
		return nil, fmt.Errorf("variant %s: end %d before start", v.Key(), v.End)
	}
	tree := e.index.Tree(v.Contig)
	if tree == nil || tree.Len() == 0 {
		return nil, nil
	}

	hits := tree.Overlapping(v.Pos-flankDistance, v.End+flankDistance)
	if len(hits) == 0 {
		if ta, ok := nearest(tree, v); ok {
			return []annotate.TranscriptAnnotation{ta}, nil
		}
		return nil, nil
	}

	out := make([]annotate.TranscriptAnnotation, 0, len(hits))
	for _, t := range hits {
		out = append(out, predict(v, t))
	}
	return out, nil
}

func nearest(tree *interval.Tree[*Transcript], v allele.Variant) (annotate.TranscriptAnnotation, bool) {
	prev, prevEnd, okPrev := tree.Previous(v.Pos)
	next, nextStart, okNext := tree.Next(v.End)

	var (
		t *Transcript
		d int64
	)
	switch {
	case okPrev && (!okNext || v.Pos-prevEnd <= nextStart-v.End):
		t, d = prev, v.Pos-prevEnd
	case okNext:
		t, d = next, nextStart-v.End
	default:
		return annotate.TranscriptAnnotation{}, false
	}
	return annotate.TranscriptAnnotation{
		GeneSymbol:   t.GeneName,
		GeneID:       t.GeneID,
		TranscriptID: t.ID,
		Effect:       annotate.EffectIntergenic,
		Distance:     int(d),
		HGVSg:        hgvsg(v),
	}, true
}
