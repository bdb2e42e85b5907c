package annotate

import (
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/contig"
)

// Engine is the transcript-annotation capability consumed by the Adapter.
type Engine interface {
	// Assembly returns the genome assembly the engine's models are built on.
	Assembly() contig.Assembly
	// Annotate returns one entry per affected transcript. An empty result
	// means no transcript model lies near the variant.
	Annotate(v allele.Variant) ([]TranscriptAnnotation, error)
}

// Adapter reshapes engine output into gene-scoped annotations.
type Adapter struct {
	engine     Engine
	regulatory *RegulatoryIndex
	logger     *zap.Logger
}

// NewAdapter creates an adapter around e. regulatory may be nil.
func NewAdapter(e Engine, regulatory *RegulatoryIndex) *Adapter {
	return &Adapter{
		engine:     e,
		regulatory: regulatory,
		logger:     zap.NewNop(),
	}
}

// SetLogger sets the logger for engine failures.
func (a *Adapter) SetLogger(l *zap.Logger) {
	a.logger = l
}

// Assembly returns the engine's genome assembly.
func (a *Adapter) Assembly() contig.Assembly {
	return a.engine.Assembly()
}

// Annotate returns the gene annotations for v. Variants on unknown contigs
// and engine failures yield nil; engine errors never propagate.
func (a *Adapter) Annotate(v allele.Variant) []GeneAnnotation {
	if v.Contig == contig.Unknown {
		return nil
	}

	tas, err := a.callEngine(v)
	if err != nil {
		a.logger.Debug("annotation engine failed",
			zap.String("variant", v.Key().String()),
			zap.Error(err))
		return nil
	}

	if len(tas) == 0 {
		return []GeneAnnotation{a.override(v, GeneAnnotation{
			Effect:   EffectIntergenic,
			Distance: NoTranscriptModel,
		})}
	}

	sorted := make([]TranscriptAnnotation, len(tas))
	copy(sorted, tas)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Effect.Severity() < sorted[j].Effect.Severity()
	})

	var genes []GeneAnnotation
	if shouldSplit(sorted) {
		genes = groupByGene(sorted)
	} else {
		genes = []GeneAnnotation{geneOf(sorted[0], sorted)}
	}
	for i := range genes {
		genes[i] = a.override(v, genes[i])
	}
	return genes
}

// callEngine runs the engine, converting panics into errors.
func (a *Adapter) callEngine(v allele.Variant) (tas []TranscriptAnnotation, err error) {
	defer func() {
		if r := recover(); r != nil {
			tas = nil
			err = &EngineError{Key: v.Key(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	tas, err = a.engine.Annotate(v)
	if err != nil {
		return nil, &EngineError{Key: v.Key(), Err: err}
	}
	return tas, nil
}

// shouldSplit reports whether the top effect is at least moderate and a
// second gene also reaches moderate impact.
func shouldSplit(sorted []TranscriptAnnotation) bool {
	top := sorted[0]
	if ImpactRank(top.Effect.Impact()) < ImpactRank(ImpactModerate) {
		return false
	}
	for _, ta := range sorted[1:] {
		if ta.GeneSymbol != top.GeneSymbol && ImpactRank(ta.Effect.Impact()) >= ImpactRank(ImpactModerate) {
			return true
		}
	}
	return false
}

// groupByGene splits severity-sorted transcripts by gene symbol, keeping
// genes in order of first appearance.
func groupByGene(sorted []TranscriptAnnotation) []GeneAnnotation {
	var order []string
	byGene := make(map[string][]TranscriptAnnotation)
	for _, ta := range sorted {
		if _, ok := byGene[ta.GeneSymbol]; !ok {
			order = append(order, ta.GeneSymbol)
		}
		byGene[ta.GeneSymbol] = append(byGene[ta.GeneSymbol], ta)
	}
	genes := make([]GeneAnnotation, 0, len(order))
	for _, sym := range order {
		tas := byGene[sym]
		genes = append(genes, geneOf(tas[0], tas))
	}
	return genes
}

// geneOf builds the gene annotation for top using only the transcripts of
// top's gene.
func geneOf(top TranscriptAnnotation, sorted []TranscriptAnnotation) GeneAnnotation {
	g := GeneAnnotation{
		GeneSymbol: top.GeneSymbol,
		GeneID:     top.GeneID,
		Effect:     top.Effect,
	}
	if top.Effect.HasDistance() {
		g.Distance = top.Distance
	}
	for _, ta := range sorted {
		if ta.GeneSymbol == top.GeneSymbol {
			g.Transcripts = append(g.Transcripts, ta)
		}
	}
	return g
}

// override replaces intergenic and upstream effects with
// regulatory_region_variant when a regulatory feature overlaps v.
func (a *Adapter) override(v allele.Variant, g GeneAnnotation) GeneAnnotation {
	if g.Effect != EffectIntergenic && g.Effect != EffectUpstream {
		return g
	}
	if a.regulatory.Overlaps(v.Interval()) {
		g.Effect = EffectRegulatoryRegion
	}
	return g
}

// EngineError wraps a failure of the annotation engine for one variant.
type EngineError struct {
	Key allele.Key
	Err error
}

func (e *EngineError) Error() string {
	return fmt.Sprintf("annotate %s: %v", e.Key, e.Err)
}

func (e *EngineError) Unwrap() error { return e.Err }
