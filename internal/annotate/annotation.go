// Package annotate adapts transcript-level engine output into gene-scoped
// annotations.
package annotate

import "math"

// Impact levels for variant effects.
const (
	ImpactHigh     = "HIGH"
	ImpactModerate = "MODERATE"
	ImpactLow      = "LOW"
	ImpactModifier = "MODIFIER"
)

// Effect is a Sequence Ontology consequence term.
type Effect string

// Effects in descending order of severity.
const (
	EffectTranscriptAblation      Effect = "transcript_ablation"
	EffectSpliceAcceptor          Effect = "splice_acceptor_variant"
	EffectSpliceDonor             Effect = "splice_donor_variant"
	EffectStopGained              Effect = "stop_gained"
	EffectFrameshift              Effect = "frameshift_variant"
	EffectStopLost                Effect = "stop_lost"
	EffectStartLost               Effect = "start_lost"
	EffectTranscriptAmplification Effect = "transcript_amplification"
	EffectExonLoss                Effect = "exon_loss_variant"
	EffectFeatureElongation       Effect = "feature_elongation"
	EffectInframeInsertion        Effect = "inframe_insertion"
	EffectInframeDeletion         Effect = "inframe_deletion"
	EffectMissense                Effect = "missense_variant"
	EffectProteinAltering         Effect = "protein_altering_variant"
	EffectSpliceRegion            Effect = "splice_region_variant"
	EffectStartRetained           Effect = "start_retained_variant"
	EffectStopRetained            Effect = "stop_retained_variant"
	EffectSynonymous              Effect = "synonymous_variant"
	EffectCodingSequence          Effect = "coding_sequence_variant"
	Effect5PrimeUTR               Effect = "5_prime_UTR_variant"
	Effect3PrimeUTR               Effect = "3_prime_UTR_variant"
	EffectNonCodingExon           Effect = "non_coding_transcript_exon_variant"
	EffectIntron                  Effect = "intron_variant"
	EffectNonCodingTranscript     Effect = "non_coding_transcript_variant"
	EffectUpstream                Effect = "upstream_gene_variant"
	EffectDownstream              Effect = "downstream_gene_variant"
	EffectRegulatoryRegion        Effect = "regulatory_region_variant"
	EffectIntergenic              Effect = "intergenic_variant"
	EffectSequenceVariant         Effect = "sequence_variant"
)

var severityOrder = []Effect{
	EffectTranscriptAblation,
	EffectSpliceAcceptor,
	EffectSpliceDonor,
	EffectStopGained,
	EffectFrameshift,
	EffectStopLost,
	EffectStartLost,
	EffectTranscriptAmplification,
	EffectExonLoss,
	EffectFeatureElongation,
	EffectInframeInsertion,
	EffectInframeDeletion,
	EffectMissense,
	EffectProteinAltering,
	EffectSpliceRegion,
	EffectStartRetained,
	EffectStopRetained,
	EffectSynonymous,
	EffectCodingSequence,
	Effect5PrimeUTR,
	Effect3PrimeUTR,
	EffectNonCodingExon,
	EffectIntron,
	EffectNonCodingTranscript,
	EffectUpstream,
	EffectDownstream,
	EffectRegulatoryRegion,
	EffectIntergenic,
	EffectSequenceVariant,
}

var severity = func() map[Effect]int {
	m := make(map[Effect]int, len(severityOrder))
	for i, e := range severityOrder {
		m[e] = i
	}
	return m
}()

// Severity returns the position of e in the severity ordering; lower values
// are more severe. Unknown terms sort last.
func (e Effect) Severity() int {
	if s, ok := severity[e]; ok {
		return s
	}
	return len(severityOrder)
}

// Impact returns the impact level of the effect.
func (e Effect) Impact() string {
	switch e {
	case EffectTranscriptAblation, EffectSpliceAcceptor, EffectSpliceDonor,
		EffectStopGained, EffectFrameshift, EffectStopLost, EffectStartLost,
		EffectTranscriptAmplification, EffectExonLoss:
		return ImpactHigh
	case EffectFeatureElongation, EffectInframeInsertion, EffectInframeDeletion,
		EffectMissense, EffectProteinAltering:
		return ImpactModerate
	case EffectSpliceRegion, EffectStartRetained, EffectStopRetained,
		EffectSynonymous, EffectCodingSequence:
		return ImpactLow
	}
	return ImpactModifier
}

// IsMissense reports whether e is a missense change.
func (e Effect) IsMissense() bool {
	return e == EffectMissense
}

// IsNonCoding reports whether e lies outside any coding sequence.
func (e Effect) IsNonCoding() bool {
	switch e {
	case Effect5PrimeUTR, Effect3PrimeUTR, EffectNonCodingExon, EffectIntron,
		EffectNonCodingTranscript, EffectUpstream, EffectDownstream,
		EffectRegulatoryRegion, EffectIntergenic:
		return true
	}
	return false
}

// HasDistance reports whether a gene distance is meaningful for e.
func (e Effect) HasDistance() bool {
	return e == EffectIntergenic || e == EffectUpstream || e == EffectDownstream
}

// ImpactRank returns numeric rank for impact comparison (higher = more severe).
func ImpactRank(impact string) int {
	switch impact {
	case ImpactHigh:
		return 3
	case ImpactModerate:
		return 2
	case ImpactLow:
		return 1
	default:
		return 0
	}
}

// NoTranscriptModel is the gene distance reported when the engine returned
// no transcript at all.
const NoTranscriptModel = math.MinInt

// TranscriptAnnotation is one engine result for a single transcript.
type TranscriptAnnotation struct {
	GeneSymbol   string
	GeneID       string
	TranscriptID string
	Effect       Effect
	// Rank is the 1-based exon or intron number; 0 outside the transcript.
	Rank      int
	RankTotal int
	RankType  string // "exon" or "intron"
	// Distance to the transcript for upstream, downstream and intergenic
	// effects; 0 otherwise.
	Distance int
	HGVSg    string
	HGVSc    string
	HGVSp    string
}

// GeneAnnotation is the gene-scoped slice of an annotation result.
// An empty GeneSymbol marks an intergenic variant.
type GeneAnnotation struct {
	GeneSymbol  string
	GeneID      string
	Effect      Effect
	Distance    int
	Transcripts []TranscriptAnnotation
}

// Impact returns the impact of the gene annotation's effect.
func (g GeneAnnotation) Impact() string {
	return g.Effect.Impact()
}
