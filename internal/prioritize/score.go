// Package prioritize scores resolved variants and genes and assigns dense,
// tie-aware ranks.
package prioritize

import (
	"math"

	"github.com/inodb/vibe-prio/internal/annotate"
	"github.com/inodb/vibe-prio/internal/popdata"
	"github.com/inodb/vibe-prio/internal/variant"
)

// maxFrequencyPercent is the allele frequency above which a variant is
// considered too common to be causal.
const maxFrequencyPercent = 2.0

// FrequencyScore maps the highest population frequency onto [0, 1]. Variants
// without frequency data score 1; variants above 2% score 0.
func FrequencyScore(fd popdata.FrequencyData) float64 {
	if !fd.HasFrequencies() {
		return 1
	}
	maxFreq := float64(fd.MaxFrequency())
	if maxFreq > maxFrequencyPercent {
		return 0
	}
	return 1.13533 - 0.13533*math.Exp(maxFreq)
}

var effectDefaults = map[annotate.Effect]float64{
	annotate.EffectTranscriptAblation: 1,
	annotate.EffectStopGained:         1,
	annotate.EffectFrameshift:         0.95,
	annotate.EffectStartLost:          0.95,
	annotate.EffectExonLoss:           0.95,
	annotate.EffectStopLost:           0.9,
	annotate.EffectSpliceAcceptor:     0.9,
	annotate.EffectSpliceDonor:        0.9,
	annotate.EffectInframeInsertion:   0.85,
	annotate.EffectInframeDeletion:    0.85,
	annotate.EffectFeatureElongation:  0.85,
	annotate.EffectMissense:           0.6,
	annotate.EffectSynonymous:         0.1,
}

// EffectScore returns the default pathogenicity of an effect.
func EffectScore(effect annotate.Effect) float64 {
	return effectDefaults[effect]
}

// PathogenicityScore is the effect default raised to the most pathogenic
// predictor score. ClinVar pathogenic and likely pathogenic alleles score 1.
func PathogenicityScore(effect annotate.Effect, pd popdata.PathogenicityData) float64 {
	if pd.ClinVar.Significance.IsPathogenicOrLikely() {
		return 1
	}
	score := EffectScore(effect)
	if best, ok := pd.MostPathogenic(); ok && float64(best.Score) > score {
		score = float64(best.Score)
	}
	return score
}

// ScoreVariant sets the frequency, pathogenicity and combined variant
// scores of e. Whitelisted variants score 1 throughout.
func ScoreVariant(e *variant.Evaluation) {
	if e.Whitelisted {
		e.FrequencyScore, e.PathogenicityScore, e.Score = 1, 1, 1
		return
	}
	e.FrequencyScore = FrequencyScore(e.Frequency)
	e.PathogenicityScore = PathogenicityScore(e.Effect(), e.Pathogenicity)
	e.Score = e.FrequencyScore * e.PathogenicityScore
}

// Round rounds x to four decimal places, half to even.
func Round(x float64) float64 {
	return math.RoundToEven(x*1e4) / 1e4
}
