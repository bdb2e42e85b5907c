package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEffectImpact(t *testing.T) {
	tests := []struct {
		effect Effect
		want   string
	}{
		{EffectMissense, ImpactModerate},
		{EffectStopGained, ImpactHigh},
		{EffectTranscriptAblation, ImpactHigh},
		{EffectSynonymous, ImpactLow},
		{EffectIntron, ImpactModifier},
		{EffectRegulatoryRegion, ImpactModifier},
		{Effect("made_up"), ImpactModifier},
	}
	for _, tt := range tests {
		t.Run(string(tt.effect), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.effect.Impact())
		})
	}
}

func TestEffectSeverity(t *testing.T) {
	assert.Less(t, EffectStopGained.Severity(), EffectMissense.Severity())
	assert.Less(t, EffectMissense.Severity(), EffectSynonymous.Severity())
	assert.Less(t, EffectUpstream.Severity(), EffectIntergenic.Severity())
	assert.Equal(t, len(severityOrder), Effect("made_up").Severity())

	// Impact never increases along the severity ordering.
	for i := 1; i < len(severityOrder); i++ {
		prev, cur := severityOrder[i-1], severityOrder[i]
		assert.GreaterOrEqual(t, ImpactRank(prev.Impact()), ImpactRank(cur.Impact()), "%s before %s", prev, cur)
	}
}

func TestEffectClasses(t *testing.T) {
	assert.True(t, EffectMissense.IsMissense())
	assert.False(t, EffectSynonymous.IsMissense())
	assert.True(t, EffectIntron.IsNonCoding())
	assert.True(t, EffectIntergenic.IsNonCoding())
	assert.False(t, EffectMissense.IsNonCoding())
	assert.False(t, EffectSpliceDonor.IsNonCoding())
	assert.True(t, EffectUpstream.HasDistance())
	assert.False(t, EffectIntron.HasDistance())
}
