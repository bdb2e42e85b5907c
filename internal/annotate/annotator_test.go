package annotate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/interval"
)

type mockEngine struct {
	anns  []TranscriptAnnotation
	err   error
	panic bool
	calls int
}

func (m *mockEngine) Assembly() contig.Assembly { return contig.HG38 }

func (m *mockEngine) Annotate(v allele.Variant) ([]TranscriptAnnotation, error) {
	m.calls++
	if m.panic {
		var tas []TranscriptAnnotation
		_ = tas[3] // index out of range
	}
	return m.anns, m.err
}

func snv(t *testing.T) allele.Variant {
	t.Helper()
	v, err := allele.Normalize(1, 1000, "A", "G")
	require.NoError(t, err)
	return v
}

func TestAdapter_MultiGeneSplit(t *testing.T) {
	eng := &mockEngine{anns: []TranscriptAnnotation{
		{GeneSymbol: "GENE2", TranscriptID: "T2a", Effect: EffectIntron},
		{GeneSymbol: "GENE1", GeneID: "G1", TranscriptID: "T1a", Effect: EffectMissense},
		{GeneSymbol: "GENE2", GeneID: "G2", TranscriptID: "T2b", Effect: EffectStopGained},
		{GeneSymbol: "GENE1", TranscriptID: "T1b", Effect: EffectSynonymous},
	}}
	a := NewAdapter(eng, nil)

	genes := a.Annotate(snv(t))
	require.Len(t, genes, 2)

	assert.Equal(t, "GENE2", genes[0].GeneSymbol)
	assert.Equal(t, "G2", genes[0].GeneID)
	assert.Equal(t, EffectStopGained, genes[0].Effect)
	require.Len(t, genes[0].Transcripts, 2)
	assert.Equal(t, "T2b", genes[0].Transcripts[0].TranscriptID)
	assert.Equal(t, "T2a", genes[0].Transcripts[1].TranscriptID)

	assert.Equal(t, "GENE1", genes[1].GeneSymbol)
	assert.Equal(t, EffectMissense, genes[1].Effect)
	for _, ta := range genes[1].Transcripts {
		assert.Equal(t, "GENE1", ta.GeneSymbol)
	}
	assert.Equal(t, 0, genes[1].Distance)
}

func TestAdapter_SingleGeneKept(t *testing.T) {
	tests := []struct {
		name string
		anns []TranscriptAnnotation
		want string
	}{
		{
			name: "second gene below moderate",
			anns: []TranscriptAnnotation{
				{GeneSymbol: "B", Effect: EffectIntron},
				{GeneSymbol: "A", Effect: EffectMissense},
			},
			want: "A",
		},
		{
			name: "top effect below moderate",
			anns: []TranscriptAnnotation{
				{GeneSymbol: "A", Effect: EffectSynonymous},
				{GeneSymbol: "B", Effect: EffectIntron},
			},
			want: "A",
		},
		{
			name: "one gene many transcripts",
			anns: []TranscriptAnnotation{
				{GeneSymbol: "A", Effect: EffectMissense},
				{GeneSymbol: "A", Effect: EffectFrameshift},
			},
			want: "A",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			genes := NewAdapter(&mockEngine{anns: tt.anns}, nil).Annotate(snv(t))
			require.Len(t, genes, 1)
			assert.Equal(t, tt.want, genes[0].GeneSymbol)
			for _, ta := range genes[0].Transcripts {
				assert.Equal(t, tt.want, ta.GeneSymbol)
			}
		})
	}
}

func TestAdapter_NoTranscriptModel(t *testing.T) {
	genes := NewAdapter(&mockEngine{}, nil).Annotate(snv(t))
	require.Len(t, genes, 1)
	assert.Equal(t, "", genes[0].GeneSymbol)
	assert.Equal(t, EffectIntergenic, genes[0].Effect)
	assert.Equal(t, NoTranscriptModel, genes[0].Distance)
	assert.Empty(t, genes[0].Transcripts)
}

func TestAdapter_Distance(t *testing.T) {
	eng := &mockEngine{anns: []TranscriptAnnotation{
		{GeneSymbol: "A", Effect: EffectDownstream, Distance: 1200},
	}}
	genes := NewAdapter(eng, nil).Annotate(snv(t))
	require.Len(t, genes, 1)
	assert.Equal(t, 1200, genes[0].Distance)

	eng.anns = []TranscriptAnnotation{{GeneSymbol: "A", Effect: EffectIntron, Distance: 99}}
	genes = NewAdapter(eng, nil).Annotate(snv(t))
	assert.Equal(t, 0, genes[0].Distance)
}

func TestAdapter_EngineFailure(t *testing.T) {
	eng := &mockEngine{err: errors.New("boom")}
	a := NewAdapter(eng, nil)
	assert.Nil(t, a.Annotate(snv(t)))
	assert.Equal(t, 1, eng.calls)

	panicky := &mockEngine{panic: true}
	a = NewAdapter(panicky, nil)
	assert.NotPanics(t, func() {
		assert.Nil(t, a.Annotate(snv(t)))
	})

	_, err := a.callEngine(snv(t))
	var ee *EngineError
	require.True(t, errors.As(err, &ee))
	assert.Equal(t, "1-1000-A-G", ee.Key.String())
}

func TestAdapter_UnknownContig(t *testing.T) {
	eng := &mockEngine{anns: []TranscriptAnnotation{{GeneSymbol: "A", Effect: EffectMissense}}}
	v, err := allele.Normalize(contig.Unknown, 10, "A", "T")
	require.NoError(t, err)
	assert.Nil(t, NewAdapter(eng, nil).Annotate(v))
	assert.Equal(t, 0, eng.calls)
}

func TestAdapter_RegulatoryOverride(t *testing.T) {
	reg := NewRegulatoryIndex([]RegulatoryFeature{
		{Contig: 1, Start: 900, End: 1100, Type: "enhancer"},
	})

	tests := []struct {
		name   string
		effect Effect
		pos    int64
		want   Effect
	}{
		{"upstream in enhancer", EffectUpstream, 1000, EffectRegulatoryRegion},
		{"intergenic in enhancer", EffectIntergenic, 1000, EffectRegulatoryRegion},
		{"downstream untouched", EffectDownstream, 1000, EffectDownstream},
		{"upstream outside", EffectUpstream, 5000, EffectUpstream},
		{"missense untouched", EffectMissense, 1000, EffectMissense},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &mockEngine{anns: []TranscriptAnnotation{{GeneSymbol: "A", Effect: tt.effect, Distance: 300}}}
			v, err := allele.Normalize(1, tt.pos, "C", "T")
			require.NoError(t, err)
			genes := NewAdapter(eng, reg).Annotate(v)
			require.Len(t, genes, 1)
			assert.Equal(t, tt.want, genes[0].Effect)
		})
	}

	// Distance survives the override.
	eng := &mockEngine{anns: []TranscriptAnnotation{{GeneSymbol: "A", Effect: EffectUpstream, Distance: 300}}}
	genes := NewAdapter(eng, reg).Annotate(snv(t))
	assert.Equal(t, 300, genes[0].Distance)

	// No transcript model at all, but inside a regulatory element.
	genes = NewAdapter(&mockEngine{}, reg).Annotate(snv(t))
	assert.Equal(t, EffectRegulatoryRegion, genes[0].Effect)
	assert.Equal(t, NoTranscriptModel, genes[0].Distance)
}

func TestLoadRegulatory(t *testing.T) {
	bed := "track name=reg\n#comment\nchr1\t99\t200\tpromoter\nchrUn_x\t1\t5\tenhancer\n2\t0\t10\n"
	dir := t.TempDir()

	plain := filepath.Join(dir, "reg.bed")
	require.NoError(t, os.WriteFile(plain, []byte(bed), 0o644))

	gzPath := filepath.Join(dir, "reg.bed.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	w := pgzip.NewWriter(f)
	_, err = w.Write([]byte(bed))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, gzPath} {
		idx, err := LoadRegulatory(path)
		require.NoError(t, err, path)
		assert.Equal(t, 2, idx.Len())
		assert.True(t, idx.Overlaps(interval.New(1, 100, 100)))
		assert.False(t, idx.Overlaps(interval.New(1, 99, 99)))
		feats := idx.Features(interval.New(1, 150, 160))
		require.Len(t, feats, 1)
		assert.Equal(t, "promoter", feats[0].Type)
		assert.True(t, idx.Overlaps(interval.New(2, 1, 1)))
	}

	bad := filepath.Join(dir, "bad.bed")
	require.NoError(t, os.WriteFile(bad, []byte("1\tx\t10\n"), 0o644))
	_, err = LoadRegulatory(bad)
	assert.Error(t, err)

	_, err = LoadRegulatory(filepath.Join(dir, "missing.bed"))
	assert.Error(t, err)

	var nilIdx *RegulatoryIndex
	assert.False(t, nilIdx.Overlaps(interval.New(1, 1, 1)))
}
