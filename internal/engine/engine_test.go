package engine

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/annotate"
	"github.com/inodb/vibe-prio/internal/contig"
)

// testCDS is M W G K D L A(x59) *.
var testCDS = "ATGTGGGGCAAAGATCTG" + strings.Repeat("GCT", 59) + "TAA"

func gtfLine(chrom, feature string, start, end int, strand, attrs string) string {
	return strings.Join([]string{
		chrom, "HAVANA", feature,
		strconv.Itoa(start), strconv.Itoa(end), ".", strand, ".", attrs,
	}, "\t")
}

const (
	g1Attrs = `gene_id "ENSG1.1"; transcript_id "ENST1.2"; gene_name "G1"; transcript_type "protein_coding"; tag "basic"; tag "Ensembl_canonical";`
	g2Attrs = `gene_id "ENSG2.3"; transcript_id "ENST2.1"; gene_name "G2"; transcript_type "lncRNA";`
)

// testGTF describes G1 (chr1:1000-2000, +, coding, 3 exons) and G2
// (chr1:30000-31000, -, non-coding, 2 exons).
func testGTF() string {
	lines := []string{
		"##description: test",
		gtfLine("chr1", "gene", 1000, 2000, "+", `gene_id "ENSG1.1"; gene_name "G1";`),
		gtfLine("chr1", "transcript", 1000, 2000, "+", g1Attrs),
		gtfLine("chr1", "exon", 1000, 1100, "+", g1Attrs+` exon_number 1;`),
		gtfLine("chr1", "CDS", 1052, 1100, "+", g1Attrs+` exon_number 1;`),
		gtfLine("chr1", "start_codon", 1052, 1054, "+", g1Attrs+` exon_number 1;`),
		gtfLine("chr1", "exon", 1201, 1300, "+", g1Attrs+` exon_number 2;`),
		gtfLine("chr1", "CDS", 1201, 1300, "+", g1Attrs+` exon_number 2;`),
		gtfLine("chr1", "exon", 1901, 2000, "+", g1Attrs+` exon_number 3;`),
		gtfLine("chr1", "CDS", 1901, 1946, "+", g1Attrs+` exon_number 3;`),
		gtfLine("chr1", "stop_codon", 1947, 1949, "+", g1Attrs+` exon_number 3;`),
		gtfLine("chr1", "transcript", 30000, 31000, "-", g2Attrs),
		gtfLine("chr1", "exon", 30801, 31000, "-", g2Attrs+` exon_number 1;`),
		gtfLine("chr1", "exon", 30000, 30200, "-", g2Attrs+` exon_number 2;`),
		gtfLine("chrUn_gl000220", "transcript", 1, 500, "+", `transcript_id "ENST9";`),
		"chr1\tbroken line",
	}
	return strings.Join(lines, "\n") + "\n"
}

func testFASTA() string {
	seq := strings.Repeat("C", 52) + testCDS
	return ">ENST1.2|ENSG1.1|-|-|G1-201|G1|250|UTR5:1-52|CDS:53-250|\n" +
		seq[:60] + "\n" + seq[60:] + "\n" +
		">ENST2.1|ENSG2.3|-|-|G2-201|G2|301|\n" + strings.Repeat("A", 301) + "\n"
}

func writeFile(t *testing.T, name, content string, gz bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	if !gz {
		_, err = f.WriteString(content)
		require.NoError(t, err)
		return path
	}
	w := pgzip.NewWriter(f)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return path
}

func loadTestEngine(t *testing.T) *Engine {
	t.Helper()
	gtf := writeFile(t, "test.gtf.gz", testGTF(), true)
	fasta := writeFile(t, "test.fa", testFASTA(), false)
	e, err := Load(contig.HG38, gtf, fasta, zap.NewNop())
	require.NoError(t, err)
	return e
}

func snv(t *testing.T, pos int64, ref, alt string) allele.Variant {
	t.Helper()
	v, err := allele.Normalize(1, pos, ref, alt)
	require.NoError(t, err)
	return v
}

func annotateOne(t *testing.T, e *Engine, v allele.Variant, transcriptID string) annotate.TranscriptAnnotation {
	t.Helper()
	tas, err := e.Annotate(v)
	require.NoError(t, err)
	for _, ta := range tas {
		if ta.TranscriptID == transcriptID {
			return ta
		}
	}
	require.Failf(t, "transcript not annotated", "%s not in %+v", transcriptID, tas)
	return annotate.TranscriptAnnotation{}
}

func TestParseGTF(t *testing.T) {
	ts, err := ParseGTF(strings.NewReader(testGTF()))
	require.NoError(t, err)
	require.Len(t, ts, 2)

	g1 := ts[0]
	assert.Equal(t, "ENST1", g1.ID)
	assert.Equal(t, "ENSG1", g1.GeneID)
	assert.Equal(t, "G1", g1.GeneName)
	assert.Equal(t, 1, g1.Contig)
	assert.True(t, g1.IsCanonical)
	assert.Equal(t, int64(1052), g1.CDSStart)
	assert.Equal(t, int64(1949), g1.CDSEnd)
	require.Len(t, g1.Exons, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{g1.Exons[0].Frame, g1.Exons[1].Frame, g1.Exons[2].Frame})

	g2 := ts[1]
	assert.Equal(t, int8(-1), g2.Strand)
	assert.False(t, g2.IsProteinCoding())
	require.Len(t, g2.Exons, 2)
	assert.Equal(t, int64(30000), g2.Exons[0].Start)
	assert.Equal(t, 2, g2.Exons[0].Number)
	assert.Equal(t, 1, g2.IntronRank(30500))
}

func TestParseCDS(t *testing.T) {
	seqs, err := ParseCDS(strings.NewReader(testFASTA()))
	require.NoError(t, err)
	assert.Equal(t, testCDS, seqs["ENST1"])
	assert.Len(t, seqs["ENST2"], 301)
}

func TestGenomicToCDS(t *testing.T) {
	ts, err := ParseGTF(strings.NewReader(testGTF()))
	require.NoError(t, err)
	g1 := ts[0]
	tests := []struct {
		pos  int64
		want int64
	}{
		{1052, 1},
		{1100, 49},
		{1150, 0},
		{1201, 50},
		{1901, 150},
		{1949, 198},
		{1990, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, g1.GenomicToCDS(tt.pos), "pos %d", tt.pos)
	}
}

func TestAnnotate_CodingSubstitutions(t *testing.T) {
	e := loadTestEngine(t)
	assert.Equal(t, 2, e.Len())
	assert.Equal(t, contig.HG38, e.Assembly())

	tests := []struct {
		name   string
		pos    int64
		ref    string
		alt    string
		effect annotate.Effect
		hgvsc  string
		hgvsp  string
	}{
		{"missense", 1055, "T", "C", annotate.EffectMissense, "c.4T>C", "p.Trp2Arg"},
		{"stop gained", 1056, "G", "A", annotate.EffectStopGained, "c.5G>A", "p.Trp2Ter"},
		{"synonymous", 1060, "C", "T", annotate.EffectSynonymous, "c.9C>T", "p.Gly3="},
		{"start lost", 1053, "T", "C", annotate.EffectStartLost, "c.2T>C", "p.Met1?"},
		{"stop lost", 1947, "T", "C", annotate.EffectStopLost, "c.196T>C", "p.Ter66Glnext*?"},
		{"stop retained", 1949, "A", "G", annotate.EffectStopRetained, "c.198A>G", "p.Ter66="},
		{"synonymous near boundary", 1099, "T", "C", annotate.EffectSpliceRegion, "c.48T>C", "p.Ala16="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := annotateOne(t, e, snv(t, tt.pos, tt.ref, tt.alt), "ENST1")
			assert.Equal(t, tt.effect, ta.Effect)
			assert.Equal(t, tt.hgvsc, ta.HGVSc)
			assert.Equal(t, tt.hgvsp, ta.HGVSp)
			assert.Equal(t, "G1", ta.GeneSymbol)
			assert.Equal(t, "exon", ta.RankType)
		})
	}
}

func TestAnnotate_CodingIndels(t *testing.T) {
	e := loadTestEngine(t)

	tests := []struct {
		name   string
		pos    int64
		ref    string
		alt    string
		effect annotate.Effect
		hgvsg  string
		hgvsc  string
		hgvsp  string
	}{
		{"frameshift", 1061, "AA", "A", annotate.EffectFrameshift, "1:g.1062del", "c.11del", "p.Asp5fs"},
		{"inframe deletion", 1060, "CAAA", "C", annotate.EffectInframeDeletion, "1:g.1061_1063del", "c.10_12del", "p.Lys4del"},
		{"inframe insertion", 1063, "A", "ATTT", annotate.EffectInframeInsertion, "1:g.1063_1064insTTT", "c.12_13insTTT", "p.Lys4_Asp5insPhe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := annotateOne(t, e, snv(t, tt.pos, tt.ref, tt.alt), "ENST1")
			assert.Equal(t, tt.effect, ta.Effect)
			assert.Equal(t, tt.hgvsg, ta.HGVSg)
			assert.Equal(t, tt.hgvsc, ta.HGVSc)
			assert.Equal(t, tt.hgvsp, ta.HGVSp)
		})
	}
}

func TestAnnotate_Location(t *testing.T) {
	e := loadTestEngine(t)

	tests := []struct {
		name       string
		pos        int64
		transcript string
		effect     annotate.Effect
		rank       int
		rankTotal  int
		distance   int
	}{
		{"5' UTR", 1010, "ENST1", annotate.Effect5PrimeUTR, 1, 3, 0},
		{"3' UTR", 1980, "ENST1", annotate.Effect3PrimeUTR, 3, 3, 0},
		{"intron", 1150, "ENST1", annotate.EffectIntron, 1, 2, 0},
		{"splice donor", 1101, "ENST1", annotate.EffectSpliceDonor, 1, 2, 0},
		{"splice acceptor", 1200, "ENST1", annotate.EffectSpliceAcceptor, 1, 2, 0},
		{"splice region", 1105, "ENST1", annotate.EffectSpliceRegion, 1, 2, 0},
		{"upstream", 900, "ENST1", annotate.EffectUpstream, 0, 0, 100},
		{"downstream", 2100, "ENST1", annotate.EffectDownstream, 0, 0, 100},
		{"reverse strand downstream", 29900, "ENST2", annotate.EffectDownstream, 0, 0, 100},
		{"reverse strand upstream", 31050, "ENST2", annotate.EffectUpstream, 0, 0, 50},
		{"non-coding exon", 30100, "ENST2", annotate.EffectNonCodingExon, 2, 2, 0},
		{"reverse strand intron", 30500, "ENST2", annotate.EffectIntron, 1, 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ta := annotateOne(t, e, snv(t, tt.pos, "A", "G"), tt.transcript)
			assert.Equal(t, tt.effect, ta.Effect)
			assert.Equal(t, tt.rank, ta.Rank)
			assert.Equal(t, tt.rankTotal, ta.RankTotal)
			assert.Equal(t, tt.distance, ta.Distance)
		})
	}
}

func TestAnnotate_Intergenic(t *testing.T) {
	e := loadTestEngine(t)

	tas, err := e.Annotate(snv(t, 20000, "A", "G"))
	require.NoError(t, err)
	require.Len(t, tas, 1)
	assert.Equal(t, annotate.EffectIntergenic, tas[0].Effect)
	assert.Equal(t, "G2", tas[0].GeneSymbol, "nearest transcript wins")
	assert.Equal(t, 10000, tas[0].Distance)
	assert.Equal(t, "1:g.20000A>G", tas[0].HGVSg)

	tas, err = e.Annotate(allele.Variant{Contig: 7, Pos: 10, End: 10, Ref: "A", Alt: "G", Type: allele.SNV})
	require.NoError(t, err)
	assert.Empty(t, tas, "contig without models")

	_, err = e.Annotate(allele.Variant{Contig: 1, Pos: 10, End: 5})
	assert.Error(t, err)
}

func TestAnnotate_Structural(t *testing.T) {
	e := loadTestEngine(t)

	tests := []struct {
		name   string
		alt    string
		pos    int64
		end    int64
		effect annotate.Effect
		hgvsg  string
	}{
		{"whole transcript deletion", "<DEL>", 900, 2100, annotate.EffectTranscriptAblation, "1:g.901_2100del"},
		{"whole transcript duplication", "<DUP>", 900, 2100, annotate.EffectTranscriptAmplification, "1:g.901_2100dup"},
		{"partial exon deletion", "<DEL>", 1050, 1250, annotate.EffectExonLoss, "1:g.1051_1250del"},
		{"intronic deletion", "<DEL>", 1120, 1180, annotate.EffectIntron, "1:g.1121_1180del"},
		{"exonic duplication", "<DUP>", 1210, 1250, annotate.EffectFeatureElongation, "1:g.1211_1250dup"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := allele.NormalizeStructural(allele.StructuralInput{
				Contig: 1, Pos: tt.pos, Ref: "N", Alt: tt.alt, End: tt.end,
			})
			require.NoError(t, err)
			ta := annotateOne(t, e, v, "ENST1")
			assert.Equal(t, tt.effect, ta.Effect)
			assert.Equal(t, tt.hgvsg, ta.HGVSg)
		})
	}
}

func TestAnnotate_ReverseStrandCoding(t *testing.T) {
	// CDS ATG TGG TAA read on the minus strand of chr2:101-109.
	tr := &Transcript{
		ID: "ENST3", GeneID: "ENSG3", GeneName: "G3", Contig: 2,
		Start: 100, End: 200, Strand: -1,
		Exons:       []Exon{{Number: 1, Start: 100, End: 200, CDSStart: 101, CDSEnd: 109}},
		CDSStart:    101,
		CDSEnd:      109,
		CDSSequence: "ATGTGGTAA",
	}
	e := New(contig.HG19, []*Transcript{tr})

	v, err := allele.Normalize(2, 105, "C", "T")
	require.NoError(t, err)
	tas, err := e.Annotate(v)
	require.NoError(t, err)
	require.Len(t, tas, 1)
	assert.Equal(t, annotate.EffectStopGained, tas[0].Effect)
	assert.Equal(t, "c.5G>A", tas[0].HGVSc)
	assert.Equal(t, "p.Trp2Ter", tas[0].HGVSp)

	v, err = allele.Normalize(2, 150, "A", "G")
	require.NoError(t, err)
	tas, err = e.Annotate(v)
	require.NoError(t, err)
	assert.Equal(t, annotate.Effect5PrimeUTR, tas[0].Effect)
}

func TestAnnotate_NoSequenceFallsBackToLength(t *testing.T) {
	ts, err := ParseGTF(strings.NewReader(testGTF()))
	require.NoError(t, err)
	e := New(contig.HG38, ts)

	ta := annotateOne(t, e, snv(t, 1055, "T", "C"), "ENST1")
	assert.Equal(t, annotate.EffectCodingSequence, ta.Effect)
	assert.Equal(t, "c.4T>C", ta.HGVSc)
	assert.Empty(t, ta.HGVSp)

	ta = annotateOne(t, e, snv(t, 1061, "AA", "A"), "ENST1")
	assert.Equal(t, annotate.EffectFrameshift, ta.Effect)
}
