package alphamissense

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/popdata"
	"github.com/inodb/vibe-prio/internal/store"
)

// Small test fixture in AlphaMissense TSV format.
const testTSV = `# Copyright 2023 Google LLC
#
# Data licensed under CC BY 4.0
#CHROM	POS	REF	ALT	genome	uniprot_id	transcript_id	protein_variant	am_pathogenicity	am_class
chr1	69094	G	A	hg38	Q8NH21	ENST00000335137.4	V2M	0.0782	likely_benign
chr1	69094	G	C	hg38	Q8NH21	ENST00000335137.4	V2L	0.0891	likely_benign
chr12	25245350	C	A	hg38	P01116	ENST00000256078.10	G12C	0.9876	likely_pathogenic
chr12	25245350	C	A	hg38	P01116	ENST00000311936.8	G12C	0.9876	likely_pathogenic
chr12	25245350	C	T	hg38	P01116	ENST00000256078.10	G12D	0.8234	likely_pathogenic
chr17	7674220	C	T	hg38	P04637	ENST00000269305.9	R248Q	0.6543	ambiguous
`

func writeTSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test_am.tsv")
	require.NoError(t, os.WriteFile(path, []byte(testTSV), 0644))
	return path
}

func loadedStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Load(writeTSV(t)))
	return s
}

func TestLoadAndLookup(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.Loaded(), "should be empty before load")
	require.NoError(t, s.Load(writeTSV(t)))
	assert.True(t, s.Loaded(), "should have data after load")

	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n, "per-transcript duplicates collapse")

	// KRAS G12C
	r, ok := s.Lookup(12, 25245350, "C", "A")
	assert.True(t, ok)
	assert.InDelta(t, 0.9876, r.Score, 0.001)
	assert.Equal(t, "likely_pathogenic", r.Class)

	r, ok = s.Lookup(12, 25245350, "C", "T")
	assert.True(t, ok)
	assert.InDelta(t, 0.8234, r.Score, 0.001)

	_, ok = s.Lookup(12, 99999999, "A", "T")
	assert.False(t, ok)
	_, ok = s.Lookup(12, 25245350, "CA", "C")
	assert.False(t, ok, "only SNVs are scored")
}

func TestLoadReplaces(t *testing.T) {
	s := loadedStore(t)
	require.NoError(t, s.Load(writeTSV(t)))
	n, err := s.Count()
	require.NoError(t, err)
	assert.Equal(t, int64(5), n)
}

func TestPreloadToMemory(t *testing.T) {
	s := loadedStore(t)
	assert.Equal(t, int64(0), s.MemCacheSize())
	require.NoError(t, s.PreloadToMemory())
	assert.Equal(t, int64(5), s.MemCacheSize())

	tests := []struct {
		name      string
		contig    int
		pos       int64
		ref, alt  string
		wantOK    bool
		wantScore float64
		wantClass string
	}{
		{"first allele at position", 1, 69094, "G", "A", true, 0.0782, "likely_benign"},
		{"second allele at position", 1, 69094, "G", "C", true, 0.0891, "likely_benign"},
		{"TP53", 17, 7674220, "C", "T", true, 0.6543, "ambiguous"},
		{"wrong alt", 17, 7674220, "C", "G", false, 0, ""},
		{"unloaded contig", 2, 69094, "G", "A", false, 0, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ok := s.Lookup(tt.contig, tt.pos, tt.ref, tt.alt)
			require.Equal(t, tt.wantOK, ok)
			if ok {
				assert.InDelta(t, tt.wantScore, r.Score, 0.001)
				assert.Equal(t, tt.wantClass, r.Class)
			}
		})
	}
}

func TestGetAsAlleleStore(t *testing.T) {
	s := loadedStore(t)
	var as store.AlleleStore = s

	p, ok := as.Get(allele.Key{Contig: contig.ID("chr12"), Pos: 25245350, Ref: "C", Alt: "A"})
	require.True(t, ok)
	require.Len(t, p.Pathogenicities, 1)
	assert.Equal(t, popdata.AlphaMissense, p.Pathogenicities[0].Source)
	assert.InDelta(t, 0.9876, p.Pathogenicities[0].Score, 0.001)
	assert.Empty(t, p.Frequencies)

	_, ok = as.Get(allele.Key{Contig: 1, Pos: 1, Ref: "A", Alt: "T"})
	assert.False(t, ok)
}

func TestLookupEmpty(t *testing.T) {
	s, err := Open("")
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Lookup(1, 1, "A", "T")
	assert.False(t, ok)
}

func TestOpenUnavailable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, nil, 0644))

	_, err := Open(filepath.Join(file, "am.duckdb"))
	require.Error(t, err)
	var ue *store.UnavailableError
	assert.True(t, errors.As(err, &ue))
}
