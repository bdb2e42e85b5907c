package store

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/tabix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/vibe-prio/internal/popdata"
)

// tbiRecord is one indexed line, 0-based half open.
type tbiRecord struct {
	chrom      string
	start, end int
}

func (r tbiRecord) RefName() string { return r.chrom }
func (r tbiRecord) Start() int      { return r.start }
func (r tbiRecord) End() int        { return r.end }

// writeTabix bgzips lines (sorted CHROM POS ...) to dir/name and writes
// the matching .tbi index beside it. tabix.Index.Add registers a new
// reference on every call, so each contig is added once with a chunk
// spanning all of its lines.
func writeTabix(t *testing.T, dir, name string, lines []string) string {
	t.Helper()
	path := filepath.Join(dir, name)

	var data bytes.Buffer
	w := bgzf.NewWriter(&data, 1)
	for _, l := range lines {
		_, err := io.WriteString(w, l+"\n")
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	require.NoError(t, os.WriteFile(path, data.Bytes(), 0o644))

	type span struct {
		rec   tbiRecord
		chunk bgzf.Chunk
	}
	var spans []span

	r, err := bgzf.NewReader(bytes.NewReader(data.Bytes()), 1)
	require.NoError(t, err)
	for {
		tx := r.Begin()
		var line []byte
		var err error
		for {
			var b byte
			if b, err = r.ReadByte(); err != nil || b == '\n' {
				break
			}
			line = append(line, b)
		}
		chunk := tx.End()
		if len(line) > 0 && line[0] != '#' {
			fields := strings.Split(string(line), "\t")
			pos, perr := strconv.Atoi(fields[1])
			require.NoError(t, perr)
			if n := len(spans); n > 0 && spans[n-1].rec.chrom == fields[0] {
				spans[n-1].rec.end = pos
				spans[n-1].chunk.End = chunk.End
			} else {
				spans = append(spans, span{tbiRecord{chrom: fields[0], start: pos - 1, end: pos}, chunk})
			}
		}
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}

	idx := tabix.New()
	for _, s := range spans {
		require.NoError(t, idx.Add(s.rec, s.chunk, true, true))
	}
	var ib bytes.Buffer
	iw := bgzf.NewWriter(&ib, 1)
	require.NoError(t, tabix.WriteTo(iw, idx))
	require.NoError(t, iw.Close())
	require.NoError(t, os.WriteFile(path+".tbi", ib.Bytes(), 0o644))
	return path
}

func TestTabixGet(t *testing.T) {
	dir := t.TempDir()
	path := writeTabix(t, dir, "cadd.tsv.gz", []string{
		"#Chrom\tPos\tRef\tAlt\tRawScore\tPHRED",
		"1\t100\tA\tC\t0.1\t5.0",
		"1\t100\tA\tG\t1.2\t20.0",
		"1\t101\tC\tT\t2.2\t30.0",
		"2\t500\tG\tA\t0.4\t10.0",
	})

	cadd, err := OpenTabix(path, CADDConfig)
	require.NoError(t, err)
	defer cadd.Close()

	tests := []struct {
		name string
		key  string
		want float64
		ok   bool
	}{
		{"allele match", "1-100-A-G", 0.99, true},
		{"other allele at same position", "1-100-A-C", 1 - 0.31622776, true},
		{"second contig", "2-500-G-A", 0.9, true},
		{"missing allele", "1-100-A-T", 0, false},
		{"missing position", "1-102-A-G", 0, false},
		{"contig not in index", "3-100-A-G", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := strings.Split(tt.key, "-")
			pos, err := strconv.ParseInt(f[1], 10, 64)
			require.NoError(t, err)

			p, ok := cadd.Get(key(f[0], pos, f[2], f[3]))
			require.Equal(t, tt.ok, ok)
			if !tt.ok {
				return
			}
			require.Len(t, p.Pathogenicities, 1)
			assert.Equal(t, popdata.CADD, p.Pathogenicities[0].Source)
			assert.InDelta(t, tt.want, p.Pathogenicities[0].Score, 1e-5)
		})
	}
}

func TestTabixGetChrPrefixedFile(t *testing.T) {
	path := writeTabix(t, t.TempDir(), "remm.tsv.gz", []string{
		"chr1\t101\t0.73",
		"chr1\t250\t0.12",
	})

	remm, err := OpenTabix(path, REMMConfig)
	require.NoError(t, err)
	defer remm.Close()

	p, ok := remm.Get(key("1", 250, "C", "T"))
	require.True(t, ok)
	require.Len(t, p.Pathogenicities, 1)
	assert.Equal(t, popdata.REMM, p.Pathogenicities[0].Source)
	assert.InDelta(t, 0.12, p.Pathogenicities[0].Score, 1e-6)

	p, ok = remm.Get(key("1", 101, "G", "A"))
	require.True(t, ok, "REMM scores are position-level")
	assert.InDelta(t, 0.73, p.Pathogenicities[0].Score, 1e-6)
}
