package store

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/biogo/hts/bgzf"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/tabix"
	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/popdata"
)

// TabixConfig describes the column layout of a tabix-indexed score file.
// Columns are 0-based; the first four are CHROM POS REF ALT.
type TabixConfig struct {
	Source         popdata.PathogenicitySource
	ScoreColumn    int
	AlleleSpecific bool
}

var (
	// CADDConfig reads CADD whole-genome SNV files (CHROM POS REF ALT RAW PHRED).
	CADDConfig = TabixConfig{Source: popdata.CADD, ScoreColumn: 5, AlleleSpecific: true}
	// REMMConfig reads REMM position scores (CHROM POS SCORE).
	REMMConfig = TabixConfig{Source: popdata.REMM, ScoreColumn: 2}
)

// Tabix is a single-predictor allele store reading a bgzip-compressed,
// tabix-indexed TSV.
type Tabix struct {
	mu     sync.Mutex
	cfg    TabixConfig
	path   string
	idx    *tabix.Index
	file   *os.File
	bgzf   *bgzf.Reader
	logger *zap.Logger
}

// OpenTabix opens path and its path+".tbi" index.
func OpenTabix(path string, cfg TabixConfig) (*Tabix, error) {
	unavailable := func(err error) error {
		return &UnavailableError{Name: strings.ToLower(string(cfg.Source)), Path: path, Err: err}
	}

	idx, err := readTabixIndex(path + ".tbi")
	if err != nil {
		return nil, unavailable(err)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, unavailable(err)
	}
	bgz, err := bgzf.NewReader(f, 1)
	if err != nil {
		f.Close()
		return nil, unavailable(fmt.Errorf("open bgzf reader: %w", err))
	}
	return &Tabix{cfg: cfg, path: path, idx: idx, file: f, bgzf: bgz, logger: zap.NewNop()}, nil
}

func readTabixIndex(path string) (*tabix.Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	gz, err := pgzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	defer gz.Close()
	idx, err := tabix.ReadFrom(gz)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	if idx == nil {
		return nil, fmt.Errorf("read index: no references")
	}
	return idx, nil
}

// SetLogger sets the logger for lookup failures.
func (t *Tabix) SetLogger(l *zap.Logger) {
	t.logger = l
}

// Close releases the data file.
func (t *Tabix) Close() error {
	t.bgzf.Close()
	return t.file.Close()
}

// region is a 0-based half-open query interval.
type region struct {
	chrom      string
	start, end int
}

// Get implements AlleleStore.
func (t *Tabix) Get(key allele.Key) (popdata.Properties, bool) {
	name := contig.Name(key.Contig)
	q := region{chrom: name, start: int(key.Pos) - 1, end: int(key.Pos)}

	t.mu.Lock()
	defer t.mu.Unlock()

	chunks, err := t.idx.Chunks(q.chrom, q.start, q.end)
	if err != nil {
		if strings.HasPrefix(name, "chr") {
			q.chrom = name[3:]
		} else {
			q.chrom = "chr" + name
		}
		chunks, err = t.idx.Chunks(q.chrom, q.start, q.end)
	}
	if err != nil || len(chunks) == 0 {
		return popdata.Properties{}, false
	}

	cr, err := index.NewChunkReader(t.bgzf, chunks)
	if err != nil {
		t.logger.Debug("tabix chunk read failed", zap.String("path", t.path), zap.Error(err))
		return popdata.Properties{}, false
	}
	defer cr.Close()

	score, ok, err := t.scan(cr, key)
	if err != nil {
		t.logger.Debug("tabix scan failed", zap.String("path", t.path), zap.Error(err))
		return popdata.Properties{}, false
	}
	if !ok {
		return popdata.Properties{}, false
	}
	return popdata.Properties{
		Pathogenicities: []popdata.Pathogenicity{{
			Source: t.cfg.Source,
			Score:  popdata.NormalizeScore(t.cfg.Source, score),
		}},
	}, true
}

func (t *Tabix) scan(r io.Reader, key allele.Key) (float64, bool, error) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) <= t.cfg.ScoreColumn || contig.ID(fields[0]) != key.Contig {
			continue
		}
		pos, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil || pos != key.Pos {
			continue
		}
		if t.cfg.AlleleSpecific && (len(fields) < 4 || fields[2] != key.Ref || fields[3] != key.Alt) {
			continue
		}
		score, err := strconv.ParseFloat(fields[t.cfg.ScoreColumn], 64)
		if err != nil {
			return 0, false, fmt.Errorf("parse score %q: %w", fields[t.cfg.ScoreColumn], err)
		}
		return score, true, nil
	}
	return 0, false, scanner.Err()
}
