package svmatch

import (
	"bufio"
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/interval"
	"github.com/inodb/vibe-prio/internal/popdata"
)

// clinVarSource tags ClinVar rows in the sv_catalogue table.
const clinVarSource = "CLINVAR"

// DuckDBSource reads structural variant catalogue entries from the
// sv_catalogue table. It shares the connection of the allele store.
type DuckDBSource struct {
	db     *sql.DB
	freqPS *sql.Stmt
	clinPS *sql.Stmt
	logger *zap.Logger
}

const windowQuery = `SELECT contig, start_pos, end_pos, sv_type, source, id, ac, percent, has_freq, clnsig
	FROM sv_catalogue
	WHERE contig=? AND start_pos BETWEEN ? AND ? AND end_pos BETWEEN ? AND ?`

// NewDuckDBSource creates the sv_catalogue table if needed and prepares
// window queries on db.
func NewDuckDBSource(db *sql.DB) (*DuckDBSource, error) {
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS sv_catalogue (
		contig BIGINT,
		start_pos BIGINT,
		end_pos BIGINT,
		sv_type VARCHAR,
		source VARCHAR,
		id VARCHAR,
		ac BIGINT,
		percent FLOAT,
		has_freq BOOLEAN,
		clnsig VARCHAR
	)`); err != nil {
		return nil, fmt.Errorf("create sv_catalogue: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_sv_window ON sv_catalogue (contig, start_pos)`); err != nil {
		return nil, fmt.Errorf("index sv_catalogue: %w", err)
	}

	s := &DuckDBSource{db: db, logger: zap.NewNop()}
	var err error
	s.freqPS, err = db.Prepare(windowQuery + ` AND source <> '` + clinVarSource + `' ORDER BY start_pos, end_pos, id`)
	if err != nil {
		return nil, fmt.Errorf("prepare frequency query: %w", err)
	}
	s.clinPS, err = db.Prepare(windowQuery + ` AND source = '` + clinVarSource + `' ORDER BY start_pos, end_pos, id`)
	if err != nil {
		s.freqPS.Close()
		return nil, fmt.Errorf("prepare clinvar query: %w", err)
	}
	return s, nil
}

// SetLogger sets the logger for skipped rows.
func (s *DuckDBSource) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Close releases the prepared statements. The shared connection stays open.
func (s *DuckDBSource) Close() error {
	s.freqPS.Close()
	return s.clinPS.Close()
}

// Count returns the number of catalogue rows.
func (s *DuckDBSource) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM sv_catalogue").Scan(&n); err != nil {
		return 0, fmt.Errorf("count sv_catalogue: %w", err)
	}
	return n, nil
}

// Frequencies implements Source.
func (s *DuckDBSource) Frequencies(w interval.Window) ([]Candidate, error) {
	return s.query(s.freqPS, w)
}

// ClinVar implements Source.
func (s *DuckDBSource) ClinVar(w interval.Window) ([]Candidate, error) {
	return s.query(s.clinPS, w)
}

func (s *DuckDBSource) query(ps *sql.Stmt, w interval.Window) ([]Candidate, error) {
	rows, err := ps.Query(int64(w.Contig), w.StartMin, w.StartMax, w.EndMin, w.EndMax)
	if err != nil {
		return nil, fmt.Errorf("query sv_catalogue: %w", err)
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		var (
			contigID, start, end, ac   int64
			svType, source, id, clnsig string
			percent                    float32
			hasFreq                    bool
		)
		if err := rows.Scan(&contigID, &start, &end, &svType, &source, &id, &ac, &percent, &hasFreq, &clnsig); err != nil {
			return nil, fmt.Errorf("scan sv_catalogue row: %w", err)
		}
		c := Candidate{
			Interval:     interval.New(int(contigID), start, end),
			Type:         allele.ParseType(svType),
			ID:           id,
			Count:        int(ac),
			Percent:      percent,
			HasFrequency: hasFreq,
		}
		if source == clinVarSource {
			c.ClinSig = popdata.ClinSig(clnsig)
		} else {
			c.Source = popdata.FrequencySource(source)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// LoadStats summarises a bulk load.
type LoadStats struct {
	Rows    int
	Skipped int
}

// LoadFile bulk-loads a catalogue TSV, optionally gzip-compressed.
func (s *DuckDBSource) LoadFile(path string) (LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadStats{}, fmt.Errorf("open sv catalogue: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return LoadStats{}, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return s.Load(r)
}

// Load bulk-loads catalogue rows:
//
//	CHROM START END SVTYPE SOURCE ID AC AF
//
// START and END are 1-based inclusive. AF is an allele fraction, or "." when
// unknown. For SOURCE CLINVAR the AF column carries the CLNSIG value.
func (s *DuckDBSource) Load(r io.Reader) (LoadStats, error) {
	var stats LoadStats
	var cands []Candidate

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		c, err := parseCatalogueRow(line)
		if err != nil {
			s.logger.Debug("skipping sv catalogue row", zap.Int("line", lineNum), zap.Error(err))
			stats.Skipped++
			continue
		}
		cands = append(cands, c)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan sv catalogue: %w", err)
	}
	if err := s.appendRows(cands); err != nil {
		return stats, err
	}
	stats.Rows = len(cands)
	return stats, nil
}

func parseCatalogueRow(line string) (Candidate, error) {
	f := strings.Split(line, "\t")
	if len(f) < 8 {
		return Candidate{}, fmt.Errorf("expected 8 columns, got %d", len(f))
	}
	contigID, err := contig.Resolve(f[0])
	if err != nil {
		return Candidate{}, err
	}
	start, err1 := strconv.ParseInt(f[1], 10, 64)
	end, err2 := strconv.ParseInt(f[2], 10, 64)
	if err1 != nil || err2 != nil || end < start {
		return Candidate{}, fmt.Errorf("invalid span %s-%s", f[1], f[2])
	}
	t := allele.ParseType(f[3])
	if !t.IsStructural() {
		return Candidate{}, fmt.Errorf("not a structural type %q", f[3])
	}

	c := Candidate{Interval: interval.New(contigID, start, end), Type: t, ID: f[5]}
	if f[6] != "." && f[6] != "" {
		n, err := strconv.Atoi(f[6])
		if err != nil {
			return Candidate{}, fmt.Errorf("invalid count %q", f[6])
		}
		c.Count = n
	}

	if strings.EqualFold(f[4], clinVarSource) {
		c.ClinSig = popdata.ParseClinSig(f[7])
		return c, nil
	}
	src, err := popdata.ParseFrequencySource(f[4])
	if err != nil {
		return Candidate{}, err
	}
	c.Source = src
	if f[7] != "." && f[7] != "" {
		af, err := strconv.ParseFloat(f[7], 64)
		if err != nil {
			return Candidate{}, fmt.Errorf("invalid allele fraction %q", f[7])
		}
		c.Percent, c.HasFrequency = popdata.FromFraction(af), true
	}
	return c, nil
}

func (s *DuckDBSource) appendRows(cands []Candidate) error {
	if len(cands) == 0 {
		return nil
	}
	conn, err := s.db.Conn(context.Background())
	if err != nil {
		return fmt.Errorf("get connection: %w", err)
	}
	defer conn.Close()

	var appender *goduckdb.Appender
	if err := conn.Raw(func(driverConn any) error {
		var err error
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "sv_catalogue")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, c := range cands {
		source := string(c.Source)
		if source == "" {
			source = clinVarSource
		}
		if err := appender.AppendRow(
			int64(c.Interval.Contig), c.Interval.Start, c.Interval.End, c.Type.String(),
			source, c.ID, int64(c.Count), c.Percent, c.HasFrequency, string(c.ClinSig),
		); err != nil {
			return fmt.Errorf("append sv catalogue row: %w", err)
		}
	}
	return appender.Flush()
}
