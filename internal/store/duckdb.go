package store

import (
	"bufio"
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	goduckdb "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/popdata"
)

// Row kinds of the allele_properties table.
const (
	KindID            = "id"
	KindFrequency     = "frequency"
	KindPathogenicity = "pathogenicity"
	KindClinVar       = "clinvar"
)

// DuckDB is an allele store holding one row per (allele, property) in a
// DuckDB database.
type DuckDB struct {
	db     *sql.DB
	path   string
	get    *sql.Stmt
	logger *zap.Logger
}

// OpenDuckDB opens or creates a store at path. Use an empty path for an
// in-memory database.
func OpenDuckDB(path string) (*DuckDB, error) {
	unavailable := func(err error) error {
		return &UnavailableError{Name: "duckdb", Path: path, Err: err}
	}
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, unavailable(fmt.Errorf("create directory: %w", err))
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, unavailable(fmt.Errorf("open duckdb: %w", err))
	}
	s := &DuckDB{db: db, path: path, logger: zap.NewNop()}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, unavailable(fmt.Errorf("ensure schema: %w", err))
	}
	s.get, err = db.Prepare(`SELECT kind, source, value, ac, an, homs, text, review
		FROM allele_properties
		WHERE contig=? AND pos=? AND ref=? AND alt=?
		ORDER BY kind, source`)
	if err != nil {
		db.Close()
		return nil, unavailable(fmt.Errorf("prepare lookup: %w", err))
	}
	return s, nil
}

func (s *DuckDB) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS allele_properties (
		contig BIGINT,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		kind VARCHAR,
		source VARCHAR,
		value FLOAT,
		ac BIGINT,
		an BIGINT,
		homs BIGINT,
		text VARCHAR,
		review VARCHAR
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_allele_lookup ON allele_properties (contig, pos, ref, alt)`)
	return err
}

// SetLogger sets the logger for lookup failures.
func (s *DuckDB) SetLogger(l *zap.Logger) {
	s.logger = l
}

// DB returns the underlying *sql.DB.
func (s *DuckDB) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *DuckDB) Close() error {
	s.get.Close()
	return s.db.Close()
}

// Count returns the number of property rows.
func (s *DuckDB) Count() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM allele_properties").Scan(&n); err != nil {
		return 0, fmt.Errorf("count allele properties: %w", err)
	}
	return n, nil
}

// Get implements AlleleStore. Query failures are logged and reported as a
// miss.
func (s *DuckDB) Get(key allele.Key) (popdata.Properties, bool) {
	rows, err := s.get.Query(int64(key.Contig), key.Pos, key.Ref, key.Alt)
	if err != nil {
		s.logger.Debug("allele lookup failed", zap.String("key", key.String()), zap.Error(err))
		return popdata.Properties{}, false
	}
	defer rows.Close()

	var p popdata.Properties
	found := false
	for rows.Next() {
		var (
			kind, source, text, review string
			value                      float32
			ac, an, homs               int64
		)
		if err := rows.Scan(&kind, &source, &value, &ac, &an, &homs, &text, &review); err != nil {
			s.logger.Debug("scan allele properties", zap.String("key", key.String()), zap.Error(err))
			return popdata.Properties{}, false
		}
		found = true
		switch kind {
		case KindID:
			p.ID = text
		case KindFrequency:
			p.Frequencies = append(p.Frequencies, popdata.Frequency{
				Source:  popdata.FrequencySource(source),
				Percent: value,
				AC:      int(ac),
				AN:      int(an),
				Homs:    int(homs),
			})
		case KindPathogenicity:
			p.Pathogenicities = append(p.Pathogenicities, popdata.Pathogenicity{
				Source: popdata.PathogenicitySource(source),
				Score:  value,
			})
		case KindClinVar:
			p.ClinVar = popdata.ClinVarData{
				AlleleID:     text,
				Significance: popdata.ClinSig(source),
				ReviewStatus: review,
			}
		}
	}
	if err := rows.Err(); err != nil {
		s.logger.Debug("iterate allele properties", zap.String("key", key.String()), zap.Error(err))
		return popdata.Properties{}, false
	}
	return p, found
}

// LoadStats summarises a bulk load.
type LoadStats struct {
	Rows    int
	Skipped int
}

type propertyRow struct {
	key          allele.Key
	kind, source string
	value        float32
	ac, an, homs int64
	text, review string
}

// LoadFile bulk-loads a property TSV, optionally gzip-compressed.
func (s *DuckDB) LoadFile(path string) (LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return LoadStats{}, fmt.Errorf("open property file: %w", err)
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

// Load bulk-loads tab-separated property rows:
//
//	CHROM POS REF ALT KIND SOURCE VALUE [EXTRA...]
//
// KIND is one of id (VALUE is the identifier), frequency (VALUE in percent,
// optional AC AN HOMS), pathogenicity (VALUE is the raw predictor score) or
// clinvar (SOURCE is the significance, VALUE the allele id, EXTRA the review
// status). Alleles are normalized before insertion; rows that cannot be
// normalized or name an unknown source are skipped.
func (s *DuckDB) Load(r io.Reader) (LoadStats, error) {
	var stats LoadStats
	var rows []propertyRow

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		row, err := parsePropertyRow(line)
		if err != nil {
			s.logger.Debug("skipping property row", zap.Int("line", lineNum), zap.Error(err))
			stats.Skipped++
			continue
		}
		rows = append(rows, row)
	}
	if err := scanner.Err(); err != nil {
		return stats, fmt.Errorf("scan property file: %w", err)
	}

	if err := s.appendRows(rows); err != nil {
		return stats, err
	}
	stats.Rows = len(rows)
	return stats, nil
}

func parsePropertyRow(line string) (propertyRow, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 7 {
		return propertyRow{}, fmt.Errorf("expected at least 7 columns, got %d", len(fields))
	}
	contigID, err := contig.Resolve(fields[0])
	if err != nil {
		return propertyRow{}, err
	}
	pos, err := strconv.ParseInt(fields[1], 10, 64)
	if err != nil {
		return propertyRow{}, fmt.Errorf("invalid position %q", fields[1])
	}
	v, err := allele.Normalize(contigID, pos, fields[2], fields[3])
	if err != nil {
		return propertyRow{}, err
	}

	row := propertyRow{key: v.Key(), kind: fields[4]}
	extra := fields[7:]
	switch row.kind {
	case KindID:
		row.text = fields[6]
	case KindFrequency:
		src, err := popdata.ParseFrequencySource(fields[5])
		if err != nil {
			return propertyRow{}, err
		}
		pct, err := strconv.ParseFloat(fields[6], 32)
		if err != nil {
			return propertyRow{}, fmt.Errorf("invalid frequency %q", fields[6])
		}
		row.source, row.value = string(src), float32(pct)
		counts := []*int64{&row.ac, &row.an, &row.homs}
		for i := 0; i < len(extra) && i < len(counts); i++ {
			*counts[i], _ = strconv.ParseInt(extra[i], 10, 64)
		}
	case KindPathogenicity:
		src, err := popdata.ParsePathogenicitySource(fields[5])
		if err != nil {
			return propertyRow{}, err
		}
		raw, err := strconv.ParseFloat(fields[6], 64)
		if err != nil {
			return propertyRow{}, fmt.Errorf("invalid score %q", fields[6])
		}
		row.source, row.value = string(src), popdata.NormalizeScore(src, raw)
	case KindClinVar:
		row.source = string(popdata.ParseClinSig(fields[5]))
		row.text = fields[6]
		if len(extra) > 0 {
			row.review = extra[0]
		}
	default:
		return propertyRow{}, fmt.Errorf("unknown row kind %q", row.kind)
	}
	return row, nil
}

// appendRows inserts rows through the DuckDB Appender API.
func (s *DuckDB) appendRows(rows []propertyRow) error {
	if len(rows) == 0 {
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
		appender, err = goduckdb.NewAppenderFromConn(driverConn.(driver.Conn), "", "allele_properties")
		return err
	}); err != nil {
		return fmt.Errorf("create appender: %w", err)
	}
	defer appender.Close()

	for _, r := range rows {
		if err := appender.AppendRow(
			int64(r.key.Contig), r.key.Pos, r.key.Ref, r.key.Alt,
			r.kind, r.source, r.value, r.ac, r.an, r.homs, r.text, r.review,
		); err != nil {
			return fmt.Errorf("append property row: %w", err)
		}
	}
	return appender.Flush()
}
