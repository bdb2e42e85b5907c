// Package alphamissense provides AlphaMissense pathogenicity score lookups
// backed by DuckDB. AlphaMissense data is loaded from the official TSV files
// (Cheng et al., Science 2023, CC BY 4.0).
package alphamissense

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/popdata"
	"github.com/inodb/vibe-prio/internal/store"
)

// amEntry is a compact in-memory representation of an AlphaMissense variant.
type amEntry struct {
	pos    int64
	refAlt uint8 // encodeBase(ref)<<2 | encodeBase(alt)
	score  float32
	class  uint8 // 0=likely_benign, 1=ambiguous, 2=likely_pathogenic
}

func encodeBase(b byte) uint8 {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return 0
}

func encodeClass(class string) uint8 {
	switch class {
	case "likely_benign":
		return 0
	case "ambiguous":
		return 1
	case "likely_pathogenic":
		return 2
	}
	return 1
}

var classNames = [3]string{"likely_benign", "ambiguous", "likely_pathogenic"}

// Store provides AlphaMissense score lookups backed by DuckDB. It
// implements store.AlleleStore for SNVs.
type Store struct {
	db       *sql.DB
	path     string
	lookupPS *sql.Stmt
	logger   *zap.Logger

	// Sorted per-contig slices, populated by PreloadToMemory.
	mu       sync.RWMutex
	memCache map[int][]amEntry
}

var _ store.AlleleStore = (*Store)(nil)

// Open opens or creates a DuckDB database for AlphaMissense data at the given path.
func Open(dbPath string) (*Store, error) {
	unavailable := func(err error) error {
		return &store.UnavailableError{Name: "alphamissense", Path: dbPath, Err: err}
	}
	if dbPath != "" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, unavailable(fmt.Errorf("create directory: %w", err))
		}
	}

	db, err := sql.Open("duckdb", dbPath)
	if err != nil {
		return nil, unavailable(fmt.Errorf("open duckdb: %w", err))
	}

	s := &Store{db: db, path: dbPath, logger: zap.NewNop()}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, unavailable(fmt.Errorf("ensure schema: %w", err))
	}
	s.lookupPS, err = db.Prepare(
		"SELECT am_pathogenicity, am_class FROM alphamissense WHERE chrom=? AND pos=? AND ref=? AND alt=? LIMIT 1",
	)
	if err != nil {
		db.Close()
		return nil, unavailable(fmt.Errorf("prepare lookup: %w", err))
	}
	return s, nil
}

// chrom is stored without a "chr" prefix so it matches contig.Name.
func (s *Store) ensureSchema() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS alphamissense (
		chrom VARCHAR,
		pos BIGINT,
		ref VARCHAR,
		alt VARCHAR,
		am_pathogenicity FLOAT,
		am_class VARCHAR
	)`); err != nil {
		return err
	}
	_, err := s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_am_lookup ON alphamissense (chrom, pos, ref, alt)`)
	return err
}

// SetLogger sets the logger for lookup failures.
func (s *Store) SetLogger(l *zap.Logger) {
	s.logger = l
}

// Loaded returns true if the AlphaMissense table has data.
func (s *Store) Loaded() bool {
	n, err := s.Count()
	return err == nil && n > 0
}

// Count returns the number of rows in the AlphaMissense table.
func (s *Store) Count() (int64, error) {
	var count int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM alphamissense").Scan(&count); err != nil {
		return 0, fmt.Errorf("count alphamissense rows: %w", err)
	}
	return count, nil
}

// Load bulk-loads AlphaMissense data from a (gzipped) TSV file using
// DuckDB's read_csv, replacing any existing rows. The file has 3 comment
// lines, then a header:
//
//	#CHROM  POS  REF  ALT  genome  uniprot_id  transcript_id  protein_variant  am_pathogenicity  am_class
func (s *Store) Load(tsvPath string) error {
	if _, err := s.db.Exec(`DELETE FROM alphamissense`); err != nil {
		return fmt.Errorf("clear alphamissense table: %w", err)
	}

	// One row per transcript; scores for the same allele are identical.
	query := fmt.Sprintf(`INSERT INTO alphamissense
		SELECT DISTINCT regexp_replace(column0, '^chr', ''), column1, column2, column3,
			CAST(column8 AS FLOAT), column9
		FROM read_csv('%s', delim='\t', header=false, skip=4,
			columns={
				'column0': 'VARCHAR',
				'column1': 'BIGINT',
				'column2': 'VARCHAR',
				'column3': 'VARCHAR',
				'column4': 'VARCHAR',
				'column5': 'VARCHAR',
				'column6': 'VARCHAR',
				'column7': 'VARCHAR',
				'column8': 'VARCHAR',
				'column9': 'VARCHAR'
			})`, tsvPath)

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("loading AlphaMissense data: %w", err)
	}
	return nil
}

// Result holds a single AlphaMissense lookup result.
type Result struct {
	Score float64
	Class string
}

// PreloadToMemory loads all AlphaMissense data from DuckDB into sorted
// in-memory slices for O(log n) lookup without database overhead.
func (s *Store) PreloadToMemory() error {
	rows, err := s.db.Query("SELECT DISTINCT chrom, pos, ref, alt, am_pathogenicity, am_class FROM alphamissense ORDER BY chrom, pos")
	if err != nil {
		return fmt.Errorf("query alphamissense for preload: %w", err)
	}
	defer rows.Close()

	cache := make(map[int][]amEntry)
	skipped := 0
	for rows.Next() {
		var chrom, ref, alt, class string
		var pos int64
		var score float32
		if err := rows.Scan(&chrom, &pos, &ref, &alt, &score, &class); err != nil {
			return fmt.Errorf("scan preload row: %w", err)
		}
		id := contig.ID(chrom)
		if id == contig.Unknown || len(ref) != 1 || len(alt) != 1 {
			skipped++
			continue
		}
		cache[id] = append(cache[id], amEntry{
			pos:    pos,
			refAlt: encodeBase(ref[0])<<2 | encodeBase(alt[0]),
			score:  score,
			class:  encodeClass(class),
		})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("preload rows: %w", err)
	}
	for _, entries := range cache {
		sort.SliceStable(entries, func(i, j int) bool { return entries[i].pos < entries[j].pos })
	}

	s.mu.Lock()
	s.memCache = cache
	s.mu.Unlock()
	s.logger.Info("preloaded AlphaMissense scores",
		zap.Int64("variants", s.MemCacheSize()),
		zap.Int("skipped", skipped))
	return nil
}

// MemCacheSize returns the number of variants in the in-memory cache, or 0 if not loaded.
func (s *Store) MemCacheSize() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, entries := range s.memCache {
		n += int64(len(entries))
	}
	return n
}

// Lookup queries the AlphaMissense score for an SNV. The in-memory cache is
// used when loaded, otherwise DuckDB is queried.
func (s *Store) Lookup(contigID int, pos int64, ref, alt string) (Result, bool) {
	if len(ref) != 1 || len(alt) != 1 {
		return Result{}, false
	}

	s.mu.RLock()
	cache := s.memCache
	s.mu.RUnlock()
	if cache != nil {
		entries := cache[contigID]
		target := encodeBase(ref[0])<<2 | encodeBase(alt[0])
		i := sort.Search(len(entries), func(i int) bool { return entries[i].pos >= pos })
		for ; i < len(entries) && entries[i].pos == pos; i++ {
			if entries[i].refAlt == target {
				return Result{Score: float64(entries[i].score), Class: classNames[entries[i].class]}, true
			}
		}
		return Result{}, false
	}

	var r Result
	if err := s.lookupPS.QueryRow(contig.Name(contigID), pos, ref, alt).Scan(&r.Score, &r.Class); err != nil {
		if err != sql.ErrNoRows {
			s.logger.Debug("alphamissense lookup failed", zap.Error(err))
		}
		return Result{}, false
	}
	return r, true
}

// Get implements store.AlleleStore, returning the score as an
// ALPHA_MISSENSE pathogenicity.
func (s *Store) Get(key allele.Key) (popdata.Properties, bool) {
	r, ok := s.Lookup(key.Contig, key.Pos, key.Ref, key.Alt)
	if !ok {
		return popdata.Properties{}, false
	}
	return popdata.Properties{
		Pathogenicities: []popdata.Pathogenicity{{
			Source: popdata.AlphaMissense,
			Score:  popdata.NormalizeScore(popdata.AlphaMissense, r.Score),
		}},
	}, true
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.lookupPS.Close()
	return s.db.Close()
}
