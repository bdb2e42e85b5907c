package annotate

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"

	"github.com/inodb/vibe-prio/internal/contig"
	"github.com/inodb/vibe-prio/internal/interval"
)

// RegulatoryFeature is an enhancer, promoter or similar regulatory element.
type RegulatoryFeature struct {
	Contig int
	Start  int64 // 1-based inclusive
	End    int64 // 1-based inclusive
	Type   string
}

// RegulatoryIndex answers overlap queries against regulatory features,
// partitioned by contig.
type RegulatoryIndex struct {
	index *interval.Index[RegulatoryFeature]
}

// NewRegulatoryIndex builds an index over the given features.
func NewRegulatoryIndex(features []RegulatoryFeature) *RegulatoryIndex {
	byContig := make(map[int][]interval.Feature[RegulatoryFeature])
	for _, f := range features {
		byContig[f.Contig] = append(byContig[f.Contig], interval.Feature[RegulatoryFeature]{
			Start: f.Start, End: f.End, Value: f,
		})
	}
	return &RegulatoryIndex{index: interval.NewIndex(byContig)}
}

// Overlaps reports whether any regulatory feature intersects iv.
// A nil index never overlaps.
func (r *RegulatoryIndex) Overlaps(iv interval.Interval) bool {
	if r == nil {
		return false
	}
	return r.index.Any(iv)
}

// Features returns the regulatory features intersecting iv.
func (r *RegulatoryIndex) Features(iv interval.Interval) []RegulatoryFeature {
	if r == nil {
		return nil
	}
	return r.index.Overlapping(iv)
}

// Len returns the number of indexed features.
func (r *RegulatoryIndex) Len() int {
	if r == nil {
		return 0
	}
	return r.index.Len()
}

// LoadRegulatory reads a BED file (chrom, 0-based start, end, optional type)
// that may be gzip compressed. Features on unknown contigs are dropped.
func LoadRegulatory(path string) (*RegulatoryIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open regulatory file: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, _ := br.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	features, err := parseRegulatory(r)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return NewRegulatoryIndex(features), nil
}

func parseRegulatory(r io.Reader) ([]RegulatoryFeature, error) {
	var features []RegulatoryFeature
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		if line == "" || line[0] == '#' || strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 3 {
			return nil, fmt.Errorf("line %d: expected at least 3 columns", lineNum)
		}
		id := contig.ID(fields[0])
		if id == contig.Unknown {
			continue
		}
		start, err := strconv.ParseInt(fields[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid start %q", lineNum, fields[1])
		}
		end, err := strconv.ParseInt(fields[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: invalid end %q", lineNum, fields[2])
		}
		rf := RegulatoryFeature{Contig: id, Start: start + 1, End: end}
		if len(fields) > 3 {
			rf.Type = fields[3]
		}
		features = append(features, rf)
	}
	return features, scanner.Err()
}
