package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
)

// LoadCDS reads a GENCODE transcript FASTA and returns the coding
// sequence of each transcript, keyed by unversioned transcript ID.
func LoadCDS(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open FASTA file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gz, err := pgzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}
	return ParseCDS(r)
}

// ParseCDS parses FASTA records. GENCODE headers look like
//
//	>ENST00000456328.2|ENSG00000290825.1|...|UTR5:1-200|CDS:201-459|UTR3:460-1657|
//
// and only the CDS slice is kept. Headers without a CDS range keep the
// whole sequence.
func ParseCDS(r io.Reader) (map[string]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 10*1024*1024)

	seqs := make(map[string]string)
	var (
		id       string
		cdsRange [2]int
		hasRange bool
		seq      strings.Builder
	)
	flush := func() {
		if id == "" || seq.Len() == 0 {
			return
		}
		s := strings.ToUpper(seq.String())
		if hasRange {
			start, end := cdsRange[0]-1, cdsRange[1]
			if start >= 0 && end <= len(s) && start < end {
				s = s[start:end]
			}
		}
		seqs[id] = s
	}

	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			id = parseHeader(line)
			cdsRange[0], cdsRange[1], hasRange = parseCDSRange(line)
			seq.Reset()
			continue
		}
		seq.WriteString(strings.TrimSpace(line))
	}
	flush()

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan FASTA: %w", err)
	}
	return seqs, nil
}

func parseHeader(header string) string {
	header = strings.TrimPrefix(header, ">")
	if idx := strings.IndexAny(header, "| "); idx != -1 {
		header = header[:idx]
	}
	return stripVersion(header)
}

// parseCDSRange extracts the 1-based CDS:start-end field of a header.
func parseCDSRange(header string) (start, end int, ok bool) {
	for _, field := range strings.Split(header, "|") {
		field = strings.TrimSpace(field)
		if !strings.HasPrefix(field, "CDS:") {
			continue
		}
		s, e, found := strings.Cut(field[4:], "-")
		if !found {
			return 0, 0, false
		}
		a, err1 := strconv.Atoi(s)
		b, err2 := strconv.Atoi(e)
		if err1 != nil || err2 != nil {
			return 0, 0, false
		}
		return a, b, true
	}
	return 0, 0, false
}
