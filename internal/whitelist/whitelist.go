// Package whitelist loads the set of alleles that are always reported,
// regardless of frequency or pathogenicity filtering.
package whitelist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"
	"go.uber.org/zap"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/contig"
)

// Whitelist is an immutable set of normalized allele keys.
type Whitelist struct {
	keys map[allele.Key]struct{}
}

// New builds a whitelist from already-normalized keys.
func New(keys ...allele.Key) *Whitelist {
	w := &Whitelist{keys: make(map[allele.Key]struct{}, len(keys))}
	for _, k := range keys {
		w.keys[k] = struct{}{}
	}
	return w
}

// Contains reports whether the key is whitelisted. A nil whitelist is empty.
func (w *Whitelist) Contains(key allele.Key) bool {
	if w == nil {
		return false
	}
	_, ok := w.keys[key]
	return ok
}

// Len returns the number of whitelisted alleles.
func (w *Whitelist) Len() int {
	if w == nil {
		return 0
	}
	return len(w.keys)
}

// Load reads a whitelist file of tab-separated CHR POS REF ALT lines,
// optionally gzip-compressed. Lines starting with '#' are comments.
// Rows naming unknown contigs or malformed alleles are skipped.
func Load(path string, logger *zap.Logger) (*Whitelist, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open whitelist: %w", err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	var r io.Reader = br
	if magic, err := br.Peek(2); err == nil && magic[0] == 0x1f && magic[1] == 0x8b {
		gz, err := pgzip.NewReader(br)
		if err != nil {
			return nil, fmt.Errorf("open gzip reader: %w", err)
		}
		defer gz.Close()
		r = gz
	}

	w, skipped, err := Parse(r)
	if err != nil {
		return nil, fmt.Errorf("read whitelist %s: %w", path, err)
	}
	logger.Info("loaded whitelist",
		zap.String("path", path),
		zap.Int("alleles", w.Len()),
		zap.Int("skipped", skipped))
	return w, nil
}

// Parse reads whitelist lines from r and returns the set and the number of
// skipped rows.
func Parse(r io.Reader) (*Whitelist, int, error) {
	w := New()
	skipped := 0
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.SplitN(line, "\t", 5)
		if len(fields) < 4 {
			skipped++
			continue
		}
		contigID := contig.ID(fields[0])
		pos, err := strconv.ParseInt(fields[1], 10, 64)
		if contigID == contig.Unknown || err != nil {
			skipped++
			continue
		}
		v, err := allele.Normalize(contigID, pos, fields[2], fields[3])
		if err != nil {
			skipped++
			continue
		}
		w.keys[v.Key()] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return nil, skipped, err
	}
	return w, skipped, nil
}
