package engine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/pgzip"

	"github.com/inodb/vibe-prio/internal/contig"
)

// gtfFeature is one parsed GTF line.
type gtfFeature struct {
	contig      int
	featureType string
	start       int64
	end         int64
	strand      int8
	attributes  map[string]string
}

// LoadGTF reads transcript models from a GENCODE GTF file, optionally
// gzip-compressed. Features on contigs outside the canonical set are
// dropped.
func LoadGTF(path string) ([]*Transcript, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open GTF file: %w", err)
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
	return ParseGTF(r)
}

// ParseGTF parses GTF content into transcripts sorted by contig and start.
// Malformed lines are skipped.
func ParseGTF(r io.Reader) ([]*Transcript, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	transcripts := make(map[string]*Transcript)
	exons := make(map[string][]Exon)
	cds := make(map[string][][2]int64)

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		feat, err := parseGTFLine(line)
		if err != nil || feat.contig == contig.Unknown {
			continue
		}
		id := stripVersion(feat.attributes["transcript_id"])
		if id == "" {
			continue
		}

		switch feat.featureType {
		case "transcript":
			transcripts[id] = &Transcript{
				ID:          id,
				GeneID:      stripVersion(feat.attributes["gene_id"]),
				GeneName:    feat.attributes["gene_name"],
				Contig:      feat.contig,
				Start:       feat.start,
				End:         feat.end,
				Strand:      feat.strand,
				Biotype:     feat.attributes["transcript_type"],
				IsCanonical: strings.Contains(feat.attributes["tag"], "Ensembl_canonical"),
			}
		case "exon":
			n, _ := strconv.Atoi(feat.attributes["exon_number"])
			exons[id] = append(exons[id], Exon{Number: n, Start: feat.start, End: feat.end, Frame: -1})
		case "CDS", "start_codon", "stop_codon":
			cds[id] = append(cds[id], [2]int64{feat.start, feat.end})
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan GTF: %w", err)
	}

	out := make([]*Transcript, 0, len(transcripts))
	for id, t := range transcripts {
		es := exons[id]
		if len(es) == 0 {
			continue
		}
		sort.Slice(es, func(i, j int) bool { return es[i].Start < es[j].Start })
		numberExons(es, t.Strand)
		if regions := cds[id]; len(regions) > 0 {
			t.CDSStart, t.CDSEnd = regions[0][0], regions[0][1]
			for _, reg := range regions[1:] {
				t.CDSStart = min(t.CDSStart, reg[0])
				t.CDSEnd = max(t.CDSEnd, reg[1])
			}
			assignFrames(es, t)
		}
		t.Exons = es
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Contig != out[j].Contig {
			return out[i].Contig < out[j].Contig
		}
		if out[i].Start != out[j].Start {
			return out[i].Start < out[j].Start
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// numberExons fills missing exon_number attributes in transcript order.
func numberExons(es []Exon, strand int8) {
	for i := range es {
		if es[i].Number > 0 {
			continue
		}
		if strand < 0 {
			es[i].Number = len(es) - i
		} else {
			es[i].Number = i + 1
		}
	}
}

func assignFrames(es []Exon, t *Transcript) {
	var cdsPos int64
	visit := func(e *Exon) {
		if e.End < t.CDSStart || e.Start > t.CDSEnd {
			return
		}
		e.CDSStart = max(e.Start, t.CDSStart)
		e.CDSEnd = min(e.End, t.CDSEnd)
		e.Frame = int(cdsPos % 3)
		cdsPos += e.CDSEnd - e.CDSStart + 1
	}
	if t.IsForwardStrand() {
		for i := range es {
			visit(&es[i])
		}
		return
	}
	for i := len(es) - 1; i >= 0; i-- {
		visit(&es[i])
	}
}

func parseGTFLine(line string) (*gtfFeature, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 9 {
		return nil, fmt.Errorf("invalid GTF line: expected 9 fields, got %d", len(fields))
	}
	start, err := strconv.ParseInt(fields[3], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse start: %w", err)
	}
	end, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse end: %w", err)
	}
	strand := int8(1)
	if fields[6] == "-" {
		strand = -1
	}
	return &gtfFeature{
		contig:      contig.ID(fields[0]),
		featureType: fields[2],
		start:       start,
		end:         end,
		strand:      strand,
		attributes:  parseAttributes(fields[8]),
	}, nil
}

// parseAttributes parses the GTF attribute column: key "value"; key "value";
// Repeated keys such as tag are joined with commas.
func parseAttributes(s string) map[string]string {
	attrs := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		idx := strings.IndexByte(part, ' ')
		if idx == -1 {
			continue
		}
		key := part[:idx]
		value := strings.Trim(strings.TrimSpace(part[idx+1:]), "\"")
		if prev, ok := attrs[key]; ok {
			value = prev + "," + value
		}
		attrs[key] = value
	}
	return attrs
}

// stripVersion removes the version suffix from an Ensembl ID.
func stripVersion(id string) string {
	if idx := strings.LastIndexByte(id, '.'); idx != -1 {
		return id[:idx]
	}
	return id
}
