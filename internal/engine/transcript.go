// Package engine predicts transcript-level effects of normalized alleles
// from GENCODE transcript models.
package engine

// Transcript is a gene isoform on a contig.
type Transcript struct {
	ID          string
	GeneID      string
	GeneName    string
	Contig      int
	Start       int64 // 1-based, inclusive
	End         int64
	Strand      int8 // +1 or -1
	Biotype     string
	IsCanonical bool
	Exons       []Exon // ascending genomic order on both strands
	CDSStart    int64  // 0 if non-coding
	CDSEnd      int64
	CDSSequence string
}

// Exon is one exon of a transcript.
type Exon struct {
	Number   int // transcript-order rank, 1-based
	Start    int64
	End      int64
	CDSStart int64 // 0 if entirely non-coding
	CDSEnd   int64
	Frame    int // -1 if non-coding
}

// IsProteinCoding reports whether the transcript has a coding sequence.
func (t *Transcript) IsProteinCoding() bool {
	return t.CDSStart > 0 && t.CDSEnd > 0
}

// IsForwardStrand reports whether the transcript is on the forward strand.
func (t *Transcript) IsForwardStrand() bool {
	return t.Strand >= 0
}

// Contains reports whether pos lies within the transcript.
func (t *Transcript) Contains(pos int64) bool {
	return pos >= t.Start && pos <= t.End
}

// ContainsCDS reports whether pos lies between the CDS boundaries.
func (t *Transcript) ContainsCDS(pos int64) bool {
	return t.IsProteinCoding() && pos >= t.CDSStart && pos <= t.CDSEnd
}

// FindExon returns the index of the exon containing pos, or -1.
func (t *Transcript) FindExon(pos int64) int {
	lo, hi := 0, len(t.Exons)-1
	for lo <= hi {
		mid := lo + (hi-lo)/2
		e := &t.Exons[mid]
		switch {
		case pos < e.Start:
			hi = mid - 1
		case pos > e.End:
			lo = mid + 1
		default:
			return mid
		}
	}
	return -1
}

// IntronRank returns the transcript-order rank of the intron containing
// pos, or 0 when pos is not intronic.
func (t *Transcript) IntronRank(pos int64) int {
	for i := 0; i+1 < len(t.Exons); i++ {
		if pos > t.Exons[i].End && pos < t.Exons[i+1].Start {
			if t.IsForwardStrand() {
				return i + 1
			}
			return len(t.Exons) - 1 - i
		}
	}
	return 0
}

// IsCoding reports whether the exon contains coding sequence.
func (e *Exon) IsCoding() bool {
	return e.CDSStart > 0 && e.CDSEnd > 0
}

// GenomicToCDS converts a genomic position to a 1-based CDS position, or 0
// when pos is not coding.
func (t *Transcript) GenomicToCDS(pos int64) int64 {
	if !t.ContainsCDS(pos) {
		return 0
	}
	var cdsPos int64
	if t.IsForwardStrand() {
		for _, e := range t.Exons {
			if !e.IsCoding() {
				continue
			}
			if pos >= e.CDSStart && pos <= e.CDSEnd {
				return cdsPos + pos - e.CDSStart + 1
			}
			if pos > e.CDSEnd {
				cdsPos += e.CDSEnd - e.CDSStart + 1
			}
		}
		return 0
	}
	for i := len(t.Exons) - 1; i >= 0; i-- {
		e := t.Exons[i]
		if !e.IsCoding() {
			continue
		}
		if pos >= e.CDSStart && pos <= e.CDSEnd {
			return cdsPos + e.CDSEnd - pos + 1
		}
		if pos < e.CDSStart {
			cdsPos += e.CDSEnd - e.CDSStart + 1
		}
	}
	return 0
}

// distance returns the gap in bases between [start, end] and the
// transcript, or 0 when they overlap.
func (t *Transcript) distance(start, end int64) int64 {
	switch {
	case end < t.Start:
		return t.Start - end
	case start > t.End:
		return start - t.End
	}
	return 0
}
