package engine

import (
	"fmt"
	"strings"

	"github.com/inodb/vibe-prio/internal/allele"
	"github.com/inodb/vibe-prio/internal/annotate"
	"github.com/inodb/vibe-prio/internal/contig"
)

// flankDistance is how far upstream and downstream of a transcript a
// variant is still reported against it.
const flankDistance = 5000

// predict returns the effect of v on a transcript within flankDistance.
func predict(v allele.Variant, t *Transcript) annotate.TranscriptAnnotation {
	ta := annotate.TranscriptAnnotation{
		GeneSymbol:   t.GeneName,
		GeneID:       t.GeneID,
		TranscriptID: t.ID,
		HGVSg:        hgvsg(v),
	}
	if d := t.distance(v.Pos, v.End); d > 0 {
		ta.Effect = flankEffect(v, t)
		ta.Distance = int(d)
		return ta
	}
	if v.IsStructural() {
		ta.Effect = structuralEffect(v, t)
		return ta
	}

	lo, hi := locationSpan(v)
	if site := spliceSite(t, lo, hi); site != "" {
		ta.Effect = site
		ta.Rank, ta.RankTotal, ta.RankType = t.IntronRank(lo), len(t.Exons)-1, "intron"
		if ta.Rank == 0 {
			ta.Rank = t.IntronRank(hi)
		}
		return ta
	}

	var eff annotate.Effect
	if exon := overlappingExon(t, lo, hi); exon != nil {
		ta.Rank, ta.RankTotal, ta.RankType = exon.Number, len(t.Exons), "exon"
		eff = exonEffect(v, t, lo, hi, &ta)
	} else {
		ta.Rank, ta.RankTotal, ta.RankType = t.IntronRank(lo), len(t.Exons)-1, "intron"
		eff = annotate.EffectIntron
	}
	if inSpliceRegion(t, lo, hi) && annotate.EffectSpliceRegion.Severity() < eff.Severity() {
		eff = annotate.EffectSpliceRegion
	}
	ta.Effect = eff
	return ta
}

func flankEffect(v allele.Variant, t *Transcript) annotate.Effect {
	before := v.End < t.Start
	if before == t.IsForwardStrand() {
		return annotate.EffectUpstream
	}
	return annotate.EffectDownstream
}

func structuralEffect(v allele.Variant, t *Transcript) annotate.Effect {
	loss := v.Type.Base() == allele.SVDeletion || v.Type == allele.CNVLoss
	gain := v.Type.Base() == allele.SVDuplication || v.Type == allele.CNVGain
	if v.Pos <= t.Start && v.End >= t.End {
		switch {
		case loss:
			return annotate.EffectTranscriptAblation
		case gain:
			return annotate.EffectTranscriptAmplification
		}
	}
	if overlappingExon(t, v.Pos, v.End) == nil {
		return annotate.EffectIntron
	}
	switch {
	case loss:
		return annotate.EffectExonLoss
	case gain, v.Type.Base() == allele.SVInsertion:
		return annotate.EffectFeatureElongation
	case t.IsProteinCoding():
		return annotate.EffectCodingSequence
	}
	return annotate.EffectNonCodingExon
}

// locationSpan returns the reference bases a sequence variant changes. For
// insertions it is the base following the insertion point.
func locationSpan(v allele.Variant) (lo, hi int64) {
	switch v.Type {
	case allele.Deletion:
		if strings.HasPrefix(v.Ref, v.Alt) {
			return v.Pos + int64(len(v.Alt)), v.End
		}
		return v.Pos, v.End - int64(len(v.Alt))
	case allele.Insertion, allele.Duplication:
		if strings.HasPrefix(v.Alt, v.Ref) {
			return v.Pos + 1, v.Pos + 1
		}
		return v.Pos, v.Pos
	}
	return v.Pos, v.End
}

// spliceSite reports a splice donor or acceptor hit within two intronic
// bases of an internal exon boundary.
func spliceSite(t *Transcript, lo, hi int64) annotate.Effect {
	n := len(t.Exons)
	donor, acceptor := annotate.EffectSpliceDonor, annotate.EffectSpliceAcceptor
	if !t.IsForwardStrand() {
		donor, acceptor = acceptor, donor
	}
	for i, e := range t.Exons {
		if i > 0 && lo <= e.Start-1 && hi >= e.Start-2 {
			return acceptor
		}
		if i < n-1 && lo <= e.End+2 && hi >= e.End+1 {
			return donor
		}
	}
	return ""
}

// inSpliceRegion covers 1-3 exonic and 3-8 intronic bases around internal
// exon boundaries.
func inSpliceRegion(t *Transcript, lo, hi int64) bool {
	overlaps := func(a, b int64) bool { return lo <= b && hi >= a }
	n := len(t.Exons)
	for i, e := range t.Exons {
		if i > 0 && (overlaps(e.Start, e.Start+2) || overlaps(e.Start-8, e.Start-3)) {
			return true
		}
		if i < n-1 && (overlaps(e.End-2, e.End) || overlaps(e.End+3, e.End+8)) {
			return true
		}
	}
	return false
}

// overlappingExon returns the first exon in transcript order that
// intersects [lo, hi].
func overlappingExon(t *Transcript, lo, hi int64) *Exon {
	var best *Exon
	for i := range t.Exons {
		e := &t.Exons[i]
		if lo <= e.End && hi >= e.Start && (best == nil || e.Number < best.Number) {
			best = e
		}
	}
	return best
}

func exonEffect(v allele.Variant, t *Transcript, lo, hi int64, ta *annotate.TranscriptAnnotation) annotate.Effect {
	if !t.IsProteinCoding() {
		return annotate.EffectNonCodingExon
	}
	fwd := t.IsForwardStrand()
	switch {
	case hi < t.CDSStart && fwd, lo > t.CDSEnd && !fwd:
		return annotate.Effect5PrimeUTR
	case hi < t.CDSStart, lo > t.CDSEnd:
		return annotate.Effect3PrimeUTR
	}
	return codingEffect(v, t, ta)
}

// cdsRange maps the reference span of v to 0-based half-open CDS
// coordinates. ok is false when the span leaves the CDS or crosses an
// intron.
func cdsRange(v allele.Variant, t *Transcript) (a, b int, ok bool) {
	cp, ce := t.GenomicToCDS(v.Pos), t.GenomicToCDS(v.End)
	if cp == 0 || ce == 0 {
		return 0, 0, false
	}
	span := v.End - v.Pos
	if t.IsForwardStrand() {
		if ce-cp != span {
			return 0, 0, false
		}
		return int(cp - 1), int(ce), true
	}
	if cp-ce != span {
		return 0, 0, false
	}
	return int(ce - 1), int(cp), true
}

func codingEffect(v allele.Variant, t *Transcript, ta *annotate.TranscriptAnnotation) annotate.Effect {
	a, b, ok := cdsRange(v, t)
	if !ok {
		return lengthEffect(v, false)
	}
	fwd := t.IsForwardStrand()
	refS, altS := strandBases(v.Ref, fwd), strandBases(v.Alt, fwd)
	ta.HGVSc = hgvsc(a, b, refS, altS)

	seq := t.CDSSequence
	if len(seq) < b || seq[a:b] != refS {
		return lengthEffect(v, a < 3)
	}
	return proteinEffect(seq, a, b, altS, ta)
}

// lengthEffect classifies a coding change when no usable CDS sequence is
// available.
func lengthEffect(v allele.Variant, touchesStart bool) annotate.Effect {
	switch {
	case v.ChangeLength == 0:
		return annotate.EffectCodingSequence
	case touchesStart && v.ChangeLength < 0:
		return annotate.EffectStartLost
	case v.ChangeLength%3 != 0:
		return annotate.EffectFrameshift
	case v.ChangeLength > 0:
		return annotate.EffectInframeInsertion
	}
	return annotate.EffectInframeDeletion
}

// proteinEffect translates the CDS before and after replacing seq[a:b]
// with altS and classifies the difference.
func proteinEffect(seq string, a, b int, altS string, ta *annotate.TranscriptAnnotation) annotate.Effect {
	mutated := seq[:a] + altS + seq[b:]
	i0 := a / 3
	refP := translate(seq[i0*3:])
	altP := translate(mutated[i0*3:])
	change := len(altS) - (b - a)

	p := commonPrefix(refP, altP)
	s := commonSuffix(refP[p:], altP[p:])
	refCore, altCore := refP[p:len(refP)-s], altP[p:len(altP)-s]
	pos := i0 + p + 1

	if i0 == 0 && p == 0 && len(refP) > 0 && refP[0] == 'M' {
		ta.HGVSp = "p.Met1?"
		return annotate.EffectStartLost
	}

	if change%3 != 0 {
		if p < len(refP) {
			ta.HGVSp = fmt.Sprintf("p.%s%dfs", aaThree(refP[p]), pos)
		}
		return annotate.EffectFrameshift
	}

	if refCore == "" && altCore == "" {
		last := (b - 1) / 3
		if strings.IndexByte(refP[:min(last-i0+1, len(refP))], '*') >= 0 {
			ta.HGVSp = fmt.Sprintf("p.Ter%d=", last+1)
			return annotate.EffectStopRetained
		}
		if change == 0 && len(refP) > 0 {
			ta.HGVSp = fmt.Sprintf("p.%s%d=", aaThree(refP[0]), i0+1)
			return annotate.EffectSynonymous
		}
		return lengthEffectByChange(change)
	}

	ta.HGVSp = formatProteinChange(refP, p, pos, refCore, altCore)
	switch {
	case strings.IndexByte(refCore, '*') >= 0:
		if change == 0 && len(refCore) == 1 && len(altCore) == 1 {
			ta.HGVSp = fmt.Sprintf("p.Ter%d%sext*?", pos, aaThree(altCore[0]))
		}
		return annotate.EffectStopLost
	case strings.IndexByte(altCore, '*') >= 0:
		return annotate.EffectStopGained
	case change == 0:
		return annotate.EffectMissense
	}
	return lengthEffectByChange(change)
}

func lengthEffectByChange(change int) annotate.Effect {
	switch {
	case change > 0:
		return annotate.EffectInframeInsertion
	case change < 0:
		return annotate.EffectInframeDeletion
	}
	return annotate.EffectCodingSequence
}

func formatProteinChange(refP string, p, pos int, refCore, altCore string) string {
	switch {
	case len(refCore) == 1 && len(altCore) == 1:
		if altCore[0] == '*' {
			return fmt.Sprintf("p.%s%dTer", aaThree(refCore[0]), pos)
		}
		return fmt.Sprintf("p.%s%d%s", aaThree(refCore[0]), pos, aaThree(altCore[0]))
	case altCore == "":
		if len(refCore) == 1 {
			return fmt.Sprintf("p.%s%ddel", aaThree(refCore[0]), pos)
		}
		return fmt.Sprintf("p.%s%d_%s%ddel",
			aaThree(refCore[0]), pos, aaThree(refCore[len(refCore)-1]), pos+len(refCore)-1)
	case refCore == "":
		if p == 0 || p >= len(refP) {
			return ""
		}
		return fmt.Sprintf("p.%s%d_%s%dins%s",
			aaThree(refP[p-1]), pos-1, aaThree(refP[p]), pos, aaThreeSeq(altCore))
	case len(refCore) == 1:
		return fmt.Sprintf("p.%s%ddelins%s", aaThree(refCore[0]), pos, aaThreeSeq(altCore))
	}
	return fmt.Sprintf("p.%s%d_%s%ddelins%s",
		aaThree(refCore[0]), pos, aaThree(refCore[len(refCore)-1]), pos+len(refCore)-1, aaThreeSeq(altCore))
}

func aaThreeSeq(aas string) string {
	var sb strings.Builder
	for i := 0; i < len(aas); i++ {
		sb.WriteString(aaThree(aas[i]))
	}
	return sb.String()
}

func commonPrefix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[n] == b[n] {
		n++
	}
	return n
}

func commonSuffix(a, b string) int {
	n := 0
	for n < len(a) && n < len(b) && a[len(a)-1-n] == b[len(b)-1-n] {
		n++
	}
	return n
}

// hgvsc formats the change of refS to altS at CDS coordinates [a, b) in
// transcript orientation.
func hgvsc(a, b int, refS, altS string) string {
	for len(refS) > 0 && len(altS) > 0 && refS[0] == altS[0] {
		refS, altS = refS[1:], altS[1:]
		a++
	}
	for len(refS) > 0 && len(altS) > 0 && refS[len(refS)-1] == altS[len(altS)-1] {
		refS, altS = refS[:len(refS)-1], altS[:len(altS)-1]
		b--
	}
	switch {
	case len(refS) == 1 && len(altS) == 1:
		return fmt.Sprintf("c.%d%s>%s", a+1, refS, altS)
	case altS == "" && b-a == 1:
		return fmt.Sprintf("c.%ddel", a+1)
	case altS == "":
		return fmt.Sprintf("c.%d_%ddel", a+1, b)
	case refS == "":
		if a == 0 {
			return ""
		}
		return fmt.Sprintf("c.%d_%dins%s", a, a+1, altS)
	case b-a == 1:
		return fmt.Sprintf("c.%ddelins%s", a+1, altS)
	}
	return fmt.Sprintf("c.%d_%ddelins%s", a+1, b, altS)
}

// hgvsg formats the genomic change, e.g. "1:g.12346del".
func hgvsg(v allele.Variant) string {
	prefix := contig.Name(v.Contig) + ":g."
	switch v.Type {
	case allele.SNV:
		return fmt.Sprintf("%s%d%s>%s", prefix, v.Pos, v.Ref, v.Alt)
	case allele.Deletion:
		lo, hi := locationSpan(v)
		if lo == hi {
			return fmt.Sprintf("%s%ddel", prefix, lo)
		}
		return fmt.Sprintf("%s%d_%ddel", prefix, lo, hi)
	case allele.Insertion, allele.Duplication:
		if strings.HasPrefix(v.Alt, v.Ref) {
			return fmt.Sprintf("%s%d_%dins%s", prefix, v.Pos, v.Pos+1, v.Alt[len(v.Ref):])
		}
		return fmt.Sprintf("%s%d_%dins%s", prefix, v.Pos-1, v.Pos, v.Alt[:len(v.Alt)-len(v.Ref)])
	case allele.Inversion:
		return fmt.Sprintf("%s%d_%dinv", prefix, v.Pos, v.End)
	case allele.MNV, allele.Delins:
		if v.Pos == v.End {
			return fmt.Sprintf("%s%ddelins%s", prefix, v.Pos, v.Alt)
		}
		return fmt.Sprintf("%s%d_%ddelins%s", prefix, v.Pos, v.End, v.Alt)
	case allele.SVDeletion, allele.MobileElementDeletion, allele.CNVLoss:
		return fmt.Sprintf("%s%d_%ddel", prefix, v.Pos+1, v.End)
	case allele.SVDuplication, allele.TandemDuplication, allele.CNVGain:
		return fmt.Sprintf("%s%d_%ddup", prefix, v.Pos+1, v.End)
	case allele.SVInversion:
		return fmt.Sprintf("%s%d_%dinv", prefix, v.Pos+1, v.End)
	}
	return ""
}
