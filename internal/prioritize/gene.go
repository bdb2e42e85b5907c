package prioritize

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/inodb/vibe-prio/internal/variant"
)

// GeneScore is the score of one gene under one inheritance mode.
type GeneScore struct {
	GeneSymbol string
	GeneID     string
	Mode       InheritanceMode
	Combined   float64
	Phenotype  float64
	Variant    float64
	// HasPhenotype is false when no phenotype score was supplied.
	HasPhenotype bool
	Contributing []*variant.Evaluation
	Rank         int
}

// Scorer builds gene scores from scored variant evaluations.
type Scorer struct {
	Modes   []InheritanceMode
	Proband string
	// Phenotype maps gene symbols to phenotype similarity scores in [0, 1].
	Phenotype map[string]float64
}

// Score groups evaluations by gene and scores every gene under every
// configured mode. Evaluations must already carry variant scores.
// Unannotated evaluations and those without a gene symbol are ignored.
// Intergenic evaluations count toward the nearest gene they name. The
// result is in gene first-seen order, modes in configured order.
func (s Scorer) Score(evals []*variant.Evaluation) []GeneScore {
	modes := s.Modes
	if len(modes) == 0 {
		modes = []InheritanceMode{AnyMode}
	}

	var order []string
	byGene := make(map[string][]*variant.Evaluation)
	for _, e := range evals {
		sym := e.GeneSymbol()
		if !e.Annotated || sym == "" {
			continue
		}
		if _, ok := byGene[sym]; !ok {
			order = append(order, sym)
		}
		byGene[sym] = append(byGene[sym], e)
	}

	out := make([]GeneScore, 0, len(order)*len(modes))
	for _, sym := range order {
		gene := byGene[sym]
		pheno, hasPheno := s.Phenotype[sym]
		for _, m := range modes {
			vs, contributing := geneVariantScore(m, gene, s.Proband)
			gs := GeneScore{
				GeneSymbol:   sym,
				GeneID:       gene[0].Gene.GeneID,
				Mode:         m,
				Phenotype:    pheno,
				Variant:      vs,
				HasPhenotype: hasPheno,
				Contributing: contributing,
			}
			gs.Combined = vs
			if hasPheno {
				gs.Combined = (pheno + vs) / 2
			}
			if len(contributing) == 0 {
				gs.Combined = 0
			}
			out = append(out, gs)
		}
	}
	return out
}

type weighted struct {
	e      *variant.Evaluation
	weight int
}

// geneVariantScore returns the best variant score for dominant modes and the
// mean of the best two affected alleles for recessive modes.
func geneVariantScore(m InheritanceMode, evals []*variant.Evaluation, proband string) (float64, []*variant.Evaluation) {
	var cands []weighted
	for _, e := range evals {
		if w := alleleWeight(m, e, proband); w > 0 {
			cands = append(cands, weighted{e: e, weight: w})
		}
	}
	if len(cands) == 0 {
		return 0, nil
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].e.Score > cands[j].e.Score })

	if !m.IsRecessive() {
		return cands[0].e.Score, []*variant.Evaluation{cands[0].e}
	}

	var (
		sum          float64
		alleles      int
		contributing []*variant.Evaluation
	)
	for _, c := range cands {
		take := min(c.weight, 2-alleles)
		sum += c.e.Score * float64(take)
		alleles += take
		contributing = append(contributing, c.e)
		if alleles == 2 {
			return sum / 2, contributing
		}
	}
	return 0, nil
}

// LoadPhenotypeScores reads tab-separated GENE SCORE lines.
func LoadPhenotypeScores(path string) (map[string]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open phenotype scores: %w", err)
	}
	defer f.Close()
	return ParsePhenotypeScores(f)
}

// ParsePhenotypeScores reads tab-separated GENE SCORE lines from r. Lines
// starting with '#' are comments.
func ParsePhenotypeScores(r io.Reader) (map[string]float64, error) {
	scores := make(map[string]float64)
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected GENE and SCORE", lineNum)
		}
		v, err := strconv.ParseFloat(fields[1], 64)
		if err != nil || v < 0 || v > 1 {
			return nil, fmt.Errorf("line %d: invalid score %q", lineNum, fields[1])
		}
		scores[fields[0]] = v
	}
	return scores, scanner.Err()
}
