package prioritize

import (
	"fmt"
	"sort"
)

// OrderViolationError reports scores that increase where a descending order
// was required.
type OrderViolationError struct {
	Index    int
	Previous float64
	Current  float64
}

func (e *OrderViolationError) Error() string {
	return fmt.Sprintf("scores not sorted descending: %.4f at index %d follows %.4f",
		e.Current, e.Index, e.Previous)
}

// DenseRanks assigns ranks to descending scores. Scores equal after Round
// share a rank and the next distinct score is ranked one past the number of
// scores seen so far: [10 10 8 5 5 5 2] ranks [1 1 3 4 4 4 7].
func DenseRanks(scores []float64) ([]int, error) {
	ranks := make([]int, len(scores))
	for i, s := range scores {
		if i == 0 {
			ranks[i] = 1
			continue
		}
		prev, cur := Round(scores[i-1]), Round(s)
		switch {
		case cur > prev:
			return nil, &OrderViolationError{Index: i, Previous: scores[i-1], Current: s}
		case cur == prev:
			ranks[i] = ranks[i-1]
		default:
			ranks[i] = i + 1
		}
	}
	return ranks, nil
}

// Sort orders gene scores by descending combined score, then gene symbol
// and mode.
func Sort(scores []GeneScore) {
	sort.SliceStable(scores, func(i, j int) bool {
		a, b := Round(scores[i].Combined), Round(scores[j].Combined)
		if a != b {
			return a > b
		}
		if scores[i].GeneSymbol != scores[j].GeneSymbol {
			return scores[i].GeneSymbol < scores[j].GeneSymbol
		}
		return scores[i].Mode < scores[j].Mode
	})
}

// Rank assigns dense ranks to gene scores already sorted by descending
// combined score. The whole input is checked for order before genes scoring
// zero are moved after all others, sharing the next rank, or dropped when
// contributingOnly is set.
func Rank(scores []GeneScore, contributingOnly bool) ([]GeneScore, error) {
	values := make([]float64, len(scores))
	for i, s := range scores {
		values[i] = s.Combined
	}
	ranks, err := DenseRanks(values)
	if err != nil {
		return nil, err
	}

	var ranked, zero []GeneScore
	for i, s := range scores {
		s.Rank = ranks[i]
		if Round(s.Combined) == 0 {
			zero = append(zero, s)
		} else {
			ranked = append(ranked, s)
		}
	}
	if contributingOnly {
		return ranked, nil
	}
	for i := range zero {
		zero[i].Rank = len(ranked) + 1
	}
	return append(ranked, zero...), nil
}
