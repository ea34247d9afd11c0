package domain

import (
	"math"
	"sort"
	"strings"
)

// ConfidenceThreshold is the score at which a top search result is accepted
// without consulting further providers.
const ConfidenceThreshold = 55

const closeMatchCutoff = 0.9

// Similarity returns the fraction of words in actual that appear in candidate,
// crediting near-identical spellings.
func Similarity(actual, candidate string) float64 {
	actualWords := wordSet(actual)
	candidateWords := wordSet(candidate)

	matched := make(map[string]struct{}, len(actualWords))
	for w := range actualWords {
		if _, ok := candidateWords[w]; ok {
			matched[w] = struct{}{}
		}
	}
	for w := range actualWords {
		if _, ok := candidateWords[w]; ok {
			continue
		}
		if near, ok := closestMatch(w, candidateWords, closeMatchCutoff); ok {
			matched[near] = struct{}{}
		}
	}

	return float64(len(matched)) / float64(len(actualWords))
}

// wordSet splits on single spaces, so runs of spaces yield an empty word.
func wordSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range strings.Split(strings.ToLower(s), " ") {
		set[w] = struct{}{}
	}
	return set
}

// Score returns a 0-100 confidence that candidate matches actual. candidateRank is
// the prior assigned from the provider's own ordering, see RankPrior.
func Score(actual, candidate string, candidateRank int) int {
	naive := Similarity(actual, candidate) * 100
	tokenSet := TokenSetRatio(actual, candidate)
	tokenSort := TokenSortRatio(actual, candidate)
	partialSort := PartialTokenSortRatio(actual, candidate)

	// Each product is converted explicitly so no fused multiply-add changes the sum.
	total := float64(naive * 0.7)
	total += float64(float64(tokenSet) * 0.12)
	total += float64(float64(candidateRank) * 0.08)
	total += float64(float64(tokenSort) * 0.06)
	total += float64(float64(partialSort) * 0.04)

	return int(total)
}

// RankPrior is the rank score of the i-th result of a provider: 100 * 0.8^i.
func RankPrior(i int) int {
	return int(float64(100 * math.Pow(0.8, float64(i))))
}

// Ranked pairs a result with its score.
type Ranked[T Rankable] struct {
	Result T
	Score  int
}

// RankResults scores every result against query as "{title} {author}" and sorts
// them by score, highest first. Equal scores keep their original order.
func RankResults[T Rankable](query string, results []T) []Ranked[T] {
	ranked := make([]Ranked[T], len(results))
	for i, r := range results {
		ranked[i] = Ranked[T]{
			Result: r,
			Score:  Score(query, r.RankTitle()+" "+r.RankAuthor(), RankPrior(i)),
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	return ranked
}
