package domain

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Fuzzy string ratios on a 0-100 scale. Lengths are measured in runes.

// processString drops Latin-1 supplement runes, replaces every rune that is not a
// letter or number with a space, lower-cases and trims.
func processString(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= 128 && r <= 255 {
			continue
		}
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteByte(' ')
	}
	return strings.TrimSpace(b.String())
}

// roundScore rounds half to even.
func roundScore(score float64) int {
	return int(math.RoundToEven(score))
}

// lcsLength returns the length of the longest common subsequence of a and b.
func lcsLength(a, b []rune) int {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				curr[j] = prev[j-1] + 1
			case prev[j] >= curr[j-1]:
				curr[j] = prev[j]
			default:
				curr[j] = curr[j-1]
			}
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}

// indelDistance is the number of insertions and deletions turning a into b.
func indelDistance(a, b []rune) int {
	return len(a) + len(b) - 2*lcsLength(a, b)
}

// indelSimilarity is the normalized indel similarity in [0, 1].
func indelSimilarity(a, b []rune) float64 {
	lensum := len(a) + len(b)
	if lensum == 0 {
		return 1
	}
	normalized := float64(indelDistance(a, b)) / float64(lensum)
	return 1 - normalized
}

func normDistance(dist, lensum int) float64 {
	if lensum == 0 {
		return 100
	}
	return 100 - 100*float64(dist)/float64(lensum)
}

// ratio is the normalized indel similarity scaled to 100.
func ratio(a, b string) float64 {
	return indelSimilarity([]rune(a), []rune(b)) * 100
}

// longNeedle is the needle length above which partialRatio only scores windows
// aligned to matching blocks.
const longNeedle = 64

// partialRatio is the best ratio between the shorter string and an equally long
// window of the longer one. Short needles try every window, including windows
// clipped at either edge; long needles only try windows aligned to matching blocks.
func partialRatio(a, b string) float64 {
	s1, s2 := []rune(a), []rune(b)
	if len(s1) == 0 && len(s2) == 0 {
		return 100
	}
	if len(s1) == 0 || len(s2) == 0 {
		return 0
	}

	if len(s1) > len(s2) {
		s1, s2 = s2, s1
	}
	scan := partialRatioShortNeedle
	if len(s1) > longNeedle {
		scan = partialRatioLongNeedle
	}

	best := scan(s1, s2)
	if best != 100 && len(s1) == len(s2) {
		best = max(best, scan(s2, s1))
	}
	return best
}

func partialRatioLongNeedle(needle, haystack []rune) float64 {
	blocks := newSequenceMatcher(needle, haystack, false).matchingBlocks()
	for _, blk := range blocks {
		if blk.size == len(needle) {
			return 100
		}
	}

	var best float64
	for _, blk := range blocks {
		start := max(blk.b-blk.a, 0)
		end := min(start+len(needle), len(haystack))
		if score := indelSimilarity(needle, haystack[start:end]); score > best {
			best = score
			if best == 1 {
				break
			}
		}
	}
	return best * 100
}

func partialRatioShortNeedle(needle, haystack []rune) float64 {
	chars := make(map[rune]struct{}, len(needle))
	for _, r := range needle {
		chars[r] = struct{}{}
	}
	has := func(r rune) bool {
		_, ok := chars[r]
		return ok
	}

	n, h := len(needle), len(haystack)
	var best float64
	consider := func(window []rune) bool {
		score := indelSimilarity(needle, window)
		if score > best {
			best = score
		}
		return best == 1
	}

	for i := 1; i < n; i++ {
		if has(haystack[i-1]) && consider(haystack[:i]) {
			return 100
		}
	}
	for i := 0; i < h-n; i++ {
		if has(haystack[i+n-1]) && consider(haystack[i:i+n]) {
			return 100
		}
	}
	for i := h - n; i < h; i++ {
		if has(haystack[i]) && consider(haystack[i:]) {
			return 100
		}
	}
	return best * 100
}

func sortedTokens(s string) string {
	tokens := strings.Fields(s)
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSet(s string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, t := range strings.Fields(s) {
		set[t] = struct{}{}
	}
	return set
}

func joinSorted(set map[string]struct{}) string {
	tokens := make([]string, 0, len(set))
	for t := range set {
		tokens = append(tokens, t)
	}
	sort.Strings(tokens)
	return strings.Join(tokens, " ")
}

func tokenSetRatioRaw(a, b string) float64 {
	tokensA, tokensB := tokenSet(a), tokenSet(b)
	if len(tokensA) == 0 || len(tokensB) == 0 {
		return 0
	}

	intersect := make(map[string]struct{})
	diffAB := make(map[string]struct{})
	diffBA := make(map[string]struct{})
	for t := range tokensA {
		if _, ok := tokensB[t]; ok {
			intersect[t] = struct{}{}
		} else {
			diffAB[t] = struct{}{}
		}
	}
	for t := range tokensB {
		if _, ok := tokensA[t]; !ok {
			diffBA[t] = struct{}{}
		}
	}
	if len(intersect) > 0 && (len(diffAB) == 0 || len(diffBA) == 0) {
		return 100
	}

	ab := []rune(joinSorted(diffAB))
	ba := []rune(joinSorted(diffBA))
	sectLen := len([]rune(joinSorted(intersect)))
	sep := 0
	if sectLen > 0 {
		sep = 1
	}
	sectABLen := sectLen + sep + len(ab)
	sectBALen := sectLen + sep + len(ba)

	result := normDistance(indelDistance(ab, ba), sectABLen+sectBALen)
	if sectLen == 0 {
		return result
	}

	sectABRatio := normDistance(sep+len(ab), sectLen+sectABLen)
	sectBARatio := normDistance(sep+len(ba), sectLen+sectBALen)
	return max(result, sectABRatio, sectBARatio)
}

// TokenSetRatio compares the shared and distinct token sets of both strings.
func TokenSetRatio(a, b string) int {
	return roundScore(tokenSetRatioRaw(processString(a), processString(b)))
}

// TokenSortRatio compares both strings after sorting their tokens.
func TokenSortRatio(a, b string) int {
	return roundScore(ratio(sortedTokens(processString(a)), sortedTokens(processString(b))))
}

// PartialTokenSortRatio is the partial ratio of both strings after sorting their tokens.
func PartialTokenSortRatio(a, b string) int {
	return roundScore(partialRatio(sortedTokens(processString(a)), sortedTokens(processString(b))))
}

// sequenceRatio is the matching-blocks similarity 2*M/T of a against b.
func sequenceRatio(a, b []rune) float64 {
	total := len(a) + len(b)
	if total == 0 {
		return 1
	}
	return 2 * float64(newSequenceMatcher(a, b, true).matchingCharacters()) / float64(total)
}

type sequenceMatcher struct {
	a, b []rune
	b2j  map[rune][]int
}

// matchBlock says a[a:a+size] == b[b:b+size].
type matchBlock struct {
	a, b, size int
}

func newSequenceMatcher(a, b []rune, autojunk bool) *sequenceMatcher {
	b2j := make(map[rune][]int)
	for j, r := range b {
		b2j[r] = append(b2j[r], j)
	}
	// With autojunk, elements occurring in more than 1% of a long b are treated as
	// popular and only matched by extension.
	if n := len(b); autojunk && n >= 200 {
		limit := n/100 + 1
		for r, idxs := range b2j {
			if len(idxs) > limit {
				delete(b2j, r)
			}
		}
	}
	return &sequenceMatcher{a: a, b: b, b2j: b2j}
}

func (m *sequenceMatcher) longestMatch(alo, ahi, blo, bhi int) (int, int, int) {
	besti, bestj, bestsize := alo, blo, 0
	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	for besti > alo && bestj > blo && m.a[besti-1] == m.b[bestj-1] {
		besti, bestj, bestsize = besti-1, bestj-1, bestsize+1
	}
	for besti+bestsize < ahi && bestj+bestsize < bhi && m.a[besti+bestsize] == m.b[bestj+bestsize] {
		bestsize++
	}
	return besti, bestj, bestsize
}

// matchingBlocks returns the non-overlapping matching blocks in increasing order,
// with adjacent blocks merged and a final zero-size block at (len(a), len(b)).
func (m *sequenceMatcher) matchingBlocks() []matchBlock {
	type span struct{ alo, ahi, blo, bhi int }
	stack := []span{{0, len(m.a), 0, len(m.b)}}
	var found []matchBlock
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if k == 0 {
			continue
		}
		found = append(found, matchBlock{a: i, b: j, size: k})
		if s.alo < i && s.blo < j {
			stack = append(stack, span{s.alo, i, s.blo, j})
		}
		if i+k < s.ahi && j+k < s.bhi {
			stack = append(stack, span{i + k, s.ahi, j + k, s.bhi})
		}
	}
	sort.Slice(found, func(x, y int) bool {
		if found[x].a != found[y].a {
			return found[x].a < found[y].a
		}
		return found[x].b < found[y].b
	})

	blocks := make([]matchBlock, 0, len(found)+1)
	for _, blk := range found {
		if n := len(blocks); n > 0 {
			last := &blocks[n-1]
			if last.a+last.size == blk.a && last.b+last.size == blk.b {
				last.size += blk.size
				continue
			}
		}
		blocks = append(blocks, blk)
	}
	return append(blocks, matchBlock{a: len(m.a), b: len(m.b)})
}

func (m *sequenceMatcher) matchingCharacters() int {
	matched := 0
	for _, blk := range m.matchingBlocks() {
		matched += blk.size
	}
	return matched
}

// closestMatch returns the candidate most similar to word with a sequence ratio of at
// least cutoff. Ties go to the lexically greatest candidate.
func closestMatch(word string, candidates map[string]struct{}, cutoff float64) (string, bool) {
	w := []rune(word)
	var (
		best      string
		bestScore float64
		found     bool
	)
	for c := range candidates {
		score := sequenceRatio([]rune(c), w)
		if score < cutoff {
			continue
		}
		if !found || score > bestScore || (score == bestScore && c > best) {
			best, bestScore, found = c, score, true
		}
	}
	return best, found
}
