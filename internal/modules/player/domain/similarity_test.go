package domain

import (
	"slices"
	"testing"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name      string
		actual    string
		candidate string
		want      float64
	}{
		{name: "identical ignoring case", actual: "Blinding Lights", candidate: "blinding lights", want: 1},
		{name: "half the words", actual: "hello world", candidate: "hello there", want: 0.5},
		{name: "close spelling", actual: "beatles yesterday", candidate: "beatle yesterday", want: 1},
		{name: "distant spelling", actual: "cat", candidate: "cut", want: 0},
		{name: "extra candidate words", actual: "yesterday", candidate: "yesterday remastered 2009", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Similarity(tt.actual, tt.candidate); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestFuzzRatios(t *testing.T) {
	tests := []struct {
		name string
		got  int
		want int
	}{
		{name: "ratio", got: roundScore(ratio("this is a test", "this is a test!")), want: 97},
		{name: "ratio reordered", got: roundScore(ratio("fuzzy wuzzy was a bear", "wuzzy fuzzy was a bear")), want: 91},
		{name: "partial ratio", got: roundScore(partialRatio("this is a test", "this is a test!")), want: 100},
		{name: "token sort ratio", got: TokenSortRatio("fuzzy wuzzy was a bear", "wuzzy fuzzy was a bear"), want: 100},
		{name: "token set ratio subset", got: TokenSetRatio("fuzzy was a bear", "fuzzy fuzzy was a bear"), want: 100},
		{name: "token set ratio partial overlap", got: TokenSetRatio("hello world", "hello there"), want: 64},
		{name: "token set ratio empty", got: TokenSetRatio("!!!", "hello"), want: 0},
		{name: "punctuation ignored", got: TokenSortRatio("Don't Stop", "don t stop"), want: 100},
		{
			name: "partial ratio long needle",
			got: roundScore(partialRatio(
				"the quick brown fox jumps over the lazy dog while the cat sleeps on the mat",
				"a quick brown dog jumps over the lazy fox while the cat naps on a warm mat by the fire",
			)),
			want: 81,
		},
		{
			name: "partial token sort ratio long query",
			got: PartialTokenSortRatio(
				"symphony no 9 in d minor op 125 choral iv presto allegro assai ode to joy",
				"beethoven symphony no 9 in d minor op 125 choral 4th movement presto allegro ma non troppo ode an die freude",
			),
			want: 64,
		},
		{
			name: "partial ratio long needle contained",
			got: roundScore(partialRatio(
				"symphony no 9 in d minor op 125 choral iv presto allegro assai ode to joy",
				"beethoven symphony no 9 in d minor op 125 choral iv presto allegro assai ode to joy live",
			)),
			want: 100,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, tt.got)
			}
		})
	}
}

func TestSequenceRatio(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{a: "beatle", b: "beatles", want: 12.0 / 13.0},
		{a: "abcd", b: "bcde", want: 0.75},
		{a: "", b: "", want: 1},
		{a: "abc", b: "xyz", want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			if got := sequenceRatio([]rune(tt.a), []rune(tt.b)); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMatchingBlocks(t *testing.T) {
	tests := []struct {
		a, b string
		want []matchBlock
	}{
		{a: "abxcd", b: "abcd", want: []matchBlock{{0, 0, 2}, {3, 2, 2}, {5, 4, 0}}},
		{a: "qabxcabcd", b: "abycdf", want: []matchBlock{{1, 0, 2}, {7, 3, 2}, {9, 6, 0}}},
		{a: "", b: "abc", want: []matchBlock{{0, 3, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			got := newSequenceMatcher([]rune(tt.a), []rune(tt.b), false).matchingBlocks()
			if !slices.Equal(got, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name      string
		actual    string
		candidate string
		rank      int
		want      int
	}{
		{name: "perfect match top rank", actual: "blinding lights the weeknd", candidate: "Blinding Lights The Weeknd", rank: 100, want: 100},
		{name: "perfect match no rank", actual: "blinding lights the weeknd", candidate: "Blinding Lights The Weeknd", rank: 0, want: 92},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Score(tt.actual, tt.candidate, tt.rank); got != tt.want {
				t.Errorf("expected %d, got %d", tt.want, got)
			}
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	const actual, candidate = "never gonna give you up rick astley", "Rick Astley - Never Gonna Give You Up (Official Video)"

	first := Score(actual, candidate, 64)
	for i := 0; i < 10; i++ {
		if got := Score(actual, candidate, 64); got != first {
			t.Fatalf("expected %d on every call, got %d", first, got)
		}
	}
	if first < 0 || first > 100 {
		t.Errorf("expected score in [0, 100], got %d", first)
	}
}

func TestScore_UnrelatedBelowThreshold(t *testing.T) {
	if got := Score("blinding lights the weeknd", "Completely Different Someone", 100); got >= ConfidenceThreshold {
		t.Errorf("expected score below %d, got %d", ConfidenceThreshold, got)
	}
}

func TestRankPrior(t *testing.T) {
	want := []int{100, 80, 64, 51}
	for i, w := range want {
		if got := RankPrior(i); got != w {
			t.Errorf("rank %d: expected %d, got %d", i, w, got)
		}
	}
}

func TestRankResults(t *testing.T) {
	results := []CatalogTrack{
		{Title: "Blinding Lights (Live)", Author: "Someone"},
		{Title: "Blinding Lights", Author: "The Weeknd"},
	}

	ranked := RankResults("blinding lights the weeknd", results)

	if len(ranked) != 2 {
		t.Fatalf("expected 2 results, got %d", len(ranked))
	}
	if ranked[0].Result.Author != "The Weeknd" {
		t.Errorf("expected The Weeknd first, got %s", ranked[0].Result.Author)
	}
	if ranked[0].Score < ranked[1].Score {
		t.Errorf("expected descending scores, got %d then %d", ranked[0].Score, ranked[1].Score)
	}
	if ranked[0].Score < ConfidenceThreshold {
		t.Errorf("expected the exact match to clear the threshold, got %d", ranked[0].Score)
	}
}

func TestRankResults_Empty(t *testing.T) {
	if ranked := RankResults[CatalogTrack]("anything", nil); len(ranked) != 0 {
		t.Errorf("expected no results, got %d", len(ranked))
	}
}
