package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// versionBlacklist lists title words marking alternate versions of a track.
var versionBlacklist = []string{
	"3d", "8d", "cover", "instrumental", "karaoke", "live", "loop", "mashup",
	"minus one", "performance", "piano", "remix", "rendition", "reverb", "slowed",
}

// providerSearch describes one search against an audio-search provider.
type providerSearch struct {
	query   string
	source  domain.SearchSource
	desired time.Duration // zero when unknown
	filter  bool          // drop alternate versions and results without a duration
}

// searchProvider runs search and returns results most similar to the query first.
// An empty result set is reported as ErrNoResults.
func searchProvider(
	ctx context.Context,
	provider ports.AudioSearchProvider,
	search providerSearch,
) ([]domain.ProviderSearchResult, error) {
	result, err := provider.Search(ctx, search.query, search.source)
	if err != nil {
		return nil, fmt.Errorf("failed to search %q: %w", search.source.Apply(search.query), err)
	}
	if result == nil || len(result.Tracks) == 0 {
		return nil, fmt.Errorf("%w for %q", ErrNoResults, search.source.Apply(search.query))
	}

	tracks := result.Tracks
	if search.filter {
		tracks = filterAlternateVersions(search.query, tracks)
		if len(tracks) == 0 {
			return nil, fmt.Errorf("%w: no valid results for %q", ErrNoResults, search.query)
		}
	}

	sortBySimilarity(search.query, tracks, search.desired)
	return tracks, nil
}

func filterAlternateVersions(query string, results []domain.ProviderSearchResult) []domain.ProviderSearchResult {
	query = strings.ToLower(query)
	return lo.Filter(results, func(r domain.ProviderSearchResult, _ int) bool {
		if r.Duration <= 0 {
			return false
		}
		title := strings.ToLower(r.Title)
		for _, word := range versionBlacklist {
			if strings.Contains(title, word) && !strings.Contains(query, word) {
				return false
			}
		}
		return true
	})
}

// sortBySimilarity orders results by word overlap between query and title, then by
// distance from the desired duration when one is known.
func sortBySimilarity(query string, results []domain.ProviderSearchResult, desired time.Duration) {
	distance := make([]float64, len(results))
	for i, r := range results {
		distance[i] = 1 - domain.Similarity(query, r.Title)
	}

	idx := make([]int, len(results))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		i, j := idx[a], idx[b]
		if distance[i] != distance[j] {
			return distance[i] < distance[j]
		}
		if desired <= 0 {
			return false
		}
		return durationDelta(results[i].Duration, desired) < durationDelta(results[j].Duration, desired)
	})

	sorted := make([]domain.ProviderSearchResult, len(results))
	for pos, i := range idx {
		sorted[pos] = results[i]
	}
	copy(results, sorted)
}

func durationDelta(a, b time.Duration) time.Duration {
	if a > b {
		return a - b
	}
	return b - a
}

// rankAndLog ranks results against query and logs every score at debug level.
func rankAndLog[T domain.Rankable](provider, query string, results []T) []domain.Ranked[T] {
	ranked := domain.RankResults(query, results)
	if slog.Default().Enabled(context.Background(), slog.LevelDebug) {
		for _, r := range ranked {
			slog.Debug("ranked result",
				"provider", provider,
				"query", query,
				"score", r.Score,
				"title", r.Result.RankTitle(),
				"author", r.Result.RankAuthor(),
			)
		}
	}
	return ranked
}
