package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// DefaultDurationThreshold is how far a recording's length may be from the item's
// duration and still be considered the same recording.
const DefaultDurationThreshold = 10 * time.Second

const recordingSearchLimit = 10

// Annotator fills in external identifiers of a queue item.
type Annotator interface {
	Annotate(ctx context.Context, item *domain.QueueItem) (mbid, isrc string, err error)
}

var _ Annotator = (*MetadataAnnotator)(nil)

// MetadataAnnotator looks up MusicBrainz IDs and ISRCs in a recording database.
type MetadataAnnotator struct {
	db                ports.RecordingDatabase
	cache             ports.CandidateCache
	limiter           ports.RateLimiter
	durationThreshold time.Duration
}

// NewMetadataAnnotator creates a new MetadataAnnotator. cache and limiter may be nil.
func NewMetadataAnnotator(
	db ports.RecordingDatabase,
	cache ports.CandidateCache,
	limiter ports.RateLimiter,
) *MetadataAnnotator {
	return &MetadataAnnotator{
		db:                db,
		cache:             cache,
		limiter:           limiter,
		durationThreshold: DefaultDurationThreshold,
	}
}

// Annotate fills in the MusicBrainz ID and ISRC of item where they are missing and
// returns both. Items already annotated are returned without any external call.
// Timeouts leave the identifier empty; other database errors are returned.
func (a *MetadataAnnotator) Annotate(ctx context.Context, item *domain.QueueItem) (string, string, error) {
	if item.IsAnnotated || (item.MusicBrainzID != "" && item.ISRC != "") {
		return item.MusicBrainzID, item.ISRC, nil
	}

	mbid, isrc := item.MusicBrainzID, item.ISRC
	var mbidCached, isrcCached bool
	if a.cache != nil && item.ContentID != "" {
		if mbid == "" {
			mbid, mbidCached = a.cached(ctx, a.cache.GetMusicBrainzID, item.ContentID)
		}
		if isrc == "" {
			isrc, isrcCached = a.cached(ctx, a.cache.GetISRC, item.ContentID)
		}
	}

	if mbid == "" {
		var err error
		if isrc != "" {
			slog.Info("looking up recording by ISRC", "title", item.Title, "isrc", isrc)
			mbid, err = a.lookupByISRC(ctx, item, isrc)
			if errors.Is(err, ports.ErrRecordingNotFound) {
				mbid, _, err = a.lookupByMetadata(ctx, item)
			}
		} else {
			slog.Info("looking up recording by metadata", "title", item.Title)
			mbid, isrc, err = a.lookupByMetadata(ctx, item)
		}
		if err != nil {
			return "", "", err
		}
	}

	if item.MusicBrainzID == "" && mbid != "" {
		item.MusicBrainzID = mbid
		if !mbidCached {
			a.store(ctx, "musicbrainz id", item.ContentID, mbid, a.setMusicBrainzID)
		}
		slog.Info("found MusicBrainz ID", "title", item.Title, "mbid", mbid, "cached", mbidCached)
	}
	if item.ISRC == "" && isrc != "" {
		item.ISRC = domain.NormalizeISRC(isrc)
		if !isrcCached {
			a.store(ctx, "isrc", item.ContentID, item.ISRC, a.setISRC)
		}
		slog.Info("found ISRC", "title", item.Title, "isrc", item.ISRC, "cached", isrcCached)
	}
	item.IsAnnotated = true

	return item.MusicBrainzID, item.ISRC, nil
}

func (a *MetadataAnnotator) lookupByISRC(ctx context.Context, item *domain.QueueItem, isrc string) (string, error) {
	if err := a.wait(ctx); err != nil {
		return "", err
	}

	recordings, err := a.db.LookupISRC(ctx, domain.NormalizeISRC(isrc))
	switch {
	case errors.Is(err, ports.ErrTimeout):
		slog.Warn("timed out looking up ISRC", "title", item.Title, "isrc", isrc)
		return "", nil
	case errors.Is(err, ports.ErrRecordingNotFound):
		slog.Warn("ISRC is not in the recording database", "title", item.Title, "isrc", isrc)
		return "", err
	case err != nil:
		return "", fmt.Errorf("failed to look up ISRC %s: %w", isrc, err)
	}

	if len(recordings) == 0 {
		slog.Warn("no recordings for ISRC", "title", item.Title, "isrc", isrc)
		return "", nil
	}
	return recordings[0].ID, nil
}

func (a *MetadataAnnotator) lookupByMetadata(ctx context.Context, item *domain.QueueItem) (string, string, error) {
	if item.Title == "" || item.Artist == "" {
		slog.Debug("not enough metadata for a recording search", "title", item.Title, "artist", item.Artist)
		return "", "", nil
	}
	if err := a.wait(ctx); err != nil {
		return "", "", err
	}

	recordings, err := a.db.SearchRecordings(ctx, ports.RecordingQuery{
		Title:  item.Title,
		Artist: item.Artist,
		Album:  item.Album,
		Limit:  recordingSearchLimit,
	})
	switch {
	case errors.Is(err, ports.ErrTimeout):
		slog.Warn("timed out searching recordings", "title", item.Title)
		return "", "", nil
	case errors.Is(err, ports.ErrRecordingNotFound):
		return "", "", nil
	case err != nil:
		return "", "", fmt.Errorf("failed to search recordings for %q: %w", item.Title, err)
	}

	best, ok := a.bestRecording(item, recordings)
	if !ok {
		slog.Warn("no matching recordings", "title", item.Title, "artist", item.Artist)
		return "", "", nil
	}

	var isrc string
	if best.HasISRC() {
		isrc = best.ISRCs[0]
	}
	return best.ID, isrc, nil
}

// bestRecording drops recordings whose length is unknown or too far from the item's
// duration, then prefers the most similar one, and among equals one with an ISRC.
func (a *MetadataAnnotator) bestRecording(
	item *domain.QueueItem,
	recordings []domain.RecordingCandidate,
) (domain.RecordingCandidate, bool) {
	candidates := make([]domain.RecordingCandidate, 0, len(recordings))
	for _, r := range recordings {
		if r.Length <= 0 {
			continue
		}
		if item.Duration > 0 && durationDelta(item.Duration, r.Length) >= a.durationThreshold {
			continue
		}
		candidates = append(candidates, r)
	}
	if len(candidates) == 0 {
		return domain.RecordingCandidate{}, false
	}
	if len(candidates) == 1 {
		return candidates[0], true
	}

	query := item.MetadataQuery()
	scores := make([]int, len(candidates))
	for i, c := range candidates {
		scores[i] = domain.Score(query, c.Title+" "+c.ArtistCredit, c.Score)
	}

	idx := make([]int, len(candidates))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(x, y int) bool {
		i, j := idx[x], idx[y]
		if scores[i] != scores[j] {
			return scores[i] > scores[j]
		}
		return candidates[i].HasISRC() && !candidates[j].HasISRC()
	})

	for _, i := range idx {
		slog.Debug("ranked recording",
			"query", query,
			"score", scores[i],
			"title", candidates[i].Title,
			"artist", candidates[i].ArtistCredit,
			"has_isrc", candidates[i].HasISRC(),
		)
	}
	return candidates[idx[0]], true
}

func (a *MetadataAnnotator) wait(ctx context.Context) error {
	if a.limiter == nil {
		return nil
	}
	if err := a.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("failed to wait for rate limiter: %w", err)
	}
	return nil
}

func (a *MetadataAnnotator) cached(
	ctx context.Context,
	get func(context.Context, string) (string, bool, error),
	contentID string,
) (string, bool) {
	value, ok, err := get(ctx, contentID)
	if err != nil {
		slog.Warn("failed to read identifier cache", "content_id", contentID, "error", err)
		return "", false
	}
	return value, ok && value != ""
}

func (a *MetadataAnnotator) setMusicBrainzID(ctx context.Context, contentID, value string) error {
	return a.cache.SetMusicBrainzID(ctx, contentID, value)
}

func (a *MetadataAnnotator) setISRC(ctx context.Context, contentID, value string) error {
	return a.cache.SetISRC(ctx, contentID, value)
}

func (a *MetadataAnnotator) store(
	ctx context.Context,
	what, contentID, value string,
	set func(context.Context, string, string) error,
) {
	if a.cache == nil || contentID == "" {
		return
	}
	if err := set(ctx, contentID, value); err != nil {
		slog.Warn("failed to cache identifier", "kind", what, "content_id", contentID, "error", err)
	}
}
