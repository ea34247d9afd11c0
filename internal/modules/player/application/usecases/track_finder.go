package usecases

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// FindOptions controls a single FindPlayable call.
type FindOptions struct {
	// ForceLookup skips the cache and re-runs annotation even when an ISRC is known.
	ForceLookup bool
}

// PlayableFinder resolves queue items to streamable handles.
type PlayableFinder interface {
	FindPlayable(ctx context.Context, item *domain.QueueItem, opts FindOptions) (domain.PlayableHandle, error)
	Invalidate(ctx context.Context, item *domain.QueueItem)
}

var _ PlayableFinder = (*TrackFinderService)(nil)

// TrackFinderService finds a playable handle for a queue item by trying identifier
// based lookups before falling back to metadata searches.
type TrackFinderService struct {
	audio         ports.AudioSearchProvider
	cache         ports.CandidateCache
	annotator     Annotator
	deezerEnabled bool
}

// NewTrackFinderService creates a new TrackFinderService. cache and annotator may be nil.
func NewTrackFinderService(
	audio ports.AudioSearchProvider,
	cache ports.CandidateCache,
	annotator Annotator,
	deezerEnabled bool,
) *TrackFinderService {
	return &TrackFinderService{
		audio:         audio,
		cache:         cache,
		annotator:     annotator,
		deezerEnabled: deezerEnabled,
	}
}

// FindPlayable returns a handle for item and stores it on the item.
func (s *TrackFinderService) FindPlayable(
	ctx context.Context,
	item *domain.QueueItem,
	opts FindOptions,
) (domain.PlayableHandle, error) {
	if !opts.ForceLookup {
		if handle, ok := s.cachedHandle(ctx, item); ok {
			item.Handle = &handle
			return handle, nil
		}
	}

	if item.ISRC == "" || opts.ForceLookup {
		s.annotate(ctx, item)
	}

	var (
		handle domain.PlayableHandle
		found  bool
	)
	if item.ISRC != "" {
		handle, found = s.findByISRC(ctx, item)
	} else {
		slog.Warn("item has no ISRC, matching by metadata only", "title", item.Title)
	}

	if !found {
		item.IsImperfectMatch = true
		handle, found = s.findByMetadata(ctx, item)
	}
	if !found {
		return domain.PlayableHandle{}, fmt.Errorf("%w for %q", ErrNoPlayableMatch, item.MetadataQuery())
	}

	item.Handle = &handle
	s.storeHandle(ctx, item, handle)
	return handle, nil
}

// Invalidate drops every cached handle of item. Used when a cached handle turned
// out to be unplayable.
func (s *TrackFinderService) Invalidate(ctx context.Context, item *domain.QueueItem) {
	if s.cache == nil {
		return
	}
	for _, k := range cacheKeys(item) {
		if err := s.cache.DeleteHandle(ctx, k.keyType, k.key); err != nil {
			slog.Warn("failed to invalidate cached handle", "key_type", k.keyType, "key", k.key, "error", err)
		}
	}
}

func (s *TrackFinderService) annotate(ctx context.Context, item *domain.QueueItem) {
	if s.annotator == nil {
		return
	}
	if _, _, err := s.annotator.Annotate(ctx, item); err != nil {
		slog.Warn("failed to annotate item", "title", item.Title, "error", err)
	}
}

func (s *TrackFinderService) findByISRC(ctx context.Context, item *domain.QueueItem) (domain.PlayableHandle, bool) {
	if s.deezerEnabled {
		result, err := s.audio.Search(ctx, item.ISRC, domain.SourceDeezerISRC)
		switch {
		case err != nil:
			slog.Warn("deezer ISRC lookup failed", "isrc", item.ISRC, "title", item.Title, "error", err)
		case result == nil || len(result.Tracks) == 0:
			slog.Warn("no deezer match for ISRC", "isrc", item.ISRC, "title", item.Title)
		default:
			slog.Debug("matched ISRC on deezer", "isrc", item.ISRC, "title", item.Title)
			return result.Tracks[0].Handle, true
		}
	}

	results, err := searchProvider(ctx, s.audio, providerSearch{
		query:   `"` + item.ISRC + `"`,
		source:  domain.SourceYouTube,
		desired: item.Duration,
	})
	if err != nil {
		slog.Warn("no youtube match for ISRC", "isrc", item.ISRC, "title", item.Title, "error", err)
		return domain.PlayableHandle{}, false
	}

	slog.Debug("matched ISRC on youtube", "isrc", item.ISRC, "title", item.Title)
	return results[0].Handle, true
}

func (s *TrackFinderService) findByMetadata(ctx context.Context, item *domain.QueueItem) (domain.PlayableHandle, bool) {
	query := item.MetadataQuery()
	if query == "" {
		return domain.PlayableHandle{}, false
	}
	slog.Warn("falling back to metadata search", "isrc", item.ISRC, "title", item.Title)

	if s.deezerEnabled {
		results, err := searchProvider(ctx, s.audio, providerSearch{
			query:   query,
			source:  domain.SourceDeezer,
			desired: item.Duration,
			filter:  true,
		})
		if err != nil {
			slog.Warn("no deezer results", "title", item.Title, "error", err)
		} else {
			ranked := rankAndLog("deezer", query, results)
			if ranked[0].Score >= domain.ConfidenceThreshold {
				slog.Warn("using deezer result",
					"result", ranked[0].Result.Title,
					"identifier", ranked[0].Result.Handle.Identifier,
					"title", item.Title,
				)
				return ranked[0].Result.Handle, true
			}
			slog.Warn("no similar deezer results", "title", item.Title, "score", ranked[0].Score)
		}
	}

	results, err := searchProvider(ctx, s.audio, providerSearch{
		query:   query,
		source:  domain.SourceYouTube,
		desired: item.Duration,
	})
	if err != nil {
		slog.Warn("no youtube results", "title", item.Title, "error", err)
		return domain.PlayableHandle{}, false
	}

	ranked := rankAndLog("youtube", query, results)
	slog.Warn("using youtube result",
		"result", ranked[0].Result.Title,
		"identifier", ranked[0].Result.Handle.Identifier,
		"title", item.Title,
	)
	return ranked[0].Result.Handle, true
}

func (s *TrackFinderService) cachedHandle(ctx context.Context, item *domain.QueueItem) (domain.PlayableHandle, bool) {
	if s.cache == nil {
		return domain.PlayableHandle{}, false
	}

	for _, k := range cacheKeys(item) {
		raw, ok, err := s.cache.GetHandle(ctx, k.keyType, k.key)
		if err != nil {
			slog.Warn("failed to read handle cache", "key_type", k.keyType, "key", k.key, "error", err)
			continue
		}
		if !ok || raw == "" {
			continue
		}

		handle, err := s.decodeCached(ctx, raw)
		if err != nil {
			slog.Warn("failed to decode cached handle", "key_type", k.keyType, "key", k.key, "error", err)
			continue
		}
		slog.Info("found cached handle", "key_type", k.keyType, "key", k.key, "title", item.Title)
		return handle, true
	}
	return domain.PlayableHandle{}, false
}

// decodeCached reads a stored handle. Entries that are not JSON are treated as a
// bare provider encoding and decoded by the provider.
func (s *TrackFinderService) decodeCached(ctx context.Context, raw string) (domain.PlayableHandle, error) {
	var handle domain.PlayableHandle
	if err := json.Unmarshal([]byte(raw), &handle); err == nil && handle.Encoded != "" {
		return handle, nil
	}

	handle, err := s.audio.DecodeHandle(ctx, raw)
	if err != nil {
		return domain.PlayableHandle{}, fmt.Errorf("failed to decode handle: %w", err)
	}
	return handle, nil
}

func (s *TrackFinderService) storeHandle(ctx context.Context, item *domain.QueueItem, handle domain.PlayableHandle) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(handle)
	if err != nil {
		slog.Warn("failed to encode handle", "title", item.Title, "error", err)
		return
	}
	for _, k := range cacheKeys(item) {
		if err := s.cache.SetHandle(ctx, k.keyType, k.key, string(data)); err != nil {
			slog.Warn("failed to cache handle", "key_type", k.keyType, "key", k.key, "error", err)
		}
	}
}

type cacheKey struct {
	keyType ports.CacheKeyType
	key     string
}

// cacheKeys returns the content ID key first, then the ISRC key.
func cacheKeys(item *domain.QueueItem) []cacheKey {
	keys := make([]cacheKey, 0, 2)
	if item.ContentID != "" {
		keys = append(keys, cacheKey{ports.CacheKeyContentID, item.ContentID})
	}
	if item.ISRC != "" {
		keys = append(keys, cacheKey{ports.CacheKeyISRC, item.ISRC})
	}
	return keys
}
