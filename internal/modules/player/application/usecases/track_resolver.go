package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/disgoorg/snowflake/v2"
	"github.com/samber/lo"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

const catalogSearchLimit = 10

// ResolveQueryInput contains the input for the ResolveQuery use case.
type ResolveQueryInput struct {
	Query       string
	RequesterID snowflake.ID
}

// ResolveQueryOutput contains the result of the ResolveQuery use case.
type ResolveQueryOutput struct {
	Kind     domain.QueryKind
	ListName string // album, playlist or artist name when the query expanded to a list
	Items    []*domain.QueueItem
}

// QueryResolver turns user queries into queue items.
type QueryResolver interface {
	Resolve(ctx context.Context, input ResolveQueryInput) (*ResolveQueryOutput, error)
}

var _ QueryResolver = (*TrackResolverService)(nil)

// TrackResolverService resolves user queries against the catalog and audio providers.
type TrackResolverService struct {
	catalog ports.CatalogService
	audio   ports.AudioSearchProvider
}

// NewTrackResolverService creates a new TrackResolverService. catalog may be nil, in
// which case catalog URLs fail and free text goes straight to the audio provider.
func NewTrackResolverService(catalog ports.CatalogService, audio ports.AudioSearchProvider) *TrackResolverService {
	return &TrackResolverService{
		catalog: catalog,
		audio:   audio,
	}
}

// Resolve classifies the query and dispatches it to the matching strategy.
func (s *TrackResolverService) Resolve(ctx context.Context, input ResolveQueryInput) (*ResolveQueryOutput, error) {
	query := domain.ClassifyQuery(input.Query)
	if query.Raw == "" {
		return nil, newUserError(ErrNoResults, "Please provide something to search for.", nil)
	}

	var (
		out *ResolveQueryOutput
		err error
	)
	switch query.Kind {
	case domain.QueryCatalog:
		out, err = s.resolveCatalog(ctx, query, input.RequesterID)
	case domain.QueryVideo:
		out, err = s.resolveVideo(ctx, query, input.RequesterID)
	case domain.QueryVideoPlaylist:
		out, err = s.resolveVideoPlaylist(ctx, query, input.RequesterID)
	case domain.QuerySoundCloud:
		out, err = s.resolveSoundCloud(ctx, query, input.RequesterID)
	case domain.QueryUnsupported:
		err = newUserError(ErrUnsupportedSource, "Direct playback from unsupported URLs is not supported.", nil)
	default:
		out, err = s.resolveText(ctx, query.Raw, input.RequesterID)
	}
	if err != nil {
		return nil, err
	}

	out.Kind = query.Kind
	return out, nil
}

func (s *TrackResolverService) resolveCatalog(
	ctx context.Context,
	query domain.ParsedQuery,
	requester snowflake.ID,
) (*ResolveQueryOutput, error) {
	if s.catalog == nil {
		return nil, newUserError(ErrUnsupportedSource, "Catalog links are not available on this bot.", nil)
	}

	var (
		tracks []domain.CatalogTrack
		name   string
		err    error
	)
	switch query.Entity {
	case domain.CatalogTrackEntity:
		var track domain.CatalogTrack
		track, err = s.catalog.GetTrack(ctx, query.ID)
		if err == nil {
			tracks = []domain.CatalogTrack{track}
		}
	case domain.CatalogArtistEntity:
		var list *ports.CatalogList
		list, err = s.catalog.GetArtistTopTracks(ctx, query.ID)
		if err == nil {
			tracks, name = list.Tracks, list.Name
		}
	default:
		var list *ports.CatalogList
		list, err = s.catalog.GetListTracks(ctx, query.Entity, query.ID)
		if err == nil {
			tracks, name = list.Tracks, list.Name
		}
	}

	if errors.Is(err, ports.ErrCatalogNotFound) {
		return nil, newUserError(ErrNoResults, fmt.Sprintf("The %s does not exist or is private.", query.Entity), err)
	}
	if err != nil {
		return nil, newUserError(ErrNoResults, fmt.Sprintf("An error occurred while fetching the %s.", query.Entity), err)
	}

	tracks = lo.Filter(tracks, func(t domain.CatalogTrack, _ int) bool { return t.ID != "" || t.Title != "" })
	if len(tracks) == 0 {
		if query.Entity == domain.CatalogTrackEntity {
			return nil, newUserError(ErrNoResults, "Track does not exist or is private.", nil)
		}
		return nil, newUserError(ErrNoResults, fmt.Sprintf("%s does not have any public tracks.", capitalize(string(query.Entity))), nil)
	}

	return &ResolveQueryOutput{
		ListName: name,
		Items: lo.Map(tracks, func(t domain.CatalogTrack, _ int) *domain.QueueItem {
			return t.ToQueueItem(requester)
		}),
	}, nil
}

func (s *TrackResolverService) resolveVideo(
	ctx context.Context,
	query domain.ParsedQuery,
	requester snowflake.ID,
) (*ResolveQueryOutput, error) {
	result, err := s.audio.Search(ctx, "https://www.youtube.com/watch?v="+query.ID, domain.SourceDirect)
	if err != nil || result == nil || len(result.Tracks) == 0 {
		return nil, newUserError(ErrInvalidIdentifier, "Could not find a video with that URL.", err)
	}

	return &ResolveQueryOutput{
		Items: []*domain.QueueItem{result.Tracks[0].ToQueueItem(requester)},
	}, nil
}

func (s *TrackResolverService) resolveVideoPlaylist(
	ctx context.Context,
	query domain.ParsedQuery,
	requester snowflake.ID,
) (*ResolveQueryOutput, error) {
	result, err := s.audio.Search(ctx, "https://www.youtube.com/playlist?list="+query.ID, domain.SourceDirect)
	if err != nil || result == nil || len(result.Tracks) == 0 {
		return nil, newUserError(ErrInvalidIdentifier, "Playlist is empty, private, or nonexistent.", err)
	}

	return &ResolveQueryOutput{
		ListName: result.PlaylistName,
		Items:    toQueueItems(result.Tracks, requester),
	}, nil
}

func (s *TrackResolverService) resolveSoundCloud(
	ctx context.Context,
	query domain.ParsedQuery,
	requester snowflake.ID,
) (*ResolveQueryOutput, error) {
	result, err := s.audio.Search(ctx, query.Raw, domain.SourceDirect)
	if err != nil || result == nil || len(result.Tracks) == 0 {
		return nil, newUserError(ErrInvalidIdentifier, "That SoundCloud link is private, nonexistent, or has no stream.", err)
	}

	return &ResolveQueryOutput{
		ListName: result.PlaylistName,
		Items:    toQueueItems(result.Tracks, requester),
	}, nil
}

// resolveText tries a catalog search first and accepts its best result only above
// the confidence threshold. Otherwise the best audio search result is used.
func (s *TrackResolverService) resolveText(ctx context.Context, query string, requester snowflake.ID) (*ResolveQueryOutput, error) {
	if s.catalog != nil {
		tracks, err := s.catalog.SearchTracks(ctx, query, catalogSearchLimit)
		switch {
		case err != nil:
			slog.Warn("catalog search failed, falling back to audio search", "query", query, "error", err)
		case len(tracks) == 0:
			slog.Debug("no catalog results", "query", query)
		default:
			ranked := rankAndLog("catalog", query, tracks)
			if ranked[0].Score >= domain.ConfidenceThreshold {
				return &ResolveQueryOutput{
					Items: []*domain.QueueItem{ranked[0].Result.ToQueueItem(requester)},
				}, nil
			}
			slog.Debug("catalog results below confidence threshold", "query", query, "score", ranked[0].Score)
		}
	}

	results, err := searchProvider(ctx, s.audio, providerSearch{query: query, source: domain.SourceYouTube})
	if err != nil {
		if errors.Is(err, ErrNoResults) {
			return nil, newUserError(ErrNoResults, fmt.Sprintf("No results found for `%s`.", query), err)
		}
		return nil, err
	}

	ranked := rankAndLog("youtube", query, results)
	return &ResolveQueryOutput{
		Items: []*domain.QueueItem{ranked[0].Result.ToQueueItem(requester)},
	}, nil
}

func toQueueItems(results []domain.ProviderSearchResult, requester snowflake.ID) []*domain.QueueItem {
	return lo.Map(results, func(r domain.ProviderSearchResult, _ int) *domain.QueueItem {
		return r.ToQueueItem(requester)
	})
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
