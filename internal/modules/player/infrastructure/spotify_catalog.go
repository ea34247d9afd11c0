package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/samber/lo"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
)

// Ensure SpotifyCatalog implements ports.CatalogService.
var _ ports.CatalogService = (*SpotifyCatalog)(nil)

// topTracksMarket is the market artist top tracks are fetched for.
const topTracksMarket = "US"

// SpotifyCatalog is a CatalogService backed by the Spotify Web API using the
// client credentials flow.
type SpotifyCatalog struct {
	client *spotify.Client
}

// NewSpotifyCatalog creates a catalog that authenticates with the app's client credentials.
func NewSpotifyCatalog(ctx context.Context, clientID, clientSecret string, timeout time.Duration) *SpotifyCatalog {
	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	httpClient := config.Client(ctx)
	httpClient.Timeout = timeout
	return newSpotifyCatalog(httpClient)
}

func newSpotifyCatalog(httpClient *http.Client, opts ...spotify.ClientOption) *SpotifyCatalog {
	return &SpotifyCatalog{client: spotify.New(httpClient, opts...)}
}

// SearchTracks runs a keyword track search.
func (c *SpotifyCatalog) SearchTracks(ctx context.Context, query string, limit int) ([]domain.CatalogTrack, error) {
	result, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to search tracks: %w", mapSpotifyError(err))
	}
	if result.Tracks == nil {
		return nil, nil
	}
	return lo.Map(result.Tracks.Tracks, func(t spotify.FullTrack, _ int) domain.CatalogTrack {
		return convertFullTrack(&t)
	}), nil
}

// GetTrack fetches a single track by id.
func (c *SpotifyCatalog) GetTrack(ctx context.Context, id string) (domain.CatalogTrack, error) {
	track, err := c.client.GetTrack(ctx, spotify.ID(id))
	if err != nil {
		return domain.CatalogTrack{}, fmt.Errorf("failed to get track: %w", mapSpotifyError(err))
	}
	return convertFullTrack(track), nil
}

// GetArtistTopTracks fetches an artist's most popular tracks.
func (c *SpotifyCatalog) GetArtistTopTracks(ctx context.Context, id string) (*ports.CatalogList, error) {
	artist, err := c.client.GetArtist(ctx, spotify.ID(id))
	if err != nil {
		return nil, fmt.Errorf("failed to get artist: %w", mapSpotifyError(err))
	}

	tracks, err := c.client.GetArtistsTopTracks(ctx, spotify.ID(id), topTracksMarket)
	if err != nil {
		return nil, fmt.Errorf("failed to get artist top tracks: %w", mapSpotifyError(err))
	}

	return &ports.CatalogList{
		Name:   artist.Name,
		Author: artist.Name,
		Tracks: lo.Map(tracks, func(t spotify.FullTrack, _ int) domain.CatalogTrack {
			return convertFullTrack(&t)
		}),
	}, nil
}

// GetListTracks fetches every track of an album or playlist, following pagination.
func (c *SpotifyCatalog) GetListTracks(
	ctx context.Context,
	entity domain.CatalogEntity,
	id string,
) (*ports.CatalogList, error) {
	switch entity {
	case domain.CatalogAlbumEntity:
		return c.albumTracks(ctx, spotify.ID(id))
	case domain.CatalogPlaylistEntity:
		return c.playlistTracks(ctx, spotify.ID(id))
	default:
		return nil, fmt.Errorf("unsupported list entity %q: %w", entity, ports.ErrCatalogNotFound)
	}
}

func (c *SpotifyCatalog) albumTracks(ctx context.Context, id spotify.ID) (*ports.CatalogList, error) {
	album, err := c.client.GetAlbum(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get album: %w", mapSpotifyError(err))
	}

	artwork := firstImage(album.Images)
	list := &ports.CatalogList{
		Name:   album.Name,
		Author: firstArtist(album.Artists),
	}

	page := &album.Tracks
	for {
		for _, t := range page.Tracks {
			track := convertSimpleTrack(&t)
			track.Album = album.Name
			track.ArtworkURL = artwork
			list.Tracks = append(list.Tracks, track)
		}
		if err := c.client.NextPage(ctx, page); err != nil {
			if errors.Is(err, spotify.ErrNoMorePages) {
				break
			}
			return nil, fmt.Errorf("failed to page album tracks: %w", mapSpotifyError(err))
		}
	}
	return list, nil
}

func (c *SpotifyCatalog) playlistTracks(ctx context.Context, id spotify.ID) (*ports.CatalogList, error) {
	playlist, err := c.client.GetPlaylist(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist: %w", mapSpotifyError(err))
	}

	list := &ports.CatalogList{
		Name:   playlist.Name,
		Author: playlist.Owner.DisplayName,
	}

	page, err := c.client.GetPlaylistItems(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get playlist items: %w", mapSpotifyError(err))
	}
	for {
		for _, item := range page.Items {
			// Episodes and removed tracks have no track body.
			if item.Track.Track == nil {
				continue
			}
			list.Tracks = append(list.Tracks, convertFullTrack(item.Track.Track))
		}
		if err := c.client.NextPage(ctx, page); err != nil {
			if errors.Is(err, spotify.ErrNoMorePages) {
				break
			}
			return nil, fmt.Errorf("failed to page playlist items: %w", mapSpotifyError(err))
		}
	}
	return list, nil
}

// mapSpotifyError turns a 404, and the 400 Spotify answers for malformed ids,
// into ports.ErrCatalogNotFound.
func mapSpotifyError(err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		if apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusBadRequest {
			return fmt.Errorf("%w: %s", ports.ErrCatalogNotFound, apiErr.Message)
		}
	}
	return err
}

func convertFullTrack(t *spotify.FullTrack) domain.CatalogTrack {
	track := convertSimpleTrack(&t.SimpleTrack)
	track.Album = t.Album.Name
	track.ArtworkURL = firstImage(t.Album.Images)
	track.ISRC = domain.NormalizeISRC(t.ExternalIDs["isrc"])
	return track
}

func convertSimpleTrack(t *spotify.SimpleTrack) domain.CatalogTrack {
	return domain.CatalogTrack{
		ID:       string(t.ID),
		Title:    t.Name,
		Artist:   firstArtist(t.Artists),
		Author:   strings.Join(lo.Map(t.Artists, func(a spotify.SimpleArtist, _ int) string { return a.Name }), ", "),
		Duration: time.Duration(t.Duration) * time.Millisecond,
		URL:      "https://open.spotify.com/track/" + string(t.ID),
	}
}

func firstArtist(artists []spotify.SimpleArtist) string {
	if len(artists) == 0 {
		return ""
	}
	return artists[0].Name
}

func firstImage(images []spotify.Image) string {
	if len(images) == 0 {
		return ""
	}
	return images[0].URL
}
