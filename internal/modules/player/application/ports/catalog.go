package ports

import (
	"context"
	"errors"

	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// ErrCatalogNotFound is returned when an entity does not exist or is private.
var ErrCatalogNotFound = errors.New("catalog entity not found")

// CatalogList is a named list of catalog tracks, such as an album or playlist.
type CatalogList struct {
	Name   string
	Author string
	Tracks []domain.CatalogTrack
}

// CatalogService is a music catalog such as Spotify.
type CatalogService interface {
	// SearchTracks runs a keyword search.
	SearchTracks(ctx context.Context, query string, limit int) ([]domain.CatalogTrack, error)

	// GetTrack fetches a single track by id.
	GetTrack(ctx context.Context, id string) (domain.CatalogTrack, error)

	// GetArtistTopTracks fetches an artist's most popular tracks.
	GetArtistTopTracks(ctx context.Context, id string) (*CatalogList, error)

	// GetListTracks fetches every track of an album or playlist.
	GetListTracks(ctx context.Context, entity domain.CatalogEntity, id string) (*CatalogList, error)
}
