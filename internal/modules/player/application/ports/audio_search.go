package ports

import (
	"context"

	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// LoadType represents the shape of a provider load result.
type LoadType string

const (
	LoadTypeTrack    LoadType = "track"
	LoadTypePlaylist LoadType = "playlist"
	LoadTypeSearch   LoadType = "search"
	LoadTypeEmpty    LoadType = "empty"
)

// SearchResult is what an audio-search provider returns for one query.
type SearchResult struct {
	Type         LoadType
	PlaylistName string // set for LoadTypePlaylist
	Tracks       []domain.ProviderSearchResult
}

// AudioSearchProvider resolves queries and identifiers to playable tracks.
type AudioSearchProvider interface {
	// Search loads query from source. An empty result is not an error; provider
	// failures are.
	Search(ctx context.Context, query string, source domain.SearchSource) (*SearchResult, error)

	// DecodeHandle turns an opaque encoded track back into a full handle.
	DecodeHandle(ctx context.Context, encoded string) (domain.PlayableHandle, error)
}
