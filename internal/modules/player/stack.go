package player

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/application/usecases"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
	"github.com/sglre6355/jockey/internal/modules/player/infrastructure"
	"golang.org/x/time/rate"
)

// Stack is the track resolution pipeline shared by the bot and the CLI.
type Stack struct {
	Cache     ports.CandidateCache
	Settings  domain.LoopSettingsStore
	Annotator *usecases.MetadataAnnotator
	Finder    *usecases.TrackFinderService
	Resolver  *usecases.TrackResolverService

	catalog *infrastructure.SpotifyCatalog
	store   *infrastructure.SQLiteStore
}

// NewStack builds the resolver, finder and annotator on top of audio.
func NewStack(ctx context.Context, cfg *Config, audio ports.AudioSearchProvider) (*Stack, error) {
	s := &Stack{}

	if cfg.DatabasePath != "" {
		store, err := infrastructure.OpenSQLiteStore(ctx, cfg.DatabasePath)
		if err != nil {
			return nil, err
		}
		s.store = store
		s.Cache = store
		s.Settings = store
		slog.Info("using sqlite store", "path", cfg.DatabasePath)
	} else {
		s.Cache = infrastructure.NewMemoryCache()
		s.Settings = infrastructure.NewMemoryLoopSettings()
	}

	musicBrainz := infrastructure.NewMusicBrainzClient(infrastructure.MusicBrainzConfig{
		BaseURL:   cfg.MusicBrainzBaseURL,
		UserAgent: cfg.MusicBrainzUserAgent,
		Timeout:   cfg.MusicBrainzTimeout,
	})
	limiter := rate.NewLimiter(rate.Limit(cfg.MusicBrainzRateLimit), 1)

	s.Annotator = usecases.NewMetadataAnnotator(musicBrainz, s.Cache, limiter)
	s.Finder = usecases.NewTrackFinderService(audio, s.Cache, s.Annotator, cfg.DeezerEnabled)

	// A nil *SpotifyCatalog must not reach the resolver as a non-nil interface.
	var catalog ports.CatalogService
	if cfg.SpotifyEnabled() {
		s.catalog = infrastructure.NewSpotifyCatalog(ctx, cfg.SpotifyClientID, cfg.SpotifyClientSecret, cfg.ProviderTimeout)
		catalog = s.catalog
	} else {
		slog.Warn("Spotify credentials not set, catalog links are disabled")
	}
	s.Resolver = usecases.NewTrackResolverService(catalog, audio)

	return s, nil
}

// Close releases the persistent store, if any.
func (s *Stack) Close() error {
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("failed to close sqlite store: %w", err)
	}
	return nil
}
