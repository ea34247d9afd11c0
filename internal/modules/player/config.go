package player

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds the player module configuration.
type Config struct {
	LavalinkAddress  string `env:"LAVALINK_ADDRESS,notEmpty"`
	LavalinkPassword string `env:"LAVALINK_PASSWORD,notEmpty"`
	LavalinkNodeName string `env:"LAVALINK_NODE_NAME" envDefault:"main"`
	LavalinkSecure   bool   `env:"LAVALINK_SECURE"`

	// Spotify is optional. Without credentials, catalog links are rejected and
	// free text goes straight to the audio provider.
	SpotifyClientID     string `env:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `env:"SPOTIFY_CLIENT_SECRET"`

	DeezerEnabled bool `env:"DEEZER_ENABLED"`

	MusicBrainzBaseURL   string        `env:"MUSICBRAINZ_BASE_URL" envDefault:"https://musicbrainz.org/ws/2"`
	MusicBrainzUserAgent string        `env:"MUSICBRAINZ_USER_AGENT" envDefault:"jockey/1.0 ( https://github.com/sglre6355/jockey )"`
	MusicBrainzTimeout   time.Duration `env:"MUSICBRAINZ_TIMEOUT" envDefault:"5s"`
	// MusicBrainzRateLimit is the number of requests allowed per second.
	MusicBrainzRateLimit float64 `env:"MUSICBRAINZ_RATE_LIMIT" envDefault:"25"`

	// DatabasePath selects the SQLite store. Empty keeps everything in memory.
	DatabasePath string `env:"JOCKEY_DATABASE_PATH"`

	ProviderTimeout time.Duration `env:"PROVIDER_TIMEOUT" envDefault:"10s"`
}

// LoadConfig parses the player configuration from the environment.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SpotifyEnabled reports whether both Spotify credentials are set.
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}
