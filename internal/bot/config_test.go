package bot

import (
	"log/slog"
	"testing"
)

func TestLoadConfig_WithValidToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token-123")
	t.Setenv("DISCORD_GUILD_ID", "")
	t.Setenv("JOCKEY_LOG_LEVEL", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.DiscordToken != "test-token-123" {
		t.Errorf("expected token %q, got %q", "test-token-123", cfg.DiscordToken)
	}
	if cfg.GuildID != "" {
		t.Errorf("expected empty guild ID, got %q", cfg.GuildID)
	}
}

func TestLoadConfig_WithEmptyToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")

	_, err := LoadConfig()
	if err == nil {
		t.Error("expected error for missing token, got nil")
	}
}

func TestLoadConfig_GuildAndLogLevel(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("DISCORD_GUILD_ID", "123456789")
	t.Setenv("JOCKEY_LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.GuildID != "123456789" {
		t.Errorf("expected guild ID %q, got %q", "123456789", cfg.GuildID)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("expected log level %q, got %q", "debug", cfg.LogLevel)
	}
}

func TestLoadConfig_InvalidLogLevel(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "test-token")
	t.Setenv("JOCKEY_LOG_LEVEL", "verbose")

	if _, err := LoadConfig(); err == nil {
		t.Error("expected error for invalid log level, got nil")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{in: "debug", want: slog.LevelDebug},
		{in: "INFO", want: slog.LevelInfo},
		{in: "", want: slog.LevelInfo},
		{in: "warn", want: slog.LevelWarn},
		{in: "error", want: slog.LevelError},
		{in: "trace", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogLevel(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}
