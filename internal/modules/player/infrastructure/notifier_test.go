package infrastructure

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
)

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0:00"},
		{59 * time.Second, "0:59"},
		{3*time.Minute + 20*time.Second, "3:20"},
		{200040 * time.Millisecond, "3:20"},
		{time.Hour + 2*time.Minute + 3*time.Second, "1:02:03"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := FormatDuration(tt.in); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestNowPlayingEmbed(t *testing.T) {
	tests := []struct {
		name       string
		info       ports.NowPlayingInfo
		wantFields []string
		wantFooter bool
	}{
		{
			name: "full metadata",
			info: ports.NowPlayingInfo{
				Title:       "Blinding Lights",
				Artist:      "The Weeknd",
				Album:       "After Hours",
				Duration:    200 * time.Second,
				RequesterID: 42,
				SourceName:  "deezer",
			},
			wantFields: []string{"Artist", "Album", "Duration", "Requested by"},
		},
		{
			name: "imperfect stream",
			info: ports.NowPlayingInfo{
				Title:            "Live radio",
				Artist:           "Station",
				IsImperfectMatch: true,
			},
			wantFields: []string{"Artist"},
			wantFooter: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			embed := nowPlayingEmbed(&tt.info)

			if embed.Title != tt.info.Title {
				t.Errorf("expected title %q, got %q", tt.info.Title, embed.Title)
			}
			if len(embed.Fields) != len(tt.wantFields) {
				t.Fatalf("expected %d fields, got %d", len(tt.wantFields), len(embed.Fields))
			}
			for i, name := range tt.wantFields {
				if embed.Fields[i].Name != name {
					t.Errorf("expected field %d to be %q, got %q", i, name, embed.Fields[i].Name)
				}
			}
			if (embed.Footer != nil) != tt.wantFooter {
				t.Errorf("expected footer %v, got %v", tt.wantFooter, embed.Footer != nil)
			}
		})
	}
}

func TestNotifier_URLExists(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("expected HEAD, got %s", r.Method)
		}
		if r.URL.Path == "/missing.jpg" {
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	n := &Notifier{httpClient: server.Client()}

	if !n.urlExists(t.Context(), server.URL+"/present.jpg") {
		t.Error("expected present URL to exist")
	}
	if n.urlExists(t.Context(), server.URL+"/missing.jpg") {
		t.Error("expected missing URL not to exist")
	}
}

func TestNotifier_BestThumbnailFallsBackToArtwork(t *testing.T) {
	n := &Notifier{httpClient: http.DefaultClient}
	info := &ports.NowPlayingInfo{SourceName: "deezer", ArtworkURL: "https://cdn.example/cover.jpg"}

	if got := n.bestThumbnail(info); got != info.ArtworkURL {
		t.Errorf("expected %q, got %q", info.ArtworkURL, got)
	}
}
