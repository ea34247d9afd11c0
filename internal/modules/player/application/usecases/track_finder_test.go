package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

const testISRC = "USUG11904206"

func encodeHandle(t *testing.T, handle domain.PlayableHandle) string {
	t.Helper()
	data, err := json.Marshal(handle)
	if err != nil {
		t.Fatalf("failed to marshal handle: %v", err)
	}
	return string(data)
}

func TestTrackFinderService_FindPlayable(t *testing.T) {
	isrcQuery := `"` + testISRC + `"`

	tests := []struct {
		name          string
		item          func() *domain.QueueItem
		deezer        bool
		opts          FindOptions
		setupCache    func(*testing.T, *mockCache)
		setupAudio    func(*mockAudioSearch)
		annotatorISRC string
		wantErr       error
		wantHandle    string
		wantImperfect bool
		wantCalls     []string
		wantAnnotate  int
	}{
		{
			name: "cache hit by content id",
			item: func() *domain.QueueItem { return mockItem("a") },
			setupCache: func(t *testing.T, c *mockCache) {
				c.handles["content_id:content-a"] = encodeHandle(t, mockHandle("cached"))
			},
			wantHandle: "cached",
			wantCalls:  []string{},
		},
		{
			name: "cache hit by ISRC",
			item: func() *domain.QueueItem {
				item := mockItem("a")
				item.ISRC = testISRC
				return item
			},
			setupCache: func(t *testing.T, c *mockCache) {
				c.handles["isrc:"+testISRC] = encodeHandle(t, mockHandle("by-isrc"))
			},
			wantHandle: "by-isrc",
			wantCalls:  []string{},
		},
		{
			name: "ISRC match on youtube",
			item: func() *domain.QueueItem {
				item := mockItem("a")
				item.ISRC = testISRC
				return item
			},
			setupAudio: func(m *mockAudioSearch) {
				m.on(domain.SourceYouTube, isrcQuery, mockResult("yt", "Blinding Lights", "The Weeknd", 200*time.Second))
			},
			wantHandle: "yt",
			wantCalls:  []string{domain.SourceYouTube.Apply(isrcQuery)},
		},
		{
			name: "ISRC match on deezer comes first",
			item: func() *domain.QueueItem {
				item := mockItem("a")
				item.ISRC = testISRC
				return item
			},
			deezer: true,
			setupAudio: func(m *mockAudioSearch) {
				m.on(domain.SourceDeezerISRC, testISRC, mockResult("dz", "Blinding Lights", "The Weeknd", 200*time.Second))
				m.on(domain.SourceYouTube, isrcQuery, mockResult("yt", "Blinding Lights", "The Weeknd", 200*time.Second))
			},
			wantHandle: "dz",
			wantCalls:  []string{domain.SourceDeezerISRC.Apply(testISRC)},
		},
		{
			name:          "annotator supplies the ISRC",
			item:          func() *domain.QueueItem { return mockItem("a") },
			annotatorISRC: testISRC,
			setupAudio: func(m *mockAudioSearch) {
				m.on(domain.SourceYouTube, isrcQuery, mockResult("yt", "Track a", "Artist", 3*time.Minute))
			},
			wantHandle:   "yt",
			wantCalls:    []string{domain.SourceYouTube.Apply(isrcQuery)},
			wantAnnotate: 1,
		},
		{
			name: "metadata fallback marks the item imperfect",
			item: func() *domain.QueueItem {
				item := mockItem("a")
				item.ISRC = testISRC
				return item
			},
			setupAudio: func(m *mockAudioSearch) {
				m.on(domain.SourceYouTube, "Track a Artist",
					mockResult("other", "Unrelated", "Someone", 3*time.Minute),
					mockResult("meta", "Track a", "Artist", 3*time.Minute),
				)
			},
			wantHandle:    "meta",
			wantImperfect: true,
			wantCalls: []string{
				domain.SourceYouTube.Apply(isrcQuery),
				domain.SourceYouTube.Apply("Track a Artist"),
			},
		},
		{
			name:   "deezer metadata match above threshold",
			item:   func() *domain.QueueItem { return mockItem("a") },
			deezer: true,
			setupAudio: func(m *mockAudioSearch) {
				m.on(domain.SourceDeezer, "Track a Artist",
					mockResult("remix", "Track a (Remix)", "Artist", 3*time.Minute),
					mockResult("dz", "Track a", "Artist", 3*time.Minute),
				)
			},
			wantHandle:    "dz",
			wantImperfect: true,
			wantCalls:     []string{domain.SourceDeezer.Apply("Track a Artist")},
			wantAnnotate:  1,
		},
		{
			name:   "deezer metadata below threshold falls back to youtube",
			item:   func() *domain.QueueItem { return mockItem("a") },
			deezer: true,
			setupAudio: func(m *mockAudioSearch) {
				m.on(domain.SourceDeezer, "Track a Artist",
					mockResult("dz", "Completely Different", "Nobody", 3*time.Minute),
				)
				m.on(domain.SourceYouTube, "Track a Artist",
					mockResult("yt", "Track a", "Artist", 3*time.Minute),
				)
			},
			wantHandle:    "yt",
			wantImperfect: true,
			wantCalls: []string{
				domain.SourceDeezer.Apply("Track a Artist"),
				domain.SourceYouTube.Apply("Track a Artist"),
			},
			wantAnnotate: 1,
		},
		{
			name: "forced lookup skips the cache and re-annotates",
			item: func() *domain.QueueItem {
				item := mockItem("a")
				item.ISRC = testISRC
				return item
			},
			opts: FindOptions{ForceLookup: true},
			setupCache: func(t *testing.T, c *mockCache) {
				c.handles["content_id:content-a"] = encodeHandle(t, mockHandle("stale"))
			},
			setupAudio: func(m *mockAudioSearch) {
				m.on(domain.SourceYouTube, isrcQuery, mockResult("fresh", "Track a", "Artist", 3*time.Minute))
			},
			wantHandle:   "fresh",
			wantCalls:    []string{domain.SourceYouTube.Apply(isrcQuery)},
			wantAnnotate: 1,
		},
		{
			name:    "nothing playable",
			item:    func() *domain.QueueItem { return mockItem("a") },
			wantErr: ErrNoPlayableMatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			audio := newMockAudioSearch()
			if tt.setupAudio != nil {
				tt.setupAudio(audio)
			}
			cache := newMockCache()
			if tt.setupCache != nil {
				tt.setupCache(t, cache)
			}
			annotator := &mockAnnotator{isrc: tt.annotatorISRC}
			finder := NewTrackFinderService(audio, cache, annotator, tt.deezer)

			item := tt.item()
			handle, err := finder.FindPlayable(context.Background(), item, tt.opts)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				if item.Handle != nil {
					t.Errorf("expected no handle on failure, got %v", item.Handle)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if handle.Identifier != tt.wantHandle {
				t.Errorf("expected handle %q, got %q", tt.wantHandle, handle.Identifier)
			}
			if item.Handle == nil || item.Handle.Identifier != tt.wantHandle {
				t.Errorf("expected item handle %q, got %v", tt.wantHandle, item.Handle)
			}
			if item.IsImperfectMatch != tt.wantImperfect {
				t.Errorf("expected IsImperfectMatch %v, got %v", tt.wantImperfect, item.IsImperfectMatch)
			}
			if annotator.calls != tt.wantAnnotate {
				t.Errorf("expected %d annotate calls, got %d", tt.wantAnnotate, annotator.calls)
			}
			if len(audio.calls) != len(tt.wantCalls) {
				t.Fatalf("expected calls %v, got %v", tt.wantCalls, audio.calls)
			}
			for i, call := range tt.wantCalls {
				if audio.calls[i] != call {
					t.Errorf("expected call %d to be %q, got %q", i, call, audio.calls[i])
				}
			}
		})
	}
}

func TestTrackFinderService_StoresUnderEveryKey(t *testing.T) {
	audio := newMockAudioSearch()
	audio.on(domain.SourceYouTube, `"`+testISRC+`"`, mockResult("yt", "Track a", "Artist", 3*time.Minute))
	cache := newMockCache()
	finder := NewTrackFinderService(audio, cache, nil, false)

	item := mockItem("a")
	item.ISRC = testISRC
	if _, err := finder.FindPlayable(context.Background(), item, FindOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for _, key := range []string{"content_id:content-a", "isrc:" + testISRC} {
		raw, ok := cache.handles[key]
		if !ok {
			t.Errorf("expected handle cached under %q", key)
			continue
		}
		var stored domain.PlayableHandle
		if err := json.Unmarshal([]byte(raw), &stored); err != nil {
			t.Fatalf("failed to unmarshal cached handle: %v", err)
		}
		if stored.Identifier != "yt" {
			t.Errorf("expected cached identifier %q, got %q", "yt", stored.Identifier)
		}
	}

	// A second lookup for the same item is served from the cache.
	again := mockItem("a")
	if _, err := finder.FindPlayable(context.Background(), again, FindOptions{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(audio.calls) != 1 {
		t.Errorf("expected 1 search, got %v", audio.calls)
	}
}

func TestTrackFinderService_DecodesBareEncoding(t *testing.T) {
	audio := newMockAudioSearch()
	audio.decoded["QAAAjQIAJVJpY2s"] = mockHandle("decoded")
	cache := newMockCache()
	cache.handles["content_id:content-a"] = "QAAAjQIAJVJpY2s"
	finder := NewTrackFinderService(audio, cache, nil, false)

	handle, err := finder.FindPlayable(context.Background(), mockItem("a"), FindOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if handle.Identifier != "decoded" {
		t.Errorf("expected handle %q, got %q", "decoded", handle.Identifier)
	}
	if len(audio.decodes) != 1 {
		t.Errorf("expected 1 decode, got %d", len(audio.decodes))
	}
	if len(audio.calls) != 0 {
		t.Errorf("expected no searches, got %v", audio.calls)
	}
}

func TestTrackFinderService_Invalidate(t *testing.T) {
	cache := newMockCache()
	cache.handles["content_id:content-a"] = "x"
	cache.handles["isrc:"+testISRC] = "x"
	cache.handles["content_id:content-b"] = "x"
	finder := NewTrackFinderService(newMockAudioSearch(), cache, nil, false)

	item := mockItem("a")
	item.ISRC = testISRC
	finder.Invalidate(context.Background(), item)

	if _, ok := cache.handles["content_id:content-a"]; ok {
		t.Error("expected content id entry to be removed")
	}
	if _, ok := cache.handles["isrc:"+testISRC]; ok {
		t.Error("expected ISRC entry to be removed")
	}
	if _, ok := cache.handles["content_id:content-b"]; !ok {
		t.Error("expected unrelated entry to be kept")
	}
}

func TestTrackFinderService_CacheErrorsAreNotFatal(t *testing.T) {
	audio := newMockAudioSearch()
	audio.on(domain.SourceYouTube, "Track a Artist", mockResult("yt", "Track a", "Artist", 3*time.Minute))
	cache := newMockCache()
	cache.getErr = errProvider
	cache.setErr = errProvider
	finder := NewTrackFinderService(audio, cache, nil, false)

	handle, err := finder.FindPlayable(context.Background(), mockItem("a"), FindOptions{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if handle.Identifier != "yt" {
		t.Errorf("expected handle %q, got %q", "yt", handle.Identifier)
	}
}
