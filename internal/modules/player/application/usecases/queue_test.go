package usecases

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

type mockResolver struct {
	out   *ResolveQueryOutput
	err   error
	calls int
}

func (m *mockResolver) Resolve(_ context.Context, _ ResolveQueryInput) (*ResolveQueryOutput, error) {
	m.calls++
	return m.out, m.err
}

type queueFixture struct {
	*playbackFixture
	resolver *mockResolver
	service  *QueueService
}

func newQueueFixture() *queueFixture {
	pf := newPlaybackFixture()
	resolver := &mockResolver{}
	return &queueFixture{
		playbackFixture: pf,
		resolver:        resolver,
		service:         NewQueueService(pf.repo, NewGuildLocks(), resolver, pf.service),
	}
}

func (f *queueFixture) resolves(items ...*domain.QueueItem) {
	f.resolver.out = &ResolveQueryOutput{Kind: domain.QueryText, Items: items}
}

func TestQueueService_Enqueue(t *testing.T) {
	tests := []struct {
		name          string
		setup         func(*testing.T, *queueFixture)
		wantErr       error
		wantRetryable bool
		wantPosition  int
		wantLen       int
		wantPlaying   string
		wantResolves  int
	}{
		{
			name:    "not connected",
			wantErr: ErrNotConnected,
		},
		{
			name: "idle queue starts playback",
			setup: func(t *testing.T, f *queueFixture) {
				f.repo.createConnectedState(testGuildID, testVoiceChannelID, testNotificationID)
				f.resolves(mockResolvedItem("a"), mockResolvedItem("b"))
			},
			wantLen:      2,
			wantPlaying:  "encoded-a",
			wantResolves: 1,
		},
		{
			name: "active queue appends",
			setup: func(t *testing.T, f *queueFixture) {
				f.playing(t, mockResolvedItem("a"))
				f.resolves(mockResolvedItem("b"))
			},
			wantPosition: 1,
			wantLen:      2,
			wantResolves: 1,
		},
		{
			name: "idle queue resumes after the finished items",
			setup: func(t *testing.T, f *queueFixture) {
				f.playing(t, mockResolvedItem("a")).SetPlaybackActive(false)
				f.resolves(mockResolvedItem("b"))
			},
			wantPosition: 1,
			wantLen:      2,
			wantPlaying:  "encoded-b",
			wantResolves: 1,
		},
		{
			name: "resolution failure while idle",
			setup: func(t *testing.T, f *queueFixture) {
				f.repo.createConnectedState(testGuildID, testVoiceChannelID, testNotificationID)
				f.resolver.err = ErrNoResults
			},
			wantErr:      ErrNoResults,
			wantResolves: 1,
		},
		{
			name: "resolution failure while playing",
			setup: func(t *testing.T, f *queueFixture) {
				f.playing(t, mockResolvedItem("a"))
				f.resolver.err = ErrInvalidIdentifier
			},
			wantErr:       ErrInvalidIdentifier,
			wantRetryable: true,
			wantLen:       1,
			wantResolves:  1,
		},
		{
			name: "empty resolution",
			setup: func(t *testing.T, f *queueFixture) {
				f.repo.createConnectedState(testGuildID, testVoiceChannelID, testNotificationID)
				f.resolves()
			},
			wantErr:      ErrNoResults,
			wantResolves: 1,
		},
		{
			name: "unplayable items are rolled back",
			setup: func(t *testing.T, f *queueFixture) {
				f.playing(t, mockResolvedItem("a")).SetPlaybackActive(false)
				f.resolves(mockItem("b"), mockItem("c"))
			},
			wantErr:      ErrNoPlayableTracks,
			wantLen:      1,
			wantResolves: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQueueFixture()
			if tt.setup != nil {
				tt.setup(t, f)
			}

			out, err := f.service.Enqueue(context.Background(), EnqueueInput{
				GuildID:     testGuildID,
				Query:       "query",
				RequesterID: 123,
			})

			if f.resolver.calls != tt.wantResolves {
				t.Errorf("expected %d resolves, got %d", tt.wantResolves, f.resolver.calls)
			}
			state := f.repo.Get(testGuildID)
			if state != nil && state.Queue.Len() != tt.wantLen {
				t.Errorf("expected %d items, got %d", tt.wantLen, state.Queue.Len())
			}

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				if tt.wantErr != ErrNotConnected && IsRetryable(err) != tt.wantRetryable {
					t.Errorf("expected retryable %v, got %v", tt.wantRetryable, IsRetryable(err))
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if out.Position != tt.wantPosition {
				t.Errorf("expected position %d, got %d", tt.wantPosition, out.Position)
			}
			if tt.wantPlaying == "" {
				if out.NowPlaying != nil {
					t.Errorf("expected nothing to start, got %q", out.NowPlaying.Title)
				}
				return
			}
			if out.NowPlaying == nil || out.NowPlaying.Handle.Encoded != tt.wantPlaying {
				t.Errorf("expected %q to start, got %v", tt.wantPlaying, out.NowPlaying)
			}
			if !state.IsPlaybackActive() {
				t.Error("expected playback to be active")
			}
		})
	}
}

func TestQueueService_EnqueueRollbackRestoresCurrent(t *testing.T) {
	f := newQueueFixture()
	state := f.playing(t, mockResolvedItem("a"), mockResolvedItem("b"))
	if err := state.Queue.SetCurrentIndex(1); err != nil {
		t.Fatalf("failed to set current index: %v", err)
	}
	state.SetPlaybackActive(false)
	f.resolves(mockItem("c"))

	_, err := f.service.Enqueue(context.Background(), EnqueueInput{GuildID: testGuildID, Query: "c"})

	if !errors.Is(err, ErrNoPlayableTracks) {
		t.Fatalf("expected error %v, got %v", ErrNoPlayableTracks, err)
	}
	if got := state.Queue.CurrentIndex(); got != 1 {
		t.Errorf("expected current index 1, got %d", got)
	}
	if len(f.publisher.trackFailed) != 1 {
		t.Errorf("expected 1 track failed event, got %d", len(f.publisher.trackFailed))
	}
}

func TestQueueService_EnqueueLoopAllStaysOnNewItems(t *testing.T) {
	f := newQueueFixture()
	state := f.playing(t, mockResolvedItem("a"))
	state.Queue.SetLoopAll(context.Background(), true)
	state.SetPlaybackActive(false)
	f.resolves(mockItem("b"))

	out, err := f.service.Enqueue(context.Background(), EnqueueInput{GuildID: testGuildID, Query: "b"})

	if !errors.Is(err, ErrNoPlayableTracks) {
		t.Fatalf("expected error %v, got %v (output %+v)", ErrNoPlayableTracks, err, out)
	}
	var resErr *ResolutionError
	if !errors.As(err, &resErr) {
		t.Fatalf("expected a resolution error, got %T", err)
	}
	if len(f.player.played) != 0 {
		t.Errorf("expected nothing to be played, got %v", f.player.played)
	}
	if got := state.Queue.Len(); got != 1 {
		t.Errorf("expected the new item to be rolled back, got %d items", got)
	}
	if got := state.Queue.CurrentIndex(); got != 0 {
		t.Errorf("expected current index 0, got %d", got)
	}
	if state.IsPlaybackActive() {
		t.Error("expected playback to stay inactive")
	}
}

func TestQueueService_List(t *testing.T) {
	tests := []struct {
		name          string
		items         int
		page          int
		wantPage      int
		wantPages     int
		wantPositions []int
	}{
		{name: "first page", items: 12, page: 1, wantPage: 1, wantPages: 2, wantPositions: seq(0, 10)},
		{name: "last page", items: 12, page: 2, wantPage: 2, wantPages: 2, wantPositions: seq(10, 12)},
		{name: "page past the end is clamped", items: 12, page: 5, wantPage: 2, wantPages: 2, wantPositions: seq(10, 12)},
		{name: "zero page defaults to first", items: 3, page: 0, wantPage: 1, wantPages: 1, wantPositions: seq(0, 3)},
		{name: "empty queue", items: 0, page: 1, wantPage: 1, wantPages: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQueueFixture()
			state := f.repo.createConnectedState(testGuildID, testVoiceChannelID, testNotificationID)
			for i := range tt.items {
				state.Queue.Extend(mockResolvedItem(fmt.Sprint(i)))
			}
			if tt.items > 0 {
				state.SetPlaybackActive(true)
			}

			out, err := f.service.List(QueueListInput{GuildID: testGuildID, Page: tt.page})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if out.CurrentPage != tt.wantPage {
				t.Errorf("expected page %d, got %d", tt.wantPage, out.CurrentPage)
			}
			if out.TotalPages != tt.wantPages {
				t.Errorf("expected %d pages, got %d", tt.wantPages, out.TotalPages)
			}
			if out.TotalItems != tt.items {
				t.Errorf("expected %d items, got %d", tt.items, out.TotalItems)
			}
			if len(out.Entries) != len(tt.wantPositions) {
				t.Fatalf("expected %d entries, got %d", len(tt.wantPositions), len(out.Entries))
			}
			for i, entry := range out.Entries {
				if entry.Position != tt.wantPositions[i] {
					t.Errorf("expected position %d, got %d", tt.wantPositions[i], entry.Position)
				}
				if entry.IsCurrent != (entry.Position == 0) {
					t.Errorf("expected IsCurrent only for position 0, got %v at %d", entry.IsCurrent, entry.Position)
				}
			}
			wantCurrent := -1
			if tt.items > 0 {
				wantCurrent = 0
			}
			if out.CurrentPosition != wantCurrent {
				t.Errorf("expected current position %d, got %d", wantCurrent, out.CurrentPosition)
			}
			if out.LoopMode != "none" {
				t.Errorf("expected loop mode %q, got %q", "none", out.LoopMode)
			}
		})
	}
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}

func TestQueueService_Remove(t *testing.T) {
	tests := []struct {
		name      string
		position  int
		active    bool
		wantErr   error
		wantTitle string
	}{
		{name: "remove upcoming", position: 1, active: true, wantTitle: "Track b"},
		{name: "remove current while playing", position: 0, active: true, wantErr: ErrIsCurrentTrack},
		{name: "remove current while stopped", position: 0, wantTitle: "Track a"},
		{name: "out of range", position: 5, active: true, wantErr: domain.ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newQueueFixture()
			state := f.playing(t, mockResolvedItem("a"), mockResolvedItem("b"), mockResolvedItem("c"))
			state.SetPlaybackActive(tt.active)

			out, err := f.service.Remove(QueueRemoveInput{GuildID: testGuildID, Position: tt.position})

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected error %v, got %v", tt.wantErr, err)
				}
				if state.Queue.Len() != 3 {
					t.Errorf("expected 3 items, got %d", state.Queue.Len())
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if out.RemovedItem.Title != tt.wantTitle {
				t.Errorf("expected %q removed, got %q", tt.wantTitle, out.RemovedItem.Title)
			}
			if state.Queue.Len() != 2 {
				t.Errorf("expected 2 items, got %d", state.Queue.Len())
			}
		})
	}
}

func TestQueueService_MoveAndShuffle(t *testing.T) {
	f := newQueueFixture()
	state := f.playing(t, mockResolvedItem("a"), mockResolvedItem("b"), mockResolvedItem("c"))

	if err := f.service.Move(QueueMoveInput{GuildID: testGuildID, From: 2, To: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	items := state.Queue.Items()
	if items[1].Title != "Track c" || items[2].Title != "Track b" {
		t.Errorf("expected [a c b], got [%s %s %s]", items[0].Title, items[1].Title, items[2].Title)
	}

	if err := f.service.Move(QueueMoveInput{GuildID: testGuildID, From: 1, To: 1}); !errors.Is(err, domain.ErrSamePosition) {
		t.Errorf("expected error %v, got %v", domain.ErrSamePosition, err)
	}

	if err := f.service.Shuffle(QueueGuildInput{GuildID: testGuildID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !state.Queue.IsShuffling() {
		t.Error("expected queue to be shuffling")
	}
	if err := f.service.Unshuffle(QueueGuildInput{GuildID: testGuildID}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state.Queue.IsShuffling() {
		t.Error("expected queue not to be shuffling")
	}
}

func TestQueueService_Clear(t *testing.T) {
	f := newQueueFixture()
	state := f.repo.createConnectedState(testGuildID, testVoiceChannelID, testNotificationID)

	if _, err := f.service.Clear(context.Background(), QueueGuildInput{GuildID: testGuildID}); !errors.Is(err, domain.ErrEmptyQueue) {
		t.Errorf("expected error %v, got %v", domain.ErrEmptyQueue, err)
	}

	state.Queue.Extend(mockResolvedItem("a"), mockResolvedItem("b"))
	state.SetPlaybackActive(true)

	out, err := f.service.Clear(context.Background(), QueueGuildInput{GuildID: testGuildID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.ClearedCount != 2 {
		t.Errorf("expected 2 cleared, got %d", out.ClearedCount)
	}
	if !state.Queue.IsEmpty() {
		t.Errorf("expected empty queue, got %d items", state.Queue.Len())
	}
	if state.IsPlaybackActive() {
		t.Error("expected playback to be inactive")
	}
	if f.player.stopped != 1 {
		t.Errorf("expected 1 stop, got %d", f.player.stopped)
	}
}
