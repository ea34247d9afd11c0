package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/disgoorg/snowflake/v2"
	"github.com/sglre6355/jockey/internal/modules/player/application/ports"
	"github.com/sglre6355/jockey/internal/modules/player/domain"
)

// PauseInput contains the input for the Pause use case.
type PauseInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// ResumeInput contains the input for the Resume use case.
type ResumeInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// StopInput contains the input for the Stop use case.
type StopInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipInput contains the input for the Skip and Rewind use cases.
type SkipInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SkipOutput contains the result of the Skip and Rewind use cases.
type SkipOutput struct {
	SkippedItem *domain.QueueItem
	NextItem    *domain.QueueItem // nil if playback stopped
}

// SkipToInput contains the input for the SkipTo use case.
type SkipToInput struct {
	GuildID               snowflake.ID
	Position              int          // 0-indexed position as shown in the queue list
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// SetLoopModeInput contains the input for the SetLoopMode use case.
type SetLoopModeInput struct {
	GuildID               snowflake.ID
	Mode                  string       // "none", "track", "queue"
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// CycleLoopModeInput contains the input for the CycleLoopMode use case.
type CycleLoopModeInput struct {
	GuildID               snowflake.ID
	NotificationChannelID snowflake.ID // Optional: updates notification channel if non-zero
}

// CycleLoopModeOutput contains the result of the CycleLoopMode use case.
type CycleLoopModeOutput struct {
	NewMode string // "none", "track", "queue"
}

// PlaybackService handles playback operations.
type PlaybackService struct {
	repo      domain.PlayerStateRepository
	locks     *GuildLocks
	finder    PlayableFinder
	player    ports.AudioPlayer
	publisher ports.EventPublisher

	now func() time.Time
}

// NewPlaybackService creates a new PlaybackService. publisher may be nil.
func NewPlaybackService(
	repo domain.PlayerStateRepository,
	locks *GuildLocks,
	finder PlayableFinder,
	player ports.AudioPlayer,
	publisher ports.EventPublisher,
) *PlaybackService {
	return &PlaybackService{
		repo:      repo,
		locks:     locks,
		finder:    finder,
		player:    player,
		publisher: publisher,
		now:       time.Now,
	}
}

// Pause pauses the current playback.
func (p *PlaybackService) Pause(ctx context.Context, input PauseInput) error {
	unlock := p.locks.Lock(input.GuildID)
	defer unlock()

	state, err := p.state(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	if !state.IsPlaybackActive() {
		return ErrNotPlaying
	}
	if state.IsPaused() {
		return ErrAlreadyPaused
	}

	if err := p.player.Pause(ctx, input.GuildID); err != nil {
		return err
	}
	state.SetPaused(true)

	return nil
}

// Resume resumes the paused playback.
func (p *PlaybackService) Resume(ctx context.Context, input ResumeInput) error {
	unlock := p.locks.Lock(input.GuildID)
	defer unlock()

	state, err := p.state(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	if !state.IsPlaybackActive() {
		return ErrNotPlaying
	}
	if !state.IsPaused() {
		return ErrNotPaused
	}

	if err := p.player.Resume(ctx, input.GuildID); err != nil {
		return err
	}
	state.SetPaused(false)

	return nil
}

// Stop stops playback and keeps the queue.
func (p *PlaybackService) Stop(ctx context.Context, input StopInput) error {
	unlock := p.locks.Lock(input.GuildID)
	defer unlock()

	state, err := p.state(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	if !state.IsPlaybackActive() {
		return ErrNotPlaying
	}

	if err := p.player.Stop(ctx, input.GuildID); err != nil {
		return err
	}
	p.finishPlayback(state)

	return nil
}

// Skip moves to the next item and plays it. Skip always moves forward, even when the
// current item is looping.
func (p *PlaybackService) Skip(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	return p.step(ctx, input, 1)
}

// Rewind moves to the previous item and plays it. At the start of a queue that does
// not loop, the current item restarts.
func (p *PlaybackService) Rewind(ctx context.Context, input SkipInput) (*SkipOutput, error) {
	return p.step(ctx, input, -1)
}

func (p *PlaybackService) step(ctx context.Context, input SkipInput, delta int) (*SkipOutput, error) {
	unlock := p.locks.Lock(input.GuildID)
	defer unlock()

	state, err := p.state(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}
	skipped, err := state.Queue.Current()
	if err != nil || !state.IsPlaybackActive() {
		return nil, ErrNotPlaying
	}

	next, err := state.Queue.Step(state.Queue.CurrentIndex(), delta)
	switch {
	case errors.Is(err, domain.ErrEndOfQueue) && delta < 0:
		next = state.Queue.CurrentIndex()
	case errors.Is(err, domain.ErrEndOfQueue):
		if err := p.player.Stop(ctx, input.GuildID); err != nil {
			return nil, err
		}
		p.finishPlayback(state)
		return &SkipOutput{SkippedItem: skipped}, nil
	case err != nil:
		return nil, err
	}

	item, err := p.playFrom(ctx, state, next, delta, 0)
	if err != nil {
		return nil, err
	}

	return &SkipOutput{
		SkippedItem: skipped,
		NextItem:    item,
	}, nil
}

// SkipTo jumps to the item at the given position and plays it.
func (p *PlaybackService) SkipTo(ctx context.Context, input SkipToInput) (*domain.QueueItem, error) {
	unlock := p.locks.Lock(input.GuildID)
	defer unlock()

	state, err := p.state(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}
	if state.Queue.IsEmpty() {
		return nil, domain.ErrEmptyQueue
	}
	if input.Position < 0 || input.Position >= state.Queue.Len() {
		return nil, fmt.Errorf("%w: position %d", domain.ErrOutOfRange, input.Position)
	}

	return p.playFrom(ctx, state, state.Queue.Order().Logical(input.Position), 1, 0)
}

// SetLoopMode sets the loop mode for the guild's queue.
func (p *PlaybackService) SetLoopMode(ctx context.Context, input SetLoopModeInput) error {
	unlock := p.locks.Lock(input.GuildID)
	defer unlock()

	state, err := p.state(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return err
	}
	state.Queue.SetLoopMode(ctx, domain.ParseLoopMode(input.Mode))

	return nil
}

// CycleLoopMode cycles through loop modes: None -> Track -> Queue -> None.
func (p *PlaybackService) CycleLoopMode(
	ctx context.Context,
	input CycleLoopModeInput,
) (*CycleLoopModeOutput, error) {
	unlock := p.locks.Lock(input.GuildID)
	defer unlock()

	state, err := p.state(input.GuildID, input.NotificationChannelID)
	if err != nil {
		return nil, err
	}
	mode := state.Queue.LoopMode().Next()
	state.Queue.SetLoopMode(ctx, mode)

	return &CycleLoopModeOutput{NewMode: mode.String()}, nil
}

// OnTrackEnded advances the queue after the audio player finished an item. A load
// failure invalidates the cached handle and retries the item once with a fresh lookup
// before moving on.
func (p *PlaybackService) OnTrackEnded(ctx context.Context, event domain.TrackEndedEvent) {
	if !event.Reason.ShouldAdvanceQueue() {
		slog.Debug("track ended but should not advance queue",
			"guild", event.GuildID,
			"reason", event.Reason,
		)
		return
	}

	unlock := p.locks.Lock(event.GuildID)
	defer unlock()

	state := p.repo.Get(event.GuildID)
	if state == nil {
		slog.Debug("track ended but no player state", "guild", event.GuildID)
		return
	}
	current, err := state.Queue.Current()
	if err != nil || !state.IsPlaybackActive() {
		return
	}

	slog.Debug("track ended, advancing queue",
		"guild", event.GuildID,
		"reason", event.Reason,
		"loop_mode", state.Queue.LoopMode().String(),
	)

	var next int
	if event.Reason == domain.TrackEndLoadFailed {
		if p.retryFailedLoad(ctx, state, current) {
			return
		}
		p.publishTrackFailed(state, current, "the audio source could not be loaded")
		next, err = state.Queue.Step(state.Queue.CurrentIndex(), 1)
	} else {
		state.ClearRetried()
		next, err = state.Queue.CalcNextIndex(1)
	}
	if err != nil {
		slog.Debug("reached the end of the queue", "guild", event.GuildID)
		p.finishPlayback(state)
		return
	}

	if _, err := p.playFrom(ctx, state, next, 1, 0); err != nil {
		slog.Error("failed to play next item after track ended",
			"guild", event.GuildID,
			"error", err,
		)
	}
}

// retryFailedLoad replays item with a freshly looked up handle, once per item.
// Items that arrived with a provider handle and no catalog identity are not retried.
func (p *PlaybackService) retryFailedLoad(ctx context.Context, state *domain.PlayerState, item *domain.QueueItem) bool {
	p.finder.Invalidate(ctx, item)
	if item.ContentID == "" && item.ISRC == "" {
		return false
	}
	if !state.MarkRetried(item) {
		return false
	}

	slog.Warn("retrying item with a fresh lookup", "guild", state.GuildID(), "title", item.Title)
	if _, err := p.finder.FindPlayable(ctx, item, FindOptions{ForceLookup: true}); err != nil {
		slog.Warn("fresh lookup failed", "guild", state.GuildID(), "title", item.Title, "error", err)
		return false
	}
	if err := p.play(ctx, state, item); err != nil {
		slog.Warn("replay failed", "guild", state.GuildID(), "title", item.Title, "error", err)
		return false
	}
	return true
}

// playFrom plays the item at logical index start. When it cannot be played the
// items after it in direction are tried, each index at most once, bounded by the
// queue length. Logical indices below floor are never tried, so a caller can
// confine the attempt to items it just appended. Playback stops when nothing
// could be played.
func (p *PlaybackService) playFrom(
	ctx context.Context,
	state *domain.PlayerState,
	start, direction, floor int,
) (*domain.QueueItem, error) {
	queue := state.Queue
	tried := make(map[int]bool, queue.Len())

	idx := start
	for range queue.Len() {
		if tried[idx] {
			break
		}
		tried[idx] = true

		item, err := queue.At(idx)
		if err != nil {
			return nil, err
		}
		if err := queue.SetCurrentIndex(idx); err != nil {
			return nil, err
		}

		err = p.resolveAndPlay(ctx, state, item)
		if err == nil {
			return item, nil
		}
		slog.Warn("failed to start item, trying the next one",
			"guild", state.GuildID(),
			"title", item.Title,
			"error", err,
		)
		p.publishTrackFailed(state, item, UserMessage(err))

		next, err := queue.Step(idx, direction)
		if err != nil || next < floor {
			break
		}
		idx = next
	}

	p.finishPlayback(state)
	return nil, ErrNoPlayableTracks
}

func (p *PlaybackService) resolveAndPlay(ctx context.Context, state *domain.PlayerState, item *domain.QueueItem) error {
	if !item.IsResolved() {
		if _, err := p.finder.FindPlayable(ctx, item, FindOptions{}); err != nil {
			return err
		}
	}
	return p.play(ctx, state, item)
}

func (p *PlaybackService) play(ctx context.Context, state *domain.PlayerState, item *domain.QueueItem) error {
	if err := p.player.Play(ctx, state.GuildID(), *item.Handle); err != nil {
		return fmt.Errorf("failed to play %q: %w", item.Title, err)
	}

	item.StartedAt = p.now()
	state.SetPlaybackActive(true)
	state.SetPaused(false)

	if p.publisher != nil {
		p.publisher.PublishPlaybackStarted(domain.PlaybackStartedEvent{
			GuildID:               state.GuildID(),
			Item:                  item,
			NotificationChannelID: state.NotificationChannelID(),
		})
	}
	return nil
}

// finishPlayback marks playback inactive and retires the "Now Playing" message.
func (p *PlaybackService) finishPlayback(state *domain.PlayerState) {
	state.SetPlaybackActive(false)
	state.ClearRetried()
	publishPlaybackFinished(p.publisher, state)
}

func (p *PlaybackService) publishTrackFailed(state *domain.PlayerState, item *domain.QueueItem, reason string) {
	if p.publisher == nil {
		return
	}
	title, _ := item.Details()
	p.publisher.PublishTrackFailed(domain.TrackFailedEvent{
		GuildID:               state.GuildID(),
		NotificationChannelID: state.NotificationChannelID(),
		Title:                 title,
		Reason:                reason,
	})
}

func (p *PlaybackService) state(guildID, notificationChannelID snowflake.ID) (*domain.PlayerState, error) {
	return lookupState(p.repo, guildID, notificationChannelID)
}

// lookupState returns the guild's state, updating its notification channel if
// notificationChannelID is non-zero.
func lookupState(
	repo domain.PlayerStateRepository,
	guildID, notificationChannelID snowflake.ID,
) (*domain.PlayerState, error) {
	state := repo.Get(guildID)
	if state == nil {
		return nil, ErrNotConnected
	}
	if notificationChannelID != 0 {
		state.SetNotificationChannelID(notificationChannelID)
	}
	return state, nil
}

func publishPlaybackFinished(publisher ports.EventPublisher, state *domain.PlayerState) {
	if publisher == nil {
		return
	}
	msg := state.NowPlayingMessage()
	if msg == nil {
		return
	}
	publisher.PublishPlaybackFinished(domain.PlaybackFinishedEvent{
		GuildID:               state.GuildID(),
		NotificationChannelID: msg.ChannelID,
		LastMessageID:         &msg.MessageID,
	})
}
